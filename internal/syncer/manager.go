package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/idleeyan/tabsync/internal/domain"
	"github.com/idleeyan/tabsync/internal/logger"
	"github.com/idleeyan/tabsync/internal/merge"
	"github.com/idleeyan/tabsync/internal/webdav"
)

// Manager runs sync cycles against one Store. It holds no live client:
// a fresh one is built per operation from the stored configuration, so
// configuration changes take effect on the next cycle.
type Manager struct {
	store   Store
	clients ClientFactory
	log     logger.Logger
	now     func() time.Time
}

// New creates a sync manager. A nil clients factory defaults to real
// HTTP clients.
func New(store Store, clients ClientFactory, log logger.Logger) *Manager {
	if clients == nil {
		clients = func(cfg webdav.RemoteConfig) *webdav.Client {
			return webdav.New(cfg, log)
		}
	}
	return &Manager{
		store:   store,
		clients: clients,
		log:     log,
		now:     time.Now,
	}
}

// client builds a transport client from the stored configuration.
func (m *Manager) client(ctx context.Context) (*webdav.Client, error) {
	cfg, err := m.store.RemoteConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load webdav config: %w", err)
	}
	if cfg == nil || !cfg.Complete() {
		return nil, ErrNotConfigured
	}
	return m.clients(*cfg), nil
}

// SmartSync runs one full bidirectional cycle.
//
// Download always precedes merge, merge always precedes any write. A
// cycle that fails at the download step leaves local and remote state
// untouched. When the merge changed the local side, the merged
// snapshot is persisted before any upload is attempted, so a crash or
// upload failure past that point leaves a well-defined "local ahead of
// remote" state the next cycle resolves by re-uploading.
func (m *Manager) SmartSync(ctx context.Context) (*Result, error) {
	client, err := m.client(ctx)
	if err != nil {
		return nil, err
	}

	local, err := m.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read local snapshot: %w", err)
	}

	env, err := client.Download(ctx)
	if err != nil {
		if errors.Is(err, webdav.ErrNoRemoteData) {
			// First sync: nothing uploaded yet, push everything up.
			m.log.Info("no remote snapshot yet, uploading local data")
			return m.SyncToCloud(ctx)
		}
		return nil, err
	}

	remote := env.Data
	if remote == nil {
		remote = &domain.Snapshot{}
	}

	localModify, err := m.store.LocalModify(ctx)
	if err != nil {
		return nil, fmt.Errorf("read local modify time: %w", err)
	}

	now := m.now()
	merged := &domain.Snapshot{
		Bookmarks: merge.Bookmarks(local.Bookmarks, remote.Bookmarks, local.Deleted, remote.Deleted),
		Deleted:   merge.Tombstones(local.Deleted, remote.Deleted, now),
		Notes:     merge.Notes(local.Notes, remote.Notes),
		Settings:  merge.Settings(local.Settings, remote.Settings),
	}

	localChanged := merge.Changed(local, merged)
	serverChanged := merge.Changed(remote, merged)

	m.log.Debug("merge computed",
		logger.Bool("localChanged", localChanged),
		logger.Bool("serverChanged", serverChanged),
		logger.Int("bookmarks", len(merged.Bookmarks)))

	if !localChanged && !serverChanged {
		if err := m.store.RecordSync(ctx, now, DirectionNone); err != nil {
			return nil, fmt.Errorf("record sync: %w", err)
		}
		return &Result{
			Direction: DirectionNone,
			Bookmarks: len(merged.Bookmarks),
			SyncedAt:  now.UnixMilli(),
			Message:   "already up to date",
		}, nil
	}

	if localChanged {
		// Persist the merge before the upload so a crash here cannot
		// lose it. Local data is never rolled back afterwards.
		if err := m.store.SaveSnapshot(ctx, merged); err != nil {
			return nil, fmt.Errorf("persist merged snapshot: %w", err)
		}
		if err := m.store.SetLocalModify(ctx, now); err != nil {
			return nil, fmt.Errorf("stamp local modify: %w", err)
		}
	}

	direction := DirectionDownload
	serverStale := serverChanged || localModify.UnixMilli() > env.Timestamp
	if serverStale {
		if err := client.Upload(ctx, merged); err != nil {
			// Local already holds the merge; the caller retries the
			// upload on the next cycle.
			return nil, fmt.Errorf("upload merged snapshot: %w", err)
		}
		direction = DirectionUpload
	}

	if err := m.store.RecordSync(ctx, now, direction); err != nil {
		return nil, fmt.Errorf("record sync: %w", err)
	}

	m.log.Info("smart sync completed",
		logger.String("direction", string(direction)),
		logger.Bool("localUpdated", localChanged),
		logger.Bool("serverUpdated", serverStale),
		logger.Int("bookmarks", len(merged.Bookmarks)))

	return &Result{
		Direction:     direction,
		LocalUpdated:  localChanged,
		ServerUpdated: serverStale,
		Bookmarks:     len(merged.Bookmarks),
		SyncedAt:      now.UnixMilli(),
	}, nil
}

// SyncToCloud uploads the current local snapshot wholesale, bypassing
// merge. Used for the first sync and for explicit push actions.
func (m *Manager) SyncToCloud(ctx context.Context) (*Result, error) {
	client, err := m.client(ctx)
	if err != nil {
		return nil, err
	}

	snap, err := m.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read local snapshot: %w", err)
	}

	if err := client.Upload(ctx, snap); err != nil {
		return nil, err
	}

	now := m.now()
	if err := m.store.SetLocalModify(ctx, now); err != nil {
		return nil, fmt.Errorf("stamp local modify: %w", err)
	}
	if err := m.store.RecordSync(ctx, now, DirectionUpload); err != nil {
		return nil, fmt.Errorf("record sync: %w", err)
	}

	m.log.Info("local snapshot pushed",
		logger.Int("bookmarks", len(snap.Bookmarks)))

	return &Result{
		Direction:     DirectionUpload,
		ServerUpdated: true,
		Bookmarks:     len(snap.Bookmarks),
		SyncedAt:      now.UnixMilli(),
	}, nil
}

// SyncFromCloud overwrites the local document set with the remote
// snapshot, bypassing merge. Local-only changes are discarded; callers
// own warning the user.
func (m *Manager) SyncFromCloud(ctx context.Context) (*Result, error) {
	client, err := m.client(ctx)
	if err != nil {
		return nil, err
	}

	env, err := client.Download(ctx)
	if err != nil {
		return nil, err
	}
	remote := env.Data
	if remote == nil {
		remote = &domain.Snapshot{}
	}

	if err := m.store.SaveSnapshot(ctx, remote); err != nil {
		return nil, fmt.Errorf("persist remote snapshot: %w", err)
	}

	now := m.now()
	if err := m.store.SetLocalModify(ctx, now); err != nil {
		return nil, fmt.Errorf("stamp local modify: %w", err)
	}
	if err := m.store.RecordSync(ctx, now, DirectionDownload); err != nil {
		return nil, fmt.Errorf("record sync: %w", err)
	}

	m.log.Info("remote snapshot pulled",
		logger.Int("bookmarks", len(remote.Bookmarks)),
		logger.Int64("remoteTimestamp", env.Timestamp))

	return &Result{
		Direction:    DirectionDownload,
		LocalUpdated: true,
		Bookmarks:    len(remote.Bookmarks),
		SyncedAt:     now.UnixMilli(),
	}, nil
}

// TestConnection probes the store described by cfg with a throwaway
// client, without touching any stored configuration.
func (m *Manager) TestConnection(ctx context.Context, cfg webdav.RemoteConfig) bool {
	return m.clients(cfg.WithDefaults()).Probe(ctx)
}

// Status reports the current sync state, including remote file
// metadata when an endpoint is configured and answering.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	cfg, err := m.store.RemoteConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load webdav config: %w", err)
	}
	if cfg == nil || !cfg.Complete() {
		return &Status{}, nil
	}

	st := &Status{
		Configured: true,
		ServerURL:  cfg.ServerURL,
	}

	if lm, err := m.store.LocalModify(ctx); err == nil && !lm.IsZero() {
		st.LastLocalModify = lm.UnixMilli()
	}
	if last, dir, err := m.store.LastSync(ctx); err == nil && !last.IsZero() {
		st.LastSync = last.UnixMilli()
		st.LastDirection = dir
	}
	if meta, err := m.clients(*cfg).Metadata(ctx); err == nil {
		st.Remote = meta
	}

	return st, nil
}
