// Package redis persists the sync document set in a Redis namespace,
// one key per field. Each write is a single atomic call; the sync
// manager's ordering discipline provides consistency, not store-level
// locking.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/idleeyan/tabsync/internal/domain"
	"github.com/idleeyan/tabsync/internal/scheduler"
	"github.com/idleeyan/tabsync/internal/syncer"
	"github.com/idleeyan/tabsync/internal/webdav"
)

// Store handles Redis operations for the sync document set.
type Store struct {
	client *goredis.Client
}

// NewStore creates a new Redis store.
func NewStore(client *goredis.Client) *Store {
	return &Store{client: client}
}

// Snapshot reads the full local document set.
func (s *Store) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	vals, err := s.client.MGet(ctx,
		KeyBookmarks, KeyDeleted, KeyNotes,
		KeyCardSize, KeyCardShape, KeySortBy,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot fields: %w", err)
	}

	snap := &domain.Snapshot{}
	if err := decodeJSON(vals[0], &snap.Bookmarks); err != nil {
		return nil, fmt.Errorf("failed to decode bookmarks: %w", err)
	}
	if err := decodeJSON(vals[1], &snap.Deleted); err != nil {
		return nil, fmt.Errorf("failed to decode tombstones: %w", err)
	}
	if err := decodeJSON(vals[2], &snap.Notes); err != nil {
		return nil, fmt.Errorf("failed to decode notes: %w", err)
	}
	snap.CardSize = stringField(vals[3])
	snap.CardShape = stringField(vals[4])
	snap.SortBy = stringField(vals[5])

	return snap, nil
}

// SaveSnapshot replaces the full local document set.
func (s *Store) SaveSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	bookmarks, err := json.Marshal(snap.Bookmarks)
	if err != nil {
		return fmt.Errorf("failed to marshal bookmarks: %w", err)
	}
	deleted, err := json.Marshal(snap.Deleted)
	if err != nil {
		return fmt.Errorf("failed to marshal tombstones: %w", err)
	}
	notes, err := json.Marshal(snap.Notes)
	if err != nil {
		return fmt.Errorf("failed to marshal notes: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, KeyBookmarks, bookmarks, 0)
	pipe.Set(ctx, KeyDeleted, deleted, 0)
	pipe.Set(ctx, KeyNotes, notes, 0)
	setOrDel(ctx, pipe, KeyCardSize, snap.CardSize)
	setOrDel(ctx, pipe, KeyCardShape, snap.CardShape)
	setOrDel(ctx, pipe, KeySortBy, snap.SortBy)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LocalModify returns when local data last changed.
func (s *Store) LocalModify(ctx context.Context) (time.Time, error) {
	return s.getTime(ctx, KeyLocalModify)
}

// SetLocalModify stamps the local-modify time.
func (s *Store) SetLocalModify(ctx context.Context, at time.Time) error {
	if err := s.client.Set(ctx, KeyLocalModify, at.UnixMilli(), 0).Err(); err != nil {
		return fmt.Errorf("failed to stamp local modify: %w", err)
	}
	return nil
}

// LastSync returns the last completed sync and its direction.
func (s *Store) LastSync(ctx context.Context) (time.Time, syncer.Direction, error) {
	at, err := s.getTime(ctx, KeyLastSync)
	if err != nil {
		return time.Time{}, "", err
	}

	dir, err := s.client.Get(ctx, KeyLastDirection).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return time.Time{}, "", fmt.Errorf("failed to read sync direction: %w", err)
	}
	return at, syncer.Direction(dir), nil
}

// RecordSync stamps a completed sync.
func (s *Store) RecordSync(ctx context.Context, at time.Time, direction syncer.Direction) error {
	pipe := s.client.Pipeline()
	pipe.Set(ctx, KeyLastSync, at.UnixMilli(), 0)
	pipe.Set(ctx, KeyLastDirection, string(direction), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record sync: %w", err)
	}
	return nil
}

// RemoteConfig returns the stored endpoint configuration, nil when
// none is set.
func (s *Store) RemoteConfig(ctx context.Context) (*webdav.RemoteConfig, error) {
	data, err := s.client.Get(ctx, KeyRemoteConfig).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read webdav config: %w", err)
	}

	var cfg webdav.RemoteConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode webdav config: %w", err)
	}
	return &cfg, nil
}

// SaveRemoteConfig stores the endpoint configuration.
func (s *Store) SaveRemoteConfig(ctx context.Context, cfg webdav.RemoteConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal webdav config: %w", err)
	}
	if err := s.client.Set(ctx, KeyRemoteConfig, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save webdav config: %w", err)
	}
	return nil
}

// ClearRemoteConfig removes the endpoint configuration together with
// the sync bookkeeping that only makes sense against it.
func (s *Store) ClearRemoteConfig(ctx context.Context) error {
	err := s.client.Del(ctx,
		KeyRemoteConfig, KeyLastSync, KeyLastDirection,
		KeyLocalModify, KeyDeleted,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to clear webdav config: %w", err)
	}
	return nil
}

// HasAutoSyncConfig reports whether a scheduler configuration has been
// stored, as opposed to the defaults AutoSyncConfig falls back to.
func (s *Store) HasAutoSyncConfig(ctx context.Context) (bool, error) {
	n, err := s.client.Exists(ctx, KeyAutoSyncConfig).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check auto sync config: %w", err)
	}
	return n > 0, nil
}

// AutoSyncConfig returns the stored scheduler configuration, defaults
// when none is set.
func (s *Store) AutoSyncConfig(ctx context.Context) (scheduler.Config, error) {
	cfg := scheduler.Config{IntervalMinutes: scheduler.DefaultIntervalMinutes}

	data, err := s.client.Get(ctx, KeyAutoSyncConfig).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read auto sync config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode auto sync config: %w", err)
	}
	return cfg, nil
}

// SaveAutoSyncConfig stores the scheduler configuration.
func (s *Store) SaveAutoSyncConfig(ctx context.Context, cfg scheduler.Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal auto sync config: %w", err)
	}
	if err := s.client.Set(ctx, KeyAutoSyncConfig, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save auto sync config: %w", err)
	}
	return nil
}

// getTime reads an epoch-millisecond key, zero time when unset.
func (s *Store) getTime(ctx context.Context, key string) (time.Time, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to read %s: %w", key, err)
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp at %s: %w", key, err)
	}
	return time.UnixMilli(ms), nil
}

func decodeJSON(v interface{}, dst interface{}) error {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), dst)
}

func stringField(v interface{}) string {
	s, _ := v.(string)
	return s
}

func setOrDel(ctx context.Context, pipe goredis.Pipeliner, key, val string) {
	if val == "" {
		pipe.Del(ctx, key)
		return
	}
	pipe.Set(ctx, key, val, 0)
}
