// Package scheduler drives the sync manager on a recurring timer, with
// a re-entrancy guard and bounded retry.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/idleeyan/tabsync/internal/logger"
	"github.com/idleeyan/tabsync/internal/syncer"
)

// ErrSyncInProgress means a tick arrived while a previous cycle was
// still in flight. The new tick is skipped, never queued.
var ErrSyncInProgress = errors.New("sync in progress")

const (
	maxAttempts = 3
	// retryStep grows the wait linearly: 2s, 4s between attempts.
	retryStep = 2 * time.Second
)

// Interval bounds, enforced by the configuration surfaces (the HTTP
// handler and the seed loader), not by the loop itself.
const (
	DefaultIntervalMinutes = 30
	MinIntervalMinutes     = 5
)

// Config controls the automatic sync loop. Interval minimums are
// enforced at the caller's boundary, not here.
type Config struct {
	Enabled         bool   `json:"enabled" yaml:"enabled"`
	IntervalMinutes int    `json:"interval" yaml:"intervalMinutes"`
	SyncOnStart     bool   `json:"syncOnStart" yaml:"syncOnStart"`
	LastSyncTime    int64  `json:"lastSyncTime,omitempty" yaml:"-"`
	LastError       string `json:"lastError,omitempty" yaml:"-"`
}

// Interval returns the tick period.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// Syncer is the operation a tick drives.
type Syncer interface {
	SmartSync(ctx context.Context) (*syncer.Result, error)
}

// ConfigStore persists scheduler configuration and tick outcomes.
type ConfigStore interface {
	AutoSyncConfig(ctx context.Context) (Config, error)
	SaveAutoSyncConfig(ctx context.Context, cfg Config) error
}

// AutoSync periodically triggers the sync manager. One mutex
// serializes all cycles regardless of trigger source: scheduled ticks
// and manual "sync now" calls go through the same Tick, so they can
// never run a second merge concurrently.
type AutoSync struct {
	manager Syncer
	store   ConfigStore
	log     logger.Logger
	now     func() time.Time

	// syncMu is the re-entrancy guard around one sync cycle.
	syncMu sync.Mutex

	// runMu guards cfg and the timer lifecycle.
	runMu   sync.Mutex
	cfg     Config
	stopCh  chan struct{}
	baseCtx context.Context

	retryStep time.Duration
}

// New creates a scheduler. Call LoadConfig (or Apply) before Start.
func New(manager Syncer, store ConfigStore, log logger.Logger) *AutoSync {
	return &AutoSync{
		manager:   manager,
		store:     store,
		log:       log,
		now:       time.Now,
		retryStep: retryStep,
		baseCtx:   context.Background(),
	}
}

// LoadConfig reads the stored configuration.
func (a *AutoSync) LoadConfig(ctx context.Context) error {
	cfg, err := a.store.AutoSyncConfig(ctx)
	if err != nil {
		return err
	}
	a.runMu.Lock()
	a.cfg = cfg
	a.runMu.Unlock()
	return nil
}

// Apply saves cfg and re-arms the timer to match it. The timer keeps
// running on the context given to Start, not on ctx, so a short-lived
// request context can reconfigure a long-lived loop.
func (a *AutoSync) Apply(ctx context.Context, cfg Config) error {
	if err := a.store.SaveAutoSyncConfig(ctx, cfg); err != nil {
		return err
	}
	a.runMu.Lock()
	a.cfg = cfg
	base := a.baseCtx
	a.runMu.Unlock()
	a.Start(base)
	return nil
}

// Start clears any existing timer and arms a new recurring one at the
// configured interval. A no-op (beyond clearing) when disabled. The
// loop stops when ctx is canceled.
func (a *AutoSync) Start(ctx context.Context) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	a.baseCtx = ctx
	a.stopLocked()

	if !a.cfg.Enabled {
		a.log.Info("auto sync disabled")
		return
	}

	stopCh := make(chan struct{})
	a.stopCh = stopCh
	interval := a.cfg.Interval()

	a.log.Info("auto sync started",
		logger.Duration("interval", interval),
		logger.Bool("syncOnStart", a.cfg.SyncOnStart))

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := a.Tick(ctx); err != nil && !errors.Is(err, ErrSyncInProgress) {
					a.log.Error("scheduled sync failed", logger.Error(err))
				}
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop clears the timer. Idempotent.
func (a *AutoSync) Stop() {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	a.stopLocked()
}

func (a *AutoSync) stopLocked() {
	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
		a.log.Info("auto sync stopped")
	}
}

// Tick runs one guarded sync cycle: up to three attempts with linearly
// increasing backoff, stopping at the first success. A tick that
// arrives while another cycle is in flight resolves to
// ErrSyncInProgress without starting a second merge. The outcome is
// persisted win or lose.
func (a *AutoSync) Tick(ctx context.Context) (*syncer.Result, error) {
	if !a.syncMu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer a.syncMu.Unlock()

	var (
		result *syncer.Result
		err    error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err = a.manager.SmartSync(ctx)
		if err == nil {
			break
		}
		if errors.Is(err, syncer.ErrNotConfigured) {
			// Retrying cannot configure an endpoint.
			break
		}

		a.log.Warn("sync attempt failed",
			logger.Int("attempt", attempt),
			logger.Error(err))

		if attempt == maxAttempts {
			break
		}
		select {
		case <-time.After(time.Duration(attempt) * a.retryStep):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	a.recordOutcome(ctx, result, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SyncOnStartIfEnabled runs one tick immediately when both the enabled
// and sync-on-start flags are set; otherwise it is a no-op.
func (a *AutoSync) SyncOnStartIfEnabled(ctx context.Context) {
	a.runMu.Lock()
	cfg := a.cfg
	a.runMu.Unlock()

	if !cfg.Enabled || !cfg.SyncOnStart {
		return
	}

	a.log.Info("running startup sync")
	if _, err := a.Tick(ctx); err != nil {
		a.log.Warn("startup sync failed", logger.Error(err))
	}
}

// State is the scheduler's current configuration and liveness.
type State struct {
	Enabled         bool   `json:"enabled"`
	IntervalMinutes int    `json:"interval"`
	SyncOnStart     bool   `json:"syncOnStart"`
	LastSyncTime    int64  `json:"lastSyncTime,omitempty"`
	LastError       string `json:"lastError,omitempty"`
	Running         bool   `json:"running"`
}

// State reports the current scheduler state.
func (a *AutoSync) State() State {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return State{
		Enabled:         a.cfg.Enabled,
		IntervalMinutes: a.cfg.IntervalMinutes,
		SyncOnStart:     a.cfg.SyncOnStart,
		LastSyncTime:    a.cfg.LastSyncTime,
		LastError:       a.cfg.LastError,
		Running:         a.stopCh != nil,
	}
}

// recordOutcome stamps the tick result onto the stored configuration.
func (a *AutoSync) recordOutcome(ctx context.Context, result *syncer.Result, tickErr error) {
	a.runMu.Lock()
	a.cfg.LastSyncTime = a.now().UnixMilli()
	if tickErr != nil {
		a.cfg.LastError = tickErr.Error()
	} else {
		a.cfg.LastError = ""
	}
	cfg := a.cfg
	a.runMu.Unlock()

	if err := a.store.SaveAutoSyncConfig(ctx, cfg); err != nil {
		a.log.Warn("failed to persist auto sync state", logger.Error(err))
	}

	if tickErr == nil && result != nil {
		a.log.Info("auto sync completed",
			logger.String("direction", string(result.Direction)),
			logger.Int("bookmarks", result.Bookmarks))
	}
}
