// Package syncer orchestrates one synchronization cycle: download the
// remote snapshot, merge with the local one, then write local and/or
// remote state depending on what the merge changed. Nothing is written
// before a fully computed merge result exists.
package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/idleeyan/tabsync/internal/domain"
	"github.com/idleeyan/tabsync/internal/webdav"
)

// ErrNotConfigured means no remote endpoint credentials are stored.
// The caller can tell "nothing to sync with" apart from "sync failed".
var ErrNotConfigured = errors.New("webdav not configured")

// Direction reports which way a completed cycle moved data.
type Direction string

const (
	DirectionNone     Direction = "none"
	DirectionUpload   Direction = "upload"
	DirectionDownload Direction = "download"
)

// Store is the local key-value document set the engine reads, merges
// and rewrites. The store offers no locking of its own: every call
// must be a single atomic write, and the manager's merge-before-write
// ordering provides the consistency.
type Store interface {
	// Snapshot reads the full local document set.
	Snapshot(ctx context.Context) (*domain.Snapshot, error)

	// SaveSnapshot replaces the full local document set.
	SaveSnapshot(ctx context.Context, snap *domain.Snapshot) error

	// LocalModify returns when local data last changed (zero when
	// never stamped).
	LocalModify(ctx context.Context) (time.Time, error)

	// SetLocalModify stamps the local-modify time.
	SetLocalModify(ctx context.Context, at time.Time) error

	// LastSync returns the last completed sync and its direction.
	LastSync(ctx context.Context) (time.Time, Direction, error)

	// RecordSync stamps a completed sync.
	RecordSync(ctx context.Context, at time.Time, direction Direction) error

	// RemoteConfig returns the stored endpoint configuration, nil
	// when none is set.
	RemoteConfig(ctx context.Context) (*webdav.RemoteConfig, error)
}

// ClientFactory builds a transport client for a remote configuration.
// Swapped in tests for a client over a fake transport.
type ClientFactory func(cfg webdav.RemoteConfig) *webdav.Client

// Result describes one completed sync cycle.
type Result struct {
	Direction     Direction `json:"direction"`
	LocalUpdated  bool      `json:"localUpdated"`
	ServerUpdated bool      `json:"serverUpdated"`
	Bookmarks     int       `json:"bookmarks"`
	SyncedAt      int64     `json:"syncedAt"`
	Message       string    `json:"message,omitempty"`
}

// Status is the current sync state for display.
type Status struct {
	Configured      bool             `json:"configured"`
	ServerURL       string           `json:"serverUrl,omitempty"`
	LastSync        int64            `json:"lastSync,omitempty"`
	LastDirection   Direction        `json:"lastDirection,omitempty"`
	LastLocalModify int64            `json:"lastLocalModify,omitempty"`
	Remote          *webdav.Metadata `json:"remote,omitempty"`
}
