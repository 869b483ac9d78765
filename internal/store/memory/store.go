// Package memory provides an in-memory document store for tests;
// contents vanish with the process.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/idleeyan/tabsync/internal/domain"
	"github.com/idleeyan/tabsync/internal/syncer"
	"github.com/idleeyan/tabsync/internal/webdav"
)

// Store is a mutex-guarded in-memory implementation of syncer.Store.
type Store struct {
	mu            sync.RWMutex
	snap          *domain.Snapshot
	localModify   time.Time
	lastSync      time.Time
	lastDirection syncer.Direction
	remote        *webdav.RemoteConfig
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{snap: &domain.Snapshot{}}
}

func (s *Store) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone(), nil
}

func (s *Store) SaveSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap.Clone()
	return nil
}

func (s *Store) LocalModify(ctx context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.localModify, nil
}

func (s *Store) SetLocalModify(ctx context.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localModify = at
	return nil
}

func (s *Store) LastSync(ctx context.Context) (time.Time, syncer.Direction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync, s.lastDirection, nil
}

func (s *Store) RecordSync(ctx context.Context, at time.Time, direction syncer.Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSync = at
	s.lastDirection = direction
	return nil
}

func (s *Store) RemoteConfig(ctx context.Context) (*webdav.RemoteConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.remote == nil {
		return nil, nil
	}
	cfg := *s.remote
	return &cfg, nil
}

// SaveRemoteConfig stores the endpoint configuration.
func (s *Store) SaveRemoteConfig(ctx context.Context, cfg webdav.RemoteConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remote = &cfg
	return nil
}

// ClearRemoteConfig removes the endpoint configuration and sync
// bookkeeping.
func (s *Store) ClearRemoteConfig(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remote = nil
	s.localModify = time.Time{}
	s.lastSync = time.Time{}
	s.lastDirection = ""
	return nil
}
