// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"
)

// MemoryStore is a process-local Store. Sessions do not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record), now: time.Now}
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.TokenHash] = *rec
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, tokenHash string) (*Record, error) {
	s.mu.RLock()
	rec, ok := s.records[tokenHash]
	s.mu.RUnlock()
	if !ok || rec.IsExpiredAt(s.now()) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(ErrNotFound)
	}
	return &rec, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, tokenHash)
	return nil
}

// DeleteExpired implements ExpiredDeleter.
func (s *MemoryStore) DeleteExpired(_ context.Context) (int64, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for hash, rec := range s.records {
		if rec.IsExpiredAt(now) {
			delete(s.records, hash)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored records, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

var (
	_ Store          = (*MemoryStore)(nil)
	_ ExpiredDeleter = (*MemoryStore)(nil)
)
