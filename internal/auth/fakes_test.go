// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/holoauth/internal/auth"
)

// memoryUsers is a UserRepository with a username uniqueness constraint.
type memoryUsers struct {
	mu     sync.Mutex
	byID   map[ulid.ULID]*auth.User
	byName map[string]ulid.ULID
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{
		byID:   make(map[ulid.ULID]*auth.User),
		byName: make(map[string]ulid.ULID),
	}
}

func (m *memoryUsers) Create(_ context.Context, username, passwordHash string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byName[username]; exists {
		return nil, auth.ErrDuplicateKey
	}
	user, err := auth.NewUser(username, passwordHash)
	if err != nil {
		return nil, err
	}
	m.byID[user.ID] = user
	m.byName[username] = user.ID
	userCopy := *user
	return &userCopy, nil
}

func (m *memoryUsers) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	userCopy := *user
	return &userCopy, nil
}

func (m *memoryUsers) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	m.mu.Lock()
	id, ok := m.byName[username]
	m.mu.Unlock()
	if !ok {
		return nil, auth.ErrNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *memoryUsers) count(username string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.byID {
		if u.Username == username {
			n++
		}
	}
	return n
}

func (m *memoryUsers) delete(id ulid.ULID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		delete(m.byName, u.Username)
		delete(m.byID, id)
	}
}

// singleSession is a SessionBinder for one caller.
type singleSession struct {
	mu      sync.Mutex
	userID  ulid.ULID
	bound   bool
	bindErr error
}

func (s *singleSession) Bind(_ context.Context, userID ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bindErr != nil {
		return s.bindErr
	}
	s.userID = userID
	s.bound = true
	return nil
}

func (s *singleSession) Read(_ context.Context) (ulid.ULID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.bound, nil
}
