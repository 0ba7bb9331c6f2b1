// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/auth/sqlite"
	"github.com/holomush/holoauth/pkg/errutil"
)

func newRepo(t *testing.T) *sqlite.UserRepository {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlite.NewUserRepository(db)
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	created, err := repo.Create(ctx, "alice", "$argon2id$hash")
	require.NoError(t, err)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, byID)

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created, byName)
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	_, err := repo.Create(ctx, "alice", "$argon2id$first")
	require.NoError(t, err)

	_, err = repo.Create(ctx, "alice", "$argon2id$second")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrDuplicateKey)
	errutil.AssertErrorCode(t, err, "USER_DUPLICATE")

	// The first row is untouched.
	stored, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "$argon2id$first", stored.PasswordHash)
}

func TestUserRepository_CaseSensitiveUsernames(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	_, err := repo.Create(ctx, "alice", "h")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "Alice", "h")
	require.NoError(t, err)

	_, err = repo.GetByUsername(ctx, "ALICE")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestUserRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	_, err := repo.GetByID(ctx, ulid.Make())
	assert.ErrorIs(t, err, auth.ErrNotFound)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestUserRepository_ConcurrentCreateSameUsername(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	const attempts = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		succeeded  int
		duplicates int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, "racer", "h")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, auth.ErrDuplicateKey):
				duplicates++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, duplicates)
}

func TestOpen_InMemory(t *testing.T) {
	db, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()

	repo := sqlite.NewUserRepository(db)
	_, err = repo.Create(context.Background(), "alice", "h")
	require.NoError(t, err)
}

func TestOpen_PragmasApplyToEveryConnection(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	defer db.Close()

	// Hold two connections at once so the pool must open a second one.
	first, err := db.Conn(ctx)
	require.NoError(t, err)
	defer first.Close()
	second, err := db.Conn(ctx)
	require.NoError(t, err)
	defer second.Close()

	for i, conn := range []*sql.Conn{first, second} {
		var timeout int
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
		assert.Equal(t, 5000, timeout, "connection %d", i)

		var mode string
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
		assert.Equal(t, "wal", mode, "connection %d", i)
	}
}
