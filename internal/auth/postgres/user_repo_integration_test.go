// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/auth/postgres"
	"github.com/holomush/holoauth/internal/session"
)

func uniqueName(prefix string) string {
	return prefix + "_" + ulid.Make().String()[20:]
}

func TestUserRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewUserRepository(testPool)

	t.Run("create then fetch", func(t *testing.T) {
		name := uniqueName("alice")
		created, err := repo.Create(ctx, name, "hash-1")
		require.NoError(t, err)

		byName, err := repo.GetByUsername(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, created.ID, byName.ID)
		assert.Equal(t, "hash-1", byName.PasswordHash)
		assert.True(t, created.CreatedAt.Equal(byName.CreatedAt))

		byID, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, name, byID.Username)
	})

	t.Run("duplicate username", func(t *testing.T) {
		name := uniqueName("bob")
		_, err := repo.Create(ctx, name, "hash")
		require.NoError(t, err)

		_, err = repo.Create(ctx, name, "other")
		assert.ErrorIs(t, err, auth.ErrDuplicateKey)
	})

	t.Run("lookup is case-sensitive", func(t *testing.T) {
		name := uniqueName("Carol")
		_, err := repo.Create(ctx, name, "hash")
		require.NoError(t, err)

		_, err = repo.GetByUsername(ctx, "c"+name[1:])
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := repo.GetByID(ctx, ulid.Make())
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("concurrent creates admit exactly one", func(t *testing.T) {
		name := uniqueName("race")
		var (
			wg        sync.WaitGroup
			succeeded atomic.Int32
			dupes     atomic.Int32
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Create(ctx, name, "hash")
				switch {
				case err == nil:
					succeeded.Add(1)
				case assert.ErrorIs(t, err, auth.ErrDuplicateKey):
					dupes.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), succeeded.Load())
		assert.Equal(t, int32(7), dupes.Load())
	})
}

func TestSessionStore_Integration(t *testing.T) {
	ctx := context.Background()
	users := postgres.NewUserRepository(testPool)
	store := session.NewPostgresStore(testPool)

	user, err := users.Create(ctx, uniqueName("sess"), "hash")
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	live := &session.Record{TokenHash: session.HashToken("live-" + user.ID.String()), UserID: user.ID, ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	stale := &session.Record{TokenHash: session.HashToken("stale-" + user.ID.String()), UserID: user.ID, ExpiresAt: now.Add(-time.Minute), CreatedAt: now}
	require.NoError(t, store.Put(ctx, live))
	require.NoError(t, store.Put(ctx, stale))

	got, err := store.Get(ctx, live.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)

	_, err = store.Get(ctx, stale.TokenHash)
	assert.ErrorIs(t, err, session.ErrNotFound)

	n, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	require.NoError(t, store.Delete(ctx, live.TokenHash))
	_, err = store.Get(ctx, live.TokenHash)
	assert.ErrorIs(t, err, session.ErrNotFound)
}
