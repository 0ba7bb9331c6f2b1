// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	live := &Record{TokenHash: "live", UserID: ulid.Make(), ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	stale := &Record{TokenHash: "stale", UserID: ulid.Make(), ExpiresAt: now.Add(-time.Second), CreatedAt: now.Add(-time.Hour)}
	require.NoError(t, store.Put(ctx, live))
	require.NoError(t, store.Put(ctx, stale))

	t.Run("get returns a copy", func(t *testing.T) {
		got, err := store.Get(ctx, "live")
		require.NoError(t, err)
		assert.Equal(t, live, got)
		got.UserID = ulid.ULID{}

		again, err := store.Get(ctx, "live")
		require.NoError(t, err)
		assert.Equal(t, live.UserID, again.UserID)
	})

	t.Run("expired reads as not found", func(t *testing.T) {
		_, err := store.Get(ctx, "stale")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete expired", func(t *testing.T) {
		n, err := store.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "live"))
		require.NoError(t, store.Delete(ctx, "live"))
		_, err := store.Get(ctx, "live")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("put honors cancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		err := store.Put(cancelled, &Record{TokenHash: "late", ExpiresAt: now.Add(time.Hour)})
		assert.ErrorIs(t, err, context.Canceled)
		_, err = store.Get(ctx, "late")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
