// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrNotFound is returned by a Store for a missing or expired session.
var ErrNotFound = errors.New("session not found")

// Record is a stored session.
type Record struct {
	TokenHash string    `json:"-"`
	UserID    ulid.ULID `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpiredAt reports whether the session has expired at t.
func (r *Record) IsExpiredAt(t time.Time) bool {
	return !t.Before(r.ExpiresAt)
}

// Store persists session records keyed by token hash.
type Store interface {
	// Put stores rec, replacing any record with the same hash.
	Put(ctx context.Context, rec *Record) error

	// Get returns the record for tokenHash.
	// Returns an error wrapping ErrNotFound if it is missing or expired.
	Get(ctx context.Context, tokenHash string) (*Record, error)

	// Delete removes the record for tokenHash. Deleting a missing record is not an error.
	Delete(ctx context.Context, tokenHash string) error
}

// ExpiredDeleter is implemented by stores that need expired records swept.
// Stores with native expiry, such as Redis, do not implement it.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}
