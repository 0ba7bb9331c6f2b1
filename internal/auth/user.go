// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// User represents a registered account.
type User struct {
	ID           ulid.ULID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewUser creates a User with a fresh ID.
// Username rules are enforced by the Validator before this is called; here
// only emptiness is rejected so a repository never stores a blank row.
func NewUser(username, passwordHash string) (*User, error) {
	if username == "" {
		return nil, oops.Code("AUTH_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if strings.TrimSpace(passwordHash) == "" {
		return nil, oops.Code("AUTH_INVALID_PASSWORD").Errorf("password hash cannot be empty")
	}
	return &User{
		ID:           ulid.Make(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}, nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user with the given username and password hash.
	// Returns an error wrapping ErrDuplicateKey if the username is taken.
	// A failed or cancelled Create leaves no partial user behind.
	Create(ctx context.Context, username, passwordHash string) (*User, error)

	// GetByID retrieves a user by ID.
	// Returns an error wrapping ErrNotFound if no user has the ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByUsername retrieves a user by exact username.
	// Returns an error wrapping ErrNotFound if no user has the username.
	GetByUsername(ctx context.Context, username string) (*User, error)
}
