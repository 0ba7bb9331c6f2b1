// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// SessionBinder associates the caller's session, carried in ctx, with a user.
type SessionBinder interface {
	// Bind attaches userID to the caller's session. On error the session is
	// left as it was.
	Bind(ctx context.Context, userID ulid.ULID) error

	// Read returns the user bound to the caller's session.
	// ok is false when the session is anonymous; that is not an error.
	Read(ctx context.Context) (userID ulid.ULID, ok bool, err error)
}
