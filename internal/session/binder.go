// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/auth"
)

// Binder implements auth.SessionBinder over a Store, using the Carrier in
// the request context to identify the caller.
type Binder struct {
	store  Store
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// BinderOption configures a Binder.
type BinderOption func(*Binder)

// WithTTL sets how long a bound session lives. Non-positive values keep DefaultTTL.
func WithTTL(ttl time.Duration) BinderOption {
	return func(b *Binder) {
		if ttl > 0 {
			b.ttl = ttl
		}
	}
}

// WithLogger sets the logger for best-effort cleanup failures. The default
// discards output.
func WithLogger(logger *slog.Logger) BinderOption {
	return func(b *Binder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) BinderOption {
	return func(b *Binder) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBinder creates a Binder over store.
func NewBinder(store Store, opts ...BinderOption) (*Binder, error) {
	if store == nil {
		return nil, oops.Errorf("session store is required")
	}
	b := &Binder{
		store:  store,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// TTL returns the lifetime given to newly bound sessions.
func (b *Binder) TTL() time.Duration {
	return b.ttl
}

// Bind issues a fresh token for userID and stores it. The carrier is only
// updated once the store write succeeds, so a failed Bind leaves the caller's
// session as it was. Any previous token is revoked best-effort.
func (b *Binder) Bind(ctx context.Context, userID ulid.ULID) error {
	carrier, ok := FromContext(ctx)
	if !ok {
		return oops.Code("SESSION_NO_CARRIER").Errorf("no session carrier in context")
	}

	token, hash, err := GenerateToken()
	if err != nil {
		return err
	}

	now := b.now().UTC()
	rec := &Record{
		TokenHash: hash,
		UserID:    userID,
		ExpiresAt: now.Add(b.ttl),
		CreatedAt: now,
	}
	if err := b.store.Put(ctx, rec); err != nil {
		return oops.Code("SESSION_BIND_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}

	if previous := carrier.replace(token); previous != "" {
		if err := b.store.Delete(ctx, HashToken(previous)); err != nil {
			b.logger.WarnContext(ctx, "failed to revoke previous session (best-effort)",
				"user_id", userID.String(),
				"error", err)
		}
	}
	return nil
}

// Read returns the user bound to the caller's session. A missing carrier,
// empty token, unknown token, or expired session all read as anonymous.
func (b *Binder) Read(ctx context.Context) (ulid.ULID, bool, error) {
	carrier, ok := FromContext(ctx)
	if !ok {
		return ulid.ULID{}, false, nil
	}
	token := carrier.Token()
	if token == "" {
		return ulid.ULID{}, false, nil
	}

	rec, err := b.store.Get(ctx, HashToken(token))
	if errors.Is(err, ErrNotFound) {
		return ulid.ULID{}, false, nil
	}
	if err != nil {
		return ulid.ULID{}, false, oops.Code("SESSION_READ_FAILED").Wrap(err)
	}
	if rec.IsExpiredAt(b.now()) {
		return ulid.ULID{}, false, nil
	}
	return rec.UserID, true, nil
}

// Compile-time interface check.
var _ auth.SessionBinder = (*Binder)(nil)
