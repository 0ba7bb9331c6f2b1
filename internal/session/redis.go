// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// DefaultRedisPrefix namespaces session keys.
const DefaultRedisPrefix = "holoauth:session:"

// redisClient is the subset of *redis.Client the store uses.
type redisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore implements Store on Redis. Records are written with a TTL, so
// Redis expires them and no sweeper is needed.
type RedisStore struct {
	client redisClient
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a RedisStore. An empty prefix uses DefaultRedisPrefix.
func NewRedisStore(client redisClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

func (s *RedisStore) key(tokenHash string) string {
	return s.prefix + tokenHash
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, rec *Record) error {
	ttl := rec.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return oops.Code("SESSION_ALREADY_EXPIRED").
			With("expires_at", rec.ExpiresAt).
			Errorf("session expires in the past")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").With("operation", "marshal session").Wrap(err)
	}
	if err := s.client.Set(ctx, s.key(rec.TokenHash), data, ttl).Err(); err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "redis set").
			With("user_id", rec.UserID.String()).
			Wrap(err)
	}
	return nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, tokenHash string) (*Record, error) {
	data, err := s.client.Get(ctx, s.key(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").With("operation", "redis get").Wrap(err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, oops.Code("SESSION_DECODE_FAILED").Wrap(err)
	}
	rec.TokenHash = tokenHash
	if rec.IsExpiredAt(s.now()) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(ErrNotFound)
	}
	return &rec, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, tokenHash string) error {
	if err := s.client.Del(ctx, s.key(tokenHash)).Err(); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").With("operation", "redis del").Wrap(err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
