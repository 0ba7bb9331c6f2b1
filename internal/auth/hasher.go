// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"
)

// OWASP-recommended argon2id parameters.
const (
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4         // parallelism
	argon2SaltLen = 16        // salt length in bytes
	argon2KeyLen  = 32        // output length in bytes
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
// Both calls may block on CPU-bound work and honor ctx while waiting.
type PasswordHasher interface {
	// Hash produces a self-describing digest of the password.
	Hash(ctx context.Context, password string) (string, error)

	// Verify checks if the password matches the digest.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on invalid hash.
	Verify(ctx context.Context, password, encodedHash string) (bool, error)
}

// Argon2Params tunes the argon2id cost.
type Argon2Params struct {
	Memory  uint32 // KiB
	Time    uint32
	Threads uint8
	SaltLen uint32
	KeyLen  uint32

	// MaxConcurrent bounds simultaneous hash computations. Each one holds
	// Memory KiB, so this is the hasher's memory ceiling.
	MaxConcurrent int64
}

// DefaultArgon2Params returns the OWASP parameters with one hashing slot per CPU.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:        argon2Memory,
		Time:          argon2Time,
		Threads:       argon2Threads,
		SaltLen:       argon2SaltLen,
		KeyLen:        argon2KeyLen,
		MaxConcurrent: int64(runtime.GOMAXPROCS(0)),
	}
}

// Validate checks the parameters.
func (p Argon2Params) Validate() error {
	switch {
	case p.Memory < 8*uint32(p.Threads):
		return oops.Code("AUTH_INVALID_HASH_PARAMS").
			With("memory", p.Memory).
			With("threads", p.Threads).
			Errorf("memory must be at least 8 KiB per thread")
	case p.Time == 0:
		return oops.Code("AUTH_INVALID_HASH_PARAMS").Errorf("iterations must be positive")
	case p.Threads == 0:
		return oops.Code("AUTH_INVALID_HASH_PARAMS").Errorf("threads must be positive")
	case p.SaltLen < 8:
		return oops.Code("AUTH_INVALID_HASH_PARAMS").With("salt_len", p.SaltLen).Errorf("salt must be at least 8 bytes")
	case p.KeyLen < 16:
		return oops.Code("AUTH_INVALID_HASH_PARAMS").With("key_len", p.KeyLen).Errorf("key must be at least 16 bytes")
	case p.MaxConcurrent <= 0:
		return oops.Code("AUTH_INVALID_HASH_PARAMS").
			With("max_concurrent", p.MaxConcurrent).
			Errorf("max concurrent must be positive")
	}
	return nil
}

// Argon2idHasher implements PasswordHasher using argon2id.
type Argon2idHasher struct {
	params Argon2Params
	slots  *semaphore.Weighted
}

// NewArgon2idHasher creates an Argon2idHasher with the default parameters.
func NewArgon2idHasher() *Argon2idHasher {
	h, err := NewArgon2idHasherWithParams(DefaultArgon2Params())
	if err != nil {
		panic(err) // defaults are constant
	}
	return h
}

// NewArgon2idHasherWithParams creates an Argon2idHasher with custom parameters.
func NewArgon2idHasherWithParams(params Argon2Params) (*Argon2idHasher, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Argon2idHasher{
		params: params,
		slots:  semaphore.NewWeighted(params.MaxConcurrent),
	}, nil
}

// Hash produces an argon2id hash of the password.
func (h *Argon2idHasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	// Generate random salt
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	var hash []byte
	err := h.compute(ctx, OperationHash, func() {
		hash = argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)
	})
	if err != nil {
		return "", err
	}

	// Encode as PHC string format
	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)

	return encoded, nil
}

// Verify checks if the password matches the hash.
func (h *Argon2idHasher) Verify(ctx context.Context, password, encodedHash string) (bool, error) {
	params, salt, expectedHash, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	var computedHash []byte
	err = h.compute(ctx, OperationVerify, func() {
		computedHash = argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, params.KeyLen)
	})
	if err != nil {
		return false, err
	}

	// Constant-time comparison
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1, nil
}

// compute runs fn once a hashing slot is free.
func (h *Argon2idHasher) compute(ctx context.Context, operation string, fn func()) error {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return oops.Code("AUTH_HASH_CANCELLED").With("operation", operation).Wrap(err)
	}
	defer h.slots.Release(1)

	start := time.Now()
	fn()
	HashDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	return nil
}

// decodeHash parses a PHC-encoded argon2id hash.
func decodeHash(encodedHash string) (Argon2Params, []byte, []byte, error) {
	var params Argon2Params

	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return params, nil, nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return params, nil, nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if version != argon2.Version {
		return params, nil, nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported argon2 version: %d", version)
	}

	var memory, iterations, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return params, nil, nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params, nil, nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	if iterations == 0 {
		return params, nil, nil, oops.Code("AUTH_INVALID_HASH").Errorf("iterations must be positive")
	}

	// Validate threads fits in uint8 to prevent silent truncation
	if threads == 0 || threads > 255 {
		return params, nil, nil, oops.Code("AUTH_INVALID_HASH").Errorf("threads value %d out of range", threads)
	}

	// Validate key length to prevent integer overflow in uint32 conversion
	keyLen := len(key)
	if keyLen <= 0 || keyLen > 1<<30 {
		return params, nil, nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash key length: %d", keyLen)
	}

	params.Memory = memory
	params.Time = iterations
	params.Threads = uint8(threads)
	params.KeyLen = uint32(keyLen)
	params.SaltLen = uint32(len(salt))
	return params, salt, key, nil
}

// Compile-time interface check.
var _ PasswordHasher = (*Argon2idHasher)(nil)
