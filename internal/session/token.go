// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// Session token parameters.
const (
	TokenBytes = 32             // 32 bytes = 64 hex chars
	DefaultTTL = 24 * time.Hour // 24 hour expiry
)

// GenerateToken returns a new random token and its storage hash.
func GenerateToken() (token, hash string, err error) {
	tokenBytes := make([]byte, TokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATION_FAILED").Wrap(err)
	}
	token = hex.EncodeToString(tokenBytes)
	return token, HashToken(token), nil
}

// HashToken returns the hex SHA-256 of token, the form stores key on.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
