// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Run("generates secure token", func(t *testing.T) {
		token, hash, err := GenerateToken()
		require.NoError(t, err)
		assert.Len(t, token, 64) // 32 bytes hex-encoded
		assert.Len(t, hash, 64)  // SHA256 hex-encoded
		assert.NotEqual(t, token, hash)
		assert.Equal(t, HashToken(token), hash)
	})

	t.Run("generates unique tokens", func(t *testing.T) {
		token1, hash1, err := GenerateToken()
		require.NoError(t, err)
		token2, hash2, err := GenerateToken()
		require.NoError(t, err)
		assert.NotEqual(t, token1, token2)
		assert.NotEqual(t, hash1, hash2)
	})
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, HashToken("testtoken123"), HashToken("testtoken123"))
	assert.NotEqual(t, HashToken("token1"), HashToken("token2"))
	// sha256("") is well known.
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", HashToken(""))
}
