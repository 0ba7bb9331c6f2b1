// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package session binds authenticated users to caller sessions.
//
// A caller's session is identified by an opaque token that travels with the
// request in a Carrier. Only the SHA-256 of the token is stored, so a leaked
// store does not yield usable tokens. Binder implements auth.SessionBinder on
// top of any Store: in-process memory, PostgreSQL, or Redis.
package session
