// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides credential-based authentication for holoauth.
//
// # Domain Types
//
// A User is created through NewUser, which assigns a fresh ULID. Repository
// implementations persist users handed to them and must enforce username
// uniqueness themselves, reporting collisions as ErrDuplicateKey.
//
// # Results
//
// Register and Login return a Result holding either the User or a non-empty
// list of FieldError values. Domain failures (validation, duplicate username,
// invalid credentials) are data, never Go errors. A non-nil error returned
// beside a Result always means a dependency failed.
//
// # Services
//
// Service coordinates the Validator, PasswordHasher, UserRepository and
// SessionBinder. It is created with NewAuthService, which validates its
// dependencies.
package auth
