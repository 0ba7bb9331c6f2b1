// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateKey is returned by a UserRepository when a create would
// violate the username uniqueness constraint.
var ErrDuplicateKey = errors.New("duplicate key")
