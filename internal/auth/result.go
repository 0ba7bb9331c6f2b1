// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "fmt"

// ErrorKind classifies a FieldError.
type ErrorKind int

// Error kinds reported in a Result. The zero value is not a valid kind.
const (
	KindValidation ErrorKind = iota + 1
	KindDuplicateUsername
	KindInvalidCredentials
)

// String returns the snake_case name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicateUsername:
		return "duplicate_username"
	case KindInvalidCredentials:
		return "invalid_credentials"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Field names used for attribution.
const (
	FieldUsername = "username"
	FieldPassword = "password"
)

// User-facing messages that do not depend on policy.
const (
	MessageUsernameTaken      = "User already exists"
	MessageInvalidCredentials = "Incorrect username/password"
)

// FieldError is a user-facing failure, optionally attributed to one input field.
type FieldError struct {
	Kind    ErrorKind
	Field   string // empty when the error is deliberately generic
	Message string
}

// HasField reports whether the error is attributed to a named input.
func (e FieldError) HasField() bool {
	return e.Field != ""
}

// usernameTaken is the error for a registration that collides with an
// existing account, whether found by the pre-check or the store constraint.
func usernameTaken() FieldError {
	return FieldError{Kind: KindDuplicateUsername, Field: FieldUsername, Message: MessageUsernameTaken}
}

// invalidCredentials is the single error returned for every login failure,
// so unknown usernames and wrong passwords are indistinguishable.
func invalidCredentials() FieldError {
	return FieldError{Kind: KindInvalidCredentials, Message: MessageInvalidCredentials}
}

// Result is the outcome of Register or Login. Exactly one of User and Errors
// is populated.
type Result struct {
	User   *User
	Errors []FieldError
}

// Succeeded returns a Result holding user. It panics on a nil user.
func Succeeded(user *User) Result {
	if user == nil {
		panic("auth: Succeeded called with nil user")
	}
	return Result{User: user}
}

// Failed returns a Result holding errs. It panics when errs is empty.
func Failed(errs ...FieldError) Result {
	if len(errs) == 0 {
		panic("auth: Failed called without errors")
	}
	return Result{Errors: errs}
}

// OK reports whether the result holds a user.
func (r Result) OK() bool {
	return r.User != nil
}

// Kind returns the kind of the first error, or zero for a successful result.
func (r Result) Kind() ErrorKind {
	if len(r.Errors) == 0 {
		return 0
	}
	return r.Errors[0].Kind
}
