// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
)

// Default length floors. A value is accepted only when its length is
// strictly greater than the floor, so both defaults accept three or more
// characters.
const (
	DefaultUsernameLengthFloor = 2
	DefaultPasswordLengthFloor = 2
)

// Credentials is a raw username/password pair submitted by a caller.
// The password is plaintext and must never be persisted or logged.
type Credentials struct {
	Username string
	Password string
}

// String omits the password.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Username: %q}", c.Username)
}

// LogValue keeps the password out of structured logs.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(slog.String("username", c.Username))
}

// Policy holds the credential shape rules.
type Policy struct {
	UsernameLengthFloor int
	PasswordLengthFloor int
}

// DefaultPolicy returns the policy built from the default floors.
func DefaultPolicy() Policy {
	return Policy{
		UsernameLengthFloor: DefaultUsernameLengthFloor,
		PasswordLengthFloor: DefaultPasswordLengthFloor,
	}
}

// Validate checks that the floors are usable.
func (p Policy) Validate() error {
	if p.UsernameLengthFloor < 0 {
		return oops.Code("AUTH_INVALID_POLICY").
			With("username_length_floor", p.UsernameLengthFloor).
			Errorf("username length floor cannot be negative")
	}
	if p.PasswordLengthFloor < 0 {
		return oops.Code("AUTH_INVALID_POLICY").
			With("password_length_floor", p.PasswordLengthFloor).
			Errorf("password length floor cannot be negative")
	}
	return nil
}

// Validator applies a Policy to credentials. Lengths are counted in Unicode
// code points. It performs no I/O and is safe for concurrent use.
type Validator struct {
	policy   Policy
	validate *validator.Validate
	username string // validator tag for usernames
	password string // validator tag for passwords
}

// NewValidator creates a Validator for policy.
func NewValidator(policy Policy) (*Validator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Validator{
		policy:   policy,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		username: fmt.Sprintf("min=%d", policy.UsernameLengthFloor+1),
		password: fmt.Sprintf("min=%d", policy.PasswordLengthFloor+1),
	}, nil
}

// Policy returns the policy the validator enforces.
func (v *Validator) Policy() Policy {
	return v.policy
}

// ValidateRegistration checks both fields. Violations are reported in field
// order: username first, then password. An empty slice means valid.
func (v *Validator) ValidateRegistration(c Credentials) []FieldError {
	var errs []FieldError
	if !v.check(c.Username, v.username) {
		errs = append(errs, v.usernameTooShort())
	}
	if !v.check(c.Password, v.password) {
		errs = append(errs, v.passwordTooShort())
	}
	return errs
}

// ValidateLogin checks the password only. The username is deliberately not
// shape-checked on login; an unknown username is reported as invalid
// credentials instead.
func (v *Validator) ValidateLogin(c Credentials) []FieldError {
	if !v.check(c.Password, v.password) {
		return []FieldError{v.passwordTooShort()}
	}
	return nil
}

func (v *Validator) check(value, tag string) bool {
	err := v.validate.Var(value, tag)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return false
	}
	// Only a malformed tag gets here, and tags are built from a validated policy.
	panic(fmt.Sprintf("auth: validator rejected tag %q: %v", tag, err))
}

func (v *Validator) usernameTooShort() FieldError {
	return FieldError{
		Kind:    KindValidation,
		Field:   FieldUsername,
		Message: fmt.Sprintf("Username length must be greater than %d", v.policy.UsernameLengthFloor),
	}
}

func (v *Validator) passwordTooShort() FieldError {
	return FieldError{
		Kind:    KindValidation,
		Field:   FieldPassword,
		Message: fmt.Sprintf("Password length must be greater than %d", v.policy.PasswordLengthFloor),
	}
}
