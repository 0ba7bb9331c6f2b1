// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("holoauth/auth")

// Service provides authentication operations.
type Service struct {
	users     UserRepository
	sessions  SessionBinder
	hasher    PasswordHasher
	validator *Validator
	logger    *slog.Logger

	// dummyHash is verified against when a username is unknown. It is made
	// by the configured hasher so both paths pay the same argon2 cost.
	dummyHash string
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets the service logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			return oops.Errorf("logger is required")
		}
		s.logger = logger
		return nil
	}
}

// WithPolicy replaces DefaultPolicy.
func WithPolicy(policy Policy) Option {
	return func(s *Service) error {
		v, err := NewValidator(policy)
		if err != nil {
			return err
		}
		s.validator = v
		return nil
	}
}

// NewAuthService creates a new Service.
// Returns an error if any required dependency is nil. The hasher is called
// once here to produce the hash that unknown-username logins verify against.
func NewAuthService(users UserRepository, sessions SessionBinder, hasher PasswordHasher, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session binder is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}

	v, err := NewValidator(DefaultPolicy())
	if err != nil {
		return nil, err
	}

	s := &Service{
		users:     users,
		sessions:  sessions,
		hasher:    hasher,
		validator: v,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	// Never matches: the plaintext is random and discarded.
	dummy, err := hasher.Hash(context.Background(), rand.Text())
	if err != nil {
		return nil, oops.Code("AUTH_DUMMY_HASH_FAILED").
			With("operation", "hash dummy password").
			Wrap(err)
	}
	s.dummyHash = dummy
	return s, nil
}

// NewAuthServiceWithLogger creates a new Service with the provided logger.
func NewAuthServiceWithLogger(users UserRepository, sessions SessionBinder, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	return NewAuthService(users, sessions, hasher, WithLogger(logger))
}

// Register creates a new account.
// Shape is validated first, then the username is checked for an existing
// account, then the password is hashed and the user persisted. A uniqueness
// violation from the store is reported the same way as a pre-check hit.
func (s *Service) Register(ctx context.Context, creds Credentials) (result Result, err error) {
	ctx, span := tracer.Start(ctx, "auth.register",
		trace.WithAttributes(attribute.String("auth.username", creds.Username)),
	)
	defer func() {
		recordOutcome(OperationRegister, result, err)
		endSpan(span, result, err)
	}()

	if errs := s.validator.ValidateRegistration(creds); len(errs) > 0 {
		return Failed(errs...), nil
	}

	// Best-effort pre-check; the store constraint below is authoritative.
	_, lookupErr := s.users.GetByUsername(ctx, creds.Username)
	switch {
	case lookupErr == nil:
		s.logger.DebugContext(ctx, "registration rejected", "username", creds.Username, "reason", "exists")
		return Failed(usernameTaken()), nil
	case !errors.Is(lookupErr, ErrNotFound):
		return Result{}, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "get user by username").
			Wrap(lookupErr)
	}

	hash, hashErr := s.hasher.Hash(ctx, creds.Password)
	if hashErr != nil {
		return Result{}, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(hashErr)
	}

	user, createErr := s.users.Create(ctx, creds.Username, hash)
	if createErr != nil {
		if errors.Is(createErr, ErrDuplicateKey) {
			s.logger.DebugContext(ctx, "registration rejected", "username", creds.Username, "reason", "constraint")
			return Failed(usernameTaken()), nil
		}
		return Result{}, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(createErr)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String(), "username", user.Username)
	return Succeeded(user), nil
}

// Login authenticates a user and binds them to the caller's session.
// Unknown usernames and wrong passwords produce the same error, and
// verification runs in both cases so response time does not reveal which.
func (s *Service) Login(ctx context.Context, creds Credentials) (result Result, err error) {
	ctx, span := tracer.Start(ctx, "auth.login",
		trace.WithAttributes(attribute.String("auth.username", creds.Username)),
	)
	defer func() {
		recordOutcome(OperationLogin, result, err)
		endSpan(span, result, err)
	}()

	if errs := s.validator.ValidateLogin(creds); len(errs) > 0 {
		return Failed(errs...), nil
	}

	user, lookupErr := s.users.GetByUsername(ctx, creds.Username)

	// Determine which hash to verify against (real or dummy for timing attack prevention)
	targetHash := s.dummyHash
	userExists := false
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return Result{}, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by username").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	valid, verifyErr := s.hasher.Verify(ctx, creds.Password, targetHash)
	if verifyErr != nil {
		// For dummy hash verification errors, just treat as invalid
		if !userExists && ctx.Err() == nil {
			return Failed(invalidCredentials()), nil
		}
		return Result{}, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		s.logger.DebugContext(ctx, "login rejected", "username", creds.Username)
		return Failed(invalidCredentials()), nil
	}

	if bindErr := s.sessions.Bind(ctx, user.ID); bindErr != nil {
		return Result{}, oops.Code("AUTH_SESSION_BIND_FAILED").
			With("operation", "bind session").
			With("user_id", user.ID.String()).
			Wrap(bindErr)
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID.String())
	return Succeeded(user), nil
}

// CurrentUser returns the user bound to the caller's session.
// Returns (nil, nil) for an anonymous session or one whose user no longer exists.
func (s *Service) CurrentUser(ctx context.Context) (user *User, err error) {
	ctx, span := tracer.Start(ctx, "auth.current_user")
	outcome := "anonymous"
	defer func() {
		if err != nil {
			outcome = OutcomeError
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		OperationsTotal.WithLabelValues(OperationCurrentUser, outcome).Inc()
		span.SetAttributes(attribute.String("auth.outcome", outcome))
		span.End()
	}()

	userID, ok, readErr := s.sessions.Read(ctx)
	if readErr != nil {
		return nil, oops.Code("AUTH_CURRENT_USER_FAILED").
			With("operation", "read session").
			Wrap(readErr)
	}
	if !ok {
		return nil, nil
	}

	found, getErr := s.users.GetByID(ctx, userID)
	if getErr != nil {
		if errors.Is(getErr, ErrNotFound) {
			s.logger.DebugContext(ctx, "session bound to missing user", "user_id", userID.String())
			return nil, nil
		}
		return nil, oops.Code("AUTH_CURRENT_USER_FAILED").
			With("operation", "get user by id").
			With("user_id", userID.String()).
			Wrap(getErr)
	}

	outcome = "authenticated"
	return found, nil
}

func endSpan(span trace.Span, result Result, err error) {
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case result.OK():
		span.SetAttributes(attribute.String("auth.outcome", OutcomeSuccess))
	default:
		span.SetAttributes(attribute.String("auth.outcome", result.Kind().String()))
	}
	span.End()
}
