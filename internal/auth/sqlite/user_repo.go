// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package sqlite implements auth repositories on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/holomush/holoauth/internal/auth"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT    PRIMARY KEY,
	username      TEXT    NOT NULL UNIQUE,
	password_hash TEXT    NOT NULL,
	created_at    INTEGER NOT NULL
)`

// connPragmas are run by the driver on every new connection, so each one in
// the pool waits up to 5s on a locked database.
const connPragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// dsn appends connPragmas to path, keeping any query the caller supplied.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + connPragmas
}

// Open opens the database at path and ensures the schema exists.
// Use ":memory:" for a private in-process database.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, oops.Code("SQLITE_OPEN_FAILED").With("path", path).Wrap(err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, oops.Code("SQLITE_INIT_FAILED").
			With("path", path).
			With("statement", "create users").
			Wrap(err)
	}
	return db, nil
}

// UserRepository implements auth.UserRepository using SQLite.
type UserRepository struct {
	db *sql.DB
	// modernc sqlite does not serialize concurrent writers on its own.
	writeLock sync.Mutex
}

// NewUserRepository creates a UserRepository on a database prepared by Open.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new user. Username collisions surface as auth.ErrDuplicateKey.
func (r *UserRepository) Create(ctx context.Context, username, passwordHash string) (*auth.User, error) {
	user, err := auth.NewUser(username, passwordHash)
	if err != nil {
		return nil, err
	}

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)",
		user.ID.String(),
		user.Username,
		user.PasswordHash,
		user.CreatedAt.UnixMicro(),
	)
	if err != nil {
		var liteErr *sqlite.Error
		if errors.As(err, &liteErr) {
			switch liteErr.Code() {
			case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
				return nil, oops.Code("USER_DUPLICATE").
					With("username", username).
					Wrap(auth.ErrDuplicateKey)
			}
		}
		return nil, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", username).
			Wrap(err)
	}
	return user, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE id = ?",
		id.String(),
	)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").With("id", id.String()).Wrap(err)
	}
	return user, nil
}

// GetByUsername retrieves a user by exact username. SQLite's default BINARY
// collation keeps the match case-sensitive.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE username = ?",
		username,
	)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_USERNAME_FAILED").With("username", username).Wrap(err)
	}
	return user, nil
}

func scanUser(row *sql.Row) (*auth.User, error) {
	var (
		idStr     string
		user      auth.User
		createdAt int64
	)
	if err := row.Scan(&idStr, &user.Username, &user.PasswordHash, &createdAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with lookup context
	}
	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").With("id", idStr).Wrap(err)
	}
	user.ID = id
	user.CreatedAt = time.UnixMicro(createdAt).UTC()
	return &user, nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
