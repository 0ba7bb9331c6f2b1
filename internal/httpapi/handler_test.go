// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/session"
)

// stubAuth returns canned answers and records what it saw.
type stubAuth struct {
	result auth.Result
	user   *auth.User
	err    error
	bind   bool

	gotCreds   auth.Credentials
	gotToken   string
	gotTimeout bool
}

func (s *stubAuth) observe(ctx context.Context) {
	if c, ok := session.FromContext(ctx); ok {
		s.gotToken = c.Token()
	}
	_, s.gotTimeout = ctx.Deadline()
}

func (s *stubAuth) Register(ctx context.Context, creds auth.Credentials) (auth.Result, error) {
	s.observe(ctx)
	s.gotCreds = creds
	return s.result, s.err
}

func (s *stubAuth) Login(ctx context.Context, creds auth.Credentials) (auth.Result, error) {
	s.observe(ctx)
	s.gotCreds = creds
	if s.bind && s.result.OK() {
		store := session.NewMemoryStore()
		binder, err := session.NewBinder(store)
		if err != nil {
			return auth.Result{}, err
		}
		if err := binder.Bind(ctx, s.result.User.ID); err != nil {
			return auth.Result{}, err
		}
	}
	return s.result, s.err
}

func (s *stubAuth) CurrentUser(ctx context.Context) (*auth.User, error) {
	s.observe(ctx)
	return s.user, s.err
}

func newTestHandler(t *testing.T, svc Authenticator, logBuf *bytes.Buffer) http.Handler {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	if logBuf != nil {
		logger = slog.New(slog.NewJSONHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	h, err := New(svc, Options{
		CookieName:     "sid",
		CookieSecure:   true,
		SessionTTL:     time.Hour,
		RequestTimeout: 5 * time.Second,
		Logger:         logger,
	})
	require.NoError(t, err)
	return h
}

func do(h http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func testUser() *auth.User {
	return &auth.User{
		ID:           ulid.Make(),
		Username:     "alice",
		PasswordHash: "$argon2id$secret",
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(nil, Options{CookieName: "sid"})
	assert.Error(t, err)

	_, err = New(&stubAuth{}, Options{})
	assert.Error(t, err)
}

func TestRegister_Statuses(t *testing.T) {
	user := testUser()
	tests := []struct {
		name       string
		result     auth.Result
		wantStatus int
		wantErrors []any
	}{
		{
			name:       "success",
			result:     auth.Succeeded(user),
			wantStatus: http.StatusOK,
		},
		{
			name: "validation",
			result: auth.Failed(
				auth.FieldError{Kind: auth.KindValidation, Field: auth.FieldUsername, Message: "Username length must be greater than 2"},
				auth.FieldError{Kind: auth.KindValidation, Field: auth.FieldPassword, Message: "Password length must be greater than 2"},
			),
			wantStatus: http.StatusUnprocessableEntity,
			wantErrors: []any{
				map[string]any{"field": "username", "message": "Username length must be greater than 2"},
				map[string]any{"field": "password", "message": "Password length must be greater than 2"},
			},
		},
		{
			name:       "duplicate",
			result:     auth.Failed(auth.FieldError{Kind: auth.KindDuplicateUsername, Field: auth.FieldUsername, Message: auth.MessageUsernameTaken}),
			wantStatus: http.StatusConflict,
			wantErrors: []any{map[string]any{"field": "username", "message": "User already exists"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubAuth{result: tt.result}
			rec := do(newTestHandler(t, svc, nil), http.MethodPost, "/api/v1/register", `{"username":"alice","password":"hunter2"}`)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, auth.Credentials{Username: "alice", Password: "hunter2"}, svc.gotCreds)
			assert.True(t, svc.gotTimeout, "request context carries a deadline")

			body := decode(t, rec)
			if tt.wantErrors == nil {
				assert.NotContains(t, body, "errors")
				u := body["user"].(map[string]any)
				assert.Equal(t, user.ID.String(), u["id"])
				assert.Equal(t, "alice", u["username"])
				assert.NotContains(t, u, "passwordHash")
				assert.NotContains(t, rec.Body.String(), "argon2id")
				return
			}
			assert.NotContains(t, body, "user")
			assert.Equal(t, tt.wantErrors, body["errors"])
			assert.Empty(t, rec.Result().Cookies(), "failed register sets no cookie")
		})
	}
}

func TestLogin_InvalidCredentialsHasNoField(t *testing.T) {
	svc := &stubAuth{result: auth.Failed(auth.FieldError{Kind: auth.KindInvalidCredentials, Message: auth.MessageInvalidCredentials})}
	rec := do(newTestHandler(t, svc, nil), http.MethodPost, "/api/v1/login", `{"username":"alice","password":"wrong"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"errors":[{"message":"Incorrect username/password"}]}`, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogin_SetsRotatedCookie(t *testing.T) {
	svc := &stubAuth{result: auth.Succeeded(testUser()), bind: true}
	h := newTestHandler(t, svc, nil)

	rec := do(h, http.MethodPost, "/api/v1/login", `{"username":"alice","password":"hunter2"}`,
		&http.Cookie{Name: "sid", Value: "old-token"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "old-token", svc.gotToken, "carrier is seeded from the cookie")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "sid", c.Name)
	assert.NotEqual(t, "old-token", c.Value)
	assert.Len(t, c.Value, 2*session.TokenBytes)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, 3600, c.MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
}

func TestMe(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		rec := do(newTestHandler(t, &stubAuth{}, nil), http.MethodGet, "/api/v1/me", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user":null}`, rec.Body.String())
	})

	t.Run("authenticated", func(t *testing.T) {
		user := testUser()
		svc := &stubAuth{user: user}
		rec := do(newTestHandler(t, svc, nil), http.MethodGet, "/api/v1/me", "", &http.Cookie{Name: "sid", Value: "tok"})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "tok", svc.gotToken)
		u := decode(t, rec)["user"].(map[string]any)
		assert.Equal(t, "alice", u["username"])
		assert.Equal(t, "2026-01-02T03:04:05Z", u["createdAt"])
	})
}

func TestInternalErrorsAreGeneric(t *testing.T) {
	cases := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/v1/register", `{"username":"alice","password":"hunter2"}`},
		{http.MethodPost, "/api/v1/login", `{"username":"alice","password":"hunter2"}`},
		{http.MethodGet, "/api/v1/me", ""},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			var logs bytes.Buffer
			svc := &stubAuth{err: errors.New("pq: connection reset by peer")}
			rec := do(newTestHandler(t, svc, &logs), tc.method, tc.path, tc.body)

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.JSONEq(t, `{"message":"Something went wrong, please try again"}`, rec.Body.String())
			assert.NotContains(t, rec.Body.String(), "connection reset")
			assert.Contains(t, logs.String(), "connection reset", "detail goes to the log")
			assert.NotContains(t, logs.String(), "hunter2")
		})
	}
}

func TestMalformedBody(t *testing.T) {
	svc := &stubAuth{}
	for _, body := range []string{"", "not json", `["array"]`, strings.Repeat("x", maxBodyBytes+1)} {
		rec := do(newTestHandler(t, svc, nil), http.MethodPost, "/api/v1/register", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"message":"`+MessageBadRequest+`"}`, rec.Body.String())
	}
	assert.Empty(t, svc.gotCreds, "service is never called")
}

func TestRouting(t *testing.T) {
	h := newTestHandler(t, &stubAuth{}, nil)

	assert.Equal(t, http.StatusMethodNotAllowed, do(h, http.MethodGet, "/api/v1/login", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/v1/nope", "").Code)
}

func TestInstrument_CountsByRoute(t *testing.T) {
	h := newTestHandler(t, &stubAuth{}, nil)
	counter := RequestsTotal.WithLabelValues("GET /api/v1/me", "200")
	before := testutil.ToFloat64(counter)

	do(h, http.MethodGet, "/api/v1/me", "")
	do(h, http.MethodGet, "/api/v1/me", "")

	assert.InDelta(t, before+2, testutil.ToFloat64(counter), 0.001)
}
