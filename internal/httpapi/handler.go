// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package httpapi exposes the auth service over JSON HTTP.
//
// Routes:
//   - POST /api/v1/register
//   - POST /api/v1/login
//   - GET  /api/v1/me
//
// The session token travels in a cookie. A session.Carrier seeded from the
// cookie is placed in every request context, and a rotated token is written
// back before the response body.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/session"
)

// maxBodyBytes caps a credentials request body.
const maxBodyBytes = 1 << 16

// Authenticator is the subset of *auth.Service the API calls.
type Authenticator interface {
	Register(ctx context.Context, creds auth.Credentials) (auth.Result, error)
	Login(ctx context.Context, creds auth.Credentials) (auth.Result, error)
	CurrentUser(ctx context.Context) (*auth.User, error)
}

// Options configures the API handler.
type Options struct {
	CookieName     string
	CookieSecure   bool
	SessionTTL     time.Duration
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// Handler serves the auth API.
type Handler struct {
	svc  Authenticator
	opts Options
	log  *slog.Logger
}

// New returns the API wrapped in its middleware.
func New(svc Authenticator, opts Options) (http.Handler, error) {
	if svc == nil {
		return nil, oops.Errorf("authenticator is required")
	}
	if opts.CookieName == "" {
		return nil, oops.Errorf("cookie name is required")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = session.DefaultTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	h := &Handler{svc: svc, opts: opts, log: opts.Logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/register", h.handleRegister)
	mux.HandleFunc("POST /api/v1/login", h.handleLogin)
	mux.HandleFunc("GET /api/v1/me", h.handleMe)

	// instrument sits innermost so it sees the request the mux annotates
	// with its matched pattern.
	chain := newChain(
		withTimeout(opts.RequestTimeout),
		withSession(opts.CookieName),
		h.instrument,
	)
	return chain.then(mux), nil
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}
	result, err := h.svc.Register(r.Context(), creds)
	if err != nil {
		h.internalError(w, r, "register failed", err)
		return
	}
	h.writeResult(w, r, result)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}
	result, err := h.svc.Login(r.Context(), creds)
	if err != nil {
		h.internalError(w, r, "login failed", err)
		return
	}
	h.writeResult(w, r, result)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.CurrentUser(r.Context())
	if err != nil {
		h.internalError(w, r, "current user lookup failed", err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, meResponse{User: user})
}

func (h *Handler) decodeCredentials(w http.ResponseWriter, r *http.Request) (auth.Credentials, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.DebugContext(r.Context(), "malformed request body", "error", err)
		h.writeJSON(w, r, http.StatusBadRequest, messageResponse{Message: MessageBadRequest})
		return auth.Credentials{}, false
	}
	return auth.Credentials{Username: req.Username, Password: req.Password}, true
}

// writeResult renders an auth.Result, issuing the session cookie first if
// the call rotated the token.
func (h *Handler) writeResult(w http.ResponseWriter, r *http.Request, result auth.Result) {
	if carrier, ok := session.FromContext(r.Context()); ok && carrier.Changed() {
		http.SetCookie(w, h.sessionCookie(carrier.Token()))
	}
	h.writeJSON(w, r, statusFor(result), newResultResponse(result))
}

func (h *Handler) sessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.opts.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
