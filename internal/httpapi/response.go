// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/pkg/errutil"
)

// Generic messages for failures that carry no user-actionable detail.
const (
	MessageInternal   = "Something went wrong, please try again"
	MessageBadRequest = "Request body must be a JSON object with username and password"
)

type fieldErrorResponse struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type resultResponse struct {
	User   *auth.User           `json:"user,omitempty"`
	Errors []fieldErrorResponse `json:"errors,omitempty"`
}

type meResponse struct {
	User *auth.User `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func newResultResponse(result auth.Result) resultResponse {
	if result.OK() {
		return resultResponse{User: result.User}
	}
	errs := make([]fieldErrorResponse, 0, len(result.Errors))
	for _, fe := range result.Errors {
		errs = append(errs, fieldErrorResponse{Field: fe.Field, Message: fe.Message})
	}
	return resultResponse{Errors: errs}
}

// statusFor maps a result to its HTTP status. Mixed error kinds do not
// occur; the first error decides.
func statusFor(result auth.Result) int {
	switch result.Kind() {
	case 0:
		return http.StatusOK
	case auth.KindDuplicateUsername:
		return http.StatusConflict
	case auth.KindInvalidCredentials:
		return http.StatusUnauthorized
	default:
		return http.StatusUnprocessableEntity
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.DebugContext(r.Context(), "failed to write response", "error", err)
	}
}

// internalError logs the full error and returns only the generic message.
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	errutil.LogError(r.Context(), h.log, msg, err)
	h.writeJSON(w, r, http.StatusInternalServerError, messageResponse{Message: MessageInternal})
}
