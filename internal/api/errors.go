// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/animator/internal/animator"
	"github.com/ManuGH/animator/internal/auth"
	"github.com/ManuGH/animator/internal/domain"
	"github.com/ManuGH/animator/internal/host"
	"github.com/ManuGH/animator/internal/log"
)

// Error codes carried in the "error" field of every failure body.
const (
	codeUnauthorized    = "unauthorized"
	codeForbidden       = "forbidden"
	codeNotFound        = "not_found"
	codeConflict        = "conflict"
	codeInvalid         = "invalid_argument"
	codeUnsupported     = "unsupported"
	codeInternal        = "internal_error"
	codeUnavailable     = "unavailable"
	codeNotSerializable = "not_serializable"
)

// APIError is the JSON error body.
type APIError struct {
	Code      string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// RespondError writes an error body with the request id attached.
func RespondError(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	writeJSON(w, status, APIError{
		Code:      code,
		Detail:    detail,
		RequestID: log.RequestIDFromContext(r.Context()),
	})
}

// statusFor maps the runtime error taxonomy onto HTTP.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrPermission):
		return http.StatusForbidden, codeForbidden
	case errors.Is(err, host.ErrDomainNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, host.ErrDomainExists):
		return http.StatusConflict, codeConflict
	case errors.Is(err, domain.ErrNotSerializable):
		return http.StatusUnprocessableEntity, codeNotSerializable
	case errors.Is(err, animator.ErrIllegalState):
		return http.StatusConflict, codeConflict
	case errors.Is(err, animator.ErrInvalidArgument):
		return http.StatusBadRequest, codeInvalid
	case errors.Is(err, animator.ErrUnsupported):
		return http.StatusNotImplemented, codeUnsupported
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// writeError maps err and logs server-side failures.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "api.internal_error").
			Msg("request failed")
		RespondError(w, r, status, code, "")
		return
	}
	RespondError(w, r, status, code, err.Error())
}
