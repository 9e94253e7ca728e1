// Package api provides the thin HTTP surface over the content engine:
// request parsing, learner identity extraction, and error-to-status mapping.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/lingualab/lingua-api/internal/generation"
	"github.com/lingualab/lingua-api/internal/service"
	"github.com/lingualab/lingua-api/internal/store"
)

// learnerHeader carries the authenticated learner identity, injected by the
// upstream gateway. Authentication itself happens outside this service.
const learnerHeader = "X-Learner-ID"

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondWithJSON writes a JSON response with the given status code and data.
func RespondWithJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// RespondWithError writes a JSON error response with a sanitized message.
func RespondWithError(w http.ResponseWriter, status int, message string) {
	RespondWithJSON(w, status, ErrorResponse{Error: message})
}

// learnerID extracts the learner identity header.
// Returns uuid.Nil and false when it is missing or malformed.
func learnerID(r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get(learnerHeader)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// MapErrorToStatusCode maps engine errors onto HTTP status codes without
// leaking internal error detail to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrNotOwned):
		return http.StatusForbidden

	case store.IsNotFoundError(err):
		return http.StatusNotFound

	case store.IsDuplicateError(err):
		return http.StatusConflict

	case errors.Is(err, generation.ErrValidationFailed),
		errors.Is(err, generation.ErrInvalidConfig):
		return http.StatusBadRequest

	case errors.Is(err, generation.ErrGenerationFailed),
		errors.Is(err, generation.ErrContentBlocked):
		return http.StatusBadGateway

	case errors.Is(err, service.ErrPersistenceFailed):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-safe message for the error.
func GetSafeErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrNotOwned):
		return "Resource belongs to another learner"
	case store.IsNotFoundError(err):
		return "Resource not found"
	case store.IsDuplicateError(err):
		return "Resource already exists"
	case errors.Is(err, generation.ErrGenerationFailed),
		errors.Is(err, generation.ErrContentBlocked):
		return "Content generation failed"
	case errors.Is(err, service.ErrPersistenceFailed):
		return "Temporary storage failure, please retry"
	default:
		return "An internal error occurred"
	}
}
