package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/joestump/newswire/internal/logging"
	"github.com/joestump/newswire/internal/newsroom"
	"github.com/joestump/newswire/internal/store"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeError writes a JSON error response with the given HTTP status code.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// writeJSON writes a JSON response with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeServiceError maps store and newsroom errors onto status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if ve, ok := store.AsValidationError(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "validation failed",
			Code:   "VALIDATION_FAILED",
			Fields: ve.Fields,
		})
		return
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found", "NOT_FOUND")
	case errors.Is(err, newsroom.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "FORBIDDEN")
	case errors.Is(err, newsroom.ErrSelfDelete):
		writeError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	case errors.Is(err, store.ErrInvalidRole):
		writeError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	case errors.Is(err, store.ErrDuplicateName),
		errors.Is(err, store.ErrDuplicateEmail),
		errors.Is(err, store.ErrCategoryInUse):
		writeError(w, http.StatusConflict, err.Error(), "CONFLICT")
	default:
		logging.FromContext(r.Context()).Error("api request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "INTERNAL_ERROR")
	}
}
