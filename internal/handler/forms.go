package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/joestump/newswire/internal/auth"
	"github.com/joestump/newswire/internal/logging"
	"github.com/joestump/newswire/internal/newsroom"
	"github.com/joestump/newswire/internal/store"
	"github.com/joestump/newswire/internal/upload"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temp files. The body itself is capped by middleware.RequestSize.
const multipartMemory = 8 << 20

// parseForm parses urlencoded and multipart bodies alike.
func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(multipartMemory)
	}
	return r.ParseForm()
}

// formFile returns the uploaded file under field, or nil when none was sent.
func formFile(r *http.Request, field string) *upload.File {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil
	}
	return upload.FromMultipart(files[0])
}

// pageRequest reads ?page= for an HTML listing.
func pageRequest(r *http.Request) store.PageRequest {
	n, _ := strconv.Atoi(r.URL.Query().Get("page"))
	return store.PageRequest{Number: n, Size: store.DefaultPageSize}
}

func flash(sm *scs.SessionManager, r *http.Request, kind, msg string) {
	auth.SetFlash(sm, r.Context(), kind, msg)
}

// fieldErrors extracts per-field messages from a validation failure.
func fieldErrors(err error) (map[string]string, bool) {
	if ve, ok := store.AsValidationError(err); ok {
		return ve.Fields, true
	}
	return nil, false
}

// handleError maps service errors onto the HTML error pages. Validation
// errors are not handled here; forms re-render themselves.
func handleError(w http.ResponseWriter, r *http.Request, sm *scs.SessionManager, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		renderError(w, r, sm, http.StatusNotFound, "We couldn't find what you were looking for.")
	case errors.Is(err, newsroom.ErrForbidden):
		flash(sm, r, "error", "You are not permitted to do that.")
		renderError(w, r, sm, http.StatusForbidden, "You are not permitted to change this content.")
	case errors.Is(err, newsroom.ErrSelfDelete):
		renderError(w, r, sm, http.StatusBadRequest, err.Error())
	default:
		serverError(w, r, sm, err)
	}
}

// redirect sends a 303 to target, using HX-Redirect for HTMX requests.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func isNotFound(err error) bool { return errors.Is(err, store.ErrNotFound) }

// serverErrorJSON logs err and answers a JSON 500.
func serverErrorJSON(w http.ResponseWriter, r *http.Request, err error) {
	logging.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "internal error"})
}
