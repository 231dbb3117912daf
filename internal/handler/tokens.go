package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/joestump/newswire/internal/auth"
	"github.com/joestump/newswire/internal/store"
)

// TokensPage is the template data for the API token settings page.
type TokensPage struct {
	BasePage
	Tokens   []*auth.TokenRecord
	NewToken string // plaintext shown once after creation; empty otherwise
	Error    string
}

// TokensHandler provides web UI handlers for token management.
type TokensHandler struct {
	sessions *scs.SessionManager
	tokens   auth.TokenStore
}

// NewTokensHandler creates a new TokensHandler.
func NewTokensHandler(sm *scs.SessionManager, ts auth.TokenStore) *TokensHandler {
	return &TokensHandler{sessions: sm, tokens: ts}
}

// Index renders GET /profile/tokens.
func (h *TokensHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, "", "")
}

// Create handles POST /profile/tokens and shows the plaintext once.
func (h *TokensHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		renderError(w, r, h.sessions, http.StatusBadRequest, "The form could not be read.")
		return
	}

	name := r.FormValue("name")
	if name == "" || len(name) > 100 {
		h.renderPage(w, r, http.StatusUnprocessableEntity, "", "Token name is required (at most 100 characters).")
		return
	}

	var expiresAt *time.Time
	if exp := r.FormValue("expires_in"); exp != "" {
		d, err := time.ParseDuration(exp)
		if err != nil || d <= 0 {
			h.renderPage(w, r, http.StatusUnprocessableEntity, "", "Invalid expiry duration.")
			return
		}
		t := time.Now().Add(d)
		expiresAt = &t
	}

	plaintext, hash, err := auth.GenerateToken()
	if err != nil {
		serverError(w, r, h.sessions, err)
		return
	}
	if _, err := h.tokens.Create(r.Context(), user.ID, name, hash, expiresAt); err != nil {
		serverError(w, r, h.sessions, err)
		return
	}
	h.renderPage(w, r, http.StatusOK, plaintext, "")
}

// Revoke handles POST /profile/tokens/{id}/revoke.
func (h *TokensHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	err := h.tokens.Revoke(r.Context(), chi.URLParam(r, "id"), user.ID)
	if errors.Is(err, store.ErrNotFound) {
		renderError(w, r, h.sessions, http.StatusNotFound, "That token does not exist.")
		return
	}
	if err != nil {
		serverError(w, r, h.sessions, err)
		return
	}
	flash(h.sessions, r, "success", "Token revoked.")
	redirect(w, r, "/profile/tokens")
}

func (h *TokensHandler) renderPage(w http.ResponseWriter, r *http.Request, status int, newToken, errMsg string) {
	user := auth.UserFromContext(r.Context())
	records, err := h.tokens.ListByUser(r.Context(), user.ID)
	if err != nil {
		serverError(w, r, h.sessions, err)
		return
	}
	data := TokensPage{
		BasePage: newBasePage(r, h.sessions, "API tokens"),
		Tokens:   records,
		NewToken: newToken,
		Error:    errMsg,
	}
	if isHTMX(r) {
		renderFragment(w, "token_list", data)
		return
	}
	renderStatus(w, status, "profile/tokens.html", data)
}
