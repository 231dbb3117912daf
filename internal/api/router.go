// Package api serves the bearer-token JSON API mounted at /api/v1.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/joestump/newswire/internal/auth"
	"github.com/joestump/newswire/internal/newsroom"
	"github.com/joestump/newswire/internal/store"
)

// Deps holds the dependencies for the API router.
type Deps struct {
	BearerMiddleware *auth.BearerTokenMiddleware
	TokenStore       auth.TokenStore
	Newsroom         *newsroom.Service
	UserStore        *store.UserStore
	CategoryStore    *store.CategoryStore
	ContactStore     *store.ContactStore
	StatsStore       *store.StatsStore

	// RateLimit is requests per minute per IP; zero disables it.
	RateLimit int
}

// NewAPIRouter returns a chi.Router with all /api/v1 routes registered.
// Every route requires a bearer token.
func NewAPIRouter(deps Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(jsonContentType)
	if deps.RateLimit > 0 {
		r.Use(httprate.LimitByIP(deps.RateLimit, time.Minute))
	}
	r.Use(deps.BearerMiddleware.Authenticate)

	registerNewsRoutes(r, deps.Newsroom, deps.CategoryStore)
	registerMeRoutes(r, deps.Newsroom)
	registerTokenRoutes(r, deps.TokenStore)
	registerAdminRoutes(r, deps)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found", "NOT_FOUND")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "METHOD_NOT_ALLOWED")
	})
	return r
}

// jsonContentType sets Content-Type: application/json on all API responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
