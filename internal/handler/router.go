package handler

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/jmoiron/sqlx"

	"github.com/joestump/newswire/internal/api"
	"github.com/joestump/newswire/internal/auth"
	"github.com/joestump/newswire/internal/logging"
	"github.com/joestump/newswire/internal/metrics"
	"github.com/joestump/newswire/internal/newsroom"
	"github.com/joestump/newswire/internal/store"
	"github.com/joestump/newswire/internal/upload"
	"github.com/joestump/newswire/web"
)

// Deps holds all dependencies required to build the HTTP router.
type Deps struct {
	DB             *sqlx.DB
	Logger         *slog.Logger
	SessionManager *scs.SessionManager
	AuthHandlers   *auth.Handlers
	AuthMiddleware *auth.Middleware
	Newsroom       *newsroom.Service
	Gate           *upload.Gate
	UserStore      *store.UserStore
	CategoryStore  *store.CategoryStore
	TeamStore      *store.TeamMemberStore
	ContactStore   *store.ContactStore
	StatsStore     *store.StatsStore
	TokenStore     auth.TokenStore

	MaxBody          int64
	ContactRateLimit int // requests per minute per IP
	APIRateLimit     int // requests per minute per IP
}

// NewRouter assembles the full chi router with all middleware and routes.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sm := deps.SessionManager

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(logger))
	r.Use(middleware.Recoverer)
	if deps.MaxBody > 0 {
		r.Use(middleware.RequestSize(deps.MaxBody))
	}

	// Static assets (embedded). Use fs.Sub so the file server sees
	// css/app.css and js/favorites.js directly, not static/css/... paths.
	staticSub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic("failed to sub static FS: " + err.Error())
	}
	r.Handle("/static/*", http.StripPrefix("/static", http.FileServerFS(staticSub)))
	r.Handle(upload.PublicPrefix+"*", deps.Gate.Handler())
	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", healthz(deps.DB))

	r.Mount("/api/v1", api.NewAPIRouter(api.Deps{
		BearerMiddleware: auth.NewBearerTokenMiddleware(deps.TokenStore, deps.UserStore),
		TokenStore:       deps.TokenStore,
		Newsroom:         deps.Newsroom,
		UserStore:        deps.UserStore,
		CategoryStore:    deps.CategoryStore,
		ContactStore:     deps.ContactStore,
		StatsStore:       deps.StatsStore,
		RateLimit:        deps.APIRateLimit,
	}))

	categories := NewCategoriesHandler(sm, deps.CategoryStore, deps.Newsroom)
	news := NewNewsHandler(sm, deps.Newsroom, deps.CategoryStore)
	profile := NewProfileHandler(sm, deps.Newsroom)
	tokens := NewTokensHandler(sm, deps.TokenStore)
	public := NewPublicHandler(sm, deps.TeamStore, deps.ContactStore)
	admin := NewAdminHandler(sm, deps.Newsroom, deps.CategoryStore, deps.TeamStore, deps.UserStore, deps.ContactStore, deps.StatsStore)
	theme := NewThemeHandler()

	// Everything below is session-backed HTML.
	r.Group(func(r chi.Router) {
		r.Use(sm.LoadAndSave)
		r.Use(deps.AuthMiddleware.OptionalUser)

		r.Get("/auth/login", deps.AuthHandlers.Login)
		r.Get("/auth/callback", deps.AuthHandlers.Callback)
		r.Post("/auth/logout", deps.AuthHandlers.Logout)
		r.Post("/theme", theme.Toggle)

		r.Get("/", categories.Home)
		r.Get("/categories/{id}", categories.Show)
		r.Get("/team", public.Team)
		r.Get("/contact", public.Contact)
		r.With(rateLimit(deps.ContactRateLimit)).Post("/contact", public.SubmitContact)

		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)

			r.Get("/news/new", news.New)
			r.Post("/news", news.Create)
			r.Get("/news/{id}/edit", news.Edit)
			r.Post("/news/{id}", news.Update)
			r.Post("/news/{id}/delete", news.Delete)
			r.Post("/news/{id}/favorite", news.Favorite)

			r.Get("/profile", profile.Show)
			r.Post("/profile", profile.Update)
			r.Post("/profile/email", profile.UpdateEmail)
			r.Get("/profile/news", profile.News)
			r.Get("/profile/favorites", profile.Favorites)
			r.Get("/profile/statistics", profile.Statistics)
			r.Get("/profile/tokens", tokens.Index)
			r.Post("/profile/tokens", tokens.Create)
			r.Post("/profile/tokens/{id}/revoke", tokens.Revoke)
		})
		// Article pages are public; registered after /news/new so the
		// static segment wins.
		r.Get("/news/{id}", news.Show)

		r.Route("/admin", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.AuthMiddleware.RequireRole(store.RoleAdmin))

			r.Get("/", admin.Dashboard)

			r.Get("/categories", admin.Categories)
			r.Get("/categories/new", admin.NewCategory)
			r.Post("/categories", admin.CreateCategory)
			r.Get("/categories/{id}/edit", admin.EditCategory)
			r.Post("/categories/{id}", admin.UpdateCategory)
			r.Post("/categories/{id}/delete", admin.DeleteCategory)

			r.Get("/team", admin.Team)
			r.Get("/team/new", admin.NewTeamMember)
			r.Post("/team", admin.CreateTeamMember)
			r.Get("/team/{id}/edit", admin.EditTeamMember)
			r.Post("/team/{id}", admin.UpdateTeamMember)
			r.Post("/team/{id}/delete", admin.DeleteTeamMember)

			r.Get("/users", admin.Users)
			r.Get("/users/{id}/edit", admin.EditUser)
			r.Post("/users/{id}/roles", admin.UpdateUserRoles)
			r.Post("/users/{id}/delete", admin.DeleteUser)

			r.Get("/messages", admin.Messages)
			r.Get("/messages/{id}", admin.Message)
			r.Post("/messages/{id}/delete", admin.DeleteMessage)

			r.Get("/news", admin.News)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			renderError(w, r, sm, http.StatusNotFound, "We couldn't find that page.")
		})
	})

	return r
}

// rateLimit limits requests per IP to perMinute; zero disables it.
func rateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(perMinute, time.Minute)
}

// healthz answers 200 when the database responds to a ping.
func healthz(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				logging.FromContext(r.Context()).Error("health check failed", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("database unavailable\n"))
				return
			}
		}
		_, _ = w.Write([]byte("ok\n"))
	}
}
