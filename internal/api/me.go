package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joestump/newswire/internal/auth"
	"github.com/joestump/newswire/internal/newsroom"
	"github.com/joestump/newswire/internal/store"
)

// meAPIHandler serves the caller's own profile, articles and statistics.
type meAPIHandler struct {
	newsroom *newsroom.Service
}

func registerMeRoutes(r chi.Router, svc *newsroom.Service) {
	h := &meAPIHandler{newsroom: svc}
	r.Get("/me", h.Get)
	r.Put("/me", h.Update)
	r.Get("/me/news", h.News)
	r.Get("/me/favorites", h.Favorites)
	r.Get("/me/statistics", h.Statistics)
}

// Get returns the caller's profile.
// GET /api/v1/me
func (h *meAPIHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	h.writeProfile(w, r, user.ID, http.StatusOK)
}

// Update changes the caller's names and, from a multipart "picture" file,
// their profile picture. A rejected picture leaves the old one in place.
// PUT /api/v1/me
func (h *meAPIHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	var in store.ProfileInput
	f, err := decodeBody(r, &in, func(get func(string) string) {
		in.FirstName = get("first_name")
		in.LastName = get("last_name")
	}, "picture")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return
	}
	if _, err := h.newsroom.UpdateProfile(r.Context(), user.Acting(), user.ID, in, f); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeProfile(w, r, user.ID, http.StatusOK)
}

// News returns one page of the caller's own articles.
// GET /api/v1/me/news
func (h *meAPIHandler) News(w http.ResponseWriter, r *http.Request) {
	p, err := h.newsroom.AuthorArticles(r.Context(), auth.ActingUserFromContext(r.Context()), parsePagination(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newsListResponse(p))
}

// Favorites returns one page of the caller's favorite articles.
// GET /api/v1/me/favorites
func (h *meAPIHandler) Favorites(w http.ResponseWriter, r *http.Request) {
	p, err := h.newsroom.Favorites(r.Context(), auth.ActingUserFromContext(r.Context()), parsePagination(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newsListResponse(p))
}

// Statistics returns the caller's author statistics.
// GET /api/v1/me/statistics
func (h *meAPIHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	stats, err := h.newsroom.Statistics(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *meAPIHandler) writeProfile(w http.ResponseWriter, r *http.Request, userID string, status int) {
	p, err := h.newsroom.Profile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, status, ProfileResponse{
		UserResponse:  userResponse(p.User),
		PictureURL:    p.PictureURL,
		NewsCount:     p.NewsCount,
		FavoriteCount: p.FavoriteCount,
	})
}
