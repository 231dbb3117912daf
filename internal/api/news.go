package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/joestump/newswire/internal/auth"
	"github.com/joestump/newswire/internal/newsroom"
	"github.com/joestump/newswire/internal/store"
)

// newsAPIHandler serves categories, articles and favorites.
type newsAPIHandler struct {
	newsroom   *newsroom.Service
	categories *store.CategoryStore
}

func registerNewsRoutes(r chi.Router, svc *newsroom.Service, cs *store.CategoryStore) {
	h := &newsAPIHandler{newsroom: svc, categories: cs}
	r.Get("/categories", h.ListCategories)
	r.Get("/categories/{id}/news", h.ListCategoryNews)

	r.Post("/news", h.Create)
	r.Get("/news/{id}", h.Get)
	r.Put("/news/{id}", h.Update)
	r.Delete("/news/{id}", h.Delete)
	r.Put("/news/{id}/favorite", h.Favorite)
	r.Delete("/news/{id}/favorite", h.Unfavorite)
}

// ListCategories returns every category with its article count.
// GET /api/v1/categories
func (h *newsAPIHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.categories.ListWithCounts(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp := CategoryListResponse{Categories: make([]CategoryResponse, 0, len(cats))}
	for _, c := range cats {
		item := categoryResponse(&c.Category)
		count := c.NewsCount
		item.NewsCount = &count
		resp.Categories = append(resp.Categories, item)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListCategoryNews returns one page of a category's articles.
// GET /api/v1/categories/{id}/news?page=&per_page=
func (h *newsAPIHandler) ListCategoryNews(w http.ResponseWriter, r *http.Request) {
	viewer := auth.ActingUserFromContext(r.Context())
	page, err := h.newsroom.CategoryArticles(r.Context(), viewer, chi.URLParam(r, "id"), parsePagination(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newsListResponse(page.Articles))
}

// Get returns a single article and records a view.
// GET /api/v1/news/{id}
func (h *newsAPIHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.newsroom.Article(r.Context(), auth.ActingUserFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articleResponse(a))
}

// Create publishes an article authored by the caller. The body is either
// JSON or a multipart form with an optional "image" file.
// POST /api/v1/news
func (h *newsAPIHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in store.NewsInput
	f, err := decodeBody(r, &in, newsFromForm(&in), "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return
	}
	actor := auth.ActingUserFromContext(r.Context())
	n, err := h.newsroom.CreateNews(r.Context(), actor, trimNews(in), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp := newsResponse(n)
	resp.IsOwner = true
	writeJSON(w, http.StatusCreated, resp)
}

// Update edits an article. Only its author or an administrator may do so.
// PUT /api/v1/news/{id}
func (h *newsAPIHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in store.NewsInput
	f, err := decodeBody(r, &in, newsFromForm(&in), "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return
	}
	actor := auth.ActingUserFromContext(r.Context())
	n, err := h.newsroom.UpdateNews(r.Context(), actor, chi.URLParam(r, "id"), trimNews(in), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp := newsResponse(n)
	resp.IsOwner = store.CanMutate(actor, n)
	writeJSON(w, http.StatusOK, resp)
}

// Delete removes an article and its image.
// DELETE /api/v1/news/{id}
func (h *newsAPIHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.newsroom.DeleteNews(r.Context(), auth.ActingUserFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Favorite marks an article as a favorite. Repeating it is not an error.
// PUT /api/v1/news/{id}/favorite
func (h *newsAPIHandler) Favorite(w http.ResponseWriter, r *http.Request) {
	err := h.newsroom.AddFavorite(r.Context(), auth.ActingUserFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil && !errors.Is(err, store.ErrAlreadyFavorite) {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FavoriteResponse{Favorited: true})
}

// Unfavorite removes an article from the caller's favorites. Returns 404
// when it was not a favorite.
// DELETE /api/v1/news/{id}/favorite
func (h *newsAPIHandler) Unfavorite(w http.ResponseWriter, r *http.Request) {
	err := h.newsroom.RemoveFavorite(r.Context(), auth.ActingUserFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FavoriteResponse{Favorited: false})
}

func newsFromForm(in *store.NewsInput) func(func(string) string) {
	return func(get func(string) string) {
		in.Title = get("title")
		in.Content = get("content")
		in.Topic = get("topic")
		in.CategoryID = get("category_id")
	}
}

func trimNews(in store.NewsInput) store.NewsInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Topic = strings.TrimSpace(in.Topic)
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	return in
}
