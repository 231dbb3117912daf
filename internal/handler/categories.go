package handler

import (
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/joestump/newswire/internal/auth"
	"github.com/joestump/newswire/internal/newsroom"
	"github.com/joestump/newswire/internal/store"
)

// HomePage is the template data for the category index.
type HomePage struct {
	BasePage
	Categories []*store.CategoryWithCount
}

// CategoryPage is the template data for a category's article list.
type CategoryPage struct {
	BasePage
	Category *store.Category
	Articles store.Page[newsroom.ArticleView]
}

// CategoriesHandler serves the public category pages.
type CategoriesHandler struct {
	sessions   *scs.SessionManager
	categories *store.CategoryStore
	newsroom   *newsroom.Service
}

// NewCategoriesHandler creates a new CategoriesHandler.
func NewCategoriesHandler(sm *scs.SessionManager, cs *store.CategoryStore, svc *newsroom.Service) *CategoriesHandler {
	return &CategoriesHandler{sessions: sm, categories: cs, newsroom: svc}
}

// Home renders GET /: every category with its article count.
func (h *CategoriesHandler) Home(w http.ResponseWriter, r *http.Request) {
	cats, err := h.categories.ListWithCounts(r.Context())
	if err != nil {
		serverError(w, r, h.sessions, err)
		return
	}
	render(w, "home.html", HomePage{
		BasePage:   newBasePage(r, h.sessions, "News categories"),
		Categories: cats,
	})
}

// Show renders GET /categories/{id}?page=N.
func (h *CategoriesHandler) Show(w http.ResponseWriter, r *http.Request) {
	viewer := auth.ActingUserFromContext(r.Context())
	cp, err := h.newsroom.CategoryArticles(r.Context(), viewer, chi.URLParam(r, "id"), pageRequest(r))
	if err != nil {
		handleError(w, r, h.sessions, err)
		return
	}
	data := CategoryPage{
		BasePage: newBasePage(r, h.sessions, cp.Category.Name),
		Category: cp.Category,
		Articles: cp.Articles,
	}
	if isHTMX(r) {
		renderFragment(w, "article_list", data)
		return
	}
	render(w, "category.html", data)
}
