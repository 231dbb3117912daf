package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/joestump/newswire/internal/auth"
	"github.com/joestump/newswire/internal/newsroom"
	"github.com/joestump/newswire/internal/store"
)

// ArticlePage is the template data for the article detail view.
type ArticlePage struct {
	BasePage
	Article *newsroom.ArticleView
}

// NewsFormPage is the template data for the create and edit forms.
type NewsFormPage struct {
	BasePage
	News       *store.News // nil when creating
	Form       store.NewsInput
	Categories []*store.Category
	Errors     map[string]string
}

// Action is the form's submit target.
func (p NewsFormPage) Action() string {
	if p.News == nil {
		return "/news"
	}
	return "/news/" + p.News.ID
}

// NewsHandler serves article pages and the author's article forms.
type NewsHandler struct {
	sessions   *scs.SessionManager
	newsroom   *newsroom.Service
	categories *store.CategoryStore
}

// NewNewsHandler creates a new NewsHandler.
func NewNewsHandler(sm *scs.SessionManager, svc *newsroom.Service, cs *store.CategoryStore) *NewsHandler {
	return &NewsHandler{sessions: sm, newsroom: svc, categories: cs}
}

// Show renders GET /news/{id}.
func (h *NewsHandler) Show(w http.ResponseWriter, r *http.Request) {
	viewer := auth.ActingUserFromContext(r.Context())
	a, err := h.newsroom.Article(r.Context(), viewer, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.sessions, err)
		return
	}
	render(w, "news/show.html", ArticlePage{
		BasePage: newBasePage(r, h.sessions, a.Title),
		Article:  a,
	})
}

// New renders the create form. ?category= preselects a category.
func (h *NewsHandler) New(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, nil, store.NewsInput{CategoryID: r.URL.Query().Get("category")}, nil)
}

// Create handles POST /news.
func (h *NewsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		renderError(w, r, h.sessions, http.StatusBadRequest, "The form could not be read.")
		return
	}
	in := newsInputFromForm(r)
	n, err := h.newsroom.CreateNews(r.Context(), auth.ActingUserFromContext(r.Context()), in, formFile(r, "image"))
	if errs, ok := fieldErrors(err); ok {
		h.renderForm(w, r, http.StatusUnprocessableEntity, nil, in, errs)
		return
	}
	if err != nil {
		handleError(w, r, h.sessions, err)
		return
	}
	flash(h.sessions, r, "success", "Article published.")
	redirect(w, r, "/news/"+n.ID)
}

// Edit renders the edit form for an article the user may mutate.
func (h *NewsHandler) Edit(w http.ResponseWriter, r *http.Request) {
	n, err := h.newsroom.Editable(r.Context(), auth.ActingUserFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.sessions, err)
		return
	}
	in := store.NewsInput{Title: n.Title, Content: n.Content, Topic: n.Topic, CategoryID: n.CategoryID}
	h.renderForm(w, r, http.StatusOK, n, in, nil)
}

// Update handles POST /news/{id}.
func (h *NewsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actor := auth.ActingUserFromContext(r.Context())
	if err := parseForm(r); err != nil {
		renderError(w, r, h.sessions, http.StatusBadRequest, "The form could not be read.")
		return
	}
	in := newsInputFromForm(r)
	_, err := h.newsroom.UpdateNews(r.Context(), actor, id, in, formFile(r, "image"))
	if errs, ok := fieldErrors(err); ok {
		current, gerr := h.newsroom.Editable(r.Context(), actor, id)
		if gerr != nil {
			handleError(w, r, h.sessions, gerr)
			return
		}
		h.renderForm(w, r, http.StatusUnprocessableEntity, current, in, errs)
		return
	}
	if err != nil {
		handleError(w, r, h.sessions, err)
		return
	}
	flash(h.sessions, r, "success", "Article updated.")
	redirect(w, r, "/news/"+id)
}

// Delete handles POST /news/{id}/delete.
func (h *NewsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.newsroom.DeleteNews(r.Context(), auth.ActingUserFromContext(r.Context()), id); err != nil {
		handleError(w, r, h.sessions, err)
		return
	}
	flash(h.sessions, r, "success", "Article deleted.")
	target := "/profile/news"
	if ref := r.FormValue("return_to"); ref != "" {
		target = auth.SafeRedirect(ref)
	}
	redirect(w, r, target)
}

// Favorite handles POST /news/{id}/favorite and answers {"favorited": bool}.
func (h *NewsHandler) Favorite(w http.ResponseWriter, r *http.Request) {
	favorited, err := h.newsroom.ToggleFavorite(r.Context(), auth.ActingUserFromContext(r.Context()), chi.URLParam(r, "id"))
	w.Header().Set("Content-Type", "application/json")
	switch {
	case err == nil:
		_ = json.NewEncoder(w).Encode(map[string]bool{"favorited": favorited})
	case isNotFound(err):
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "article not found"})
	default:
		serverErrorJSON(w, r, err)
	}
}

func (h *NewsHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, n *store.News, in store.NewsInput, errs map[string]string) {
	cats, err := h.categories.ListAll(r.Context())
	if err != nil {
		serverError(w, r, h.sessions, err)
		return
	}
	title := "Write an article"
	if n != nil {
		title = "Edit " + n.Title
	}
	renderStatus(w, status, "news/form.html", NewsFormPage{
		BasePage:   newBasePage(r, h.sessions, title),
		News:       n,
		Form:       in,
		Categories: cats,
		Errors:     errs,
	})
}

func newsInputFromForm(r *http.Request) store.NewsInput {
	return store.NewsInput{
		Title:      strings.TrimSpace(r.FormValue("title")),
		Content:    r.FormValue("content"),
		Topic:      strings.TrimSpace(r.FormValue("topic")),
		CategoryID: strings.TrimSpace(r.FormValue("category_id")),
	}
}
