package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/joestump/newswire/internal/auth"
	"github.com/joestump/newswire/internal/newsroom"
	"github.com/joestump/newswire/internal/store"
)

// ProfilePage is the template data for the signed-in user's profile.
type ProfilePage struct {
	BasePage
	Profile    *newsroom.Profile
	Form       store.ProfileInput
	EmailForm  store.EmailInput
	Errors     map[string]string
	EmailError string
}

// ArticleListPage is the template data for a paged list of articles.
type ArticleListPage struct {
	BasePage
	Heading  string
	BaseURL  string
	Empty    string
	Articles store.Page[newsroom.ArticleView]
}

// StatisticsPage is the template data for the author statistics view.
type StatisticsPage struct {
	BasePage
	Stats *store.AuthorStatistics
}

// ProfileHandler serves the signed-in user's profile pages.
type ProfileHandler struct {
	sessions *scs.SessionManager
	newsroom *newsroom.Service
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(sm *scs.SessionManager, svc *newsroom.Service) *ProfileHandler {
	return &ProfileHandler{sessions: sm, newsroom: svc}
}

// Show renders GET /profile.
func (h *ProfileHandler) Show(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	h.renderProfile(w, r, http.StatusOK, store.ProfileInput{FirstName: user.FirstName, LastName: user.LastName}, nil, "")
}

// Update handles POST /profile: names and an optional new picture.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if err := parseForm(r); err != nil {
		renderError(w, r, h.sessions, http.StatusBadRequest, "The form could not be read.")
		return
	}
	in := store.ProfileInput{FirstName: strings.TrimSpace(r.FormValue("first_name")), LastName: strings.TrimSpace(r.FormValue("last_name"))}
	_, err := h.newsroom.UpdateProfile(r.Context(), user.Acting(), user.ID, in, formFile(r, "picture"))
	if errs, ok := fieldErrors(err); ok {
		h.renderProfile(w, r, http.StatusUnprocessableEntity, in, errs, "")
		return
	}
	if err != nil {
		handleError(w, r, h.sessions, err)
		return
	}
	flash(h.sessions, r, "success", "Profile updated.")
	redirect(w, r, "/profile")
}

// UpdateEmail handles POST /profile/email.
func (h *ProfileHandler) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		renderError(w, r, h.sessions, http.StatusBadRequest, "The form could not be read.")
		return
	}
	_, err := h.newsroom.UpdateEmail(r.Context(), user.Acting(), strings.TrimSpace(r.FormValue("email")))
	names := store.ProfileInput{FirstName: user.FirstName, LastName: user.LastName}
	if errs, ok := fieldErrors(err); ok {
		h.renderProfile(w, r, http.StatusUnprocessableEntity, names, nil, errs["email"])
		return
	}
	if errors.Is(err, store.ErrDuplicateEmail) {
		h.renderProfile(w, r, http.StatusConflict, names, nil, err.Error())
		return
	}
	if err != nil {
		handleError(w, r, h.sessions, err)
		return
	}
	flash(h.sessions, r, "success", "Email updated.")
	redirect(w, r, "/profile")
}

// News renders GET /profile/news: the user's own articles.
func (h *ProfileHandler) News(w http.ResponseWriter, r *http.Request) {
	p, err := h.newsroom.AuthorArticles(r.Context(), auth.ActingUserFromContext(r.Context()), pageRequest(r))
	if err != nil {
		serverError(w, r, h.sessions, err)
		return
	}
	render(w, "profile/articles.html", ArticleListPage{
		BasePage: newBasePage(r, h.sessions, "My articles"),
		Heading:  "My articles",
		BaseURL:  "/profile/news",
		Empty:    "You haven't published anything yet.",
		Articles: p,
	})
}

// Favorites renders GET /profile/favorites.
func (h *ProfileHandler) Favorites(w http.ResponseWriter, r *http.Request) {
	p, err := h.newsroom.Favorites(r.Context(), auth.ActingUserFromContext(r.Context()), pageRequest(r))
	if err != nil {
		serverError(w, r, h.sessions, err)
		return
	}
	render(w, "profile/articles.html", ArticleListPage{
		BasePage: newBasePage(r, h.sessions, "My favorites"),
		Heading:  "My favorites",
		BaseURL:  "/profile/favorites",
		Empty:    "You haven't favorited any articles yet.",
		Articles: p,
	})
}

// Statistics renders GET /profile/statistics.
func (h *ProfileHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	stats, err := h.newsroom.Statistics(r.Context(), user.ID)
	if err != nil {
		serverError(w, r, h.sessions, err)
		return
	}
	render(w, "profile/statistics.html", StatisticsPage{
		BasePage: newBasePage(r, h.sessions, "My statistics"),
		Stats:    stats,
	})
}

func (h *ProfileHandler) renderProfile(w http.ResponseWriter, r *http.Request, status int, in store.ProfileInput, errs map[string]string, emailErr string) {
	user := auth.UserFromContext(r.Context())
	p, err := h.newsroom.Profile(r.Context(), user.ID)
	if err != nil {
		handleError(w, r, h.sessions, err)
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	if email == "" {
		email = p.User.Email
	}
	renderStatus(w, status, "profile/show.html", ProfilePage{
		BasePage:   newBasePage(r, h.sessions, "My profile"),
		Profile:    p,
		Form:       in,
		EmailForm:  store.EmailInput{Email: email},
		Errors:     errs,
		EmailError: emailErr,
	})
}
