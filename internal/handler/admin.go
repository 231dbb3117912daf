package handler

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/joestump/newswire/internal/auth"
	"github.com/joestump/newswire/internal/newsroom"
	"github.com/joestump/newswire/internal/store"
)

// AdminHandler serves the administration screens.
type AdminHandler struct {
	sessions   *scs.SessionManager
	newsroom   *newsroom.Service
	categories *store.CategoryStore
	team       *store.TeamMemberStore
	users      *store.UserStore
	contacts   *store.ContactStore
	stats      *store.StatsStore
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(sm *scs.SessionManager, svc *newsroom.Service, cs *store.CategoryStore, ts *store.TeamMemberStore,
	us *store.UserStore, ms *store.ContactStore, ss *store.StatsStore) *AdminHandler {
	return &AdminHandler{sessions: sm, newsroom: svc, categories: cs, team: ts, users: us, contacts: ms, stats: ss}
}

// AdminDashboardPage is the template data for the admin overview.
type AdminDashboardPage struct {
	BasePage
	Stats *store.DashboardStats
}

// Dashboard renders GET /admin.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Dashboard(r.Context())
	if err != nil {
		serverError(w, r, h.sessions, err)
		return
	}
	render(w, "admin/dashboard.html", AdminDashboardPage{BasePage: newBasePage(r, h.sessions, "Administration"), Stats: stats})
}

// --- categories ---

// AdminCategoriesPage is the template data for the category list.
type AdminCategoriesPage struct {
	BasePage
	Categories []*store.CategoryWithCount
}

// CategoryFormPage is the template data for the category form.
type CategoryFormPage struct {
	BasePage
	Category *store.Category // nil when creating
	Form     store.CategoryInput
	Errors   map[string]string
}

// Categories renders GET /admin/categories.
func (h *AdminHandler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.categories.ListWithCounts(r.Context())
	if err != nil {
		serverError(w, r, h.sessions, err)
		return
	}
	render(w, "admin/categories.html", AdminCategoriesPage{BasePage: newBasePage(r, h.sessions, "Categories"), Categories: cats})
}

// NewCategory renders GET /admin/categories/new.
func (h *AdminHandler) NewCategory(w http.ResponseWriter, r *http.Request) {
	h.renderCategoryForm(w, r, http.StatusOK, nil, store.CategoryInput{}, nil)
}

// CreateCategory handles POST /admin/categories.
func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderError(w, r, h.sessions, http.StatusBadRequest, "The form could not be read.")
		return
	}
	in := categoryInputFromForm(r)
	_, err := h.categories.Create(r.Context(), in)
	if h.categoryFormFailed(w, r, nil, in, err) {
		return
	}
	flash(h.sessions, r, "success", "Category created.")
	redirect(w, r, "/admin/categories")
}

// EditCategory renders GET /admin/categories/{id}/edit.
func (h *AdminHandler) EditCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.categories.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.sessions, err)
		return
	}
	h.renderCategoryForm(w, r, http.StatusOK, c, store.CategoryInput{Name: c.Name, Description: c.Description}, nil)
}

// UpdateCategory handles POST /admin/categories/{id}.
func (h *AdminHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.categories.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.sessions, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		renderError(w, r, h.sessions, http.StatusBadRequest, "The form could not be read.")
		return
	}
	in := categoryInputFromForm(r)
	_, err = h.categories.Update(r.Context(), c.ID, in)
	if h.categoryFormFailed(w, r, c, in, err) {
		return
	}
	flash(h.sessions, r, "success", "Category updated.")
	redirect(w, r, "/admin/categories")
}

// DeleteCategory handles POST /admin/categories/{id}/delete. Categories that
// still hold articles are kept.
func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	err := h.categories.Delete(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, store.ErrCategoryInUse):
		flash(h.sessions, r, "error", "Move or delete this category's articles before deleting it.")
	case err != nil:
		handleError(w, r, h.sessions, err)
		return
	default:
		flash(h.sessions, r, "success", "Category deleted.")
	}
	redirect(w, r, "/admin/categories")
}

// categoryFormFailed re-renders the form for validation and duplicate-name
// errors and reports whether err ended the request.
func (h *AdminHandler) categoryFormFailed(w http.ResponseWriter, r *http.Request, c *store.Category, in store.CategoryInput, err error) bool {
	if err == nil {
		return false
	}
	if errs, ok := fieldErrors(err); ok {
		h.renderCategoryForm(w, r, http.StatusUnprocessableEntity, c, in, errs)
		return true
	}
	if errors.Is(err, store.ErrDuplicateName) {
		h.renderCategoryForm(w, r, http.StatusConflict, c, in, map[string]string{"name": err.Error()})
		return true
	}
	handleError(w, r, h.sessions, err)
	return true
}

func (h *AdminHandler) renderCategoryForm(w http.ResponseWriter, r *http.Request, status int, c *store.Category, in store.CategoryInput, errs map[string]string) {
	title := "New category"
	if c != nil {
		title = "Edit " + c.Name
	}
	renderStatus(w, status, "admin/category_form.html", CategoryFormPage{
		BasePage: newBasePage(r, h.sessions, title),
		Category: c,
		Form:     in,
		Errors:   errs,
	})
}

func categoryInputFromForm(r *http.Request) store.CategoryInput {
	return store.CategoryInput{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
}

// --- team ---

// AdminTeamPage is the template data for the team list.
type AdminTeamPage struct {
	BasePage
	Members []*store.TeamMember
}

// TeamFormPage is the template data for the team member form.
type TeamFormPage struct {
	BasePage
	Member *store.TeamMember // nil when creating
	Form   store.TeamMemberInput
	Errors map[string]string
}

// Team renders GET /admin/team.
func (h *AdminHandler) Team(w http.ResponseWriter, r *http.Request) {
	members, err := h.team.ListAll(r.Context())
	if err != nil {
		serverError(w, r, h.sessions, err)
		return
	}
	render(w, "admin/team.html", AdminTeamPage{BasePage: newBasePage(r, h.sessions, "Team"), Members: members})
}

// NewTeamMember renders GET /admin/team/new.
func (h *AdminHandler) NewTeamMember(w http.ResponseWriter, r *http.Request) {
	h.renderTeamForm(w, r, http.StatusOK, nil, store.TeamMemberInput{}, nil)
}

// CreateTeamMember handles POST /admin/team.
func (h *AdminHandler) CreateTeamMember(w http.ResponseWriter, r *http.Request) {
	h.saveTeamMember(w, r, nil)
}

// EditTeamMember renders GET /admin/team/{id}/edit.
func (h *AdminHandler) EditTeamMember(w http.ResponseWriter, r *http.Request) {
	m, err := h.team.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.sessions, err)
		return
	}
	h.renderTeamForm(w, r, http.StatusOK, m, store.TeamMemberInput{Name: m.Name, JobTitle: m.JobTitle}, nil)
}

// UpdateTeamMember handles POST /admin/team/{id}.
func (h *AdminHandler) UpdateTeamMember(w http.ResponseWriter, r *http.Request) {
	m, err := h.team.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.sessions, err)
		return
	}
	h.saveTeamMember(w, r, m)
}

func (h *AdminHandler) saveTeamMember(w http.ResponseWriter, r *http.Request, current *store.TeamMember) {
	if err := parseForm(r); err != nil {
		renderError(w, r, h.sessions, http.StatusBadRequest, "The form could not be read.")
		return
	}
	in := store.TeamMemberInput{
		Name:     strings.TrimSpace(r.FormValue("name")),
		JobTitle: strings.TrimSpace(r.FormValue("job_title")),
	}
	id := ""
	if current != nil {
		id = current.ID
	}
	_, err := h.newsroom.SaveTeamMember(r.Context(), id, in, formFile(r, "image"))
	if errs, ok := fieldErrors(err); ok {
		h.renderTeamForm(w, r, http.StatusUnprocessableEntity, current, in, errs)
		return
	}
	if err != nil {
		handleError(w, r, h.sessions, err)
		return
	}
	flash(h.sessions, r, "success", "Team member saved.")
	redirect(w, r, "/admin/team")
}

// DeleteTeamMember handles POST /admin/team/{id}/delete.
func (h *AdminHandler) DeleteTeamMember(w http.ResponseWriter, r *http.Request) {
	if err := h.newsroom.DeleteTeamMember(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, h.sessions, err)
		return
	}
	flash(h.sessions, r, "success", "Team member removed.")
	redirect(w, r, "/admin/team")
}

func (h *AdminHandler) renderTeamForm(w http.ResponseWriter, r *http.Request, status int, m *store.TeamMember, in store.TeamMemberInput, errs map[string]string) {
	title := "New team member"
	if m != nil {
		title = "Edit " + m.Name
	}
	renderStatus(w, status, "admin/team_form.html", TeamFormPage{
		BasePage: newBasePage(r, h.sessions, title),
		Member:   m,
		Form:     in,
		Errors:   errs,
	})
}

// --- users ---

// AdminUsersPage is the template data for the user management list.
type AdminUsersPage struct {
	BasePage
	Users []*store.User
}

// UserRolesPage is the template data for the role editor.
type UserRolesPage struct {
	BasePage
	Target *store.User
	Roles  []string
	Error  string
}

// Has reports whether the edited user holds role.
func (p UserRolesPage) Has(role string) bool { return p.Target.Acting().HasRole(role) }

// Users renders GET /admin/users.
func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListAll(r.Context())
	if err != nil {
		serverError(w, r, h.sessions, err)
		return
	}
	render(w, "admin/users.html", AdminUsersPage{BasePage: newBasePage(r, h.sessions, "Users"), Users: users})
}

// EditUser renders GET /admin/users/{id}/edit.
func (h *AdminHandler) EditUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.sessions, err)
		return
	}
	h.renderRoles(w, r, http.StatusOK, u, "")
}

// UpdateUserRoles handles POST /admin/users/{id}/roles.
func (h *AdminHandler) UpdateUserRoles(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.sessions, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		renderError(w, r, h.sessions, http.StatusBadRequest, "The form could not be read.")
		return
	}
	roles := r.Form["roles"]
	if auth.UserFromContext(r.Context()).ID == u.ID && !slices.Contains(roles, store.RoleAdmin) {
		h.renderRoles(w, r, http.StatusUnprocessableEntity, u, "You cannot remove your own admin role.")
		return
	}
	updated, err := h.users.SetRoles(r.Context(), u.ID, roles)
	if errors.Is(err, store.ErrInvalidRole) {
		h.renderRoles(w, r, http.StatusUnprocessableEntity, u, err.Error())
		return
	}
	if err != nil {
		handleError(w, r, h.sessions, err)
		return
	}
	flash(h.sessions, r, "success", "Roles updated for "+updated.Name()+".")
	redirect(w, r, "/admin/users")
}

// DeleteUser handles POST /admin/users/{id}/delete.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	err := h.newsroom.DeleteUser(r.Context(), auth.ActingUserFromContext(r.Context()), chi.URLParam(r, "id"))
	if errors.Is(err, newsroom.ErrSelfDelete) {
		flash(h.sessions, r, "error", "You cannot delete your own account.")
		redirect(w, r, "/admin/users")
		return
	}
	if err != nil {
		handleError(w, r, h.sessions, err)
		return
	}
	flash(h.sessions, r, "success", "User deleted.")
	redirect(w, r, "/admin/users")
}

func (h *AdminHandler) renderRoles(w http.ResponseWriter, r *http.Request, status int, u *store.User, errMsg string) {
	renderStatus(w, status, "admin/user_roles.html", UserRolesPage{
		BasePage: newBasePage(r, h.sessions, "Roles for "+u.Name()),
		Target:   u,
		Roles:    store.KnownRoles,
		Error:    errMsg,
	})
}

// --- messages ---

// AdminMessagesPage is the template data for the inbox.
type AdminMessagesPage struct {
	BasePage
	Messages []*store.ContactMessage
}

// AdminMessagePage is the template data for one message.
type AdminMessagePage struct {
	BasePage
	Message *store.ContactMessage
}

// Messages renders GET /admin/messages.
func (h *AdminHandler) Messages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.contacts.ListAll(r.Context())
	if err != nil {
		serverError(w, r, h.sessions, err)
		return
	}
	render(w, "admin/messages.html", AdminMessagesPage{BasePage: newBasePage(r, h.sessions, "Messages"), Messages: msgs})
}

// Message renders GET /admin/messages/{id} and marks it read.
func (h *AdminHandler) Message(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := h.contacts.GetByID(r.Context(), id)
	if err != nil {
		handleError(w, r, h.sessions, err)
		return
	}
	if !m.IsRead {
		if err := h.contacts.MarkRead(r.Context(), id); err != nil {
			serverError(w, r, h.sessions, err)
			return
		}
		m.IsRead = true
	}
	render(w, "admin/message.html", AdminMessagePage{BasePage: newBasePage(r, h.sessions, m.Subject), Message: m})
}

// DeleteMessage handles POST /admin/messages/{id}/delete.
func (h *AdminHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := h.contacts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, h.sessions, err)
		return
	}
	flash(h.sessions, r, "success", "Message deleted.")
	redirect(w, r, "/admin/messages")
}

// --- news ---

// News renders GET /admin/news: every article, newest first.
func (h *AdminHandler) News(w http.ResponseWriter, r *http.Request) {
	p, err := h.newsroom.AllArticles(r.Context(), auth.ActingUserFromContext(r.Context()), pageRequest(r))
	if err != nil {
		serverError(w, r, h.sessions, err)
		return
	}
	render(w, "admin/news.html", ArticleListPage{
		BasePage: newBasePage(r, h.sessions, "All articles"),
		Heading:  "All articles",
		BaseURL:  "/admin/news",
		Empty:    "No articles have been published.",
		Articles: p,
	})
}
