package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/joestump/newswire/internal/auth"
	"github.com/joestump/newswire/internal/newsroom"
	"github.com/joestump/newswire/internal/store"
)

// adminAPIHandler provides REST handlers for admin-only endpoints.
type adminAPIHandler struct {
	newsroom   *newsroom.Service
	users      *store.UserStore
	categories *store.CategoryStore
	contacts   *store.ContactStore
	stats      *store.StatsStore
}

// registerAdminRoutes registers admin routes inside a chi group that
// enforces the admin role.
func registerAdminRoutes(r chi.Router, deps Deps) {
	h := &adminAPIHandler{
		newsroom:   deps.Newsroom,
		users:      deps.UserStore,
		categories: deps.CategoryStore,
		contacts:   deps.ContactStore,
		stats:      deps.StatsStore,
	}

	r.Route("/admin", func(admin chi.Router) {
		admin.Use(requireAdmin)

		admin.Get("/stats", h.Stats)

		admin.Get("/users", h.ListUsers)
		admin.Put("/users/{id}/roles", h.UpdateRoles)
		admin.Delete("/users/{id}", h.DeleteUser)

		admin.Post("/categories", h.CreateCategory)
		admin.Put("/categories/{id}", h.UpdateCategory)
		admin.Delete("/categories/{id}", h.DeleteCategory)

		admin.Get("/messages", h.ListMessages)
	})
}

// requireAdmin rejects callers that do not act as an administrator.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.UserFromContext(r.Context())
		if user == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "UNAUTHORIZED")
			return
		}
		if !user.Acting().IsAdmin() {
			writeError(w, http.StatusForbidden, "forbidden", "FORBIDDEN")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Stats returns the dashboard counters.
// GET /api/v1/admin/stats
func (h *adminAPIHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Dashboard(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListUsers returns all users in the system.
// GET /api/v1/admin/users
func (h *adminAPIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp := UserListResponse{Users: make([]UserResponse, 0, len(users))}
	for _, u := range users {
		resp.Users = append(resp.Users, userResponse(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateRoles replaces a user's roles. Administrators cannot drop their own
// admin role.
// PUT /api/v1/admin/users/{id}/roles
func (h *adminAPIHandler) UpdateRoles(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req UpdateRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return
	}
	if _, err := h.users.GetByID(r.Context(), userID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if caller := auth.UserFromContext(r.Context()); caller.ID == userID && !slices.Contains(req.Roles, store.RoleAdmin) {
		writeError(w, http.StatusBadRequest, "you cannot remove your own admin role", "BAD_REQUEST")
		return
	}

	updated, err := h.users.SetRoles(r.Context(), userID, req.Roles)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse(updated))
}

// DeleteUser removes a user. Their articles stay, without an author.
// DELETE /api/v1/admin/users/{id}
func (h *adminAPIHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	err := h.newsroom.DeleteUser(r.Context(), auth.ActingUserFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateCategory adds a category.
// POST /api/v1/admin/categories
func (h *adminAPIHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeCategory(w, r)
	if !ok {
		return
	}
	c, err := h.categories.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, categoryResponse(c))
}

// UpdateCategory renames or redescribes a category.
// PUT /api/v1/admin/categories/{id}
func (h *adminAPIHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeCategory(w, r)
	if !ok {
		return
	}
	c, err := h.categories.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryResponse(c))
}

// DeleteCategory removes an empty category. Categories with articles
// answer 409.
// DELETE /api/v1/admin/categories/{id}
func (h *adminAPIHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.categories.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMessages returns every contact message, newest first.
// GET /api/v1/admin/messages
func (h *adminAPIHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.contacts.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp := MessageListResponse{Messages: make([]MessageResponse, 0, len(msgs))}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, MessageResponse{
			ID:        m.ID,
			Name:      m.Name,
			Email:     m.Email,
			Subject:   m.Subject,
			Message:   m.Message,
			IsRead:    m.IsRead,
			CreatedAt: m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeCategory(w http.ResponseWriter, r *http.Request) (store.CategoryInput, bool) {
	var in store.CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return in, false
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	return in, true
}
