package handler

import (
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/joestump/newswire/internal/logging"
	"github.com/joestump/newswire/internal/store"
)

// TeamPage is the template data for the public team page.
type TeamPage struct {
	BasePage
	Members []*store.TeamMember
}

// ContactPage is the template data for the contact form.
type ContactPage struct {
	BasePage
	Form   store.ContactInput
	Errors map[string]string
}

// PublicHandler serves the team and contact pages.
type PublicHandler struct {
	sessions *scs.SessionManager
	team     *store.TeamMemberStore
	contacts *store.ContactStore
}

// NewPublicHandler creates a new PublicHandler.
func NewPublicHandler(sm *scs.SessionManager, ts *store.TeamMemberStore, cs *store.ContactStore) *PublicHandler {
	return &PublicHandler{sessions: sm, team: ts, contacts: cs}
}

// Team renders GET /team.
func (h *PublicHandler) Team(w http.ResponseWriter, r *http.Request) {
	members, err := h.team.ListAll(r.Context())
	if err != nil {
		serverError(w, r, h.sessions, err)
		return
	}
	render(w, "team.html", TeamPage{BasePage: newBasePage(r, h.sessions, "Our team"), Members: members})
}

// Contact renders GET /contact.
func (h *PublicHandler) Contact(w http.ResponseWriter, r *http.Request) {
	form := store.ContactInput{}
	if u := newBasePage(r, nil, "").User; u != nil {
		form.Name, form.Email = u.Name(), u.Email
	}
	render(w, "contact.html", ContactPage{BasePage: newBasePage(r, h.sessions, "Contact us"), Form: form})
}

// SubmitContact handles POST /contact.
func (h *PublicHandler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderError(w, r, h.sessions, http.StatusBadRequest, "The form could not be read.")
		return
	}
	in := store.ContactInput{
		Name:    strings.TrimSpace(r.FormValue("name")),
		Email:   strings.TrimSpace(r.FormValue("email")),
		Subject: strings.TrimSpace(r.FormValue("subject")),
		Message: r.FormValue("message"),
	}
	msg, err := h.contacts.Create(r.Context(), in)
	if errs, ok := fieldErrors(err); ok {
		renderStatus(w, http.StatusUnprocessableEntity, "contact.html", ContactPage{
			BasePage: newBasePage(r, h.sessions, "Contact us"),
			Form:     in,
			Errors:   errs,
		})
		return
	}
	if err != nil {
		serverError(w, r, h.sessions, err)
		return
	}
	logging.FromContext(r.Context()).Info("contact message received", "id", msg.ID)
	flash(h.sessions, r, "success", "Thanks for getting in touch. We'll reply soon.")
	redirect(w, r, "/contact")
}
