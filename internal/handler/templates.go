package handler

import (
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/joestump/newswire/internal/auth"
	"github.com/joestump/newswire/internal/logging"
	"github.com/joestump/newswire/internal/store"
	"github.com/joestump/newswire/web"
)

// BasePage carries layout-level data available to every template.
type BasePage struct {
	Theme string      // "newswire-light", "newswire-dark", or "" (let inline script decide)
	User  *store.User // nil for anonymous visitors
	Flash *auth.Flash
	Title string
}

// IsAdmin reports whether the admin navigation should be shown.
func (b BasePage) IsAdmin() bool { return b.User.IsAdmin() }

const (
	themeLight = "newswire-light"
	themeDark  = "newswire-dark"
)

// themeFromRequest reads the "theme" cookie. Returns "" if absent or invalid,
// so the server omits data-theme and lets the anti-flash inline script handle it.
func themeFromRequest(r *http.Request) string {
	c, err := r.Cookie("theme")
	if err != nil {
		return ""
	}
	if c.Value == themeLight || c.Value == themeDark {
		return c.Value
	}
	return ""
}

// newBasePage builds the layout data for r and consumes any pending flash.
func newBasePage(r *http.Request, sm *scs.SessionManager, title string) BasePage {
	b := BasePage{
		Theme: themeFromRequest(r),
		User:  auth.UserFromContext(r.Context()),
		Title: title,
	}
	if sm != nil {
		b.Flash = auth.PopFlash(sm, r.Context())
	}
	return b
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format("Jan 2, 2006") },
	"datetime": func(t time.Time) string {
		return t.Format("Jan 2, 2006 15:04")
	},
	"fieldError": func(errs map[string]string, field string) string {
		return errs[field]
	},
}

// pageCache maps a render key (e.g. "home.html", "admin/users.html") to a
// compiled template set containing base.html + partials + that one page file.
// Each page gets its own set so {{define "content"}} blocks don't collide.
var (
	pageCache    map[string]*template.Template
	fragmentTmpl *template.Template
)

func init() {
	partials, err := fs.Glob(web.TemplateFS, "templates/partials/*.html")
	if err != nil {
		panic("glob partials: " + err.Error())
	}

	fragmentTmpl = template.Must(template.New("").Funcs(funcs).ParseFS(web.TemplateFS, partials...))

	// Count how many page files share each basename to detect collisions.
	baseCount := map[string]int{}
	_ = fs.WalkDir(web.TemplateFS, "templates/pages", func(p string, d fs.DirEntry, e error) error {
		if e != nil || d.IsDir() || !strings.HasSuffix(p, ".html") {
			return e
		}
		baseCount[filepath.Base(p)]++
		return nil
	})

	pageCache = make(map[string]*template.Template)
	err = fs.WalkDir(web.TemplateFS, "templates/pages", func(p string, d fs.DirEntry, e error) error {
		if e != nil || d.IsDir() || !strings.HasSuffix(p, ".html") {
			return e
		}

		files := make([]string, 0, 2+len(partials))
		files = append(files, "templates/base.html")
		files = append(files, partials...)
		files = append(files, p)

		t, err := template.New("").Funcs(funcs).ParseFS(web.TemplateFS, files...)
		if err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}

		rel, _ := strings.CutPrefix(p, "templates/pages/")
		pageCache[rel] = t

		// Alias under bare basename when it is unique across all page files.
		base := filepath.Base(p)
		if baseCount[base] == 1 {
			pageCache[base] = t
		}
		return nil
	})
	if err != nil {
		panic("build page cache: " + err.Error())
	}
}

// isHTMX returns true when the request was sent by HTMX.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// render executes a full-page template (base layout + named page) with a 200.
func render(w http.ResponseWriter, tmpl string, data any) {
	renderStatus(w, http.StatusOK, tmpl, data)
}

// renderStatus is render with an explicit status code.
func renderStatus(w http.ResponseWriter, status int, tmpl string, data any) {
	t, ok := pageCache[tmpl]
	if !ok {
		http.Error(w, "template not found: "+tmpl, http.StatusInternalServerError)
		return
	}
	var buf strings.Builder
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		slog.Error("template execution failed", "template", tmpl, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

// renderFragment executes a named template from the global partials set.
func renderFragment(w http.ResponseWriter, tmpl string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := fragmentTmpl.ExecuteTemplate(w, tmpl, data); err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
	}
}

// ErrorPage is the template data for error.html.
type ErrorPage struct {
	BasePage
	Status  int
	Heading string
	Message string
}

// renderError renders the shared error page.
func renderError(w http.ResponseWriter, r *http.Request, sm *scs.SessionManager, status int, message string) {
	heading := http.StatusText(status)
	if status == http.StatusForbidden {
		heading = "Not permitted"
	}
	data := ErrorPage{
		BasePage: newBasePage(r, sm, heading),
		Status:   status,
		Heading:  heading,
		Message:  message,
	}
	renderStatus(w, status, "error.html", data)
}

// serverError logs err with the request logger and renders a 500 page.
func serverError(w http.ResponseWriter, r *http.Request, sm *scs.SessionManager, err error) {
	logging.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	renderError(w, r, sm, http.StatusInternalServerError, "Something went wrong. Please try again.")
}
