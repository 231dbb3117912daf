package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"

	"github.com/joestump/newswire/internal/auth"
	"github.com/joestump/newswire/internal/handler"
	"github.com/joestump/newswire/internal/logging"
	"github.com/joestump/newswire/internal/newsroom"
	"github.com/joestump/newswire/internal/store"
	"github.com/joestump/newswire/internal/testutil"
	"github.com/joestump/newswire/internal/upload"
)

const adminEmail = "admin@example.com"

type testEnv struct {
	router     http.Handler
	db         *sqlx.DB
	sessions   *scs.SessionManager
	newsroom   *newsroom.Service
	users      *store.UserStore
	categories *store.CategoryStore
	contacts   *store.ContactStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	storage, err := upload.NewLocalStorageAt(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	gate := upload.NewGate(storage, upload.Config{}, logging.Discard())
	svc := newsroom.New(db, gate, newsroom.Defaults{
		NewsImage: "/static/img/default-news.svg",
		Avatar:    "/static/img/default-avatar.svg",
		TeamImage: "/static/img/default-team.svg",
	}, nil, logging.Discard())

	sm := scs.New()
	us := store.NewUserStore(db)
	env := &testEnv{
		db:         db,
		sessions:   sm,
		newsroom:   svc,
		users:      us,
		categories: store.NewCategoryStore(db),
		contacts:   store.NewContactStore(db),
	}
	env.router = handler.NewRouter(handler.Deps{
		DB:             db,
		Logger:         logging.Discard(),
		SessionManager: sm,
		AuthHandlers:   auth.NewHandlers(nil, sm, us, adminEmail, logging.Discard()),
		AuthMiddleware: auth.NewMiddleware(sm, us),
		Newsroom:       svc,
		Gate:           gate,
		UserStore:      us,
		CategoryStore:  env.categories,
		TeamStore:      store.NewTeamMemberStore(db),
		ContactStore:   env.contacts,
		StatsStore:     store.NewStatsStore(db),
		TokenStore:     auth.NewSQLTokenStore(db),
		MaxBody:        10 << 20,
	})
	return env
}

func (e *testEnv) seedUser(t *testing.T, email string) *store.User {
	t.Helper()
	u, err := e.users.Upsert(context.Background(), "test", "sub-"+email, email, strings.Split(email, "@")[0], adminEmail)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func (e *testEnv) seedCategory(t *testing.T, name string) *store.Category {
	t.Helper()
	c, err := e.categories.Create(context.Background(), store.CategoryInput{Name: name, Description: name + " news"})
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return c
}

func (e *testEnv) seedNews(t *testing.T, author *store.User, categoryID, title string) *store.News {
	t.Helper()
	n, err := e.newsroom.CreateNews(context.Background(), author.Acting(), store.NewsInput{
		Title: title, Content: "Body of " + title, CategoryID: categoryID,
	}, nil)
	if err != nil {
		t.Fatalf("seed news: %v", err)
	}
	return n
}

// login commits a session for userID and returns its cookie.
func (e *testEnv) login(t *testing.T, userID string) *http.Cookie {
	t.Helper()
	ctx, err := e.sessions.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	e.sessions.Put(ctx, auth.SessionUserIDKey, userID)
	token, _, err := e.sessions.Commit(ctx)
	if err != nil {
		t.Fatalf("commit session: %v", err)
	}
	return &http.Cookie{Name: e.sessions.Cookie.Name, Value: token}
}

func (e *testEnv) do(req *http.Request, session *http.Cookie) *httptest.ResponseRecorder {
	if session != nil {
		req.AddCookie(session)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(path string, session *http.Cookie) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest("GET", path, nil), session)
}

func (e *testEnv) postForm(path string, form url.Values, session *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req, session)
}

func multipartForm(t *testing.T, fields map[string]string, fileField, fileType string, file []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+fileField+`"; filename="upload.png"`)
		h.Set("Content-Type", fileType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		_, _ = part.Write(file)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHome_ListsCategories(t *testing.T) {
	env := newTestEnv(t)
	env.seedCategory(t, "World")
	env.seedCategory(t, "Sport")

	rec := env.get("/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	for _, want := range []string{"World", "Sport", "Sign in"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestCategory_Show(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice@example.com")
	world := env.seedCategory(t, "World")
	env.seedNews(t, alice, world.ID, "Election results")

	rec := env.get("/categories/"+world.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "Election results") {
		t.Error("category page missing article title")
	}

	req := httptest.NewRequest("GET", "/categories/"+world.ID+"?page=1", nil)
	req.Header.Set("HX-Request", "true")
	rec = env.do(req, nil)
	body := rec.Body.String()
	if !strings.Contains(body, `id="article-list"`) || strings.Contains(body, "<html") {
		t.Errorf("HTMX request should get the bare article list, got: %.200s", body)
	}

	if rec := env.get("/categories/missing", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing category status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestNotFoundPage(t *testing.T) {
	env := newTestEnv(t)
	rec := env.get("/no/such/page", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "404 · Not Found") || !strings.Contains(body, "couldn&#39;t find that page") {
		t.Errorf("expected the error page, got: %s", body)
	}
}

func TestAuthenticatedRoutes_RedirectToLogin(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/news/new", "/profile", "/profile/tokens", "/admin"} {
		t.Run(path, func(t *testing.T) {
			rec := env.get(path, nil)
			if rec.Code != http.StatusFound {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusFound)
			}
			want := "/auth/login?redirect=" + url.QueryEscape(path)
			if loc := rec.Header().Get("Location"); loc != want {
				t.Errorf("Location = %q, want %q", loc, want)
			}
		})
	}
}

func TestNews_CreateShowEdit(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice@example.com")
	bob := env.seedUser(t, "bob@example.com")
	world := env.seedCategory(t, "World")
	aliceSession := env.login(t, alice.ID)

	body, ct := multipartForm(t, map[string]string{
		"title": "Breaking", "content": "Something happened", "category_id": world.ID,
	}, "image", "image/png", testutil.PNG(2048))
	req := httptest.NewRequest("POST", "/news", body)
	req.Header.Set("Content-Type", ct)
	rec := env.do(req, aliceSession)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("create status = %d, want %d; body: %s", rec.Code, http.StatusSeeOther, rec.Body.String())
	}
	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "/news/") {
		t.Fatalf("Location = %q, want /news/{id}", loc)
	}
	id := strings.TrimPrefix(loc, "/news/")

	rec = env.get(loc, aliceSession)
	if rec.Code != http.StatusOK {
		t.Fatalf("show status = %d", rec.Code)
	}
	page := rec.Body.String()
	if !strings.Contains(page, "Breaking") || !strings.Contains(page, "Article published.") {
		t.Error("show page missing title or flash")
	}
	if !strings.Contains(page, "/news/"+id+"/edit") {
		t.Error("author should see the edit link")
	}

	n, err := env.newsroom.Editable(context.Background(), alice.Acting(), id)
	if err != nil {
		t.Fatalf("Editable: %v", err)
	}
	if !strings.HasPrefix(n.ImageURL, upload.PublicPrefix+newsroom.FolderNews+"/") {
		t.Fatalf("ImageURL = %q, want an upload", n.ImageURL)
	}
	if rec := env.get(n.ImageURL, nil); rec.Code != http.StatusOK {
		t.Errorf("uploaded image status = %d, want %d", rec.Code, http.StatusOK)
	}

	bobSession := env.login(t, bob.ID)
	if rec := env.get("/news/"+id, bobSession); strings.Contains(rec.Body.String(), "/news/"+id+"/edit") {
		t.Error("non-author should not see the edit link")
	}
	rec = env.get("/news/"+id+"/edit", bobSession)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-author edit status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if !strings.Contains(rec.Body.String(), "Not permitted") {
		t.Error("expected the not permitted page")
	}
	if rec := env.postForm("/news/"+id+"/delete", nil, bobSession); rec.Code != http.StatusForbidden {
		t.Errorf("non-author delete status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	if rec := env.get("/news/"+id+"/edit", aliceSession); rec.Code != http.StatusOK {
		t.Errorf("author edit status = %d, want %d", rec.Code, http.StatusOK)
	}
	rec = env.postForm("/news/"+id+"/delete", nil, aliceSession)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/profile/news" {
		t.Errorf("delete = %d %q, want 303 /profile/news", rec.Code, rec.Header().Get("Location"))
	}
}

func TestNews_CreateImageLimits(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice@example.com")
	world := env.seedCategory(t, "World")
	session := env.login(t, alice.ID)

	create := func(image []byte) *store.News {
		t.Helper()
		body, ct := multipartForm(t, map[string]string{
			"title": "Pictured", "content": "Body", "category_id": world.ID,
		}, "image", "image/png", image)
		req := httptest.NewRequest("POST", "/news", body)
		req.Header.Set("Content-Type", ct)
		rec := env.do(req, session)
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("create status = %d, want %d; body: %s", rec.Code, http.StatusSeeOther, rec.Body.String())
		}
		n, err := env.newsroom.Editable(context.Background(), alice.Acting(), strings.TrimPrefix(rec.Header().Get("Location"), "/news/"))
		if err != nil {
			t.Fatalf("Editable: %v", err)
		}
		return n
	}

	// Over the 5 MiB file limit but inside the 10 MiB body limit: the
	// article is still published, with the default image.
	if n := create(testutil.PNG(6 << 20)); n.ImageURL != "/static/img/default-news.svg" {
		t.Errorf("6 MiB image: ImageURL = %q, want the default image", n.ImageURL)
	}

	n := create(testutil.PNG(10 << 10))
	if !strings.HasPrefix(n.ImageURL, upload.PublicPrefix+newsroom.FolderNews+"/") || !strings.HasSuffix(n.ImageURL, ".png") {
		t.Fatalf("10 KiB image: ImageURL = %q, want an uploaded png", n.ImageURL)
	}
	rec := env.get(n.ImageURL, nil)
	if rec.Code != http.StatusOK || rec.Body.Len() != 10<<10 {
		t.Errorf("uploaded image = %d (%d bytes), want 200 with %d bytes", rec.Code, rec.Body.Len(), 10<<10)
	}
}

func TestNews_CreateInvalidRerendersForm(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice@example.com")
	env.seedCategory(t, "World")

	rec := env.postForm("/news", url.Values{"title": {"  "}, "content": {"x"}}, env.login(t, alice.ID))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(rec.Body.String(), "is required") {
		t.Error("form should show field errors")
	}
}

func TestNews_FavoriteToggle(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice@example.com")
	world := env.seedCategory(t, "World")
	n := env.seedNews(t, alice, world.ID, "Story")
	session := env.login(t, alice.ID)

	for _, want := range []bool{true, false} {
		rec := env.postForm("/news/"+n.ID+"/favorite", nil, session)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		var resp struct{ Favorited bool }
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Favorited != want {
			t.Errorf("favorited = %v, want %v", resp.Favorited, want)
		}
	}

	if rec := env.postForm("/news/missing/favorite", nil, session); rec.Code != http.StatusNotFound {
		t.Errorf("missing article status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestProfile_Pages(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice@example.com")
	world := env.seedCategory(t, "World")
	env.seedNews(t, alice, world.ID, "Mine")
	session := env.login(t, alice.ID)

	for _, path := range []string{"/profile", "/profile/news", "/profile/favorites", "/profile/statistics", "/profile/tokens"} {
		t.Run(path, func(t *testing.T) {
			if rec := env.get(path, session); rec.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
			}
		})
	}

	rec := env.postForm("/profile", url.Values{"first_name": {"Alice"}, "last_name": {"Liddell"}}, session)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("update status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	u, err := env.users.GetByID(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u.Name() != "Alice Liddell" {
		t.Errorf("Name() = %q, want %q", u.Name(), "Alice Liddell")
	}

	if rec := env.postForm("/profile/email", url.Values{"email": {"not-an-email"}}, session); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad email status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	env.seedUser(t, "taken@example.com")
	if rec := env.postForm("/profile/email", url.Values{"email": {"taken@example.com"}}, session); rec.Code != http.StatusConflict {
		t.Errorf("duplicate email status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestTokens_CreateShowsPlaintextOnce(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice@example.com")
	session := env.login(t, alice.ID)

	rec := env.postForm("/profile/tokens", url.Values{"name": {"laptop"}}, session)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), auth.TokenPrefix) {
		t.Error("expected the plaintext token in the response")
	}

	rec = env.get("/profile/tokens", session)
	if strings.Contains(rec.Body.String(), `class="token"`) {
		t.Error("plaintext token shown again")
	}
	if !strings.Contains(rec.Body.String(), "laptop") {
		t.Error("token list missing the new token")
	}

	if rec := env.postForm("/profile/tokens", url.Values{"name": {""}}, session); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty name status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestAdmin_Access(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice@example.com")
	admin := env.seedUser(t, adminEmail)

	if rec := env.get("/admin", env.login(t, alice.ID)); rec.Code != http.StatusForbidden {
		t.Errorf("non-admin status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	session := env.login(t, admin.ID)
	for _, path := range []string{"/admin", "/admin/categories", "/admin/categories/new", "/admin/team", "/admin/team/new", "/admin/users", "/admin/users/" + alice.ID + "/edit", "/admin/messages", "/admin/news"} {
		t.Run(path, func(t *testing.T) {
			if rec := env.get(path, session); rec.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
			}
		})
	}
}

func TestAdmin_CategoryLifecycle(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, adminEmail)
	session := env.login(t, admin.ID)

	rec := env.postForm("/admin/categories", url.Values{"name": {"World"}}, session)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("create status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if rec := env.postForm("/admin/categories", url.Values{"name": {"world"}}, session); rec.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if rec := env.postForm("/admin/categories", url.Values{"name": {""}}, session); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}

	cats, err := env.categories.ListAll(context.Background())
	if err != nil || len(cats) != 1 {
		t.Fatalf("ListAll = %d, %v; want 1 category", len(cats), err)
	}
	env.seedNews(t, admin, cats[0].ID, "Filed")

	env.postForm("/admin/categories/"+cats[0].ID+"/delete", nil, session)
	if ok, _ := env.categories.Exists(context.Background(), cats[0].ID); !ok {
		t.Error("category with articles was deleted")
	}
}

func TestAdmin_CannotRemoveOwnAdminRole(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, adminEmail)
	session := env.login(t, admin.ID)

	rec := env.postForm("/admin/users/"+admin.ID+"/roles", url.Values{"roles": {store.RoleUser}}, session)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	u, _ := env.users.GetByID(context.Background(), admin.ID)
	if !u.IsAdmin() {
		t.Error("admin role was removed")
	}
}

func TestContact_Submit(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.get("/contact", nil); rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}

	rec := env.postForm("/contact", url.Values{"name": {"Reader"}, "email": {"bad"}, "subject": {"Hi"}, "message": {"Hello"}}, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}

	rec = env.postForm("/contact", url.Values{"name": {"Reader"}, "email": {"reader@example.com"}, "subject": {"Hi"}, "message": {"Hello"}}, nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/contact" {
		t.Fatalf("submit = %d %q, want 303 /contact", rec.Code, rec.Header().Get("Location"))
	}
	if n, _ := env.contacts.CountUnread(context.Background()); n != 1 {
		t.Errorf("unread = %d, want 1", n)
	}
}

func TestTheme_Toggle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm("/theme", nil, nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	var theme string
	for _, c := range rec.Result().Cookies() {
		if c.Name == "theme" {
			theme = c.Value
		}
	}
	if theme != "newswire-dark" {
		t.Errorf("theme cookie = %q, want newswire-dark", theme)
	}

	req := httptest.NewRequest("POST", "/theme", nil)
	req.Header.Set("HX-Request", "true")
	req.AddCookie(&http.Cookie{Name: "theme", Value: "newswire-dark"})
	rec = env.do(req, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("htmx status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Header().Get("HX-Trigger"), "newswire-light") {
		t.Errorf("HX-Trigger = %q, want the light theme", rec.Header().Get("HX-Trigger"))
	}
}

func TestHealthzAndStatic(t *testing.T) {
	env := newTestEnv(t)
	if rec := env.get("/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want %d", rec.Code, http.StatusOK)
	}
	for _, path := range []string{"/static/css/app.css", "/static/img/default-news.svg"} {
		if rec := env.get(path, nil); rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}

func TestAPI_MountedWithBearerAuth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.get("/api/v1/categories", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
