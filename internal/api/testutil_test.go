package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/joestump/newswire/internal/api"
	"github.com/joestump/newswire/internal/auth"
	"github.com/joestump/newswire/internal/logging"
	"github.com/joestump/newswire/internal/newsroom"
	"github.com/joestump/newswire/internal/store"
	"github.com/joestump/newswire/internal/testutil"
	"github.com/joestump/newswire/internal/upload"
)

const adminEmail = "admin@example.com"

// testEnv holds all stores and helpers needed for API integration tests.
type testEnv struct {
	Router        http.Handler
	Newsroom      *newsroom.Service
	UserStore     *store.UserStore
	CategoryStore *store.CategoryStore
	ContactStore  *store.ContactStore
	TokenStore    *auth.SQLTokenStore
	UploadRoot    string
}

// newTestEnv creates an in-memory SQLite test database, runs migrations,
// and wires up the full API router with real stores and a local upload gate.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)

	root := t.TempDir()
	storage, err := upload.NewLocalStorageAt(root)
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	gate := upload.NewGate(storage, upload.Config{}, logging.Discard())
	svc := newsroom.New(db, gate, newsroom.Defaults{
		NewsImage: "/static/img/default-news.svg",
		Avatar:    "/static/img/default-avatar.svg",
		TeamImage: "/static/img/default-team.svg",
	}, nil, logging.Discard())

	us := store.NewUserStore(db)
	cs := store.NewCategoryStore(db)
	contacts := store.NewContactStore(db)
	ts := auth.NewSQLTokenStore(db)

	router := api.NewAPIRouter(api.Deps{
		BearerMiddleware: auth.NewBearerTokenMiddleware(ts, us),
		TokenStore:       ts,
		Newsroom:         svc,
		UserStore:        us,
		CategoryStore:    cs,
		ContactStore:     contacts,
		StatsStore:       store.NewStatsStore(db),
	})
	return &testEnv{
		Router:        router,
		Newsroom:      svc,
		UserStore:     us,
		CategoryStore: cs,
		ContactStore:  contacts,
		TokenStore:    ts,
		UploadRoot:    root,
	}
}

// seedUser creates a user. The admin email gets the admin role.
func seedUser(t *testing.T, env *testEnv, email string) *store.User {
	t.Helper()
	u, err := env.UserStore.Upsert(context.Background(), "test", "sub-"+email, email, "Test User", adminEmail)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// seedToken creates a real API token for a user and returns the plaintext Bearer value.
func seedToken(t *testing.T, env *testEnv, userID string) string {
	t.Helper()
	plaintext, hash, err := auth.GenerateToken()
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := env.TokenStore.Create(context.Background(), userID, "test-token", hash, nil); err != nil {
		t.Fatalf("create token: %v", err)
	}
	return plaintext
}

func seedCategory(t *testing.T, env *testEnv, name string) *store.Category {
	t.Helper()
	c, err := env.CategoryStore.Create(context.Background(), store.CategoryInput{Name: name})
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return c
}

func seedNews(t *testing.T, env *testEnv, author *store.User, categoryID, title string) *store.News {
	t.Helper()
	n, err := env.Newsroom.CreateNews(context.Background(), author.Acting(), store.NewsInput{
		Title: title, Content: "Body of " + title, CategoryID: categoryID,
	}, nil)
	if err != nil {
		t.Fatalf("seed news: %v", err)
	}
	return n
}

// authRequest adds a Bearer token to the request.
func authRequest(r *http.Request, token string) *http.Request {
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

// do sends an authenticated request through the router.
func do(env *testEnv, token, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		authRequest(req, token)
	}
	rec := httptest.NewRecorder()
	env.Router.ServeHTTP(rec, req)
	return rec
}

func doJSON(env *testEnv, token, method, path string, v any) *httptest.ResponseRecorder {
	var body io.Reader
	if v != nil {
		b, _ := json.Marshal(v)
		body = bytes.NewReader(b)
	}
	return do(env, token, method, path, body, "application/json")
}

// multipartBody builds a multipart form. A non-nil file is attached under
// fileField with the given content type.
func multipartBody(t *testing.T, fields map[string]string, fileField, fileName, fileType string, file []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+fileField+`"; filename="`+fileName+`"`)
		h.Set("Content-Type", fileType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(file); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v; body: %s", err, rec.Body.String())
	}
	return v
}
