package api_test

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joestump/newswire/internal/api"
	"github.com/joestump/newswire/internal/newsroom"
	"github.com/joestump/newswire/internal/store"
	"github.com/joestump/newswire/internal/testutil"
	"github.com/joestump/newswire/internal/upload"
)

func TestMe_Get(t *testing.T) {
	env := newTestEnv(t)
	alice := seedUser(t, env, "alice@example.com")
	token := seedToken(t, env, alice.ID)
	world := seedCategory(t, env, "World")
	seedNews(t, env, alice, world.ID, "Story")

	rec := do(env, token, "GET", "/me", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	resp := decode[api.ProfileResponse](t, rec)
	if resp.ID != alice.ID || resp.Email != "alice@example.com" {
		t.Errorf("profile = %+v, want alice", resp.UserResponse)
	}
	if resp.PictureURL != "/static/img/default-avatar.svg" {
		t.Errorf("picture_url = %q, want the default avatar", resp.PictureURL)
	}
	if resp.NewsCount != 1 {
		t.Errorf("news_count = %d, want 1", resp.NewsCount)
	}
	if len(resp.Roles) != 1 || resp.Roles[0] != store.RoleUser {
		t.Errorf("roles = %v, want [user]", resp.Roles)
	}
}

func TestMe_Update(t *testing.T) {
	env := newTestEnv(t)
	alice := seedUser(t, env, "alice@example.com")
	token := seedToken(t, env, alice.ID)

	body, ct := multipartBody(t, map[string]string{"first_name": "Alice", "last_name": "Liddell"},
		"picture", "me.jpg", "image/jpeg", testutil.JPEG(1024))
	rec := do(env, token, "PUT", "/me", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	resp := decode[api.ProfileResponse](t, rec)
	if resp.FirstName != "Alice" || resp.LastName != "Liddell" {
		t.Errorf("names = %q %q, want Alice Liddell", resp.FirstName, resp.LastName)
	}
	if !strings.HasPrefix(resp.PictureURL, upload.PublicPrefix+newsroom.FolderProfiles+"/") {
		t.Fatalf("picture_url = %q, want an uploaded profile picture", resp.PictureURL)
	}
	key := strings.TrimPrefix(resp.PictureURL, upload.PublicPrefix)
	if _, err := os.Stat(filepath.Join(env.UploadRoot, filepath.FromSlash(key))); err != nil {
		t.Errorf("uploaded picture missing on disk: %v", err)
	}
	first := resp.PictureURL

	// A rejected replacement keeps the current picture.
	body, ct = multipartBody(t, map[string]string{"first_name": "Alice"},
		"picture", "me.gif", "image/gif", testutil.Garbage(1024))
	rec = do(env, token, "PUT", "/me", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	if resp := decode[api.ProfileResponse](t, rec); resp.PictureURL != first {
		t.Errorf("picture_url = %q, want unchanged %q", resp.PictureURL, first)
	}
}

func TestMe_Update_Invalid(t *testing.T) {
	env := newTestEnv(t)
	alice := seedUser(t, env, "alice@example.com")
	token := seedToken(t, env, alice.ID)

	rec := doJSON(env, token, "PUT", "/me", map[string]string{"first_name": strings.Repeat("x", 51)})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	if resp := decode[api.ErrorResponse](t, rec); resp.Fields["first_name"] == "" {
		t.Errorf("fields = %v, want a first_name error", resp.Fields)
	}
}

func TestMe_NewsAndStatistics(t *testing.T) {
	env := newTestEnv(t)
	alice := seedUser(t, env, "alice@example.com")
	bob := seedUser(t, env, "bob@example.com")
	token := seedToken(t, env, alice.ID)
	world := seedCategory(t, env, "World")
	sport := seedCategory(t, env, "Sport")
	seedNews(t, env, alice, world.ID, "One")
	seedNews(t, env, alice, world.ID, "Two")
	seedNews(t, env, alice, sport.ID, "Three")
	seedNews(t, env, bob, sport.ID, "Not mine")

	rec := do(env, token, "GET", "/me/news", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	news := decode[api.NewsListResponse](t, rec)
	if news.Total != 3 {
		t.Errorf("total = %d, want 3", news.Total)
	}
	for _, n := range news.News {
		if !n.IsOwner {
			t.Errorf("article %q is_owner = false", n.Title)
		}
	}

	rec = do(env, token, "GET", "/me/statistics", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	stats := decode[store.AuthorStatistics](t, rec)
	if stats.TotalArticles != 3 {
		t.Errorf("total_articles = %d, want 3", stats.TotalArticles)
	}
	if len(stats.CategoryBreakdown) != 2 {
		t.Errorf("category_breakdown = %v, want 2 entries", stats.CategoryBreakdown)
	}
}
