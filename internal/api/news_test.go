package api_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/joestump/newswire/internal/api"
	"github.com/joestump/newswire/internal/newsroom"
	"github.com/joestump/newswire/internal/store"
	"github.com/joestump/newswire/internal/testutil"
	"github.com/joestump/newswire/internal/upload"
)

func TestCategories_List(t *testing.T) {
	env := newTestEnv(t)
	alice := seedUser(t, env, "alice@example.com")
	token := seedToken(t, env, alice.ID)
	world := seedCategory(t, env, "World")
	seedCategory(t, env, "Sport")
	seedNews(t, env, alice, world.ID, "One")
	seedNews(t, env, alice, world.ID, "Two")

	rec := do(env, token, "GET", "/categories", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	resp := decode[api.CategoryListResponse](t, rec)
	if len(resp.Categories) != 2 {
		t.Fatalf("len(categories) = %d, want 2", len(resp.Categories))
	}
	for _, c := range resp.Categories {
		if c.Name == "World" && (c.NewsCount == nil || *c.NewsCount != 2) {
			t.Errorf("World news_count = %v, want 2", c.NewsCount)
		}
	}
}

func TestCategories_News_Paginates(t *testing.T) {
	env := newTestEnv(t)
	alice := seedUser(t, env, "alice@example.com")
	token := seedToken(t, env, alice.ID)
	world := seedCategory(t, env, "World")
	for _, title := range []string{"A", "B", "C", "D", "E"} {
		seedNews(t, env, alice, world.ID, title)
	}

	tests := []struct {
		name      string
		query     string
		wantItems int
		wantPage  int
		wantPages int
	}{
		{"first page", "?per_page=2", 2, 1, 3},
		{"last page", "?per_page=2&page=3", 1, 3, 3},
		{"past the end clamps", "?per_page=2&page=9", 1, 3, 3},
		{"default size", "", 5, 1, 1},
		{"garbage falls back", "?page=x&per_page=-1", 5, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(env, token, "GET", "/categories/"+world.ID+"/news"+tt.query, nil, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
			}
			resp := decode[api.NewsListResponse](t, rec)
			if len(resp.News) != tt.wantItems {
				t.Errorf("items = %d, want %d", len(resp.News), tt.wantItems)
			}
			if resp.Page != tt.wantPage {
				t.Errorf("page = %d, want %d", resp.Page, tt.wantPage)
			}
			if resp.TotalPages != tt.wantPages {
				t.Errorf("total_pages = %d, want %d", resp.TotalPages, tt.wantPages)
			}
			if resp.Total != 5 {
				t.Errorf("total = %d, want 5", resp.Total)
			}
		})
	}
}

func TestCategories_News_UnknownCategory(t *testing.T) {
	env := newTestEnv(t)
	alice := seedUser(t, env, "alice@example.com")
	token := seedToken(t, env, alice.ID)

	rec := do(env, token, "GET", "/categories/missing/news", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	resp := decode[api.ErrorResponse](t, rec)
	if resp.Code != "NOT_FOUND" {
		t.Errorf("code = %q, want NOT_FOUND", resp.Code)
	}
}

func TestNews_Create_JSON(t *testing.T) {
	env := newTestEnv(t)
	alice := seedUser(t, env, "alice@example.com")
	token := seedToken(t, env, alice.ID)
	world := seedCategory(t, env, "World")

	rec := doJSON(env, token, "POST", "/news", map[string]string{
		"title": "  Headline  ", "content": "Story", "category_id": world.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	resp := decode[api.NewsResponse](t, rec)
	if resp.Title != "Headline" {
		t.Errorf("title = %q, want %q", resp.Title, "Headline")
	}
	if resp.AuthorID == nil || *resp.AuthorID != alice.ID {
		t.Errorf("author_id = %v, want %q", resp.AuthorID, alice.ID)
	}
	if resp.ImageURL != "/static/img/default-news.svg" {
		t.Errorf("image_url = %q, want the default image", resp.ImageURL)
	}
	if !resp.IsOwner {
		t.Error("is_owner = false, want true")
	}
}

func TestNews_Create_MultipartWithImage(t *testing.T) {
	env := newTestEnv(t)
	alice := seedUser(t, env, "alice@example.com")
	token := seedToken(t, env, alice.ID)
	world := seedCategory(t, env, "World")

	body, ct := multipartBody(t, map[string]string{
		"title": "Pictured", "content": "Story", "category_id": world.ID,
	}, "image", "photo.png", "image/png", testutil.PNG(2048))
	rec := do(env, token, "POST", "/news", body, ct)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	resp := decode[api.NewsResponse](t, rec)
	if !strings.HasPrefix(resp.ImageURL, upload.PublicPrefix+newsroom.FolderNews+"/") || !strings.HasSuffix(resp.ImageURL, ".png") {
		t.Errorf("image_url = %q, want an uploaded news image", resp.ImageURL)
	}
}

func TestNews_Create_RejectedImageFallsBack(t *testing.T) {
	env := newTestEnv(t)
	alice := seedUser(t, env, "alice@example.com")
	token := seedToken(t, env, alice.ID)
	world := seedCategory(t, env, "World")

	body, ct := multipartBody(t, map[string]string{
		"title": "Spoofed", "content": "Story", "category_id": world.ID,
	}, "image", "photo.png", "image/png", testutil.Garbage(2048))
	rec := do(env, token, "POST", "/news", body, ct)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	resp := decode[api.NewsResponse](t, rec)
	if resp.ImageURL != "/static/img/default-news.svg" {
		t.Errorf("image_url = %q, want the default image", resp.ImageURL)
	}
}

func TestNews_Create_Invalid(t *testing.T) {
	env := newTestEnv(t)
	alice := seedUser(t, env, "alice@example.com")
	token := seedToken(t, env, alice.ID)

	rec := doJSON(env, token, "POST", "/news", map[string]string{"title": "", "content": "x", "category_id": "nope"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusUnprocessableEntity, rec.Body.String())
	}
	resp := decode[api.ErrorResponse](t, rec)
	if _, ok := resp.Fields["title"]; !ok {
		t.Errorf("fields = %v, want a title error", resp.Fields)
	}
}

func TestNews_Get(t *testing.T) {
	env := newTestEnv(t)
	alice := seedUser(t, env, "alice@example.com")
	bob := seedUser(t, env, "bob@example.com")
	world := seedCategory(t, env, "World")
	n := seedNews(t, env, alice, world.ID, "Story")

	tests := []struct {
		name      string
		token     string
		path      string
		wantCode  int
		wantOwner bool
	}{
		{"author", seedToken(t, env, alice.ID), "/news/" + n.ID, http.StatusOK, true},
		{"reader", seedToken(t, env, bob.ID), "/news/" + n.ID, http.StatusOK, false},
		{"missing", seedToken(t, env, bob.ID), "/news/nope", http.StatusNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(env, tt.token, "GET", tt.path, nil, "")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			resp := decode[api.NewsResponse](t, rec)
			if resp.IsOwner != tt.wantOwner {
				t.Errorf("is_owner = %v, want %v", resp.IsOwner, tt.wantOwner)
			}
			if resp.CategoryName != "World" {
				t.Errorf("category_name = %q, want World", resp.CategoryName)
			}
		})
	}
}

func TestNews_UpdateDelete_Ownership(t *testing.T) {
	env := newTestEnv(t)
	alice := seedUser(t, env, "alice@example.com")
	bob := seedUser(t, env, "bob@example.com")
	admin := seedUser(t, env, adminEmail)
	world := seedCategory(t, env, "World")
	aliceToken := seedToken(t, env, alice.ID)
	bobToken := seedToken(t, env, bob.ID)
	adminToken := seedToken(t, env, admin.ID)

	n := seedNews(t, env, alice, world.ID, "Original")
	edit := map[string]string{"title": "Edited", "content": "New body", "category_id": world.ID}

	if rec := doJSON(env, bobToken, "PUT", "/news/"+n.ID, edit); rec.Code != http.StatusForbidden {
		t.Errorf("other user update status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if rec := do(env, bobToken, "DELETE", "/news/"+n.ID, nil, ""); rec.Code != http.StatusForbidden {
		t.Errorf("other user delete status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	rec := doJSON(env, aliceToken, "PUT", "/news/"+n.ID, edit)
	if rec.Code != http.StatusOK {
		t.Fatalf("author update status = %d; body: %s", rec.Code, rec.Body.String())
	}
	if resp := decode[api.NewsResponse](t, rec); resp.Title != "Edited" {
		t.Errorf("title = %q, want Edited", resp.Title)
	}

	if rec := do(env, adminToken, "DELETE", "/news/"+n.ID, nil, ""); rec.Code != http.StatusNoContent {
		t.Errorf("admin delete status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if rec := do(env, aliceToken, "GET", "/news/"+n.ID, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("after delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestNews_Favorites(t *testing.T) {
	env := newTestEnv(t)
	alice := seedUser(t, env, "alice@example.com")
	bob := seedUser(t, env, "bob@example.com")
	world := seedCategory(t, env, "World")
	n := seedNews(t, env, alice, world.ID, "Story")
	token := seedToken(t, env, bob.ID)

	for i := 0; i < 2; i++ {
		rec := do(env, token, "PUT", "/news/"+n.ID+"/favorite", nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("favorite #%d status = %d; body: %s", i+1, rec.Code, rec.Body.String())
		}
		if resp := decode[api.FavoriteResponse](t, rec); !resp.Favorited {
			t.Errorf("favorite #%d favorited = false", i+1)
		}
	}

	rec := do(env, token, "GET", "/me/favorites", nil, "")
	if resp := decode[api.NewsListResponse](t, rec); resp.Total != 1 || !resp.News[0].IsFavorite {
		t.Errorf("favorites = %+v, want the one article", resp)
	}

	if rec := do(env, token, "DELETE", "/news/"+n.ID+"/favorite", nil, ""); rec.Code != http.StatusOK {
		t.Errorf("unfavorite status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec := do(env, token, "DELETE", "/news/"+n.ID+"/favorite", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second unfavorite status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if rec := do(env, token, "PUT", "/news/nope/favorite", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("favorite missing article status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	a, err := env.Newsroom.Article(context.Background(), store.NewActingUser(bob.ID, store.RoleUser), n.ID)
	if err != nil || a.IsFavorite {
		t.Errorf("after unfavorite: IsFavorite = %v, err = %v; want false", a != nil && a.IsFavorite, err)
	}
}
