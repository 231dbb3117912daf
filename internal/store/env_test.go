package store_test

import (
	"context"
	"testing"

	"github.com/joestump/newswire/internal/store"
	"github.com/joestump/newswire/internal/testutil"
)

// testEnv bundles every store over one migrated database.
type testEnv struct {
	users      *store.UserStore
	categories *store.CategoryStore
	news       *store.NewsStore
	favorites  *store.FavoriteStore
	team       *store.TeamMemberStore
	contact    *store.ContactStore
	views      *store.ViewStore
	stats      *store.StatsStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	return &testEnv{
		users:      store.NewUserStore(db),
		categories: store.NewCategoryStore(db),
		news:       store.NewNewsStore(db),
		favorites:  store.NewFavoriteStore(db),
		team:       store.NewTeamMemberStore(db),
		contact:    store.NewContactStore(db),
		views:      store.NewViewStore(db),
		stats:      store.NewStatsStore(db),
	}
}

func (e *testEnv) seedUser(t *testing.T, subject, email string) *store.User {
	t.Helper()
	u, err := e.users.Upsert(context.Background(), "test", subject, email, subject, "")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func (e *testEnv) seedCategory(t *testing.T, name string) *store.Category {
	t.Helper()
	c, err := e.categories.Create(context.Background(), store.CategoryInput{Name: name})
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return c
}

func (e *testEnv) seedNews(t *testing.T, title, categoryID, authorID string) *store.News {
	t.Helper()
	n, err := e.news.Create(context.Background(), store.NewsInput{
		Title:      title,
		Content:    "Body of " + title,
		CategoryID: categoryID,
	}, "/static/img/default-news.svg", authorID)
	if err != nil {
		t.Fatalf("seed news: %v", err)
	}
	return n
}
