package store

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
)

// activityMonths is the number of calendar months, including the current
// one, covered by an author's activity chart.
const activityMonths = 6

// DashboardStats holds the counts shown on the admin dashboard.
type DashboardStats struct {
	News           int `json:"news"`
	Categories     int `json:"categories"`
	TeamMembers    int `json:"team_members"`
	Messages       int `json:"messages"`
	UnreadMessages int `json:"unread_messages"`
	Users          int `json:"users"`
}

// CategoryShare is the number of an author's articles in one category.
type CategoryShare struct {
	CategoryName string  `json:"category_name"`
	ArticleCount int     `json:"article_count"`
	Percentage   float64 `json:"percentage"`
}

// MonthlyActivity is the number of articles an author published in a month.
type MonthlyActivity struct {
	Month        string `json:"month"`
	ArticleCount int    `json:"article_count"`
}

// AuthorStatistics summarises an author's publishing history.
type AuthorStatistics struct {
	TotalArticles      int               `json:"total_articles"`
	PublishedThisMonth int               `json:"published_this_month"`
	TotalViews         int64             `json:"total_views"`
	FavoritesMade      int               `json:"favorites_made"`
	FavoritesReceived  int               `json:"favorites_received"`
	CategoryBreakdown  []CategoryShare   `json:"category_breakdown"`
	Activity           []MonthlyActivity `json:"activity"`
}

// StatsStore aggregates counts across the other stores.
type StatsStore struct {
	news       *NewsStore
	categories *CategoryStore
	team       *TeamMemberStore
	contact    *ContactStore
	users      *UserStore
	favorites  *FavoriteStore
	views      *ViewStore

	now func() time.Time
}

func NewStatsStore(db *sqlx.DB) *StatsStore {
	return &StatsStore{
		news:       NewNewsStore(db),
		categories: NewCategoryStore(db),
		team:       NewTeamMemberStore(db),
		contact:    NewContactStore(db),
		users:      NewUserStore(db),
		favorites:  NewFavoriteStore(db),
		views:      NewViewStore(db),
		now:        time.Now,
	}
}

// Dashboard returns the admin dashboard counts.
func (s *StatsStore) Dashboard(ctx context.Context) (*DashboardStats, error) {
	var (
		d   DashboardStats
		err error
	)
	if d.News, err = s.news.Count(ctx); err != nil {
		return nil, err
	}
	if d.Categories, err = s.categories.Count(ctx); err != nil {
		return nil, err
	}
	if d.TeamMembers, err = s.team.Count(ctx); err != nil {
		return nil, err
	}
	if d.Messages, err = s.contact.Count(ctx); err != nil {
		return nil, err
	}
	if d.UnreadMessages, err = s.contact.CountUnread(ctx); err != nil {
		return nil, err
	}
	if d.Users, err = s.users.Count(ctx); err != nil {
		return nil, err
	}
	return &d, nil
}

// AuthorStatistics computes the statistics page for authorID.
func (s *StatsStore) AuthorStatistics(ctx context.Context, authorID string) (*AuthorStatistics, error) {
	activity, err := s.news.AuthorActivity(ctx, authorID)
	if err != nil {
		return nil, err
	}
	st := summarize(activity, s.now().UTC())

	if st.FavoritesMade, err = s.favorites.CountByUser(ctx, authorID); err != nil {
		return nil, err
	}
	if st.FavoritesReceived, err = s.favorites.CountReceived(ctx, authorID); err != nil {
		return nil, err
	}
	if st.TotalViews, err = s.views.CountByAuthor(ctx, authorID); err != nil {
		return nil, err
	}
	return st, nil
}

// summarize builds the category breakdown and the monthly activity chart.
// Every month in the window is present, including months with no articles.
func summarize(rows []AuthorActivity, now time.Time) *AuthorStatistics {
	st := &AuthorStatistics{TotalArticles: len(rows)}
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	windowStart := thisMonth.AddDate(0, -(activityMonths - 1), 0)

	months := make([]MonthlyActivity, activityMonths)
	for i := range months {
		months[i].Month = windowStart.AddDate(0, i, 0).Format("Jan 2006")
	}

	byCategory := make(map[string]int)
	for _, r := range rows {
		name := r.CategoryName
		if name == "" {
			name = "Unknown"
		}
		byCategory[name]++

		p := r.PublishedAt.UTC()
		if !p.Before(thisMonth) {
			st.PublishedThisMonth++
		}
		if p.Before(windowStart) {
			continue
		}
		idx := (p.Year()-windowStart.Year())*12 + int(p.Month()) - int(windowStart.Month())
		if idx >= 0 && idx < activityMonths {
			months[idx].ArticleCount++
		}
	}
	st.Activity = months

	st.CategoryBreakdown = make([]CategoryShare, 0, len(byCategory))
	for name, n := range byCategory {
		st.CategoryBreakdown = append(st.CategoryBreakdown, CategoryShare{
			CategoryName: name,
			ArticleCount: n,
			Percentage:   math.Round(float64(n)/float64(len(rows))*1000) / 10,
		})
	}
	sort.Slice(st.CategoryBreakdown, func(i, j int) bool {
		a, b := st.CategoryBreakdown[i], st.CategoryBreakdown[j]
		if a.ArticleCount != b.ArticleCount {
			return a.ArticleCount > b.ArticleCount
		}
		return a.CategoryName < b.CategoryName
	})
	return st
}
