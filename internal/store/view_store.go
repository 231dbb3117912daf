package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ViewEvent is a single article view to be recorded.
type ViewEvent struct {
	NewsID string
	UserID string // empty string = anonymous
}

// ViewCounts holds aggregate view counts.
type ViewCounts struct {
	Total   int64
	Last7d  int64
	Last30d int64
}

// ViewStore is the sqlx-backed store for article view tracking.
type ViewStore struct {
	db *sqlx.DB
}

func NewViewStore(db *sqlx.DB) *ViewStore {
	return &ViewStore{db: db}
}

// q rebinds ? placeholders to the driver's native format.
func (s *ViewStore) q(query string) string { return s.db.Rebind(query) }

// RecordView inserts a view event row.
func (s *ViewStore) RecordView(ctx context.Context, e ViewEvent) error {
	var userID interface{}
	if e.UserID != "" {
		userID = e.UserID
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO news_views (id, news_id, user_id, viewed_at) VALUES (?, ?, ?, ?)
	`), uuid.New().String(), e.NewsID, userID, time.Now().UTC())
	return err
}

// CountByNews returns total, 7d and 30d view counts for an article.
func (s *ViewStore) CountByNews(ctx context.Context, newsID string) (*ViewCounts, error) {
	now := time.Now().UTC()
	var c ViewCounts
	err := s.db.QueryRowxContext(ctx, s.q(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN viewed_at >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN viewed_at >= ? THEN 1 ELSE 0 END), 0)
		FROM news_views
		WHERE news_id = ?
	`), now.AddDate(0, 0, -7), now.AddDate(0, 0, -30), newsID).Scan(&c.Total, &c.Last7d, &c.Last30d)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CountByAuthor returns the total number of views across every article
// written by authorID.
func (s *ViewStore) CountByAuthor(ctx context.Context, authorID string) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, s.q(`
		SELECT COUNT(*)
		FROM news_views v
		JOIN news n ON n.id = v.news_id
		WHERE n.author_id = ?
	`), authorID)
	return n, err
}

// Count returns the number of recorded views.
func (s *ViewStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM news_views`)
	return n, err
}
