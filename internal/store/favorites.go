package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// FavoriteStore records which users favorited which articles.
type FavoriteStore struct {
	db *sqlx.DB
}

func NewFavoriteStore(db *sqlx.DB) *FavoriteStore {
	return &FavoriteStore{db: db}
}

// q rebinds ? placeholders to the driver's native format ($1,$2,... for PostgreSQL).
func (s *FavoriteStore) q(query string) string { return s.db.Rebind(query) }

// Add marks newsID as a favorite of userID. Returns ErrAlreadyFavorite if it
// already is.
func (s *FavoriteStore) Add(ctx context.Context, userID, newsID string) error {
	ok, err := s.IsFavorite(ctx, userID, newsID)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyFavorite
	}
	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO user_favorites (user_id, news_id, favorited_at) VALUES (?, ?, ?)
	`), userID, newsID, time.Now().UTC())
	if isUniqueConstraintError(err) {
		return ErrAlreadyFavorite
	}
	return err
}

// Remove unmarks a favorite. Returns ErrNotFound if it was not marked.
func (s *FavoriteStore) Remove(ctx context.Context, userID, newsID string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM user_favorites WHERE user_id = ? AND news_id = ?`), userID, newsID)
	return checkAffected(res, err)
}

// IsFavorite reports whether userID favorited newsID.
func (s *FavoriteStore) IsFavorite(ctx context.Context, userID, newsID string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.q(`
		SELECT COUNT(*) FROM user_favorites WHERE user_id = ? AND news_id = ?
	`), userID, newsID)
	return n > 0, err
}

// FavoritedIDs returns the subset of newsIDs that userID has favorited.
func (s *FavoriteStore) FavoritedIDs(ctx context.Context, userID string, newsIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(newsIDs))
	if userID == "" || len(newsIDs) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT news_id FROM user_favorites WHERE user_id = ? AND news_id IN (?)`, userID, newsIDs)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, s.q(query), args...); err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// ListByUser returns one page of the user's favorite articles, most recently
// favorited first.
func (s *FavoriteStore) ListByUser(ctx context.Context, userID string, req PageRequest) (Page[*News], error) {
	req = req.normalize()
	p := Page[*News]{Number: req.Number, Size: req.Size}

	if err := s.db.GetContext(ctx, &p.Total, s.q(`
		SELECT COUNT(*) FROM user_favorites f JOIN news n ON n.id = f.news_id WHERE f.user_id = ?
	`), userID); err != nil {
		return p, err
	}
	req = req.clamp(p.Total)
	p.Number = req.Number
	err := s.db.SelectContext(ctx, &p.Items, s.q(`
		SELECT n.id, n.title, n.content, n.image_url, n.topic, n.category_id, n.author_id,
		       n.published_at, n.updated_at,
		       COALESCE(c.name, '') AS category_name,
		       COALESCE(u.display_name, '') AS author_name
		FROM user_favorites f
		JOIN news n ON n.id = f.news_id
		LEFT JOIN categories c ON c.id = n.category_id
		LEFT JOIN users u ON u.id = n.author_id
		WHERE f.user_id = ?
		ORDER BY f.favorited_at DESC, n.id DESC
		LIMIT ? OFFSET ?
	`), userID, req.Size, req.offset())
	return p, err
}

// CountByUser returns the number of favorites userID has made.
func (s *FavoriteStore) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.q(`SELECT COUNT(*) FROM user_favorites WHERE user_id = ?`), userID)
	return n, err
}

// CountReceived returns how many times articles by authorID were favorited.
func (s *FavoriteStore) CountReceived(ctx context.Context, authorID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.q(`
		SELECT COUNT(*) FROM user_favorites f JOIN news n ON n.id = f.news_id WHERE n.author_id = ?
	`), authorID)
	return n, err
}
