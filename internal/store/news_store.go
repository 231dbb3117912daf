package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// News is an article joined with the names of its category and author.
type News struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Content     string         `db:"content"`
	ImageURL    string         `db:"image_url"`
	Topic       string         `db:"topic"`
	CategoryID  string         `db:"category_id"`
	AuthorID    sql.NullString `db:"author_id"`
	PublishedAt time.Time      `db:"published_at"`
	UpdatedAt   time.Time      `db:"updated_at"`

	CategoryName string `db:"category_name"`
	AuthorName   string `db:"author_name"`
}

// Author implements Authored. Articles whose author was deleted have none.
func (n *News) Author() (string, bool) {
	if n == nil {
		return "", false
	}
	return n.AuthorID.String, n.AuthorID.Valid
}

// Excerpt returns the first max runes of the content.
func (n *News) Excerpt(max int) string {
	r := []rune(strings.TrimSpace(n.Content))
	if len(r) <= max {
		return string(r)
	}
	return strings.TrimSpace(string(r[:max])) + "…"
}

// AuthorActivity is one published article, reduced to what author
// statistics need.
type AuthorActivity struct {
	CategoryName string    `db:"category_name"`
	PublishedAt  time.Time `db:"published_at"`
}

// NewsStore is the sqlx-backed store for news articles.
type NewsStore struct {
	db *sqlx.DB
}

func NewNewsStore(db *sqlx.DB) *NewsStore {
	return &NewsStore{db: db}
}

// q rebinds ? placeholders to the driver's native format ($1,$2,... for PostgreSQL).
func (s *NewsStore) q(query string) string { return s.db.Rebind(query) }

const newsSelect = `
	SELECT n.id, n.title, n.content, n.image_url, n.topic, n.category_id, n.author_id,
	       n.published_at, n.updated_at,
	       COALESCE(c.name, '') AS category_name,
	       COALESCE(u.display_name, '') AS author_name
	FROM news n
	LEFT JOIN categories c ON c.id = n.category_id
	LEFT JOIN users u ON u.id = n.author_id`

// Create inserts an article authored by authorID with the given image path.
func (s *NewsStore) Create(ctx context.Context, in NewsInput, imageURL, authorID string) (*News, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	var author sql.NullString
	if authorID != "" {
		author = sql.NullString{String: authorID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO news (id, title, content, image_url, topic, category_id, author_id, published_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), id, strings.TrimSpace(in.Title), in.Content, imageURL, strings.TrimSpace(in.Topic), in.CategoryID, author, now, now)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// GetByID returns the article or ErrNotFound.
func (s *NewsStore) GetByID(ctx context.Context, id string) (*News, error) {
	var n News
	err := s.db.GetContext(ctx, &n, s.q(newsSelect+` WHERE n.id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Update replaces the article's editable fields and image path. The author
// and publish time are kept.
func (s *NewsStore) Update(ctx context.Context, id string, in NewsInput, imageURL string) (*News, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE news SET title = ?, content = ?, topic = ?, category_id = ?, image_url = ?, updated_at = ?
		WHERE id = ?
	`), strings.TrimSpace(in.Title), in.Content, strings.TrimSpace(in.Topic), in.CategoryID, imageURL, time.Now().UTC(), id)
	if err := checkAffected(res, err); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Delete removes the article along with its favorites and recorded views.
func (s *NewsStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DELETE FROM user_favorites WHERE news_id = ?`,
		`DELETE FROM news_views WHERE news_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, tx.Rebind(stmt), id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM news WHERE id = ?`), id)
	if err := checkAffected(res, err); err != nil {
		return err
	}
	return tx.Commit()
}

// ListByCategory returns one page of a category's articles, newest first.
func (s *NewsStore) ListByCategory(ctx context.Context, categoryID string, req PageRequest) (Page[*News], error) {
	return s.page(ctx, req, `n.category_id = ?`, categoryID)
}

// ListByAuthor returns one page of an author's articles, newest first.
func (s *NewsStore) ListByAuthor(ctx context.Context, authorID string, req PageRequest) (Page[*News], error) {
	return s.page(ctx, req, `n.author_id = ?`, authorID)
}

// ListAll returns one page of all articles, newest first.
func (s *NewsStore) ListAll(ctx context.Context, req PageRequest) (Page[*News], error) {
	return s.page(ctx, req, "")
}

func (s *NewsStore) page(ctx context.Context, req PageRequest, where string, args ...any) (Page[*News], error) {
	req = req.normalize()
	p := Page[*News]{Number: req.Number, Size: req.Size}

	countQuery := `SELECT COUNT(*) FROM news n`
	listQuery := newsSelect
	if where != "" {
		countQuery += ` WHERE ` + where
		listQuery += ` WHERE ` + where
	}
	if err := s.db.GetContext(ctx, &p.Total, s.q(countQuery), args...); err != nil {
		return p, err
	}
	req = req.clamp(p.Total)
	p.Number = req.Number

	listQuery += ` ORDER BY n.published_at DESC, n.id DESC LIMIT ? OFFSET ?`
	listArgs := append(append([]any{}, args...), req.Size, req.offset())
	if err := s.db.SelectContext(ctx, &p.Items, s.q(listQuery), listArgs...); err != nil {
		return p, err
	}
	return p, nil
}

// Count returns the number of articles.
func (s *NewsStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM news`)
	return n, err
}

// CountByAuthor returns the number of articles written by authorID.
func (s *NewsStore) CountByAuthor(ctx context.Context, authorID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.q(`SELECT COUNT(*) FROM news WHERE author_id = ?`), authorID)
	return n, err
}

// AuthorActivity returns the category and publish time of every article by
// authorID, newest first.
func (s *NewsStore) AuthorActivity(ctx context.Context, authorID string) ([]AuthorActivity, error) {
	var rows []AuthorActivity
	err := s.db.SelectContext(ctx, &rows, s.q(`
		SELECT COALESCE(c.name, '') AS category_name, n.published_at
		FROM news n
		LEFT JOIN categories c ON c.id = n.category_id
		WHERE n.author_id = ?
		ORDER BY n.published_at DESC
	`), authorID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
