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

// Category represents a row in the categories table.
type Category struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// CategoryWithCount is a category with the number of articles filed under it.
type CategoryWithCount struct {
	Category
	NewsCount int `db:"news_count"`
}

// CategoryStore is the sqlx-backed store for categories.
type CategoryStore struct {
	db *sqlx.DB
}

func NewCategoryStore(db *sqlx.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

// q rebinds ? placeholders to the driver's native format ($1,$2,... for PostgreSQL).
func (s *CategoryStore) q(query string) string { return s.db.Rebind(query) }

// nameTaken reports whether another category (other than excludeID) already
// uses name, compared case-insensitively.
func (s *CategoryStore) nameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.q(`
		SELECT COUNT(*) FROM categories WHERE LOWER(name) = LOWER(?) AND id <> ?
	`), name, excludeID)
	return n > 0, err
}

// Create inserts a category. Returns a *ValidationError for bad input and
// ErrDuplicateName if the name is taken.
func (s *CategoryStore) Create(ctx context.Context, in CategoryInput) (*Category, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	taken, err := s.nameTaken(ctx, name, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateName
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO categories (id, name, description, created_at) VALUES (?, ?, ?, ?)
	`), id, name, strings.TrimSpace(in.Description), time.Now().UTC())
	if err != nil {
		// Race with a concurrent insert of the same name.
		if isUniqueConstraintError(err) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// GetByID returns the category or ErrNotFound.
func (s *CategoryStore) GetByID(ctx context.Context, id string) (*Category, error) {
	var c Category
	err := s.db.GetContext(ctx, &c, s.q(`SELECT * FROM categories WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Exists reports whether a category with id exists.
func (s *CategoryStore) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.q(`SELECT COUNT(*) FROM categories WHERE id = ?`), id)
	return n > 0, err
}

// ListAll returns all categories ordered by name.
func (s *CategoryStore) ListAll(ctx context.Context) ([]*Category, error) {
	var cats []*Category
	if err := s.db.SelectContext(ctx, &cats, `SELECT * FROM categories ORDER BY name ASC`); err != nil {
		return nil, err
	}
	return cats, nil
}

// ListWithCounts returns all categories with their article counts, ordered by name.
func (s *CategoryStore) ListWithCounts(ctx context.Context) ([]*CategoryWithCount, error) {
	var cats []*CategoryWithCount
	err := s.db.SelectContext(ctx, &cats, `
		SELECT c.id, c.name, c.description, c.created_at, COUNT(n.id) AS news_count
		FROM categories c
		LEFT JOIN news n ON n.category_id = c.id
		GROUP BY c.id, c.name, c.description, c.created_at
		ORDER BY c.name ASC
	`)
	if err != nil {
		return nil, err
	}
	return cats, nil
}

// Update changes a category's name and description. Returns ErrDuplicateName
// if another category already uses the name.
func (s *CategoryStore) Update(ctx context.Context, id string, in CategoryInput) (*Category, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	taken, err := s.nameTaken(ctx, name, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateName
	}

	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE categories SET name = ?, description = ? WHERE id = ?
	`), name, strings.TrimSpace(in.Description), id)
	if err != nil && isUniqueConstraintError(err) {
		return nil, ErrDuplicateName
	}
	if err := checkAffected(res, err); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Delete removes a category. Categories that still have articles are kept
// and ErrCategoryInUse is returned.
func (s *CategoryStore) Delete(ctx context.Context, id string) error {
	n, err := s.NewsCount(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrCategoryInUse
	}
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM categories WHERE id = ?`), id)
	return checkAffected(res, err)
}

// NewsCount returns the number of articles in the category.
func (s *CategoryStore) NewsCount(ctx context.Context, id string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.q(`SELECT COUNT(*) FROM news WHERE category_id = ?`), id)
	return n, err
}

// Count returns the number of categories.
func (s *CategoryStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM categories`)
	return n, err
}
