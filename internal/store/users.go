package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type User struct {
	ID                string    `db:"id"`
	Provider          string    `db:"provider"`
	Subject           string    `db:"subject"`
	Email             string    `db:"email"`
	DisplayName       string    `db:"display_name"`
	FirstName         string    `db:"first_name"`
	LastName          string    `db:"last_name"`
	ProfilePictureURL string    `db:"profile_picture_url"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`

	Roles []string `db:"-"`
}

func (u *User) IsAdmin() bool {
	return u != nil && slices.Contains(u.Roles, RoleAdmin)
}

// Acting returns the identity used for authorization decisions.
func (u *User) Acting() ActingUser {
	if u == nil {
		return ActingUser{}
	}
	return NewActingUser(u.ID, u.Roles...)
}

// Author makes a user the author of their own profile.
func (u *User) Author() (string, bool) {
	if u == nil {
		return "", false
	}
	return u.ID, u.ID != ""
}

// Name is the best human-readable name for the user.
func (u *User) Name() string {
	if full := strings.TrimSpace(u.FirstName + " " + u.LastName); full != "" {
		return full
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

type UserStore struct {
	db *sqlx.DB
}

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

// q rebinds ? placeholders to the driver's native format ($1,$2,... for PostgreSQL).
func (s *UserStore) q(query string) string { return s.db.Rebind(query) }

// Upsert creates or updates a user record on OIDC login. New users get the
// user role; if adminEmail matches they also get admin. Returning users keep
// their roles.
func (s *UserStore) Upsert(ctx context.Context, provider, subject, email, displayName, adminEmail string) (*User, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	err = tx.GetContext(ctx, &id, tx.Rebind(`SELECT id FROM users WHERE provider = ? AND subject = ?`), provider, subject)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.New().String()
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO users (id, provider, subject, email, display_name, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`), id, provider, subject, email, displayName, now, now)
		if err != nil {
			return nil, err
		}
		roles := []string{RoleUser}
		if adminEmail != "" && strings.EqualFold(email, adminEmail) {
			roles = append(roles, RoleAdmin)
		}
		for _, role := range roles {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO user_roles (user_id, role) VALUES (?, ?)`), id, role); err != nil {
				return nil, err
			}
		}
	case err != nil:
		return nil, err
	default:
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			UPDATE users SET email = ?, display_name = ?, updated_at = ? WHERE id = ?
		`), email, displayName, now, id)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// GetByID returns the user with their roles, or ErrNotFound.
func (s *UserStore) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, s.q(`SELECT * FROM users WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.Roles, err = s.Roles(ctx, u.ID); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListAll returns all users with their roles, ordered by display name.
func (s *UserStore) ListAll(ctx context.Context) ([]*User, error) {
	var users []*User
	if err := s.db.SelectContext(ctx, &users, `SELECT * FROM users ORDER BY display_name ASC, email ASC`); err != nil {
		return nil, err
	}

	var rows []struct {
		UserID string `db:"user_id"`
		Role   string `db:"role"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT user_id, role FROM user_roles ORDER BY role`); err != nil {
		return nil, err
	}
	byUser := make(map[string][]string, len(users))
	for _, r := range rows {
		byUser[r.UserID] = append(byUser[r.UserID], r.Role)
	}
	for _, u := range users {
		u.Roles = byUser[u.ID]
	}
	return users, nil
}

// Count returns the number of registered users.
func (s *UserStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`)
	return n, err
}

// Roles returns the user's roles in name order.
func (s *UserStore) Roles(ctx context.Context, userID string) ([]string, error) {
	var roles []string
	err := s.db.SelectContext(ctx, &roles, s.q(`SELECT role FROM user_roles WHERE user_id = ? ORDER BY role`), userID)
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// SetRoles makes the user's roles exactly roles, adding and removing the
// difference. Unknown role names return ErrInvalidRole.
func (s *UserStore) SetRoles(ctx context.Context, userID string, roles []string) (*User, error) {
	for _, r := range roles {
		if !slices.Contains(KnownRoles, r) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRole, r)
		}
	}
	current, err := s.Roles(ctx, userID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range current {
		if !slices.Contains(roles, r) {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM user_roles WHERE user_id = ? AND role = ?`), userID, r); err != nil {
				return nil, err
			}
		}
	}
	for _, r := range roles {
		if !slices.Contains(current, r) {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO user_roles (user_id, role) VALUES (?, ?)`), userID, r); err != nil {
				if isUniqueConstraintError(err) {
					continue
				}
				return nil, err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, userID)
}

// UpdateProfile sets the user's first and last name.
func (s *UserStore) UpdateProfile(ctx context.Context, id, firstName, lastName string) (*User, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE users SET first_name = ?, last_name = ?, updated_at = ? WHERE id = ?
	`), strings.TrimSpace(firstName), strings.TrimSpace(lastName), time.Now().UTC(), id)
	if err := checkAffected(res, err); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// UpdatePicture sets the user's profile picture path.
func (s *UserStore) UpdatePicture(ctx context.Context, id, pictureURL string) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE users SET profile_picture_url = ?, updated_at = ? WHERE id = ?
	`), pictureURL, time.Now().UTC(), id)
	return checkAffected(res, err)
}

// UpdateEmail changes the user's email. Returns ErrDuplicateEmail when a
// different user already uses it.
func (s *UserStore) UpdateEmail(ctx context.Context, id, email string) (*User, error) {
	email = strings.TrimSpace(email)
	var n int
	err := s.db.GetContext(ctx, &n, s.q(`SELECT COUNT(*) FROM users WHERE LOWER(email) = LOWER(?) AND id <> ?`), email, id)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrDuplicateEmail
	}
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE users SET email = ?, updated_at = ? WHERE id = ?`),
		email, time.Now().UTC(), id)
	if err := checkAffected(res, err); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Delete removes the user. Their articles stay published without an author;
// favorites, views, roles and API tokens are removed.
func (s *UserStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		`UPDATE news SET author_id = NULL WHERE author_id = ?`,
		`DELETE FROM user_favorites WHERE user_id = ?`,
		`UPDATE news_views SET user_id = NULL WHERE user_id = ?`,
		`DELETE FROM user_roles WHERE user_id = ?`,
		`DELETE FROM api_tokens WHERE user_id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, tx.Rebind(stmt), id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err := checkAffected(res, err); err != nil {
		return err
	}
	return tx.Commit()
}

// checkAffected folds a zero-row UPDATE/DELETE into ErrNotFound.
func checkAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
