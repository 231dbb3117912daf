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

// TeamMember is a staff member shown on the team page.
type TeamMember struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	JobTitle  string    `db:"job_title"`
	ImageURL  string    `db:"image_url"`
	CreatedAt time.Time `db:"created_at"`
}

type TeamMemberStore struct {
	db *sqlx.DB
}

func NewTeamMemberStore(db *sqlx.DB) *TeamMemberStore {
	return &TeamMemberStore{db: db}
}

// q rebinds ? placeholders to the driver's native format ($1,$2,... for PostgreSQL).
func (s *TeamMemberStore) q(query string) string { return s.db.Rebind(query) }

func (s *TeamMemberStore) Create(ctx context.Context, in TeamMemberInput, imageURL string) (*TeamMember, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO team_members (id, name, job_title, image_url, created_at) VALUES (?, ?, ?, ?, ?)
	`), id, strings.TrimSpace(in.Name), strings.TrimSpace(in.JobTitle), imageURL, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *TeamMemberStore) GetByID(ctx context.Context, id string) (*TeamMember, error) {
	var m TeamMember
	err := s.db.GetContext(ctx, &m, s.q(`SELECT * FROM team_members WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListAll returns every team member in the order they joined.
func (s *TeamMemberStore) ListAll(ctx context.Context) ([]*TeamMember, error) {
	var members []*TeamMember
	if err := s.db.SelectContext(ctx, &members, `SELECT * FROM team_members ORDER BY created_at ASC, name ASC`); err != nil {
		return nil, err
	}
	return members, nil
}

func (s *TeamMemberStore) Update(ctx context.Context, id string, in TeamMemberInput, imageURL string) (*TeamMember, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE team_members SET name = ?, job_title = ?, image_url = ? WHERE id = ?
	`), strings.TrimSpace(in.Name), strings.TrimSpace(in.JobTitle), imageURL, id)
	if err := checkAffected(res, err); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *TeamMemberStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM team_members WHERE id = ?`), id)
	return checkAffected(res, err)
}

func (s *TeamMemberStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM team_members`)
	return n, err
}
