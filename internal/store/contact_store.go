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

// ContactMessage is a message left through the public contact form.
type ContactMessage struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Subject   string    `db:"subject"`
	Message   string    `db:"message"`
	IsRead    bool      `db:"is_read"`
	CreatedAt time.Time `db:"created_at"`
}

type ContactStore struct {
	db *sqlx.DB
}

func NewContactStore(db *sqlx.DB) *ContactStore {
	return &ContactStore{db: db}
}

// q rebinds ? placeholders to the driver's native format ($1,$2,... for PostgreSQL).
func (s *ContactStore) q(query string) string { return s.db.Rebind(query) }

// Create stores a new, unread message.
func (s *ContactStore) Create(ctx context.Context, in ContactInput) (*ContactMessage, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	m := &ContactMessage{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.TrimSpace(in.Email),
		Subject:   strings.TrimSpace(in.Subject),
		Message:   strings.TrimSpace(in.Message),
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO contact_messages (id, name, email, subject, message, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), m.ID, m.Name, m.Email, m.Subject, m.Message, false, m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *ContactStore) GetByID(ctx context.Context, id string) (*ContactMessage, error) {
	var m ContactMessage
	err := s.db.GetContext(ctx, &m, s.q(`SELECT * FROM contact_messages WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListAll returns every message, newest first.
func (s *ContactStore) ListAll(ctx context.Context) ([]*ContactMessage, error) {
	var msgs []*ContactMessage
	if err := s.db.SelectContext(ctx, &msgs, `SELECT * FROM contact_messages ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkRead flags the message as read.
func (s *ContactStore) MarkRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE contact_messages SET is_read = ? WHERE id = ?`), true, id)
	return checkAffected(res, err)
}

func (s *ContactStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM contact_messages WHERE id = ?`), id)
	return checkAffected(res, err)
}

func (s *ContactStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM contact_messages`)
	return n, err
}

// CountUnread returns the number of messages not yet opened by an admin.
func (s *ContactStore) CountUnread(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.q(`SELECT COUNT(*) FROM contact_messages WHERE is_read = ?`), false)
	return n, err
}
