// Package store holds the sqlx-backed stores for NewsWire records and the
// ownership gate that authorizes mutations on user-authored content.
package store

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName is returned when a category name is already taken
	// (compared case-insensitively).
	ErrDuplicateName = errors.New("a category with this name already exists")

	// ErrCategoryInUse is returned when deleting a category that still has news.
	ErrCategoryInUse = errors.New("category still has news articles")

	// ErrAlreadyFavorite is returned when a user favorites the same article twice.
	ErrAlreadyFavorite = errors.New("article is already a favorite")

	// ErrDuplicateEmail is returned when another user already has the email.
	ErrDuplicateEmail = errors.New("email is already in use")

	// ErrInvalidRole is returned when assigning a role outside KnownRoles.
	ErrInvalidRole = errors.New("unknown role")
)

// DefaultPageSize is the number of articles per listing page.
const DefaultPageSize = 6

// Page is one page of an ordered listing.
type Page[T any] struct {
	Items  []T
	Number int
	Size   int
	Total  int
}

// TotalPages is the number of pages needed to hold Total items.
func (p Page[T]) TotalPages() int {
	if p.Size <= 0 || p.Total == 0 {
		return 0
	}
	return (p.Total + p.Size - 1) / p.Size
}

func (p Page[T]) HasPrev() bool { return p.Number > 1 }
func (p Page[T]) HasNext() bool { return p.Number < p.TotalPages() }
func (p Page[T]) Prev() int     { return p.Number - 1 }
func (p Page[T]) Next() int     { return p.Number + 1 }

// PageRequest selects a page. Number is 1-based.
type PageRequest struct {
	Number int
	Size   int
}

// normalize clamps the request to a valid page number and size.
func (r PageRequest) normalize() PageRequest {
	if r.Number < 1 {
		r.Number = 1
	}
	if r.Size < 1 {
		r.Size = DefaultPageSize
	}
	return r
}

// clamp moves a request past the last page of total items onto the last page.
func (r PageRequest) clamp(total int) PageRequest {
	if r.Size > 0 && total > 0 {
		if last := (total + r.Size - 1) / r.Size; r.Number > last {
			r.Number = last
		}
	}
	return r
}

func (r PageRequest) offset() int {
	return (r.Number - 1) * r.Size
}

// isUniqueConstraintError reports whether err is a unique/primary key
// violation on any of the supported drivers.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // SQLite & PostgreSQL
		strings.Contains(msg, "duplicate key") || // PostgreSQL
		strings.Contains(msg, "duplicate entry") // MySQL
}
