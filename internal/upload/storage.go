package upload

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/joestump/newswire/internal/config"
)

var (
	// ErrObjectExists is returned by Save when the key is already taken.
	ErrObjectExists = errors.New("object already exists")

	// ErrObjectNotFound is returned by Open and Delete for missing keys.
	ErrObjectNotFound = errors.New("object not found")
)

// Storage persists uploaded objects under slash-separated keys of the form
// "<folder>/<name>".
type Storage interface {
	// Save writes r under key. It never overwrites: an existing key yields
	// ErrObjectExists.
	Save(ctx context.Context, key string, r io.Reader, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// NewStorage builds the backend named by backend ("local" or "s3").
func NewStorage(ctx context.Context, backend, root string, s3cfg config.S3) (Storage, error) {
	switch backend {
	case "", "local":
		return NewLocalStorageAt(root)
	case "s3":
		return NewS3Storage(ctx, s3cfg)
	default:
		return nil, fmt.Errorf("unsupported upload backend %q", backend)
	}
}
