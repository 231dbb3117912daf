package upload

import (
	"context"
	"errors"
	"io"
	"os"
	"path"

	"github.com/spf13/afero"
)

// LocalStorage keeps objects as files under a root directory.
type LocalStorage struct {
	fs afero.Fs
}

// NewLocalStorage stores objects in fs, which is treated as the upload root.
func NewLocalStorage(fs afero.Fs) *LocalStorage {
	return &LocalStorage{fs: fs}
}

// NewLocalStorageAt stores objects under the directory root, creating it if
// needed.
func NewLocalStorageAt(root string) (*LocalStorage, error) {
	if root == "" {
		return nil, ErrNoStorage
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return NewLocalStorage(afero.NewBasePathFs(afero.NewOsFs(), root)), nil
}

func (s *LocalStorage) Save(_ context.Context, key string, r io.Reader, _ string) error {
	if err := s.fs.MkdirAll(path.Dir(key), 0o755); err != nil {
		return err
	}
	f, err := s.fs.OpenFile(key, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return ErrObjectExists
	}
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(key)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(key)
		return err
	}
	return f.Close()
}

func (s *LocalStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := s.fs.Open(key)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, err
	}
	if fi, err := f.Stat(); err == nil && fi.IsDir() {
		_ = f.Close()
		return nil, ErrObjectNotFound
	}
	return f, nil
}

func (s *LocalStorage) Exists(_ context.Context, key string) (bool, error) {
	return afero.Exists(s.fs, key)
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	err := s.fs.Remove(key)
	if errors.Is(err, os.ErrNotExist) {
		return ErrObjectNotFound
	}
	return err
}
