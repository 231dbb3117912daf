package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/joestump/newswire/internal/metrics"
)

const (
	// DefaultMaxSize is the per-file ceiling when Config.MaxSize is unset.
	DefaultMaxSize = 5 << 20

	// DefaultMarker is the substring identifying shared placeholder assets.
	DefaultMarker = "default"

	// PublicPrefix is the URL prefix uploads are served under.
	PublicPrefix = "/uploads/"

	cacheControl = "public,max-age=31536000"
)

var allowedExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

var allowedContentTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp"}

// contentTypes maps an extension to the type stored and served for it.
var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Config tunes a Gate.
type Config struct {
	MaxSize       int64
	DefaultMarker string

	// LegacyRoot is the web root that pre-/uploads image paths resolve
	// against. Empty disables legacy deletes unless LegacyFs is set.
	LegacyRoot string
	LegacyFs   afero.Fs
}

// Gate accepts or rejects uploaded images and manages their lifecycle in
// storage.
type Gate struct {
	storage Storage
	legacy  afero.Fs
	cfg     Config
	logger  *slog.Logger
}

func NewGate(storage Storage, cfg Config, logger *slog.Logger) *Gate {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.DefaultMarker == "" {
		cfg.DefaultMarker = DefaultMarker
	}
	legacy := cfg.LegacyFs
	if legacy == nil && cfg.LegacyRoot != "" {
		legacy = afero.NewBasePathFs(afero.NewOsFs(), cfg.LegacyRoot)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{storage: storage, legacy: legacy, cfg: cfg, logger: logger}
}

// IsDefault reports whether p names a shared placeholder asset.
func (g *Gate) IsDefault(p string) bool {
	return strings.Contains(p, g.cfg.DefaultMarker)
}

// Validate returns nil when f is an acceptable image, or an error wrapping
// ErrRejected naming the first failed check.
func (g *Gate) Validate(f *File) error {
	err := g.validate(f)
	if err != nil {
		name := ""
		if f != nil {
			name = f.Name
		}
		g.logger.Debug("upload rejected", "file", name, "reason", err)
	}
	return err
}

// Valid is the boolean form of Validate.
func (g *Gate) Valid(f *File) bool {
	return g.Validate(f) == nil
}

func (g *Gate) validate(f *File) error {
	if f == nil || f.Size <= 0 {
		return ErrEmpty
	}
	if f.Size > g.cfg.MaxSize {
		return fmt.Errorf("%w (%d > %d bytes)", ErrTooLarge, f.Size, g.cfg.MaxSize)
	}
	ext := strings.ToLower(filepath.Ext(f.Name))
	if !slices.Contains(allowedExtensions, ext) {
		return fmt.Errorf("%w (%q)", ErrExtension, ext)
	}
	ct := strings.ToLower(strings.TrimSpace(f.ContentType))
	if !slices.Contains(allowedContentTypes, ct) {
		return fmt.Errorf("%w (%q)", ErrContentType, f.ContentType)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignature, err)
	}
	defer rc.Close()
	header, err := readHeader(rc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignature, err)
	}
	if _, ok := sniffFormat(header); !ok {
		return ErrSignature
	}
	return nil
}

// Upload validates f and stores it as "<folder>/<uuid><ext>". It returns the
// public path "/uploads/<folder>/<name>".
func (g *Gate) Upload(ctx context.Context, f *File, folder string) (string, error) {
	if err := g.Validate(f); err != nil {
		metrics.UploadsTotal.WithLabelValues(folder, "rejected").Inc()
		return "", err
	}
	if !validFolder(folder) {
		metrics.UploadsTotal.WithLabelValues(folder, "error").Inc()
		return "", fmt.Errorf("%w: invalid folder %q", ErrStorage, folder)
	}

	ext := strings.ToLower(filepath.Ext(f.Name))
	key := folder + "/" + uuid.New().String() + ext
	if err := g.store(ctx, f, key, contentTypes[ext]); err != nil {
		metrics.UploadsTotal.WithLabelValues(folder, "error").Inc()
		g.logger.Error("upload failed", "file", f.Name, "key", key, "error", err)
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	metrics.UploadsTotal.WithLabelValues(folder, "stored").Inc()
	metrics.UploadBytes.Observe(float64(f.Size))
	g.logger.Info("upload stored", "file", f.Name, "key", key, "size", f.Size)
	return PublicPrefix + key, nil
}

func (g *Gate) store(ctx context.Context, f *File, key, contentType string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := g.storage.Save(ctx, key, rc, contentType); err != nil {
		return err
	}
	ok, err := g.storage.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("stored object is missing after write")
	}
	return nil
}

// Delete removes the asset behind p. Empty and default paths are left alone.
// Paths under /uploads/ resolve to storage; anything else resolves against
// the legacy web root.
func (g *Gate) Delete(ctx context.Context, p string) error {
	if p == "" || g.IsDefault(p) {
		metrics.AssetDeletesTotal.WithLabelValues("default").Inc()
		return nil
	}

	err := g.delete(ctx, p)
	switch {
	case err == nil:
		metrics.AssetDeletesTotal.WithLabelValues("deleted").Inc()
		g.logger.Info("asset deleted", "path", p)
	case errors.Is(err, ErrAssetNotFound):
		metrics.AssetDeletesTotal.WithLabelValues("missing").Inc()
		g.logger.Warn("asset delete: file not found", "path", p)
	default:
		metrics.AssetDeletesTotal.WithLabelValues("error").Inc()
		g.logger.Error("asset delete failed", "path", p, "error", err)
	}
	return err
}

// DeleteAsset is the boolean form of Delete.
func (g *Gate) DeleteAsset(ctx context.Context, p string) bool {
	return g.Delete(ctx, p) == nil
}

func (g *Gate) delete(ctx context.Context, p string) error {
	if hasPrefixFold(p, PublicPrefix) {
		key, ok := cleanKey(p[len(PublicPrefix):])
		if !ok {
			return ErrUnresolvable
		}
		err := g.storage.Delete(ctx, key)
		if errors.Is(err, ErrObjectNotFound) {
			return ErrAssetNotFound
		}
		return err
	}

	if g.legacy == nil {
		return ErrUnresolvable
	}
	key, ok := cleanKey(p)
	if !ok {
		return ErrUnresolvable
	}
	exists, err := afero.Exists(g.legacy, key)
	if err != nil {
		return err
	}
	if !exists {
		return ErrAssetNotFound
	}
	return g.legacy.Remove(key)
}

// Replacement is the outcome of Replace. Path is what the record should hold
// from now on. Superseded is the asset Path replaced, deleted by Commit once
// the record is saved.
type Replacement struct {
	Path       string
	Superseded string
	Uploaded   bool
}

// Replace runs the replacement protocol: with no file, or when the upload
// fails, current is kept. Otherwise the new file is stored and current
// becomes superseded. Nothing is deleted until Commit.
func (g *Gate) Replace(ctx context.Context, f *File, folder, current string) Replacement {
	if f == nil {
		return Replacement{Path: current}
	}
	next, err := g.Upload(ctx, f, folder)
	if err != nil {
		g.logger.Info("keeping existing image", "current", current, "error", err)
		return Replacement{Path: current}
	}
	r := Replacement{Path: next, Uploaded: true}
	if current != next {
		r.Superseded = current
	}
	return r
}

// Commit deletes the superseded asset on a best-effort basis. Call it after
// the record references r.Path.
func (g *Gate) Commit(ctx context.Context, r Replacement) {
	if r.Superseded != "" {
		_ = g.Delete(ctx, r.Superseded)
	}
}

// Abort deletes a freshly uploaded asset after the record update failed,
// leaving the superseded asset in place.
func (g *Gate) Abort(ctx context.Context, r Replacement) {
	if r.Uploaded {
		_ = g.Delete(ctx, r.Path)
	}
}

// Handler serves stored uploads. Mount it at PublicPrefix.
func (g *Gate) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		key, ok := cleanKey(strings.TrimPrefix(r.URL.Path, PublicPrefix))
		if !ok || !strings.Contains(key, "/") {
			http.NotFound(w, r)
			return
		}

		rc, err := g.storage.Open(r.Context(), key)
		if errors.Is(err, ErrObjectNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			g.logger.Error("serve upload", "key", key, "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		defer rc.Close()

		ct := contentTypes[strings.ToLower(path.Ext(key))]
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		w.Header().Set("Cache-Control", cacheControl)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if st, ok := rc.(interface{ Stat() (fs.FileInfo, error) }); ok {
			if fi, err := st.Stat(); err == nil {
				w.Header().Set("Content-Length", strconv.FormatInt(fi.Size(), 10))
			}
		}
		if r.Method == http.MethodHead {
			return
		}
		if _, err := io.Copy(w, rc); err != nil {
			g.logger.Debug("serve upload: client went away", "key", key, "error", err)
		}
	})
}

// cleanKey turns a slash path into a storage key confined to its root.
func cleanKey(p string) (string, bool) {
	key := strings.TrimPrefix(path.Clean("/"+p), "/")
	if key == "" || key == "." {
		return "", false
	}
	return key, true
}

func validFolder(folder string) bool {
	return folder != "" && folder != "." && folder != ".." && !strings.ContainsAny(folder, `/\`)
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
