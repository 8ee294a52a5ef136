package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	pkgerrors "github.com/angelmondragon/pos-catalog-backend/pkg/errors"
)

// Upload is an image received from a client. Content is owned by the caller.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// StoredFile describes a file found in the image directory.
type StoredFile struct {
	Path    string
	ModTime time.Time
}

// Store persists product images and hands back their stored path.
type Store interface {
	Save(ctx context.Context, upload Upload) (string, error)
	Remove(ctx context.Context, storedPath string) error
	List(ctx context.Context) ([]StoredFile, error)
	Placeholder() string
}

var (
	allowedExtensions = map[string]struct{}{".jpeg": {}, ".jpg": {}, ".png": {}, ".gif": {}}
	allowedMimeTypes  = map[string]struct{}{"image/jpeg": {}, "image/png": {}, "image/gif": {}}
	unsafeNameChars   = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

const sniffLen = 3072

type DiskStoreConfig struct {
	Dir         string
	URLPrefix   string
	Placeholder string
	MaxBytes    int64
}

// DiskStore keeps images in a local directory served statically under
// URLPrefix. Files are named "<unix-millis>-<original name>".
type DiskStore struct {
	dir         string
	prefix      string
	placeholder string
	maxBytes    int64
	now         func() time.Time
}

func NewDiskStore(cfg DiskStoreConfig) (*DiskStore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("image directory required")
	}
	if cfg.MaxBytes <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	prefix := "/" + strings.Trim(cfg.URLPrefix, "/") + "/"
	if prefix == "//" {
		return nil, fmt.Errorf("image url prefix required")
	}
	if !strings.HasPrefix(cfg.Placeholder, prefix) {
		return nil, fmt.Errorf("placeholder %q must live under %s", cfg.Placeholder, prefix)
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}
	return &DiskStore{
		dir:         cfg.Dir,
		prefix:      prefix,
		placeholder: cfg.Placeholder,
		maxBytes:    cfg.MaxBytes,
		now:         time.Now,
	}, nil
}

func (s *DiskStore) Placeholder() string {
	return s.placeholder
}

// Dir is the directory files are written to.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Save validates the upload by extension, size and sniffed content type, then
// writes it to disk.
func (s *DiskStore) Save(ctx context.Context, upload Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if upload.Content == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "image content missing")
	}

	base := sanitizeFilename(upload.Filename)
	ext := strings.ToLower(filepath.Ext(base))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", invalidImage("only jpeg, jpg, png and gif images are allowed")
	}
	if upload.Size > s.maxBytes {
		return "", invalidImage(fmt.Sprintf("image exceeds %d bytes", s.maxBytes))
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(upload.Content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read image")
	}
	head = head[:n]
	if n == 0 {
		return "", invalidImage("image is empty")
	}
	detected := mimetype.Detect(head)
	if _, ok := allowedMimeTypes[detected.String()]; !ok {
		return "", invalidImage(fmt.Sprintf("unsupported image content %s", detected.String()))
	}

	filename := fmt.Sprintf("%d-%s", s.now().UnixMilli(), base)
	full := filepath.Join(s.dir, filename)
	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create image file")
	}

	// One byte past the limit detects oversize uploads that lied about Size.
	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), upload.Content), s.maxBytes+1)
	written, copyErr := io.Copy(f, body)
	closeErr := f.Close()
	if copyErr == nil && written > s.maxBytes {
		copyErr = invalidImage(fmt.Sprintf("image exceeds %d bytes", s.maxBytes))
	}
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(full)
		if pkgerrors.As(copyErr) != nil {
			return "", copyErr
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, copyErr, "write image file")
	}

	return s.prefix + filename, nil
}

// Remove deletes a stored image. The placeholder, paths outside the prefix
// and already missing files are ignored.
func (s *DiskStore) Remove(_ context.Context, storedPath string) error {
	if storedPath == "" || storedPath == s.placeholder {
		return nil
	}
	name, ok := s.filenameFor(storedPath)
	if !ok {
		return fmt.Errorf("refusing to remove %q: not a stored image path", storedPath)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove image %q: %w", storedPath, err)
	}
	return nil
}

// List returns every regular file in the image directory as a stored path.
func (s *DiskStore) List(ctx context.Context) ([]StoredFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read image directory: %w", err)
	}
	files := make([]StoredFile, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, StoredFile{Path: s.prefix + entry.Name(), ModTime: info.ModTime()})
	}
	return files, nil
}

func (s *DiskStore) filenameFor(storedPath string) (string, bool) {
	if !strings.HasPrefix(storedPath, s.prefix) {
		return "", false
	}
	name := strings.TrimPrefix(storedPath, s.prefix)
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", false
	}
	return name, true
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = unsafeNameChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "image"
	}
	return base
}

func invalidImage(msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).
		WithDetails(map[string]string{"image": msg})
}
