package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	pkgerrors "github.com/oldphonedeals/backend/pkg/errors"
)

var allowedImageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

// Store keeps listing images in a flat local directory keyed by filename.
type Store struct {
	dir string
}

// NewStore prepares the image directory and returns a store over it.
func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("image directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory images are served from.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the upload under the sanitized filename and returns the name
// the listing should reference.
func (s *Store) Save(name string, r io.Reader) (string, error) {
	clean, err := sanitizeName(name)
	if err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(s.dir, clean))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create image file")
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write image file")
	}
	return clean, nil
}

// Remove deletes the stored image. A missing file is not an error.
func (s *Store) Remove(name string) error {
	clean, err := sanitizeName(name)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, clean)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Exists reports whether the image is on disk.
func (s *Store) Exists(name string) bool {
	clean, err := sanitizeName(name)
	if err != nil {
		return false
	}
	_, statErr := os.Stat(filepath.Join(s.dir, clean))
	return statErr == nil
}

// sanitizeName strips any path components and enforces the image extension
// allowlist. Filenames are client supplied and must never escape the
// directory.
func sanitizeName(name string) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "image filename is required")
	}
	ext := strings.ToLower(filepath.Ext(base))
	if _, ok := allowedImageExtensions[ext]; !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported image type")
	}
	return base, nil
}
