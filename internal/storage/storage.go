// Package storage keeps uploaded product files and temporary query uploads
// under a single, explicitly configured root directory.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kozaktomas/product-matcher/internal/config"
)

var (
	// ErrOutsideRoot is returned for relative references escaping the storage root.
	ErrOutsideRoot = errors.New("reference escapes storage root")
	// ErrEmptyRef is returned when an empty reference is resolved.
	ErrEmptyRef = errors.New("empty file reference")
)

// Store resolves file references and manages the uploads and temp directories.
type Store struct {
	root       string
	uploadsDir string
	tempDir    string
}

// New creates the root, uploads and temp directories if needed.
func New(cfg config.StorageConfig) (*Store, error) {
	if cfg.Root == "" {
		return nil, errors.New("storage root is required")
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving storage root: %w", err)
	}

	uploads := cfg.UploadsDir
	if uploads == "" {
		uploads = "uploads"
	}
	temp := cfg.TempDir
	if temp == "" {
		temp = "tmp"
	}

	s := &Store{root: root, uploadsDir: filepath.Clean(uploads), tempDir: filepath.Clean(temp)}
	for _, dir := range []string{s.UploadsPath(), s.TempPath()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return s, nil
}

// Root returns the absolute storage root.
func (s *Store) Root() string {
	return s.root
}

// UploadsPath returns the absolute directory holding product files.
func (s *Store) UploadsPath() string {
	return filepath.Join(s.root, s.uploadsDir)
}

// TempPath returns the absolute directory holding in-flight uploads.
func (s *Store) TempPath() string {
	return filepath.Join(s.root, s.tempDir)
}

// Resolve maps a stored reference to a filesystem path. References under the
// uploads prefix ("/uploads/a.jpg") and plain relative ones are joined to the
// root; any other absolute path is a legacy reference used as-is.
func (s *Store) Resolve(ref string) (string, error) {
	if ref == "" {
		return "", ErrEmptyRef
	}
	if filepath.IsAbs(ref) && !strings.HasPrefix(ref, "/"+filepath.ToSlash(s.uploadsDir)+"/") {
		return filepath.Clean(ref), nil
	}
	rel := filepath.Clean(filepath.FromSlash(strings.TrimLeft(ref, "/")))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return filepath.Join(s.root, rel), nil
}

// Exists reports whether ref resolves to an existing regular file.
func (s *Store) Exists(ref string) bool {
	path, err := s.Resolve(ref)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// SaveUpload writes r into the uploads directory under a fresh name with the
// given extension and returns the reference to store on the product.
func (s *Store) SaveUpload(r io.Reader, ext string) (string, error) {
	name := uuid.NewString() + ext
	if err := writeFile(filepath.Join(s.UploadsPath(), name), r); err != nil {
		return "", err
	}
	return "/" + filepath.ToSlash(filepath.Join(s.uploadsDir, name)), nil
}

// Remove deletes the file behind ref. Missing files are not an error.
func (s *Store) Remove(ref string) error {
	path, err := s.Resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", ref, err)
	}
	return nil
}

// TempFile is an upload parked in the temp directory for the duration of a request.
type TempFile struct {
	Path string
}

// SaveTemp writes r into the temp directory. The caller must Release the file,
// normally with defer right after the call succeeds.
func (s *Store) SaveTemp(r io.Reader, ext string) (*TempFile, error) {
	path := filepath.Join(s.TempPath(), "query-"+uuid.NewString()+ext)
	if err := writeFile(path, r); err != nil {
		return nil, err
	}
	return &TempFile{Path: path}, nil
}

// Release removes the temp file. Safe to call more than once.
func (t *TempFile) Release() error {
	if t == nil || t.Path == "" {
		return nil
	}
	if err := os.Remove(t.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing temp file: %w", err)
	}
	return nil
}

func writeFile(path string, r io.Reader) error {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640) //nolint:gosec // name generated here
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("writing file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("closing file: %w", err)
	}
	return nil
}
