// Package static stores generated files (chart PNGs, interactive table
// pages) in a directory and serves them under a public URL prefix.
package static

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by Open for names that do not exist.
	ErrNotFound = errors.New("file not found")

	// ErrInvalidName is returned for names that are not a plain file name.
	ErrInvalidName = errors.New("invalid file name")
)

// Store is a directory of generated files. It is safe for concurrent use.
type Store struct {
	dir     string
	baseURL string
}

// New creates the directory if needed. baseURL is the public prefix files
// are served under, e.g. "http://localhost:8080/tmp_imgs".
func New(dir, baseURL string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("static directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating static directory: %w", err)
	}
	return &Store{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the backing directory.
func (s *Store) Dir() string { return s.dir }

// Save writes data under a new random name with extension ext (".png")
// and returns the name.
func (s *Store) Save(ext string, data []byte) (string, error) {
	name := newName(ext)
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("storing %s: %w", name, err)
	}
	return name, nil
}

// URL returns the public URL of name.
func (s *Store) URL(name string) string {
	return s.baseURL + "/" + name
}

// Open opens a stored file for reading.
func (s *Store) Open(name string) (*os.File, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	if info, err := f.Stat(); err != nil || info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return f, nil
}

// Purge removes files last modified before now minus ttl and returns how
// many were removed.
func (s *Store) Purge(ttl time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("listing static directory: %w", err)
	}
	cutoff := now.Add(-ttl)
	var errs []error
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// ContentType returns the MIME type for name based on its extension.
func ContentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func newName(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "") + ext
}

func validName(name string) bool {
	return name != "" &&
		!strings.HasPrefix(name, ".") &&
		filepath.Base(name) == name &&
		!strings.ContainsAny(name, `/\`)
}
