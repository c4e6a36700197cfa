// Package files stores uploaded attachment bytes. The chat core only
// reads; uploads are handled by the external file endpoints.
package files

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no file exists for the given ID.
var ErrNotFound = errors.New("file not found")

// Store reads stored file content by ID.
type Store interface {
	// Read returns the file bytes and content type. Returns ErrNotFound
	// when the ID is unknown.
	Read(ctx context.Context, id string) ([]byte, string, error)
}

// Local stores files in a directory on disk, one file per ID.
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) Read(_ context.Context, id string) ([]byte, string, error) {
	path := filepath.Join(l.dir, filepath.Base(id))
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("read file %s: %w", id, err)
	}
	return data, contentTypeFor(id), nil
}

// Write stores file bytes under the given ID. Used by tests and the
// upload surface.
func (l *Local) Write(_ context.Context, id string, data []byte) error {
	path := filepath.Join(l.dir, filepath.Base(id))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write file %s: %w", id, err)
	}
	return nil
}

func contentTypeFor(id string) string {
	ext := strings.ToLower(filepath.Ext(id))
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
