// Package storage persists incoming uploads onto the local filesystem so
// they can be re-served under /uploads while the raw bytes travel to the
// upstream API.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// UploadStore writes uploaded files under a single base directory.
type UploadStore struct {
	basePath string
}

// NewUploadStore initializes an UploadStore rooted at basePath.
func NewUploadStore(basePath string) (*UploadStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &UploadStore{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (s *UploadStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Save stores the reader's contents under a random name carrying the
// original extension and returns the stored key together with the raw
// bytes, which submission handlers forward as base64.
func (s *UploadStore) Save(ctx context.Context, originalName string, r io.Reader) (string, []byte, error) {
	if s == nil {
		return "", nil, errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	key := uuid.NewString() + sanitizeExt(originalName)

	dst, err := os.Create(filepath.Join(s.basePath, key))
	if err != nil {
		return "", nil, fmt.Errorf("storage: create file: %w", err)
	}
	defer dst.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(io.MultiWriter(dst, &buf), r); err != nil {
		return "", nil, fmt.Errorf("storage: write file: %w", err)
	}
	return key, buf.Bytes(), nil
}

// sanitizeExt keeps only a plain file extension so stored names can never
// escape the base directory.
func sanitizeExt(name string) string {
	ext := filepath.Ext(filepath.Base(name))
	if ext == "." || strings.ContainsAny(ext, `/\`) {
		return ""
	}
	return ext
}
