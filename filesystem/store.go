// Package filesystem provides the local file system storage used by the
// direct backend. All access goes through an os.Root, so symlinks and ".."
// components cannot reach files outside the root directory.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"syscall"

	"github.com/sagarc03/privatemedia"
)

// Store provides read-only file system access below a root directory.
type Store struct {
	root *os.Root
}

// NewFileStorage creates a new Store with the given root directory.
// The root provides sandboxed file operations preventing path traversal.
func NewFileStorage(root *os.Root) *Store {
	return &Store{root: root}
}

// Stat returns file information. Returns privatemedia.ErrNotFound if the file does not exist.
func (s *Store) Stat(ctx context.Context, path string) (fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := s.root.Stat(path)
	if err != nil {
		return nil, mapError("stat file", err)
	}

	return info, nil
}

// Open opens a file for reading. Returns privatemedia.ErrNotFound if the file does not exist.
func (s *Store) Open(ctx context.Context, path string) (io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.root.Open(path)
	if err != nil {
		return nil, mapError("open file", err)
	}

	return f, nil
}

// Name returns the directory the store is rooted at.
func (s *Store) Name() string {
	return s.root.Name()
}

// mapError turns "does not exist" into privatemedia.ErrNotFound. A path that
// walks through a regular file ("a.pdf/b") does not exist either.
func mapError(op string, err error) error {
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
		return fmt.Errorf("%s: %w", op, privatemedia.ErrNotFound)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
