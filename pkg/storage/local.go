package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// LocalStore is a Store rooted at a directory on the local filesystem.
type LocalStore struct {
	root string
}

// NewLocal returns a store rooted at dir. The directory is created on the
// first write.
func NewLocal(dir string) *LocalStore {
	return &LocalStore{root: dir}
}

// Root returns the directory the store is rooted at.
func (s *LocalStore) Root() string { return s.root }

// Path returns the filesystem path of name.
func (s *LocalStore) Path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// Write implements Store.
func (s *LocalStore) Write(_ context.Context, name string, data []byte) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	p := s.Path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// Read implements Store.
func (s *LocalStore) Read(_ context.Context, name string) ([]byte, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	return data, nil
}

// List implements Store.
func (s *LocalStore) List(_ context.Context, suffix string) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListFailed, err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), suffix) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// Move implements Store.
func (s *LocalStore) Move(_ context.Context, name, dir string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	dir, err = cleanName(dir)
	if err != nil {
		return err
	}

	dst := s.Path(path.Join(dir, path.Base(name)))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrMoveFailed, err)
	}
	if err := os.Rename(s.Path(name), dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("%w: %w", ErrMoveFailed, err)
	}
	return nil
}
