package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// Store is a flat namespace of files addressed by slash-separated names.
type Store interface {
	// Write creates or replaces name.
	Write(ctx context.Context, name string, data []byte) error

	// Read returns the content of name, or an error wrapping ErrNotFound.
	Read(ctx context.Context, name string) ([]byte, error)

	// List returns the sorted top-level file names ending in suffix.
	// Files inside subdirectories are not listed.
	List(ctx context.Context, suffix string) ([]string, error)

	// Move relocates the top-level file name into directory dir, keeping its
	// base name. An existing file at the destination is replaced.
	Move(ctx context.Context, name, dir string) error
}

// Open returns an S3 store for locations of the form s3://bucket/prefix,
// using cfg for credentials and region, and a local store otherwise.
func Open(ctx context.Context, location string, cfg Config) (Store, error) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return NewLocal(location), nil
	}

	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return nil, fmt.Errorf("%w: missing bucket in %q", ErrInvalidConfig, location)
	}
	cfg.Bucket = bucket
	cfg.Prefix = prefix
	return NewS3(ctx, cfg)
}

// cleanName validates a store-relative name.
func cleanName(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return clean, nil
}
