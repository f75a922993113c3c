// Package storage holds the blob stores that keep product image bytes.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	// ErrObjectExists is returned by Upload when the path is already taken
	ErrObjectExists = errors.New("object already exists")
	// ErrInvalidPath is returned for empty, absolute or traversing paths
	ErrInvalidPath = errors.New("invalid object path")
)

// Storage defines the behaviour of a blob store keyed by path.
// Paths always use forward slashes, e.g. "eveul-jupiter/5f0c...e1.jpg".
type Storage interface {
	// Upload writes r at path. It never overwrites: ErrObjectExists is
	// returned when path already holds an object.
	Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error

	// Remove deletes the object at path. Removing a missing object is not an error.
	Remove(ctx context.Context, path string) error

	// Exists reports whether an object is stored at path.
	Exists(ctx context.Context, path string) (bool, error)

	// PublicURL resolves the URL clients use to fetch the object. It does not
	// touch the store.
	PublicURL(path string) string
}

// CleanPath validates an object path and returns its canonical form
func CleanPath(p string) (string, error) {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", ErrInvalidPath
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidPath
	}
	return clean, nil
}

func joinURL(base, p string) string {
	return strings.TrimRight(base, "/") + "/" + p
}
