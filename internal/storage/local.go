package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local is a Storage backed by a directory on the local disk
type Local struct {
	maxFileSize int64 // Maximum number of bytes for files
	basePath    string
	publicURL   string
}

// maxBytesWriter is a writer that errors when more than N bytes are written
type maxBytesWriter struct {
	w io.Writer // underlying writer
	n int64     // max bytes remaining
}

var errTooLarge = errors.New("file too large")

func (l *maxBytesWriter) Write(p []byte) (int, error) {
	if int64(len(p)) > l.n {
		n, _ := l.w.Write(p[:l.n])
		l.n = 0
		return n, errTooLarge
	}
	n, err := l.w.Write(p)
	l.n -= int64(n)
	return n, err
}

// NewLocal creates a new Local filesystem with the given base path
// basePath is the base directory to save the files to
// maxSize is the max number of bytes that a file can be
// publicURL is the URL prefix the files are served under
func NewLocal(basePath string, maxSize int64, publicURL string) (*Local, error) {
	p, err := filepath.Abs(basePath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(p, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create base directory: %w", err)
	}

	return &Local{basePath: p, maxFileSize: maxSize, publicURL: publicURL}, nil
}

func (l *Local) Upload(ctx context.Context, path string, contents io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if size > l.maxFileSize {
		return fmt.Errorf("file size exceeds maximum allowed size of %d bytes", l.maxFileSize)
	}

	fp, err := l.fullPath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(fp)

	// Create all directories in the path if they don't exist
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("unable to create directory: %w", err)
	}

	// Create a temporary file in the same directory
	tempFile, err := os.CreateTemp(dir, "temp-*")
	if err != nil {
		return fmt.Errorf("unable to create temporary file: %w", err)
	}
	tempPath := tempFile.Name()
	// The temporary name is always dropped: either the data was linked to fp or it is discarded
	defer os.Remove(tempPath)

	writer := &maxBytesWriter{w: tempFile, n: l.maxFileSize}
	if _, err := io.Copy(writer, contents); err != nil {
		tempFile.Close()
		if errors.Is(err, errTooLarge) {
			return fmt.Errorf("file size exceeds maximum allowed size of %d bytes", l.maxFileSize)
		}
		return fmt.Errorf("unable to write to file: %w", err)
	}

	if err = tempFile.Close(); err != nil {
		return fmt.Errorf("unable to close temporary file: %w", err)
	}

	// Link fails if fp exists, so two uploads can never replace each other
	if err := os.Link(tempPath, fp); err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrObjectExists
		}
		return fmt.Errorf("unable to move temporary file to final location: %w", err)
	}

	return nil
}

func (l *Local) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fp, err := l.fullPath(path)
	if err != nil {
		return err
	}

	if err := os.Remove(fp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("unable to remove the file: %w", err)
	}
	return nil
}

func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	fp, err := l.fullPath(path)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(fp)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("unable to stat the file: %w", err)
	}
	return true, nil
}

func (l *Local) PublicURL(path string) string {
	return joinURL(l.publicURL, path)
}

// Open returns the file stored at path for reading
func (l *Local) Open(path string) (*os.File, error) {
	fp, err := l.fullPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fp)
	if err != nil {
		return nil, fmt.Errorf("unable to open the file: %w", err)
	}

	return f, nil
}

// returns the absolute full path
func (l *Local) fullPath(path string) (string, error) {
	clean, err := CleanPath(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.basePath, filepath.FromSlash(clean)), nil
}
