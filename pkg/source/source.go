// Package source provides the input boundary for scanning: a minimal
// filesystem abstraction the core reads exercises through.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Source abstracts where exercise files are read from.
type Source interface {
	// Root returns the absolute root path of the source.
	Root() string
	// Open opens a file by path relative to Root.
	Open(ctx context.Context, relPath string) (io.ReadCloser, error)
	// Close releases any resources held by the source.
	Close() error
}

// LocalSource reads from a local directory.
type LocalSource struct {
	root string
}

// NewLocalSource creates a source rooted at the given directory.
func NewLocalSource(path string) (*LocalSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", abs)
	}
	return &LocalSource{root: abs}, nil
}

// Root implements Source.
func (s *LocalSource) Root() string { return s.root }

// Open implements Source.
func (s *LocalSource) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(filepath.Join(s.root, relPath))
}

// Close implements Source. Local sources hold no resources.
func (s *LocalSource) Close() error { return nil }

// ReadFile reads a whole file from a source by relative path.
func ReadFile(ctx context.Context, src Source, relPath string) ([]byte, error) {
	reader, err := src.Open(ctx, relPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", relPath, err)
	}
	return content, nil
}
