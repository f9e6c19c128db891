// Package security confines sealfile file operations to a working root.
package security

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

var (
	ErrPathEscapes  = errors.New("path escapes working directory")
	ErrAbsolutePath = errors.New("absolute path outside working directory")
	ErrEmptyPath    = errors.New("empty path not allowed")
)

// PathValidator provides secure path validation and file operations
// that are confined to the working root using the os.Root API.
type PathValidator struct {
	root     *os.Root
	rootPath string
}

// New creates a new PathValidator for the directory at the given path.
func New(rootPath string) (*PathValidator, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open working root: %w", err)
	}

	return &PathValidator{
		root:     root,
		rootPath: absPath,
	}, nil
}

// Close releases resources held by the PathValidator.
func (pv *PathValidator) Close() error {
	if pv.root != nil {
		return pv.root.Close()
	}
	return nil
}

// RootPath returns the absolute path of the working root.
func (pv *PathValidator) RootPath() string {
	return pv.rootPath
}

// ValidateAndNormalize validates a user-provided path and returns a
// normalized, slash-separated path relative to the root. Absolute paths
// are accepted when they point inside the root. It rejects:
// - Empty paths
// - Absolute paths outside the root
// - Paths that escape the root (using ..)
// - Paths that are not local (reserved names on Windows)
func (pv *PathValidator) ValidateAndNormalize(userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}

	candidate := userPath
	if filepath.IsAbs(userPath) {
		rel, err := filepath.Rel(pv.rootPath, filepath.Clean(userPath))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: %s", ErrAbsolutePath, userPath)
		}
		candidate = rel
	}

	if !filepath.IsLocal(candidate) {
		if filepath.IsAbs(candidate) {
			return "", fmt.Errorf("%w: %s", ErrAbsolutePath, userPath)
		}
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}

	cleanPath := filepath.Clean(candidate)
	if cleanPath == "." {
		return "", fmt.Errorf("%w: %s is the working directory", ErrEmptyPath, userPath)
	}

	return filepath.ToSlash(cleanPath), nil
}

// Abs returns the platform path of a normalized path.
func (pv *PathValidator) Abs(path string) string {
	return filepath.Join(pv.rootPath, filepath.FromSlash(path))
}

func (pv *PathValidator) local(path string) (string, error) {
	if _, err := pv.ValidateAndNormalize(filepath.FromSlash(path)); err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	return filepath.FromSlash(path), nil
}

// ReadFileInRoot reads a file within the root using os.Root, so symlinks
// cannot lead outside it.
func (pv *PathValidator) ReadFileInRoot(path string) ([]byte, error) {
	p, err := pv.local(path)
	if err != nil {
		return nil, err
	}
	return pv.root.ReadFile(p)
}

// StatInRoot stats a file within the root using os.Root.
func (pv *PathValidator) StatInRoot(path string) (os.FileInfo, error) {
	p, err := pv.local(path)
	if err != nil {
		return nil, err
	}
	return pv.root.Stat(p)
}

// RemoveInRoot removes a file within the root using os.Root.
func (pv *PathValidator) RemoveInRoot(path string) error {
	p, err := pv.local(path)
	if err != nil {
		return err
	}
	return pv.root.Remove(p)
}

// WriteFileAtomic writes data to a file within the root through a
// temporary file and a rename, so readers never observe a partial file.
// The parent directory must already exist.
func (pv *PathValidator) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	p, err := pv.local(path)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(p); dir != "." {
		info, err := pv.root.Stat(dir)
		if err != nil {
			return fmt.Errorf("invalid parent directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("invalid parent directory: %s is not a directory", dir)
		}
	}

	target := pv.Abs(path)
	if err := atomic.WriteFile(target, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return pv.root.Chmod(p, perm)
}
