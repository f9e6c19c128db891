package security

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestPathValidator_ValidateAndNormalize(t *testing.T) {
	tmpDir := t.TempDir()

	validator, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer validator.Close()

	tests := []struct {
		name    string
		input   string
		want    string
		errType error
	}{
		// Valid paths
		{"simple file", "test.txt", "test.txt", nil},
		{"file in subdirectory", "subdir/test.txt", "subdir/test.txt", nil},
		{"hidden file", ".env", ".env", nil},
		{"envelope", "config/.env.enc", "config/.env.enc", nil},
		{"absolute inside root", filepath.Join(tmpDir, "a", "b.txt"), "a/b.txt", nil},

		// Path traversal attempts
		{"parent directory", "../test.txt", "", ErrPathEscapes},
		{"nested parent", "a/../../test.txt", "", ErrPathEscapes},
		{"multiple parents", "../../etc/passwd", "", ErrPathEscapes},
		{"absolute outside root", "/etc/passwd", "", ErrAbsolutePath},
		{"absolute sibling", filepath.Join(filepath.Dir(tmpDir), "x.txt"), "", ErrAbsolutePath},

		// Empty path
		{"empty path", "", "", ErrEmptyPath},
		{"root itself", ".", "", ErrEmptyPath},
		{"absolute root itself", tmpDir, "", ErrEmptyPath},

		// Clean should normalize these
		{"dot slash", "./test.txt", "test.txt", nil},
		{"redundant slashes", "a//b///c/test.txt", "a/b/c/test.txt", nil},
		{"dot segments", "a/./b/./test.txt", "a/b/test.txt", nil},
	}

	if runtime.GOOS == "windows" {
		tests = append(tests, struct {
			name    string
			input   string
			want    string
			errType error
		}{"reserved name", "NUL", "", ErrPathEscapes})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := validator.ValidateAndNormalize(tt.input)

			if tt.errType != nil {
				if !errors.Is(err, tt.errType) {
					t.Errorf("Expected %v for input %q, got %v", tt.errType, tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error for input %q: %v", tt.input, err)
			}
			if result != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, result)
			}
			if strings.Contains(result, "\\") {
				t.Errorf("Result should use forward slashes, got %q", result)
			}
		})
	}
}

func TestPathValidator_AtomicWriteReadRemove(t *testing.T) {
	tmpDir := t.TempDir()

	validator, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer validator.Close()

	if err := validator.WriteFileAtomic("secret.enc", []byte("first"), 0600); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	if err := validator.WriteFileAtomic("secret.enc", []byte("second"), 0600); err != nil {
		t.Fatalf("WriteFileAtomic overwrite failed: %v", err)
	}

	data, err := validator.ReadFileInRoot("secret.enc")
	if err != nil {
		t.Fatalf("ReadFileInRoot failed: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("Expected 'second', got %q", data)
	}

	info, err := validator.StatInRoot("secret.enc")
	if err != nil {
		t.Fatalf("StatInRoot failed: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}

	// No temporary files left behind
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the target file, found %d entries", len(entries))
	}

	if err := validator.RemoveInRoot("secret.enc"); err != nil {
		t.Fatalf("RemoveInRoot failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "secret.enc")); !os.IsNotExist(err) {
		t.Error("File should have been removed")
	}
}

func TestPathValidator_WriteMissingParent(t *testing.T) {
	validator, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer validator.Close()

	if err := validator.WriteFileAtomic("missing/dir/file.enc", []byte("x"), 0600); err == nil {
		t.Error("Expected error for missing parent directory")
	}
}

func TestPathValidator_ActualEscapePrevention(t *testing.T) {
	tmpDir := t.TempDir()

	// Create a file OUTSIDE the root to try to overwrite
	outsideDir := filepath.Dir(tmpDir)
	targetFile := filepath.Join(outsideDir, "should_not_be_written.txt")
	defer os.Remove(targetFile)

	validator, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer validator.Close()

	err = validator.WriteFileAtomic("../should_not_be_written.txt", []byte("pwned"), 0644)
	if err == nil {
		t.Error("Expected error when trying to write outside root, got none")
	}

	if _, statErr := os.Stat(targetFile); statErr == nil {
		t.Error("File was created outside root")
		os.Remove(targetFile)
	}

	if _, err := validator.ReadFileInRoot("../should_not_be_written.txt"); err == nil {
		t.Error("Expected error when reading outside root")
	}
	if err := validator.RemoveInRoot("../should_not_be_written.txt"); err == nil {
		t.Error("Expected error when removing outside root")
	}
}

func TestPathValidator_SymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	tmpDir := t.TempDir()
	outside := t.TempDir()
	if err := os.WriteFile(filepath.Join(outside, "target.txt"), []byte("outside"), 0600); err != nil {
		t.Fatalf("Failed to create outside file: %v", err)
	}
	if err := os.Symlink(filepath.Join(outside, "target.txt"), filepath.Join(tmpDir, "link.txt")); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	validator, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer validator.Close()

	if _, err := validator.ReadFileInRoot("link.txt"); err == nil {
		t.Error("Expected error reading through a symlink that leaves the root")
	}
}
