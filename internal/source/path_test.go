package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewPathValidator(t *testing.T) {
	if _, err := NewPathValidator(""); err == nil {
		t.Error("Expected error for empty directory but got none")
	}

	validator, err := NewPathValidator("/non/existent/path")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if validator.Directory() != "/non/existent/path" {
		t.Errorf("Directory() = %q", validator.Directory())
	}
}

func TestPathValidator_ValidatePath(t *testing.T) {
	tempDir := t.TempDir()

	subDir := filepath.Join(tempDir, "subdir")
	if err := os.Mkdir(subDir, 0o755); err != nil {
		t.Fatalf("Failed to create subdirectory: %v", err)
	}

	outsideDir := t.TempDir()
	outsideFile := filepath.Join(outsideDir, "secret.pdf")
	if err := os.WriteFile(outsideFile, []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to create outside file: %v", err)
	}

	link := filepath.Join(tempDir, "link.pdf")
	if err := os.Symlink(outsideFile, link); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	validator, err := NewPathValidator(tempDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}

	tests := []struct {
		name      string
		path      string
		wantError bool
	}{
		{name: "directory itself", path: tempDir},
		{name: "file in directory", path: filepath.Join(tempDir, "a.pdf")},
		{name: "file in subdirectory", path: filepath.Join(subDir, "b.pdf")},
		{name: "not yet created nested file", path: filepath.Join(tempDir, "new", "deeper", "c.pdf")},
		{name: "empty path", path: "", wantError: true},
		{name: "parent traversal", path: filepath.Join(tempDir, "..", "escape.pdf"), wantError: true},
		{name: "sibling with common prefix", path: tempDir + "-other/x.pdf", wantError: true},
		{name: "outside directory", path: outsideFile, wantError: true},
		{name: "symlink leaving directory", path: link, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidatePath(tt.path)
			if tt.wantError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.wantError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}
