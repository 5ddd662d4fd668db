package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator keeps file operations inside one directory
type PathValidator struct {
	directory string
}

// NewPathValidator creates a new path validator for the given directory
func NewPathValidator(directory string) (*PathValidator, error) {
	if directory == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}
	return &PathValidator{directory: directory}, nil
}

// ValidatePath returns an error unless path resolves inside the directory
func (v *PathValidator) ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	isWithin, err := v.IsPathWithinDirectory(path)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}
	if !isWithin {
		return fmt.Errorf("path is outside configured directory: %s", path)
	}
	return nil
}

// IsPathWithinDirectory checks if a path is within the configured directory.
// Symlinks are resolved for whichever of the two exist.
func (v *PathValidator) IsPathWithinDirectory(path string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}
	absDir, err := filepath.Abs(v.directory)
	if err != nil {
		return false, fmt.Errorf("failed to resolve configured directory: %w", err)
	}

	realPath := resolveExisting(filepath.Clean(absPath))
	realDir := resolveExisting(filepath.Clean(absDir))

	return realPath == realDir || strings.HasPrefix(realPath, withSeparator(realDir)), nil
}

// Directory returns the configured directory path
func (v *PathValidator) Directory() string {
	return v.directory
}

// resolveExisting evaluates symlinks in the longest existing prefix of path,
// so that paths of files not yet created still resolve consistently.
func resolveExisting(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	parent := filepath.Dir(path)
	if parent == path {
		return path
	}
	if _, err := os.Lstat(path); err == nil {
		// Exists but cannot be resolved, such as a dangling symlink.
		return path
	}
	return filepath.Join(resolveExisting(parent), filepath.Base(path))
}

func withSeparator(dir string) string {
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return dir
	}
	return dir + string(filepath.Separator)
}
