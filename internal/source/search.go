package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Search discovers loadable inputs under a directory
type Search struct {
	validator *Validator
}

// NewSearch creates a new search handler with the specified size limit
func NewSearch(maxFileSize int64) *Search {
	return &Search{
		validator: NewValidator(maxFileSize),
	}
}

// FindInputs walks directory and returns every supported file that passes
// basic validation, sorted by path. Files that fail validation are skipped.
func (s *Search) FindInputs(directory string) ([]FileInfo, error) {
	if directory == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}

	if _, err := os.Stat(directory); os.IsNotExist(err) {
		return nil, fmt.Errorf("directory does not exist: %s", directory)
	}

	absDirectory, err := filepath.Abs(directory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory path: %w", err)
	}

	guard, err := NewPathValidator(absDirectory)
	if err != nil {
		return nil, err
	}

	var files []FileInfo
	err = filepath.WalkDir(absDirectory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Continue walking even if we encounter an error with a specific file
			return nil //nolint:nilerr // Intentionally continue on file errors
		}

		if within, err := guard.IsPathWithinDirectory(path); err != nil || !within {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != absDirectory && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr // Intentionally continue on file errors
		}
		if err := s.validator.ValidateFileInfo(path, info); err != nil {
			return nil //nolint:nilerr // Intentionally continue on validation errors
		}

		files = append(files, FileInfo{
			Path:         path,
			Name:         info.Name(),
			Size:         info.Size(),
			Kind:         KindOf(path),
			ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// ExpandInputs replaces every archive in files with the loadable files it
// contains, expanded under workDir. Archives that fail to expand are
// returned in failed with their error.
func (s *Search) ExpandInputs(files []FileInfo, workDir string) (expanded []FileInfo, failed map[string]error) {
	failed = make(map[string]error)
	for _, f := range files {
		if f.Kind != KindArchive {
			expanded = append(expanded, f)
			continue
		}

		dest := filepath.Join(workDir, strings.TrimSuffix(f.Name, filepath.Ext(f.Name)))
		result, err := ExpandArchive(f.Path, dest, s.validator.maxFileSize)
		if err != nil {
			failed[f.Path] = err
			continue
		}
		for _, path := range result.Files {
			info, err := os.Stat(path)
			if err != nil {
				failed[path] = err
				continue
			}
			expanded = append(expanded, FileInfo{
				Path:         path,
				Name:         info.Name(),
				Size:         info.Size(),
				Kind:         KindOf(path),
				ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
			})
		}
	}
	return expanded, failed
}
