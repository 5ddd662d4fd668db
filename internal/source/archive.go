package source

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Expansion lists the outcome of expanding one archive.
type Expansion struct {
	Directory string   `json:"directory"`
	Files     []string `json:"files"`
	Skipped   []string `json:"skipped,omitempty"`
}

// ExpandArchive extracts the loadable entries of a zip archive into destDir.
// Entries that would land outside destDir, are too large or are of an
// unsupported kind are skipped. Nested archives are not expanded.
func ExpandArchive(zipPath, destDir string, maxFileSize int64) (*Expansion, error) {
	// Insecure entry names are reported but the reader stays usable; the
	// path guard below skips those entries.
	zr, err := zip.OpenReader(zipPath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer zr.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	guard, err := NewPathValidator(destDir)
	if err != nil {
		return nil, err
	}

	result := &Expansion{Directory: destDir}
	for _, entry := range zr.File {
		name := entryName(entry)
		if entry.FileInfo().IsDir() {
			continue
		}

		kind := KindOf(name)
		target := filepath.Join(destDir, filepath.FromSlash(name))
		switch {
		case kind != KindPDF && kind != KindSidecar:
			result.Skipped = append(result.Skipped, name)
			continue
		case filepath.IsAbs(name) || guard.ValidatePath(target) != nil:
			result.Skipped = append(result.Skipped, name)
			continue
		case entry.UncompressedSize64 > uint64(maxFileSize):
			result.Skipped = append(result.Skipped, name)
			continue
		}

		if err := extractEntry(entry, target, maxFileSize); err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", name, err)
		}
		result.Files = append(result.Files, target)
	}

	sort.Strings(result.Files)
	return result, nil
}

// entryName returns the entry name as UTF-8. Names not flagged as UTF-8 are
// decoded from code page 437 unless they already are valid UTF-8, which is
// what most archivers writing Arabic names produce.
func entryName(entry *zip.File) string {
	name := entry.Name
	if entry.NonUTF8 && !utf8.ValidString(name) {
		if decoded, err := charmap.CodePage437.NewDecoder().String(name); err == nil {
			name = decoded
		}
	}
	return strings.TrimLeft(name, "/")
}

func extractEntry(entry *zip.File, target string, maxFileSize int64) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	n, err := io.Copy(out, io.LimitReader(rc, maxFileSize+1))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	if n > maxFileSize {
		_ = os.Remove(target)
		return fmt.Errorf("entry exceeds %d bytes", maxFileSize)
	}
	return nil
}
