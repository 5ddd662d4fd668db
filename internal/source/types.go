// Package source reads invoice documents into RawPages: the text of every
// page and the raw table rows found on them. It also discovers inputs on disk
// and expands uploaded archives.
package source

import (
	"path/filepath"
	"strings"

	"github.com/a3tai/invoice-extractor/internal/table"
)

// RawPage is everything the extraction engine reads from one document.
type RawPage struct {
	// SourceID identifies the document in the output, usually its file name.
	SourceID string `json:"source_id"`
	Path     string `json:"path"`

	// Text is the document text with pages joined in page order.
	Text string `json:"text"`

	// Tables holds one entry per table instance, each an ordered list of
	// rows. Rows may be ragged.
	Tables [][]table.Row `json:"tables"`

	Pages int `json:"pages"`
}

// RowCount returns the number of raw rows across all tables.
func (p *RawPage) RowCount() int {
	n := 0
	for _, t := range p.Tables {
		n += len(t)
	}
	return n
}

// Kind classifies input files by extension.
type Kind string

const (
	KindUnknown Kind = ""
	KindPDF     Kind = "pdf"
	KindSidecar Kind = "sidecar"
	KindArchive Kind = "archive"
)

// KindOf returns the kind of the file at path.
func KindOf(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return KindPDF
	case ".json", ".yaml", ".yml":
		return KindSidecar
	case ".zip":
		return KindArchive
	default:
		return KindUnknown
	}
}

// FileInfo describes a discovered input file.
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	Kind         Kind   `json:"kind"`
	ModifiedTime string `json:"modified_time"`
}

// ValidationResult reports whether a file can be loaded.
type ValidationResult struct {
	Path    string `json:"path"`
	Kind    Kind   `json:"kind"`
	Valid   bool   `json:"valid"`
	Pages   int    `json:"pages,omitempty"`
	Message string `json:"message,omitempty"`
}
