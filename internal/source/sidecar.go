package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/a3tai/invoice-extractor/internal/table"
)

// Sidecar is the document format written by external text and table
// extractors. JSON is accepted as a subset of YAML.
type Sidecar struct {
	Source string `yaml:"source" json:"source"`

	// Text holds the whole document; Pages is used when Text is empty.
	Text  string   `yaml:"text,omitempty" json:"text,omitempty"`
	Pages []string `yaml:"pages,omitempty" json:"pages,omitempty"`

	Tables [][][]string `yaml:"tables,omitempty" json:"tables,omitempty"`
}

// SidecarLoader reads pre-extracted documents
type SidecarLoader struct {
	validator *Validator
}

// NewSidecarLoader creates a sidecar loader with the specified size limit
func NewSidecarLoader(maxFileSize int64) *SidecarLoader {
	return &SidecarLoader{validator: NewValidator(maxFileSize)}
}

// Name implements Loader
func (l *SidecarLoader) Name() string {
	return "sidecar"
}

// CanHandle implements Loader
func (l *SidecarLoader) CanHandle(path string) bool {
	return KindOf(path) == KindSidecar
}

// Load implements Loader
func (l *SidecarLoader) Load(ctx context.Context, path string) (*RawPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := l.validator.validate(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sidecar: %w", err)
	}

	page, err := ParseSidecar(data)
	if err != nil {
		return nil, err
	}
	page.Path = path
	if page.SourceID == "" {
		page.SourceID = filepath.Base(path)
	}
	return page, nil
}

// ParseSidecar decodes a sidecar document into a RawPage.
func ParseSidecar(data []byte) (*RawPage, error) {
	var doc Sidecar
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sidecar: %w", err)
	}

	page := &RawPage{
		SourceID: doc.Source,
		Text:     doc.Text,
		Pages:    len(doc.Pages),
	}
	if page.Text == "" {
		page.Text = strings.Join(doc.Pages, "\n")
	}

	for _, t := range doc.Tables {
		rows := make([]table.Row, len(t))
		for i, cells := range t {
			rows[i] = table.Row(cells)
		}
		page.Tables = append(page.Tables, rows)
	}

	if strings.TrimSpace(page.Text) == "" && page.RowCount() == 0 {
		return nil, fmt.Errorf("sidecar has neither text nor table rows")
	}
	return page, nil
}
