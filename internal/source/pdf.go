package source

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/invoice-extractor/internal/table"
)

const (
	// rowTolerance is the baseline distance, in points, within which text
	// runs belong to the same row.
	rowTolerance = 2.0
	// cellGap is the horizontal gap, in points, that separates two cells.
	cellGap = 12.0
	// wordGap is the horizontal gap that separates two words inside a cell.
	wordGap = 1.5
	// minTableCells is the cell count that marks a row as part of a table.
	minTableCells = 3
)

// PDFLoader reads text and positioned text runs from PDF files
type PDFLoader struct {
	validator   *Validator
	maxTextSize int
}

// NewPDFLoader creates a PDF loader with the specified size limit
func NewPDFLoader(maxFileSize int64) *PDFLoader {
	return &PDFLoader{
		validator:   NewValidator(maxFileSize),
		maxTextSize: 10 * 1024 * 1024, // 10MB text limit
	}
}

// Name implements Loader
func (l *PDFLoader) Name() string {
	return "pdf"
}

// CanHandle implements Loader
func (l *PDFLoader) CanHandle(path string) bool {
	return KindOf(path) == KindPDF
}

// Load validates the file, then extracts the plain text of every page and
// one table instance per page from the positioned text runs.
func (l *PDFLoader) Load(ctx context.Context, path string) (page *RawPage, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := l.validator.validate(path); err != nil {
		return nil, err
	}

	// The PDF library panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			page = nil
			err = fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	page = &RawPage{
		SourceID: filepath.Base(path),
		Path:     path,
		Pages:    reader.NumPage(),
	}

	var texts []string
	totalLength := 0
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := reader.Page(pageNum)
		if p.V.IsNull() {
			continue
		}

		if content, err := p.GetPlainText(nil); err == nil && totalLength+len(content) <= l.maxTextSize {
			texts = append(texts, content)
			totalLength += len(content)
		}

		if rows := tableRegion(groupRows(p.Content().Text)); len(rows) > 0 {
			page.Tables = append(page.Tables, rows)
		}
	}

	page.Text = strings.Join(texts, "\n")
	if strings.TrimSpace(page.Text) == "" && len(page.Tables) == 0 {
		return nil, fmt.Errorf("no text content could be extracted from PDF")
	}
	return page, nil
}

// groupRows clusters text runs by baseline, top of the page first, and splits
// each line into cells at wide horizontal gaps.
func groupRows(texts []pdf.Text) []table.Row {
	if len(texts) == 0 {
		return nil
	}

	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var rows []table.Row
	var line []pdf.Text
	flush := func() {
		if len(line) > 0 {
			rows = append(rows, splitCells(line))
			line = nil
		}
	}

	for _, t := range sorted {
		if len(line) > 0 && math.Abs(line[0].Y-t.Y) > rowTolerance {
			flush()
		}
		line = append(line, t)
	}
	flush()
	return rows
}

func splitCells(line []pdf.Text) table.Row {
	sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })

	var row table.Row
	var cell strings.Builder
	prevEnd := line[0].X
	for i, t := range line {
		gap := t.X - prevEnd
		switch {
		case i > 0 && gap > cellGap:
			row = append(row, strings.TrimSpace(cell.String()))
			cell.Reset()
		case i > 0 && gap > wordGap && !strings.HasSuffix(cell.String(), " "):
			cell.WriteByte(' ')
		}
		cell.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	return append(row, strings.TrimSpace(cell.String()))
}

// tableRegion keeps the rows between the first and last row wide enough to
// belong to a table. Narrow rows inside the region are continuation lines.
func tableRegion(rows []table.Row) []table.Row {
	first, last := -1, -1
	for i, row := range rows {
		if len(row) >= minTableCells {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return nil
	}
	return rows[first : last+1]
}
