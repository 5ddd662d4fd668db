package table

import (
	"fmt"
	"slices"
	"strings"

	"github.com/a3tai/invoice-extractor/internal/errors"
	"github.com/a3tai/invoice-extractor/internal/normalize"
)

// Row is one raw table row as delivered by the extractor. Rows of the same
// table may have different lengths.
type Row []string

// LineItem is one reconstructed invoice line keyed by semantic column.
type LineItem map[Column]string

// Get returns the value of column c, or "" when the row was too short to
// carry it.
func (li LineItem) Get(c Column) string {
	return li[c]
}

// Reconstructor turns raw rows into line items under one profile. It holds
// no per-document state and is safe for concurrent use.
type Reconstructor struct {
	profile  Profile
	widths   map[int]bool
	markers  map[string]bool
	mergeIdx int
}

// NewReconstructor validates p, after filling defaults, and prepares it for use.
func NewReconstructor(p Profile) (*Reconstructor, error) {
	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid table profile: %w", err)
	}

	r := &Reconstructor{
		profile:  p,
		widths:   make(map[int]bool, len(p.Widths)),
		markers:  make(map[string]bool, len(p.HeaderMarkers)),
		mergeIdx: slices.Index(p.Columns, p.MergeColumn),
	}
	for _, w := range p.Widths {
		r.widths[w] = true
	}
	for _, m := range p.HeaderMarkers {
		r.markers[normalize.Cell(m)] = true
	}
	return r, nil
}

// Profile returns the effective profile.
func (r *Reconstructor) Profile() Profile {
	return r.profile
}

// ReconstructTables reconstructs each table independently and concatenates
// the results in table order.
func (r *Reconstructor) ReconstructTables(tables [][]Row) ([]LineItem, []*errors.ExtractError) {
	var items []LineItem
	var issues []*errors.ExtractError
	for i, rows := range tables {
		ti, tissues := r.reconstruct(i+1, rows)
		items = append(items, ti...)
		issues = append(issues, tissues...)
	}
	return items, issues
}

// Reconstruct rebuilds the line items of a single table. Rows whose width
// matches no known layout are dropped and reported; the rest continue.
func (r *Reconstructor) Reconstruct(rows []Row) ([]LineItem, []*errors.ExtractError) {
	return r.reconstruct(1, rows)
}

func (r *Reconstructor) reconstruct(tableNo int, rows []Row) ([]LineItem, []*errors.ExtractError) {
	var (
		items   []LineItem
		issues  []*errors.ExtractError
		pending Row
	)

	// Merging depends on encounter order; this loop stays sequential.
	for i, raw := range rows {
		row := normalizeRow(raw)
		if isBlank(row) {
			continue
		}
		row = r.repairShift(row)

		if !r.isData(row) {
			if !r.isHeader(row) {
				pending = row
			}
			continue
		}

		if !r.widths[len(row)] {
			issues = append(issues, errors.NewExtractErrorWithContext(errors.ErrorTypeTableShape,
				"row dropped", fmt.Sprintf("%d cells, known widths %v", len(row), r.profile.Widths)).
				WithRow(tableNo, i+1))
			continue
		}

		item := r.label(row)
		if pending != nil {
			r.merge(item, pending)
			pending = nil
		}
		items = append(items, item)
	}
	return items, issues
}

func normalizeRow(raw Row) Row {
	row := make(Row, len(raw))
	for i, cell := range raw {
		row[i] = normalize.Cell(cell)
	}
	return row
}

func isBlank(row Row) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

// isHeader reports whether at least two cells are column captions. Only rows
// that are not data rows are checked, so captions used as item text survive.
func (r *Reconstructor) isHeader(row Row) bool {
	hits := 0
	for _, cell := range row {
		if r.markers[cell] {
			hits++
		}
	}
	return hits >= 2
}

func (r *Reconstructor) repairShift(row Row) Row {
	for _, rule := range r.profile.ShiftRules {
		if len(row) == rule.Width && row[rule.Filled] == "" && row[rule.Empty] != "" {
			return slices.Delete(row, rule.Filled, rule.Filled+1)
		}
	}
	return row
}

func (r *Reconstructor) isData(row Row) bool {
	cells, threshold := row, r.profile.NumericThreshold
	if r.profile.NumericScope == ScopeFirstCell {
		cells, threshold = row[:min(1, len(row))], 1
	}
	numeric := 0
	for _, cell := range cells {
		if normalize.IsNumeric(cell) {
			numeric++
			if numeric >= threshold {
				return true
			}
		}
	}
	return false
}

// merge joins the buffered continuation into the item's merge column. A row
// too short to carry that column gets it as a new key, so the fragment never
// lands in a numeric cell.
func (r *Reconstructor) merge(item LineItem, pending Row) {
	fragment := ""
	if r.mergeIdx < len(pending) {
		fragment = pending[r.mergeIdx]
	}
	if fragment == "" {
		var parts []string
		for _, cell := range pending {
			if cell != "" {
				parts = append(parts, cell)
			}
		}
		fragment = strings.Join(parts, " ")
	}

	column := r.profile.MergeColumn
	switch own := item[column]; {
	case own == "":
		item[column] = fragment
	case r.profile.MergeOrder == MergePrepend:
		item[column] = fragment + " " + own
	default:
		item[column] = own + " " + fragment
	}
}

// label assigns the first len(row) vocabulary columns. Rows are never padded.
func (r *Reconstructor) label(row Row) LineItem {
	item := make(LineItem, len(row))
	for i, cell := range row {
		item[r.profile.Columns[i]] = cell
	}
	return item
}
