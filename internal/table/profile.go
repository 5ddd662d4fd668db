// Package table rebuilds logical invoice line items from the ragged cell rows
// produced by an upstream table extractor.
package table

import (
	"fmt"
	"slices"
)

// Column is a semantic line-item column name.
type Column string

const (
	LineTotal         Column = "line_total"
	SecondaryQuantity Column = "secondary_quantity"
	UnitPrice         Column = "unit_price"
	Quantity          Column = "quantity"
	Description       Column = "description"
	SKU               Column = "sku"
	Overflow          Column = "overflow"
)

// NumericColumns hold quantities and amounts. They never receive merged text.
var NumericColumns = []Column{LineTotal, SecondaryQuantity, UnitPrice, Quantity}

// DefaultColumns is the header vocabulary in priority order. Rows are
// labelled with a prefix of it as long as the row itself.
var DefaultColumns = []Column{LineTotal, SecondaryQuantity, UnitPrice, Quantity, Description, SKU, Overflow}

// Scope selects which cells count towards data-row classification.
type Scope string

const (
	ScopeAllCells  Scope = "all-cells"
	ScopeFirstCell Scope = "first-cell"
)

// MergeOrder places a buffered continuation fragment relative to the data
// row's own text.
type MergeOrder string

const (
	MergeAppend  MergeOrder = "append"
	MergePrepend MergeOrder = "prepend"
)

// ShiftRule repairs rows of Width cells where the Filled cell is empty and the
// Empty cell right after it is not: the Filled slot is removed and the cells
// after it move one position left.
type ShiftRule struct {
	Width  int `yaml:"width" json:"width"`
	Filled int `yaml:"filled" json:"filled"`
	Empty  int `yaml:"empty" json:"empty"`
}

// Profile configures reconstruction for one document layout.
type Profile struct {
	Columns          []Column    `yaml:"columns,omitempty" json:"columns,omitempty"`
	NumericThreshold int         `yaml:"numeric_threshold,omitempty" json:"numeric_threshold,omitempty"`
	NumericScope     Scope       `yaml:"numeric_scope,omitempty" json:"numeric_scope,omitempty"`
	Widths           []int       `yaml:"widths,omitempty" json:"widths,omitempty"`
	ShiftRules       []ShiftRule `yaml:"shift_rules,omitempty" json:"shift_rules,omitempty"`
	MergeColumn      Column      `yaml:"merge_column,omitempty" json:"merge_column,omitempty"`
	MergeOrder       MergeOrder  `yaml:"merge_order,omitempty" json:"merge_order,omitempty"`
	HeaderMarkers    []string    `yaml:"header_markers,omitempty" json:"header_markers,omitempty"`
}

// DefaultHeaderMarkers are the column captions printed on the invoices, in
// both languages.
var DefaultHeaderMarkers = []string{
	"المجموع", "الكمية", "سعر الوحدة", "العدد", "الوصف", "البند",
	"Total", "Quantity", "Qty", "Unit Price", "Description", "Item", "SKU",
}

// DefaultProfile returns the reconstruction profile of the current layout.
func DefaultProfile() Profile {
	return Profile{
		Columns:          slices.Clone(DefaultColumns),
		NumericThreshold: 1,
		NumericScope:     ScopeAllCells,
		Widths:           []int{4, 5, 6, 7},
		ShiftRules:       []ShiftRule{{Width: 7, Filled: 3, Empty: 4}},
		MergeColumn:      Description,
		MergeOrder:       MergeAppend,
		HeaderMarkers:    slices.Clone(DefaultHeaderMarkers),
	}
}

// WithDefaults fills unset settings from DefaultProfile. Widths and shift
// rules are only inherited when both are unset.
func (p Profile) WithDefaults() Profile {
	d := DefaultProfile()
	if len(p.Columns) == 0 {
		p.Columns = d.Columns
	}
	if p.NumericThreshold == 0 {
		p.NumericThreshold = d.NumericThreshold
	}
	if p.NumericScope == "" {
		p.NumericScope = d.NumericScope
	}
	if len(p.Widths) == 0 && len(p.ShiftRules) == 0 {
		p.Widths = d.Widths
		p.ShiftRules = d.ShiftRules
	}
	if p.MergeColumn == "" {
		p.MergeColumn = d.MergeColumn
	}
	if p.MergeOrder == "" {
		p.MergeOrder = d.MergeOrder
	}
	if p.HeaderMarkers == nil {
		p.HeaderMarkers = d.HeaderMarkers
	}
	return p
}

// Validate checks that a profile is complete and self-consistent.
func (p Profile) Validate() error {
	if len(p.Columns) == 0 {
		return fmt.Errorf("table profile has no columns")
	}
	seen := make(map[Column]bool, len(p.Columns))
	for _, c := range p.Columns {
		if c == "" || seen[c] {
			return fmt.Errorf("table profile has an empty or duplicate column %q", c)
		}
		seen[c] = true
	}

	if p.NumericThreshold < 1 {
		return fmt.Errorf("numeric threshold must be at least 1, got %d", p.NumericThreshold)
	}
	if p.NumericScope != ScopeAllCells && p.NumericScope != ScopeFirstCell {
		return fmt.Errorf("unknown numeric scope %q", p.NumericScope)
	}

	if len(p.Widths) == 0 {
		return fmt.Errorf("table profile has no known row widths")
	}
	for _, w := range p.Widths {
		if w < 1 || w > len(p.Columns) {
			return fmt.Errorf("row width %d outside 1..%d", w, len(p.Columns))
		}
	}

	for _, r := range p.ShiftRules {
		if r.Empty != r.Filled+1 || r.Filled < 0 || r.Empty >= r.Width {
			return fmt.Errorf("invalid shift rule %d/%d/%d", r.Width, r.Filled, r.Empty)
		}
	}

	if !seen[p.MergeColumn] {
		return fmt.Errorf("merge column %q is not a profile column", p.MergeColumn)
	}
	if slices.Contains(NumericColumns, p.MergeColumn) {
		return fmt.Errorf("merge column %q holds numbers", p.MergeColumn)
	}
	if p.MergeOrder != MergeAppend && p.MergeOrder != MergePrepend {
		return fmt.Errorf("unknown merge order %q", p.MergeOrder)
	}
	return nil
}
