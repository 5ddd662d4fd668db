// Package profile bundles field descriptors, table reconstruction settings
// and the tax rate of one historical invoice layout.
package profile

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/a3tai/invoice-extractor/internal/fields"
	"github.com/a3tai/invoice-extractor/internal/table"
)

// Profile is one layout generation.
type Profile struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Markers are phrases distinctive to the layout, used by detection in
	// addition to the field labels.
	Markers []string `yaml:"markers,omitempty" json:"markers,omitempty"`

	Fields     []fields.FieldDescriptor `yaml:"fields,omitempty" json:"fields,omitempty"`
	Composites []fields.Composite       `yaml:"composites,omitempty" json:"composites,omitempty"`
	Table      table.Profile            `yaml:"table,omitempty" json:"table,omitempty"`

	// TaxRate overrides the run's tax rate for documents of this layout.
	TaxRate *float64 `yaml:"tax_rate,omitempty" json:"tax_rate,omitempty"`
}

// WithDefaults fills what a file-defined profile left out: the standard
// descriptor table when no fields are given and the default table settings.
func (p Profile) WithDefaults() Profile {
	if len(p.Fields) == 0 {
		p.Fields = fields.DefaultDescriptors()
		if p.Composites == nil {
			p.Composites = fields.DefaultComposites()
		}
	}
	p.Table = p.Table.WithDefaults()
	return p
}

// Validate checks the profile by compiling its descriptors and table settings.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("profile has no name")
	}
	if _, err := fields.NewLocator(p.Fields, p.Composites); err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}
	if _, err := table.NewReconstructor(p.Table); err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}
	if p.TaxRate != nil && (*p.TaxRate < 0 || *p.TaxRate >= 1) {
		return fmt.Errorf("profile %q: tax rate %v outside [0, 1)", p.Name, *p.TaxRate)
	}
	return nil
}

// Rate returns the profile tax rate, or fallback when the profile sets none.
func (p Profile) Rate(fallback decimal.Decimal) decimal.Decimal {
	if p.TaxRate == nil {
		return fallback
	}
	return decimal.NewFromFloat(*p.TaxRate)
}

// Labels returns every label and marker of the profile.
func (p Profile) Labels() []string {
	labels := append([]string(nil), p.Markers...)
	for _, d := range p.Fields {
		labels = append(labels, d.Labels...)
	}
	return labels
}
