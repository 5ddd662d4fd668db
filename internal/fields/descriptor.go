// Package fields locates invoice header values in normalized document text
// from a declarative table of field descriptors.
package fields

import (
	"fmt"
	"regexp"
	"strings"
)

// Mode selects how a descriptor searches for its value.
type Mode string

const (
	ModeSameLine Mode = "same-line"
	ModeNextLine Mode = "next-line"
	ModeWindowed Mode = "windowed"
)

// DefaultWindow is the window size, in runes, used by windowed descriptors
// that do not set one.
const DefaultWindow = 40

// FieldDescriptor declares how one header field is found. Descriptors are
// configuration: loaded once and shared read-only across documents.
type FieldDescriptor struct {
	Name         string   `yaml:"name" json:"name"`
	Labels       []string `yaml:"labels" json:"labels"`
	ValuePattern string   `yaml:"value_pattern,omitempty" json:"value_pattern,omitempty"`
	Mode         Mode     `yaml:"mode,omitempty" json:"mode,omitempty"`
	Window       int      `yaml:"window,omitempty" json:"window,omitempty"`
	Keywords     []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`

	// Reversed also tries every label with its runes in reverse order, which
	// is how some extractors emit visually ordered Arabic.
	Reversed bool `yaml:"reversed,omitempty" json:"reversed,omitempty"`
}

// Composite is a field assembled from other located fields, joined with a
// single space. Empty parts are skipped.
type Composite struct {
	Name  string   `yaml:"name" json:"name"`
	Parts []string `yaml:"parts" json:"parts"`
}

// Validate checks that a descriptor can be compiled.
func (d FieldDescriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("field descriptor has no name")
	}
	if len(d.Labels) == 0 {
		return fmt.Errorf("field %q has no labels", d.Name)
	}
	for _, label := range d.Labels {
		if strings.TrimSpace(label) == "" {
			return fmt.Errorf("field %q has an empty label", d.Name)
		}
	}
	switch d.Mode {
	case "", ModeSameLine, ModeNextLine:
	case ModeWindowed:
		if d.ValuePattern == "" {
			return fmt.Errorf("field %q: windowed mode needs a value pattern", d.Name)
		}
		if d.Window < 0 {
			return fmt.Errorf("field %q: window must be positive, got %d", d.Name, d.Window)
		}
	default:
		return fmt.Errorf("field %q: unknown mode %q", d.Name, d.Mode)
	}
	if d.ValuePattern != "" {
		if _, err := regexp.Compile(d.ValuePattern); err != nil {
			return fmt.Errorf("field %q: invalid value pattern: %w", d.Name, err)
		}
	}
	return nil
}

// Value patterns shared by the built-in descriptors.
const (
	AmountPattern = `(\d+(?:\.\d+)?)`
	DatePattern   = `(\d{1,4}[/\-.]\d{1,2}[/\-.]\d{1,4})`
)

// Canonical header field names.
const (
	InvoiceNumber   = "invoice_number"
	InvoiceDate     = "invoice_date"
	CustomerName    = "customer_name"
	Address         = "address"
	AddressRegistry = "address_registry"
	AddressStreet   = "address_street"
	Paid            = "paid"
	Balance         = "balance"
)

// DefaultDescriptors returns the descriptor table of the current invoice
// layout. Arabic labels come first; English ones cover bilingual prints.
func DefaultDescriptors() []FieldDescriptor {
	return []FieldDescriptor{
		{
			Name:   InvoiceNumber,
			Labels: []string{"رقم الفاتورة", "Invoice Number", "Invoice No"},
			Mode:   ModeSameLine,
		},
		{
			Name:         InvoiceDate,
			Labels:       []string{"تاريخ الفاتورة", "Invoice Date"},
			ValuePattern: DatePattern,
			Mode:         ModeSameLine,
		},
		{
			// The customer block follows the "tax invoice" heading.
			Name:   CustomerName,
			Labels: []string{"فاتورة ضريبية", "اسم العميل", "Customer Name"},
			Mode:   ModeSameLine,
		},
		{
			Name:   AddressRegistry,
			Labels: []string{"رقم السجل", "CR No"},
			Mode:   ModeSameLine,
		},
		{
			Name:   AddressStreet,
			Labels: []string{"العنوان", "Address"},
			Mode:   ModeSameLine,
		},
		{
			Name:         Paid,
			Labels:       []string{"مدفوع", "Paid"},
			ValuePattern: AmountPattern,
			Mode:         ModeWindowed,
			Window:       DefaultWindow,
		},
		{
			Name:         Balance,
			Labels:       []string{"الرصيد المستحق", "Balance Due"},
			ValuePattern: AmountPattern,
			Mode:         ModeWindowed,
			Window:       DefaultWindow,
		},
	}
}

// DefaultComposites returns the composite fields of the current layout.
func DefaultComposites() []Composite {
	return []Composite{
		{Name: Address, Parts: []string{AddressRegistry, AddressStreet}},
	}
}
