package invoice

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/a3tai/invoice-extractor/internal/canon"
	"github.com/a3tai/invoice-extractor/internal/errors"
	"github.com/a3tai/invoice-extractor/internal/fields"
	"github.com/a3tai/invoice-extractor/internal/table"
)

// DefaultTaxRate is the VAT rate applied to line totals.
var DefaultTaxRate = decimal.RequireFromString("0.15")

// Assembler builds records from one document's header and line items.
type Assembler struct {
	taxRate decimal.Decimal
}

// NewAssembler returns an Assembler applying taxRate to every line total.
func NewAssembler(taxRate decimal.Decimal) *Assembler {
	return &Assembler{taxRate: taxRate}
}

// TaxRate returns the configured rate.
func (a *Assembler) TaxRate() decimal.Decimal {
	return a.taxRate
}

// Assemble emits one record per item with the header replicated, or a single
// header-only record when items is empty. It never returns zero records.
// Literals that fail to parse become null and are reported as warnings.
func (a *Assembler) Assemble(header fields.Located, items []table.LineItem, sourceID string) ([]Record, []*errors.ExtractError) {
	var issues []*errors.ExtractError

	base := Record{
		SourceID:      sourceID,
		InvoiceNumber: header.Get(fields.InvoiceNumber),
		CustomerName:  header.Get(fields.CustomerName),
		Address:       header.Get(fields.Address),
	}

	if raw := header.Get(fields.InvoiceDate); raw != "" {
		base.InvoiceDate = canon.ParseDate(raw)
		if !base.InvoiceDate.Valid {
			issues = append(issues, parseFailure(fields.InvoiceDate, raw, 0))
		}
	}
	base.Paid, issues = amount(header.Get(fields.Paid), fields.Paid, 0, issues)
	base.Balance, issues = amount(header.Get(fields.Balance), fields.Balance, 0, issues)

	if len(items) == 0 {
		return []Record{base}, issues
	}

	records := make([]Record, 0, len(items))
	for i, item := range items {
		r := base
		r.Item = item
		r.LineTotal, issues = amount(item.Get(table.LineTotal), string(table.LineTotal), i+1, issues)
		r.UnitPrice, issues = amount(item.Get(table.UnitPrice), string(table.UnitPrice), i+1, issues)
		if r.LineTotal.Valid {
			tax := r.LineTotal.Decimal.Mul(a.taxRate).Round(2)
			r.Tax = decimal.NewNullDecimal(tax)
			r.TotalAfterTax = decimal.NewNullDecimal(r.LineTotal.Decimal.Add(tax).Round(2))
		}
		records = append(records, r)
	}
	return records, issues
}

// amount parses raw and appends a warning when a non-empty literal fails.
func amount(raw, field string, item int, issues []*errors.ExtractError) (decimal.NullDecimal, []*errors.ExtractError) {
	if raw == "" {
		return decimal.NullDecimal{}, issues
	}
	v := canon.ParseAmount(raw)
	if !v.Valid {
		issues = append(issues, parseFailure(field, raw, item))
	}
	return v, issues
}

func parseFailure(field, raw string, item int) *errors.ExtractError {
	ctx := fmt.Sprintf("%q", raw)
	if item > 0 {
		ctx = fmt.Sprintf("item %d: %q", item, raw)
	}
	return errors.NewExtractErrorWithContext(errors.ErrorTypeValueParse, "value could not be parsed", ctx).
		WithField(field)
}
