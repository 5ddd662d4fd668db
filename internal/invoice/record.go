// Package invoice assembles located header fields and reconstructed line
// items into output records.
package invoice

import (
	"github.com/shopspring/decimal"

	"github.com/a3tai/invoice-extractor/internal/canon"
	"github.com/a3tai/invoice-extractor/internal/table"
)

// Columns is the fixed output schema, in export order.
var Columns = []string{
	"Invoice Number",
	"Invoice Date",
	"Customer Name",
	"Balance",
	"Paid",
	"Address",
	"Total-before-tax",
	"Tax",
	"Total-after-tax",
	"Unit Price",
	"Quantity",
	"Description",
	"SKU",
	"Source File",
}

// Record is one output row: the invoice header plus at most one line item.
// Header-only records carry a nil Item.
type Record struct {
	SourceID      string
	InvoiceNumber string
	InvoiceDate   canon.Date
	CustomerName  string
	Address       string
	Paid          decimal.NullDecimal
	Balance       decimal.NullDecimal

	Item          table.LineItem
	LineTotal     decimal.NullDecimal
	UnitPrice     decimal.NullDecimal
	Tax           decimal.NullDecimal
	TotalAfterTax decimal.NullDecimal
}

// HeaderOnly reports whether the record carries no line item.
func (r Record) HeaderOnly() bool {
	return r.Item == nil
}

// Values renders the record in Columns order. Absent values are "".
func (r Record) Values() []string {
	return []string{
		r.InvoiceNumber,
		r.InvoiceDate.String(),
		r.CustomerName,
		canon.FormatAmount(r.Balance),
		canon.FormatAmount(r.Paid),
		r.Address,
		canon.FormatAmount(r.LineTotal),
		canon.FormatAmount(r.Tax),
		canon.FormatAmount(r.TotalAfterTax),
		canon.FormatAmount(r.UnitPrice),
		r.Item.Get(table.Quantity),
		r.Item.Get(table.Description),
		r.Item.Get(table.SKU),
		r.SourceID,
	}
}

// Amounts returns the monetary values keyed by their column name.
func (r Record) Amounts() map[string]decimal.NullDecimal {
	return map[string]decimal.NullDecimal{
		"Balance":          r.Balance,
		"Paid":             r.Paid,
		"Total-before-tax": r.LineTotal,
		"Tax":              r.Tax,
		"Total-after-tax":  r.TotalAfterTax,
		"Unit Price":       r.UnitPrice,
	}
}
