package profile

import (
	"github.com/a3tai/invoice-extractor/internal/fields"
	"github.com/a3tai/invoice-extractor/internal/table"
)

// Built-in profile names.
const (
	Standard = "standard"
	Strict   = "strict"
	Legacy   = "legacy"
)

// builtinProfiles returns the layouts shipped with the binary, most recent
// first.
func builtinProfiles() []Profile {
	standard := Profile{
		Name:        Standard,
		Description: "Current bilingual layout: any numeric cell marks a data row",
		Fields:      fields.DefaultDescriptors(),
		Composites:  fields.DefaultComposites(),
		Table:       table.DefaultProfile(),
	}

	strictTable := table.DefaultProfile()
	strictTable.NumericThreshold = 2
	strictTable.Widths = []int{5, 6}
	strict := Profile{
		Name:        Strict,
		Description: "Layout whose descriptions contain stray numbers: two numeric cells mark a data row",
		Fields:      fields.DefaultDescriptors(),
		Composites:  fields.DefaultComposites(),
		Table:       strictTable,
	}

	legacyTable := table.DefaultProfile()
	legacyTable.NumericScope = table.ScopeFirstCell
	legacyTable.Widths = []int{6}
	legacyTable.ShiftRules = nil
	legacyTable.MergeOrder = table.MergePrepend
	legacyFields := legacyDescriptors()
	legacy := Profile{
		Name:        Legacy,
		Description: "Arabic-only layout with visually ordered labels and six-column tables",
		Markers:     reversedLabels(legacyFields),
		Fields:      legacyFields,
		Composites:  fields.DefaultComposites(),
		Table:       legacyTable,
	}

	return []Profile{standard, strict, legacy}
}

// legacyDescriptors are same-line lookups of the Arabic labels only.
func legacyDescriptors() []fields.FieldDescriptor {
	labels := map[string][]string{
		fields.InvoiceNumber:   {"رقم الفاتورة"},
		fields.InvoiceDate:     {"تاريخ الفاتورة"},
		fields.CustomerName:    {"فاتورة ضريبية"},
		fields.AddressRegistry: {"رقم السجل"},
		fields.AddressStreet:   {"العنوان"},
		fields.Paid:            {"مدفوع"},
		fields.Balance:         {"الرصيد المستحق"},
	}

	descs := fields.DefaultDescriptors()
	for i := range descs {
		descs[i].Labels = labels[descs[i].Name]
		descs[i].Mode = fields.ModeSameLine
		descs[i].Window = 0
		descs[i].Reversed = true
	}
	return descs
}

// reversedLabels lists the labels as a visual-order extractor emits them.
func reversedLabels(descs []fields.FieldDescriptor) []string {
	var out []string
	for _, d := range descs {
		for _, label := range d.Labels {
			out = append(out, fields.Reverse(label))
		}
	}
	return out
}
