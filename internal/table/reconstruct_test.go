package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/invoice-extractor/internal/errors"
)

func newReconstructor(t *testing.T, p Profile) *Reconstructor {
	t.Helper()
	r, err := NewReconstructor(p)
	require.NoError(t, err)
	return r
}

func TestReconstruct_MergeContinuation(t *testing.T) {
	r := newReconstructor(t, DefaultProfile())

	items, issues := r.Reconstruct([]Row{
		{"", "", "", "", "desc-continued", ""},
		{"10", "5", "2.5", "3", "desc-start", "SKU1"},
	})

	require.Empty(t, issues)
	require.Len(t, items, 1)
	assert.Equal(t, LineItem{
		LineTotal:         "10",
		SecondaryQuantity: "5",
		UnitPrice:         "2.5",
		Quantity:          "3",
		Description:       "desc-start desc-continued",
		SKU:               "SKU1",
	}, items[0])
}

func TestReconstruct_MergePrepend(t *testing.T) {
	p := DefaultProfile()
	p.MergeOrder = MergePrepend
	r := newReconstructor(t, p)

	items, _ := r.Reconstruct([]Row{
		{"", "", "", "", "first part", ""},
		{"10", "5", "2.5", "3", "second part", "SKU1"},
	})

	require.Len(t, items, 1)
	assert.Equal(t, "first part second part", items[0].Get(Description))
}

func TestReconstruct_MergeFragmentFromOtherCells(t *testing.T) {
	r := newReconstructor(t, DefaultProfile())

	items, _ := r.Reconstruct([]Row{
		{"wrapped", "text"},
		{"10", "5", "2.5", "3", "", "SKU1"},
	})

	require.Len(t, items, 1)
	assert.Equal(t, "wrapped text", items[0].Get(Description))
}

func TestReconstruct_MergeIntoShortRow(t *testing.T) {
	r := newReconstructor(t, DefaultProfile())

	items, issues := r.Reconstruct([]Row{
		{"box of 12"},
		{"10", "5", "2.5", "3"},
	})

	require.Empty(t, issues)
	require.Len(t, items, 1)
	assert.Equal(t, LineItem{
		LineTotal:         "10",
		SecondaryQuantity: "5",
		UnitPrice:         "2.5",
		Quantity:          "3",
		Description:       "box of 12",
	}, items[0])
}

func TestReconstruct_CaptionsInDataRow(t *testing.T) {
	r := newReconstructor(t, DefaultProfile())

	items, issues := r.Reconstruct([]Row{
		{"Total", "Qty", "Unit Price", "Qty", "Description", "SKU"},
		{"10", "1", "10", "1", "Item", "Total"},
	})

	require.Empty(t, issues)
	require.Len(t, items, 1)
	assert.Equal(t, "Item", items[0].Get(Description))
	assert.Equal(t, "Total", items[0].Get(SKU))
}

func TestReconstruct_ColumnShiftRepair(t *testing.T) {
	r := newReconstructor(t, DefaultProfile())

	items, issues := r.Reconstruct([]Row{
		{"100", "", "5", "", "3", "desc", "SKU1"},
	})

	require.Empty(t, issues)
	require.Len(t, items, 1)
	assert.Len(t, items[0], 6)
	assert.Equal(t, LineItem{
		LineTotal:         "100",
		SecondaryQuantity: "",
		UnitPrice:         "5",
		Quantity:          "3",
		Description:       "desc",
		SKU:               "SKU1",
	}, items[0])
}

func TestReconstruct_SevenCellsWithoutShiftKeepOverflow(t *testing.T) {
	r := newReconstructor(t, DefaultProfile())

	items, _ := r.Reconstruct([]Row{
		{"100", "1", "5", "20", "3", "desc", "SKU1"},
	})

	require.Len(t, items, 1)
	assert.Len(t, items[0], 7)
	assert.Equal(t, "SKU1", items[0].Get(Overflow))
}

func TestReconstruct_RowDropIsolation(t *testing.T) {
	r := newReconstructor(t, DefaultProfile())

	items, issues := r.Reconstruct([]Row{
		{"10", "1", "10", "1", "pen", "P1"},
		{"1", "2", "3", "4", "5", "6", "7", "8", "9"},
		{"20", "2", "10", "2", "book"},
	})

	assert.Len(t, items, 2)
	require.Len(t, issues, 1)
	assert.Equal(t, errors.ErrorTypeTableShape, issues[0].Type)
	assert.Equal(t, 1, issues[0].Table)
	assert.Equal(t, 2, issues[0].Row)
	assert.Equal(t, "pen", items[0].Get(Description))
	assert.Equal(t, "book", items[1].Get(Description))
}

func TestReconstruct_BufferSurvivesDroppedRow(t *testing.T) {
	r := newReconstructor(t, DefaultProfile())

	items, issues := r.Reconstruct([]Row{
		{"", "", "", "", "tail", ""},
		{"1", "2"},
		{"10", "5", "2.5", "3", "head", "SKU1"},
	})

	assert.Len(t, issues, 1)
	require.Len(t, items, 1)
	assert.Equal(t, "head tail", items[0].Get(Description))
}

func TestReconstruct_BufferHandling(t *testing.T) {
	r := newReconstructor(t, DefaultProfile())

	t.Run("latest continuation wins", func(t *testing.T) {
		items, _ := r.Reconstruct([]Row{
			{"", "", "", "", "old", ""},
			{"", "", "", "", "new", ""},
			{"10", "5", "2.5", "3", "desc", "SKU1"},
		})
		require.Len(t, items, 1)
		assert.Equal(t, "desc new", items[0].Get(Description))
	})

	t.Run("blank rows keep the buffer", func(t *testing.T) {
		items, _ := r.Reconstruct([]Row{
			{"", "", "", "", "kept", ""},
			{"", " ", "\u200f", "", "", ""},
			{"10", "5", "2.5", "3", "desc", "SKU1"},
		})
		require.Len(t, items, 1)
		assert.Equal(t, "desc kept", items[0].Get(Description))
	})

	t.Run("buffer is consumed once", func(t *testing.T) {
		items, _ := r.Reconstruct([]Row{
			{"", "", "", "", "once", ""},
			{"10", "5", "2.5", "3", "a", "SKU1"},
			{"20", "5", "2.5", "3", "b", "SKU2"},
		})
		require.Len(t, items, 2)
		assert.Equal(t, "a once", items[0].Get(Description))
		assert.Equal(t, "b", items[1].Get(Description))
	})

	t.Run("trailing continuation is discarded", func(t *testing.T) {
		items, issues := r.Reconstruct([]Row{
			{"10", "5", "2.5", "3", "a", "SKU1"},
			{"", "", "", "", "orphan", ""},
		})
		assert.Empty(t, issues)
		require.Len(t, items, 1)
		assert.Equal(t, "a", items[0].Get(Description))
	})
}

func TestReconstruct_HeaderRowsSkipped(t *testing.T) {
	r := newReconstructor(t, DefaultProfile())

	items, _ := r.Reconstruct([]Row{
		{"المجموع", "الكمية", "سعر الوحدة", "العدد", "الوصف", "البند"},
		{"10", "5", "2.5", "3", "desc", "SKU1"},
	})

	require.Len(t, items, 1)
	assert.Equal(t, "desc", items[0].Get(Description))
}

func TestReconstruct_HeadersTruncatedToRowWidth(t *testing.T) {
	r := newReconstructor(t, DefaultProfile())

	items, _ := r.Reconstruct([]Row{{"40", "2", "20", "2"}})

	require.Len(t, items, 1)
	assert.Len(t, items[0], 4)
	_, hasDescription := items[0][Description]
	assert.False(t, hasDescription)
}

func TestReconstruct_CellsNormalized(t *testing.T) {
	r := newReconstructor(t, DefaultProfile())

	items, _ := r.Reconstruct([]Row{
		{"1,153.74", "\u0663", "384\u066b58", "3", "multi\nline", "SKU1"},
	})

	require.Len(t, items, 1)
	assert.Equal(t, "1153.74", items[0].Get(LineTotal))
	assert.Equal(t, "3", items[0].Get(SecondaryQuantity))
	assert.Equal(t, "384.58", items[0].Get(UnitPrice))
	assert.Equal(t, "multi line", items[0].Get(Description))
}

func TestReconstruct_Classification(t *testing.T) {
	t.Run("threshold two", func(t *testing.T) {
		p := DefaultProfile()
		p.NumericThreshold = 2
		r := newReconstructor(t, p)

		items, _ := r.Reconstruct([]Row{
			{"10", "", "", "", "one number", ""},
			{"10", "5", "2.5", "3", "desc", "SKU1"},
		})
		require.Len(t, items, 1)
		assert.Equal(t, "desc one number", items[0].Get(Description))
	})

	t.Run("first cell scope", func(t *testing.T) {
		p := DefaultProfile()
		p.NumericScope = ScopeFirstCell
		r := newReconstructor(t, p)

		items, _ := r.Reconstruct([]Row{
			{"", "5", "2.5", "3", "not data", "SKU0"},
			{"10", "5", "2.5", "3", "desc", "SKU1"},
		})
		require.Len(t, items, 1)
		assert.Equal(t, "desc not data", items[0].Get(Description))
	})
}

func TestReconstructTables_Independent(t *testing.T) {
	r := newReconstructor(t, DefaultProfile())

	items, issues := r.ReconstructTables([][]Row{
		{
			{"10", "5", "2.5", "3", "a", "SKU1"},
			{"", "", "", "", "page break", ""},
		},
		{
			{"20", "5", "2.5", "3", "b", "SKU2"},
			{"1", "2", "3"},
		},
	})

	require.Len(t, items, 2)
	assert.Equal(t, "b", items[1].Get(Description))
	require.Len(t, issues, 1)
	assert.Equal(t, 2, issues[0].Table)
	assert.Equal(t, 2, issues[0].Row)
}

func TestReconstruct_DoesNotMutateInput(t *testing.T) {
	r := newReconstructor(t, DefaultProfile())
	rows := []Row{{"100", "", "5", "", "3", "desc", "SKU1"}}

	_, _ = r.Reconstruct(rows)

	assert.Equal(t, Row{"100", "", "5", "", "3", "desc", "SKU1"}, rows[0])
}

func TestProfile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(p *Profile)
		wantErr string
	}{
		{name: "default is valid", modify: func(p *Profile) {}},
		{name: "zero threshold", modify: func(p *Profile) { p.NumericThreshold = 0 }, wantErr: "threshold"},
		{name: "unknown scope", modify: func(p *Profile) { p.NumericScope = "some" }, wantErr: "scope"},
		{name: "width too large", modify: func(p *Profile) { p.Widths = []int{8} }, wantErr: "row width"},
		{name: "no widths", modify: func(p *Profile) { p.Widths = nil }, wantErr: "widths"},
		{name: "non adjacent shift", modify: func(p *Profile) { p.ShiftRules = []ShiftRule{{Width: 7, Filled: 2, Empty: 4}} }, wantErr: "shift rule"},
		{name: "shift outside row", modify: func(p *Profile) { p.ShiftRules = []ShiftRule{{Width: 4, Filled: 3, Empty: 4}} }, wantErr: "shift rule"},
		{name: "unknown merge column", modify: func(p *Profile) { p.MergeColumn = "notes" }, wantErr: "merge column"},
		{name: "numeric merge column", modify: func(p *Profile) { p.MergeColumn = UnitPrice }, wantErr: "holds numbers"},
		{name: "unknown merge order", modify: func(p *Profile) { p.MergeOrder = "middle" }, wantErr: "merge order"},
		{name: "duplicate column", modify: func(p *Profile) { p.Columns = []Column{SKU, SKU} }, wantErr: "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultProfile()
			tt.modify(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProfile_WithDefaults(t *testing.T) {
	p := Profile{NumericThreshold: 2, Widths: []int{5, 6}}.WithDefaults()

	assert.Equal(t, 2, p.NumericThreshold)
	assert.Equal(t, []int{5, 6}, p.Widths)
	assert.Empty(t, p.ShiftRules)
	assert.Equal(t, ScopeAllCells, p.NumericScope)
	assert.Equal(t, Description, p.MergeColumn)
	assert.Equal(t, MergeAppend, p.MergeOrder)
	assert.Equal(t, DefaultColumns, p.Columns)
	assert.NoError(t, p.Validate())
}
