package errors

import (
	stderrors "errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_SeverityAndRecovery(t *testing.T) {
	tests := []struct {
		errType     ErrorType
		name        string
		severity    ErrorSeverity
		recoverable bool
	}{
		{ErrorTypeSourceRead, "SOURCE_READ_FAILURE", SeverityError, false},
		{ErrorTypeFieldNotFound, "FIELD_NOT_FOUND", SeverityInfo, true},
		{ErrorTypeTableShape, "TABLE_SHAPE_UNRECOGNIZED", SeverityWarning, true},
		{ErrorTypeValueParse, "VALUE_PARSE_FAILURE", SeverityWarning, true},
		{ErrorTypeUnknown, "UNKNOWN", SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.errType.String())
			assert.Equal(t, tt.severity, tt.errType.GetSeverity())
			assert.Equal(t, tt.recoverable, tt.errType.IsRecoverable())
		})
	}
}

func TestExtractError_MessageAndUnwrap(t *testing.T) {
	err := SourceReadFailure("bill_1.pdf", io.ErrUnexpectedEOF)

	assert.Contains(t, err.Error(), "SOURCE_READ_FAILURE")
	assert.Contains(t, err.Error(), "bill_1.pdf")
	assert.True(t, stderrors.Is(err, io.ErrUnexpectedEOF))
	assert.False(t, err.Recoverable)

	var target *ExtractError
	require.True(t, stderrors.As(error(err), &target))
	assert.Equal(t, ErrorTypeSourceRead, target.Type)
}

func TestExtractError_Builders(t *testing.T) {
	err := NewExtractError(ErrorTypeTableShape, "row dropped").
		WithSource("a.pdf").
		WithRow(1, 4).
		WithContext("9 cells")

	assert.Equal(t, "a.pdf", err.SourceID)
	assert.Equal(t, 1, err.Table)
	assert.Equal(t, 4, err.Row)
	assert.Equal(t, "[TABLE_SHAPE_UNRECOGNIZED] a.pdf: row dropped: 9 cells", err.Error())
}

func TestCollection_AddAndMerge(t *testing.T) {
	c := NewCollection("doc.pdf")
	c.Add(
		NewExtractError(ErrorTypeFieldNotFound, "paid not found").WithField("paid"),
		NewExtractError(ErrorTypeValueParse, "bad amount"),
		nil,
	)

	other := NewCollection("")
	other.Add(NewExtractError(ErrorTypeTableShape, "row dropped"))
	c.Merge(other)

	errs, warnings := c.Count()
	assert.Equal(t, 0, errs)
	assert.Equal(t, 2, warnings)
	assert.Len(t, c.Infos, 1)
	assert.False(t, c.HasErrors())
	assert.Equal(t, "Found 0 error(s) and 2 warning(s)", c.Summary())

	for _, w := range c.Warnings {
		assert.Equal(t, "doc.pdf", w.SourceID)
	}
}

func TestCollection_EmptySummary(t *testing.T) {
	assert.Equal(t, "No errors or warnings", NewCollection("x").Summary())
}
