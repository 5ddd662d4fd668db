package errors

import (
	"fmt"
	"strings"
	"time"
)

// ExtractError is an issue raised while extracting invoices from one document.
// Only ErrorTypeSourceRead excludes a document from the output; every other
// type is reported alongside the records it concerns.
type ExtractError struct {
	Type        ErrorType `json:"type"`
	Message     string    `json:"message"`
	Context     string    `json:"context,omitempty"`
	SourceID    string    `json:"source_id,omitempty"`
	Field       string    `json:"field,omitempty"`
	Table       int       `json:"table,omitempty"`
	Row         int       `json:"row,omitempty"`
	Recoverable bool      `json:"recoverable"`
	Timestamp   time.Time `json:"timestamp"`
	Cause       error     `json:"-"`
}

// ErrorType represents the categories of extraction issues
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeSourceRead
	ErrorTypeFieldNotFound
	ErrorTypeTableShape
	ErrorTypeValueParse
)

// ErrorSeverity indicates how critical an issue is
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
)

// Error implements the error interface
func (e *ExtractError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", e.Type.String())
	if e.SourceID != "" {
		fmt.Fprintf(&b, " %s:", e.SourceID)
	}
	b.WriteString(" ")
	b.WriteString(e.Message)
	if e.Context != "" {
		b.WriteString(": ")
		b.WriteString(e.Context)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap exposes the underlying cause to errors.Is / errors.As
func (e *ExtractError) Unwrap() error {
	return e.Cause
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeSourceRead:
		return "SOURCE_READ_FAILURE"
	case ErrorTypeFieldNotFound:
		return "FIELD_NOT_FOUND"
	case ErrorTypeTableShape:
		return "TABLE_SHAPE_UNRECOGNIZED"
	case ErrorTypeValueParse:
		return "VALUE_PARSE_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// GetSeverity returns the severity level for a given error type
func (et ErrorType) GetSeverity() ErrorSeverity {
	switch et {
	case ErrorTypeFieldNotFound:
		return SeverityInfo
	case ErrorTypeTableShape, ErrorTypeValueParse:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// IsRecoverable reports whether processing of the document continues after
// an issue of this type.
func (et ErrorType) IsRecoverable() bool {
	switch et {
	case ErrorTypeFieldNotFound, ErrorTypeTableShape, ErrorTypeValueParse:
		return true
	default:
		return false
	}
}

// NewExtractError creates a new ExtractError
func NewExtractError(errorType ErrorType, message string) *ExtractError {
	return &ExtractError{
		Type:        errorType,
		Message:     message,
		Recoverable: errorType.IsRecoverable(),
		Timestamp:   time.Now(),
	}
}

// NewExtractErrorWithContext creates a new ExtractError with additional context
func NewExtractErrorWithContext(errorType ErrorType, message, context string) *ExtractError {
	e := NewExtractError(errorType, message)
	e.Context = context
	return e
}

// WrapError wraps a standard error as an ExtractError
func WrapError(errorType ErrorType, err error) *ExtractError {
	e := NewExtractError(errorType, err.Error())
	e.Cause = err
	return e
}

// SourceReadFailure reports that the upstream collaborator produced no
// usable output for a document.
func SourceReadFailure(sourceID string, err error) *ExtractError {
	e := NewExtractError(ErrorTypeSourceRead, "document could not be read")
	e.SourceID = sourceID
	e.Cause = err
	return e
}

// WithContext adds context to an existing ExtractError
func (e *ExtractError) WithContext(context string) *ExtractError {
	e.Context = context
	return e
}

// WithSource adds the source identifier to an existing ExtractError
func (e *ExtractError) WithSource(sourceID string) *ExtractError {
	e.SourceID = sourceID
	return e
}

// WithField adds the header field name to an existing ExtractError
func (e *ExtractError) WithField(field string) *ExtractError {
	e.Field = field
	return e
}

// WithRow adds table/row location to an existing ExtractError. Both indexes
// are 1-based so that zero means "not set".
func (e *ExtractError) WithRow(table, row int) *ExtractError {
	e.Table = table
	e.Row = row
	return e
}

// GetSeverity returns the severity of this specific error
func (e *ExtractError) GetSeverity() ErrorSeverity {
	return e.Type.GetSeverity()
}

// Collection gathers the issues of one document. It is not safe for
// concurrent use; concurrent stages keep their own and Merge at the join.
type Collection struct {
	Errors   []*ExtractError `json:"errors"`
	Warnings []*ExtractError `json:"warnings"`
	Infos    []*ExtractError `json:"infos"`
	SourceID string          `json:"source_id,omitempty"`
}

// NewCollection creates a new issue collection for one document
func NewCollection(sourceID string) *Collection {
	return &Collection{
		Errors:   make([]*ExtractError, 0),
		Warnings: make([]*ExtractError, 0),
		Infos:    make([]*ExtractError, 0),
		SourceID: sourceID,
	}
}

// Add files an issue by severity, stamping the collection's source id
func (c *Collection) Add(errs ...*ExtractError) {
	for _, err := range errs {
		if err == nil {
			continue
		}
		if err.SourceID == "" && c.SourceID != "" {
			err.SourceID = c.SourceID
		}
		switch err.GetSeverity() {
		case SeverityInfo:
			c.Infos = append(c.Infos, err)
		case SeverityWarning:
			c.Warnings = append(c.Warnings, err)
		default:
			c.Errors = append(c.Errors, err)
		}
	}
}

// Merge adds every issue of other to c
func (c *Collection) Merge(other *Collection) {
	if other == nil {
		return
	}
	c.Add(other.Errors...)
	c.Add(other.Warnings...)
	c.Add(other.Infos...)
}

// HasErrors returns true if any non-recoverable issue was collected
func (c *Collection) HasErrors() bool {
	return len(c.Errors) > 0
}

// Count returns the number of errors and warnings
func (c *Collection) Count() (errors, warnings int) {
	return len(c.Errors), len(c.Warnings)
}

// Summary returns a text summary of all errors and warnings
func (c *Collection) Summary() string {
	errorCount, warningCount := c.Count()
	if errorCount == 0 && warningCount == 0 {
		return "No errors or warnings"
	}
	return fmt.Sprintf("Found %d error(s) and %d warning(s)", errorCount, warningCount)
}
