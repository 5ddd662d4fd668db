// Package export writes extraction results to an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/a3tai/invoice-extractor/internal/errors"
	"github.com/a3tai/invoice-extractor/internal/invoice"
)

// Sheet names.
const (
	InvoicesSheet = "Invoices"
	IssuesSheet   = "Issues"
	RunSheet      = "Run"
)

// IssueColumns is the header of the Issues sheet.
var IssueColumns = []string{"Source File", "Type", "Severity", "Field", "Table", "Row", "Message"}

// Meta describes the run that produced a workbook.
type Meta struct {
	RunID    string
	Profile  string
	TaxRate  string
	Started  time.Time
	Finished time.Time
}

// Exporter writes workbooks and logs each export.
type Exporter struct {
	logger *zap.Logger
}

// NewExporter creates a new Exporter. A nil logger disables logging.
func NewExporter(logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{logger: logger}
}

// WriteXLSX writes the workbook for records and issues to w.
func (x *Exporter) WriteXLSX(w io.Writer, records []invoice.Record, issues []*errors.ExtractError, meta Meta) error {
	start := time.Now()
	f, err := Workbook(records, issues, meta)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	x.logger.Info("export.xlsx.ok",
		zap.String("run_id", meta.RunID),
		zap.Int("rows", len(records)),
		zap.Int("issues", len(issues)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// SaveXLSX writes the workbook to path.
func (x *Exporter) SaveXLSX(path string, records []invoice.Record, issues []*errors.ExtractError, meta Meta) error {
	start := time.Now()
	f, err := Workbook(records, issues, meta)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx save %s: %w", path, err)
	}
	x.logger.Info("export.xlsx.ok",
		zap.String("run_id", meta.RunID),
		zap.String("path", path),
		zap.Int("rows", len(records)),
		zap.Int("issues", len(issues)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Workbook builds the three-sheet workbook. Callers must Close it.
func Workbook(records []invoice.Record, issues []*errors.ExtractError, meta Meta) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", InvoicesSheet); err != nil {
		f.Close()
		return nil, err
	}
	for _, sheet := range []string{IssuesSheet, RunSheet} {
		if _, err := f.NewSheet(sheet); err != nil {
			f.Close()
			return nil, err
		}
	}

	steps := []func(*excelize.File) error{
		func(f *excelize.File) error { return writeInvoices(f, records) },
		func(f *excelize.File) error { return writeIssues(f, issues) },
		func(f *excelize.File) error { return writeRun(f, meta, len(records), len(issues)) },
	}
	for _, step := range steps {
		if err := step(f); err != nil {
			f.Close()
			return nil, err
		}
	}

	index, _ := f.GetSheetIndex(InvoicesSheet)
	f.SetActiveSheet(index)
	return f, nil
}

func writeInvoices(f *excelize.File, records []invoice.Record) error {
	if err := writeHeader(f, InvoicesSheet, invoice.Columns); err != nil {
		return err
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return err
	}

	amountColumns := make(map[int]string)
	for i, name := range invoice.Columns {
		if _, ok := (invoice.Record{}).Amounts()[name]; ok {
			amountColumns[i] = name
		}
	}

	for r, rec := range records {
		row := r + 2
		values := rec.Values()
		amounts := rec.Amounts()
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if name, ok := amountColumns[i]; ok {
				d := amounts[name]
				if !d.Valid {
					continue
				}
				if err := f.SetCellFloat(InvoicesSheet, cell, d.Decimal.InexactFloat64(), 2, 64); err != nil {
					return err
				}
				if err := f.SetCellStyle(InvoicesSheet, cell, cell, amountStyle); err != nil {
					return err
				}
				continue
			}
			if err := f.SetCellStr(InvoicesSheet, cell, v); err != nil {
				return err
			}
		}
	}

	_ = f.SetColWidth(InvoicesSheet, "A", "B", 16)
	_ = f.SetColWidth(InvoicesSheet, "C", "C", 28)
	_ = f.SetColWidth(InvoicesSheet, "D", "E", 14)
	_ = f.SetColWidth(InvoicesSheet, "F", "F", 32)
	_ = f.SetColWidth(InvoicesSheet, "G", "K", 14)
	_ = f.SetColWidth(InvoicesSheet, "L", "L", 40)
	_ = f.SetColWidth(InvoicesSheet, "M", "N", 20)
	return f.SetPanes(InvoicesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeIssues(f *excelize.File, issues []*errors.ExtractError) error {
	if err := writeHeader(f, IssuesSheet, IssueColumns); err != nil {
		return err
	}
	for r, issue := range issues {
		row := r + 2
		values := []any{
			issue.SourceID,
			issue.Type.String(),
			severityName(issue.GetSeverity()),
			issue.Field,
			optionalInt(issue.Table),
			optionalInt(issue.Row),
			issueMessage(issue),
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := f.SetCellValue(IssuesSheet, cell, v); err != nil {
				return err
			}
		}
	}
	_ = f.SetColWidth(IssuesSheet, "A", "A", 24)
	_ = f.SetColWidth(IssuesSheet, "B", "B", 26)
	_ = f.SetColWidth(IssuesSheet, "C", "F", 10)
	_ = f.SetColWidth(IssuesSheet, "G", "G", 80)
	return nil
}

func writeRun(f *excelize.File, meta Meta, records, issues int) error {
	rows := [][2]any{
		{"Run ID", meta.RunID},
		{"Profile", meta.Profile},
		{"Tax Rate", meta.TaxRate},
		{"Started", formatTime(meta.Started)},
		{"Finished", formatTime(meta.Finished)},
		{"Records", records},
		{"Issues", issues},
	}
	for r, kv := range rows {
		for c, v := range kv {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue(RunSheet, cell, v); err != nil {
				return err
			}
		}
	}
	_ = f.SetColWidth(RunSheet, "A", "A", 12)
	_ = f.SetColWidth(RunSheet, "B", "B", 40)
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellStr(sheet, cell, h); err != nil {
			return err
		}
	}
	return nil
}

func severityName(s errors.ErrorSeverity) string {
	switch s {
	case errors.SeverityInfo:
		return "info"
	case errors.SeverityWarning:
		return "warning"
	default:
		return "error"
	}
}

func issueMessage(e *errors.ExtractError) string {
	msg := e.Message
	if e.Context != "" {
		msg += ": " + e.Context
	}
	if e.Cause != nil && e.Cause.Error() != e.Message {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// optionalInt leaves unset 1-based indexes blank.
func optionalInt(n int) any {
	if n == 0 {
		return ""
	}
	return n
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
