package source

import (
	"archive/zip"
	"errors"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Validator checks input files before they are loaded
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new validator with the specified size limit
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// ValidateFile performs full validation of an input file. Validation
// failures are reported in the result, not as an error.
func (v *Validator) ValidateFile(path string) *ValidationResult {
	result := &ValidationResult{
		Path: path,
		Kind: KindOf(path),
	}

	pages, err := v.validate(path)
	if err != nil {
		result.Message = err.Error()
		return result
	}

	result.Valid = true
	result.Pages = pages
	return result
}

// IsValid reports whether path passes full validation
func (v *Validator) IsValid(path string) bool {
	_, err := v.validate(path)
	return err == nil
}

func (v *Validator) validate(path string) (int, error) {
	if path == "" {
		return 0, fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return 0, fmt.Errorf("cannot access file: %w", err)
	}

	if err := v.ValidateFileInfo(path, fileInfo); err != nil {
		return 0, err
	}

	switch KindOf(path) {
	case KindPDF:
		return v.pdfPageCount(path)
	case KindArchive:
		zr, err := zip.OpenReader(path)
		if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
			return 0, fmt.Errorf("invalid archive: %w", err)
		}
		return 0, zr.Close()
	default:
		return 0, nil
	}
}

// pdfPageCount reads the PDF structure in relaxed mode, which tolerates the
// minor defects common in generated invoices.
func (v *Validator) pdfPageCount(path string) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid PDF file: %v", r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return 0, fmt.Errorf("invalid PDF file: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, fmt.Errorf("failed to ensure page count: %w", err)
	}
	if ctx.PageCount == 0 {
		return 0, fmt.Errorf("PDF has no pages: %s", path)
	}
	return ctx.PageCount, nil
}

// ValidateFileInfo performs basic validation on file info without opening the file
func (v *Validator) ValidateFileInfo(path string, fileInfo os.FileInfo) error {
	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}

	if KindOf(path) == KindUnknown {
		return fmt.Errorf("unsupported file type: %s", path)
	}

	if fileInfo.Size() == 0 {
		return fmt.Errorf("file is empty: %s", path)
	}

	if fileInfo.Size() > v.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), v.maxFileSize)
	}

	return nil
}
