// Package service orchestrates discovery, loading, extraction and export
// for the command line and the MCP server.
package service

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/a3tai/invoice-extractor/internal/errors"
	"github.com/a3tai/invoice-extractor/internal/export"
	"github.com/a3tai/invoice-extractor/internal/extract"
	"github.com/a3tai/invoice-extractor/internal/invoice"
	"github.com/a3tai/invoice-extractor/internal/source"
)

// Service handles invoice extraction by orchestrating the source, extract and
// export components
type Service struct {
	maxFileSize   int64
	workDir       string
	registry      *source.Registry
	validator     *source.Validator
	search        *source.Search
	engine        *extract.Engine
	exporter      *export.Exporter
	pathValidator *source.PathValidator
	logger        *zap.Logger
}

// NewService creates a new service rooted at configuredDirectory. Archives
// are expanded below workDir.
func NewService(maxFileSize int64, configuredDirectory, workDir string, engine *extract.Engine, logger *zap.Logger) (*Service, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pathValidator, err := source.NewPathValidator(configuredDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	return &Service{
		maxFileSize:   maxFileSize,
		workDir:       workDir,
		registry:      source.NewDefaultRegistry(maxFileSize),
		validator:     source.NewValidator(maxFileSize),
		search:        source.NewSearch(maxFileSize),
		engine:        engine,
		exporter:      export.NewExporter(logger),
		pathValidator: pathValidator,
		logger:        logger,
	}, nil
}

// ExtractFile extracts the invoices of one file. An archive yields the
// invoices of every file it contains.
func (s *Service) ExtractFile(ctx context.Context, req ExtractFileRequest) (*ExtractResult, error) {
	if err := s.pathValidator.ValidatePath(req.Path); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	info, err := os.Stat(req.Path)
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if err := s.validator.ValidateFileInfo(req.Path, info); err != nil {
		return nil, err
	}

	files := []source.FileInfo{{
		Path: req.Path,
		Name: info.Name(),
		Size: info.Size(),
		Kind: source.KindOf(req.Path),
	}}
	return s.run(ctx, files, req.Output)
}

// ExtractDirectory extracts the invoices of every supported file under a
// directory, the configured one when empty.
func (s *Service) ExtractDirectory(ctx context.Context, req ExtractDirectoryRequest) (*ExtractResult, error) {
	if req.Directory == "" {
		req.Directory = s.pathValidator.Directory()
	}
	if err := s.pathValidator.ValidatePath(req.Directory); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}

	files, err := s.search.FindInputs(req.Directory)
	if err != nil {
		return nil, err
	}
	s.logger.Info("inputs.found", zap.String("directory", req.Directory), zap.Int("files", len(files)))
	return s.run(ctx, files, req.Output)
}

// ValidateFile reports whether a file can be loaded
func (s *Service) ValidateFile(req ValidateFileRequest) (*source.ValidationResult, error) {
	if err := s.pathValidator.ValidatePath(req.Path); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	return s.validator.ValidateFile(req.Path), nil
}

// ValidateOutputPath checks that an output file would be written inside the
// configured directory.
func (s *Service) ValidateOutputPath(path string) error {
	if err := s.pathValidator.ValidatePath(path); err != nil {
		return fmt.Errorf("security validation failed: %w", err)
	}
	return nil
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}

// Directory returns the configured input directory
func (s *Service) Directory() string {
	return s.pathValidator.Directory()
}

// run expands archives, processes every file and writes the workbook when
// output is set.
func (s *Service) run(ctx context.Context, files []source.FileInfo, output string) (*ExtractResult, error) {
	expansionDir := filepath.Join(s.workDir, uuid.NewString())
	defer os.RemoveAll(expansionDir)

	expanded, failed := s.search.ExpandInputs(files, expansionDir)
	paths := make([]string, 0, len(expanded))
	for _, f := range expanded {
		paths = append(paths, f.Path)
	}

	batch := s.engine.ProcessBatch(ctx, s.registry, paths)
	for _, path := range slices.Sorted(maps.Keys(failed)) {
		err := failed[path]
		sourceID := filepath.Base(path)
		batch.Results = append(batch.Results, extract.Result{
			SourceID: sourceID,
			Path:     path,
			Issues:   errors.NewCollection(sourceID),
			Err:      errors.SourceReadFailure(sourceID, err),
		})
	}

	result := summarize(batch)
	if output != "" {
		meta := export.Meta{
			RunID:    batch.RunID,
			Profile:  batch.Profile,
			TaxRate:  s.engine.TaxRate().String(),
			Started:  batch.Started,
			Finished: time.Now(),
		}
		if err := s.exporter.SaveXLSX(output, batch.Records(), batch.Issues(), meta); err != nil {
			return nil, err
		}
		result.Output = output
	}
	return result, nil
}

func summarize(batch *extract.Batch) *ExtractResult {
	result := &ExtractResult{
		RunID:   batch.RunID,
		Profile: batch.Profile,
		Summary: batch.Summary(),
		Columns: invoice.Columns,
		Issues:  batch.Issues(),
	}
	for _, r := range batch.Results {
		doc := DocumentSummary{
			SourceID: r.SourceID,
			Path:     r.Path,
			Profile:  r.Profile,
			Records:  len(r.Records),
		}
		if r.Issues != nil {
			_, doc.Warnings = r.Issues.Count()
		}
		if r.Failed() {
			doc.Error = r.Err.Error()
		}
		result.Documents = append(result.Documents, doc)
	}
	for _, rec := range batch.Records() {
		result.Rows = append(result.Rows, rec.Values())
	}
	return result
}
