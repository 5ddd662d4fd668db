package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/a3tai/invoice-extractor/internal/errors"
	"github.com/a3tai/invoice-extractor/internal/invoice"
	"github.com/a3tai/invoice-extractor/internal/source"
)

// Loader reads one input file. *source.Registry satisfies it.
type Loader interface {
	Load(ctx context.Context, path string) (*source.RawPage, error)
}

// Batch is the outcome of one run over many documents. Results keep the
// order of the input paths regardless of completion order.
type Batch struct {
	RunID    string    `json:"run_id"`
	Profile  string    `json:"profile"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Results  []Result  `json:"results"`
}

// Summary counts a batch.
type Summary struct {
	Documents int `json:"documents"`
	Failed    int `json:"failed"`
	Records   int `json:"records"`
	Warnings  int `json:"warnings"`
}

// ProcessBatch loads and processes every path with at most Workers documents
// in flight. A failing or panicking document never affects the others.
func (e *Engine) ProcessBatch(ctx context.Context, loader Loader, paths []string) *Batch {
	b := &Batch{
		RunID:   uuid.NewString(),
		Profile: e.profile,
		Started: time.Now(),
		Results: make([]Result, len(paths)),
	}
	logger := e.logger.With(zap.String("run_id", b.RunID))
	logger.Info("batch.start", zap.Int("documents", len(paths)), zap.Int("workers", e.workers))

	// A plain group: one document's failure must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, path := range paths {
		g.Go(func() error {
			b.Results[i] = e.processPath(ctx, loader, path, logger)
			return nil
		})
	}
	_ = g.Wait()

	b.Finished = time.Now()
	s := b.Summary()
	logger.Info("batch.done",
		zap.Int("documents", s.Documents),
		zap.Int("failed", s.Failed),
		zap.Int("records", s.Records),
		zap.Int("warnings", s.Warnings),
		zap.Duration("elapsed", b.Finished.Sub(b.Started)),
	)
	return b
}

func (e *Engine) processPath(ctx context.Context, loader Loader, path string, logger *zap.Logger) Result {
	start := time.Now()
	sourceID := filepath.Base(path)

	page, err := load(ctx, loader, path)
	if err != nil {
		logger.Warn("document.failed", zap.String("source", sourceID), zap.Error(err))
		return Result{
			SourceID: sourceID,
			Path:     path,
			Issues:   errors.NewCollection(sourceID),
			Err:      errors.SourceReadFailure(sourceID, err),
			Elapsed:  time.Since(start),
		}
	}
	if page.Path == "" {
		page.Path = path
	}

	res := e.Process(page)
	res.Elapsed = time.Since(start)
	if res.Failed() {
		logger.Warn("document.failed", zap.String("source", res.SourceID), zap.Error(res.Err))
		return res
	}
	_, warnings := res.Issues.Count()
	logger.Info("document.ok",
		zap.String("source", res.SourceID),
		zap.String("profile", res.Profile),
		zap.Int("records", len(res.Records)),
		zap.Int("warnings", warnings),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res
}

func load(ctx context.Context, loader Loader, path string) (page *source.RawPage, err error) {
	defer func() {
		if r := recover(); r != nil {
			page, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	page, err = loader.Load(ctx, path)
	if err == nil && page == nil {
		err = fmt.Errorf("loader returned no content")
	}
	return page, err
}

// Records returns every record of the successful documents, in input order.
func (b *Batch) Records() []invoice.Record {
	var out []invoice.Record
	for _, r := range b.Results {
		if !r.Failed() {
			out = append(out, r.Records...)
		}
	}
	return out
}

// Failures returns the failure of every excluded document.
func (b *Batch) Failures() []*errors.ExtractError {
	var out []*errors.ExtractError
	for _, r := range b.Results {
		if r.Failed() {
			out = append(out, r.Err)
		}
	}
	return out
}

// Issues returns failures followed by the warnings and infos of every
// document, in input order.
func (b *Batch) Issues() []*errors.ExtractError {
	out := b.Failures()
	for _, r := range b.Results {
		if r.Issues == nil {
			continue
		}
		out = append(out, r.Issues.Errors...)
		out = append(out, r.Issues.Warnings...)
		out = append(out, r.Issues.Infos...)
	}
	return out
}

// Summary counts documents, failures, records and warnings.
func (b *Batch) Summary() Summary {
	s := Summary{Documents: len(b.Results)}
	for _, r := range b.Results {
		if r.Failed() {
			s.Failed++
			continue
		}
		s.Records += len(r.Records)
		if r.Issues != nil {
			_, w := r.Issues.Count()
			s.Warnings += w
		}
	}
	return s
}
