// Package extract runs the per-document pipeline: normalization, field
// location and table reconstruction in parallel, then record assembly.
package extract

import (
	"fmt"
	"runtime"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/a3tai/invoice-extractor/internal/errors"
	"github.com/a3tai/invoice-extractor/internal/fields"
	"github.com/a3tai/invoice-extractor/internal/invoice"
	"github.com/a3tai/invoice-extractor/internal/normalize"
	"github.com/a3tai/invoice-extractor/internal/profile"
	"github.com/a3tai/invoice-extractor/internal/source"
	"github.com/a3tai/invoice-extractor/internal/table"
)

// Options configures an Engine.
type Options struct {
	// Profile is a profile name or profile.Auto. Empty means the standard
	// profile.
	Profile string

	// TaxRate applies to profiles without their own rate. Invalid means
	// invoice.DefaultTaxRate.
	TaxRate decimal.NullDecimal

	// Workers bounds document parallelism in ProcessBatch. Zero or less
	// means one worker per CPU.
	Workers int

	Logger *zap.Logger
}

// Pipeline is a profile compiled for processing.
type Pipeline struct {
	Profile       profile.Profile
	locator       *fields.Locator
	reconstructor *table.Reconstructor
	assembler     *invoice.Assembler
}

// NewPipeline compiles p. fallbackRate is used when p sets no tax rate.
func NewPipeline(p profile.Profile, fallbackRate decimal.Decimal) (*Pipeline, error) {
	locator, err := fields.NewLocator(p.Fields, p.Composites)
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", p.Name, err)
	}
	reconstructor, err := table.NewReconstructor(p.Table)
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", p.Name, err)
	}
	return &Pipeline{
		Profile:       p,
		locator:       locator,
		reconstructor: reconstructor,
		assembler:     invoice.NewAssembler(p.Rate(fallbackRate)),
	}, nil
}

// Result is the outcome of one document.
type Result struct {
	SourceID string               `json:"source_id"`
	Path     string               `json:"path,omitempty"`
	Profile  string               `json:"profile,omitempty"`
	Records  []invoice.Record     `json:"-"`
	Issues   *errors.Collection   `json:"issues"`
	Err      *errors.ExtractError `json:"error,omitempty"`
	Elapsed  time.Duration        `json:"elapsed"`
}

// Failed reports whether the document was excluded from the output.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Engine processes documents with a fixed profile set. It is safe for
// concurrent use.
type Engine struct {
	set       *profile.Set
	pipelines map[string]*Pipeline
	profile   string
	rate      decimal.Decimal
	workers   int
	logger    *zap.Logger
}

// NewEngine compiles every profile of set.
func NewEngine(set *profile.Set, opts Options) (*Engine, error) {
	rate := invoice.DefaultTaxRate
	if opts.TaxRate.Valid {
		rate = opts.TaxRate.Decimal
	}
	if opts.Profile == "" {
		opts.Profile = profile.Standard
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	e := &Engine{
		set:       set,
		pipelines: make(map[string]*Pipeline),
		profile:   opts.Profile,
		rate:      rate,
		workers:   opts.Workers,
		logger:    opts.Logger,
	}
	for _, p := range set.Profiles() {
		pl, err := NewPipeline(p, rate)
		if err != nil {
			return nil, err
		}
		e.pipelines[p.Name] = pl
	}

	if opts.Profile != profile.Auto {
		if _, err := set.Get(opts.Profile); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// ProfileName returns the configured profile name, possibly profile.Auto.
func (e *Engine) ProfileName() string {
	return e.profile
}

// Profiles lists the names of the available profiles.
func (e *Engine) Profiles() []string {
	return e.set.Names()
}

// TaxRate returns the run's tax rate. Profiles may override it.
func (e *Engine) TaxRate() decimal.Decimal {
	return e.rate
}

// Workers returns the batch parallelism.
func (e *Engine) Workers() int {
	return e.workers
}

// Process extracts the records of one document. It always returns at least
// one record unless the document failed.
func (e *Engine) Process(page *source.RawPage) (result Result) {
	start := time.Now()
	result = Result{
		SourceID: page.SourceID,
		Path:     page.Path,
		Issues:   errors.NewCollection(page.SourceID),
	}
	defer func() {
		if r := recover(); r != nil {
			result.Records = nil
			result.Err = panicError(page.SourceID, r)
		}
		result.Elapsed = time.Since(start)
	}()

	text := normalize.Normalize(page.Text)
	pl := e.pipeline(text)
	result.Profile = pl.Profile.Name

	var (
		header      fields.Located
		items       []table.LineItem
		fieldIssues []*errors.ExtractError
		tableIssues []*errors.ExtractError
	)

	// Field location and table reconstruction share nothing but the
	// read-only pipeline; Wait is the join point.
	var g errgroup.Group
	g.Go(recovered(func() {
		header, fieldIssues = pl.locator.LocateAll(text)
	}))
	g.Go(recovered(func() {
		items, tableIssues = pl.reconstructor.ReconstructTables(page.Tables)
	}))
	if err := g.Wait(); err != nil {
		result.Err = errors.WrapError(errors.ErrorTypeUnknown, err).WithSource(page.SourceID)
		return result
	}

	records, assembleIssues := pl.assembler.Assemble(header, items, page.SourceID)
	result.Records = records
	result.Issues.Add(fieldIssues...)
	result.Issues.Add(tableIssues...)
	result.Issues.Add(assembleIssues...)
	return result
}

func (e *Engine) pipeline(text string) *Pipeline {
	if e.profile == profile.Auto {
		return e.pipelines[e.set.Detect(text).Name]
	}
	return e.pipelines[e.profile]
}

func recovered(fn func()) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		fn()
		return nil
	}
}

func panicError(sourceID string, r any) *errors.ExtractError {
	return errors.WrapError(errors.ErrorTypeUnknown, fmt.Errorf("panic: %v", r)).WithSource(sourceID)
}
