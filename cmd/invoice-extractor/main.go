package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/a3tai/invoice-extractor/internal/config"
	"github.com/a3tai/invoice-extractor/internal/extract"
	"github.com/a3tai/invoice-extractor/internal/logging"
	"github.com/a3tai/invoice-extractor/internal/mcp"
	"github.com/a3tai/invoice-extractor/internal/profile"
	"github.com/a3tai/invoice-extractor/internal/service"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

func main() {
	cfg, err := config.LoadFromFlags()
	if errors.Is(err, config.ErrVersionRequested) {
		printVersion(os.Stdout)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(2)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	logger.Debug("config.loaded", zap.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("run.failed", zap.Error(err))
		stop()
		_ = logger.Sync()
		os.Exit(1)
	}
}

// run wires the engine and service and dispatches on the configured mode
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	svc, err := newService(cfg, logger)
	if err != nil {
		return err
	}

	if cfg.IsStdioMode() {
		server, err := mcp.NewServer(cfg, svc, logger)
		if err != nil {
			return fmt.Errorf("failed to create MCP server: %w", err)
		}
		return server.Run(ctx)
	}
	return runBatch(ctx, cfg, svc, logger)
}

// newService builds the extraction engine from the configured profiles and
// wraps it in the file service.
func newService(cfg *config.Config, logger *zap.Logger) (*service.Service, error) {
	profiles := profile.Builtin()
	if cfg.ProfilesFile != "" {
		if err := profiles.LoadFile(cfg.ProfilesFile); err != nil {
			return nil, fmt.Errorf("failed to load profiles: %w", err)
		}
	}

	engine, err := extract.NewEngine(profiles, extract.Options{
		Profile: cfg.Profile,
		TaxRate: decimal.NewNullDecimal(decimal.NewFromFloat(cfg.TaxRate)),
		Workers: cfg.Workers,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	return service.NewService(cfg.MaxFileSize, cfg.InputDirectory, cfg.WorkDir, engine, logger)
}

// runBatch processes the input directory once and writes the workbook
func runBatch(ctx context.Context, cfg *config.Config, svc *service.Service, logger *zap.Logger) error {
	result, err := svc.ExtractDirectory(ctx, service.ExtractDirectoryRequest{
		Directory: cfg.InputDirectory,
		Output:    cfg.Output,
	})
	if err != nil {
		return err
	}

	logger.Info("run.done",
		zap.String("run_id", result.RunID),
		zap.String("output", result.Output),
		zap.Int("documents", result.Summary.Documents),
		zap.Int("failed", result.Summary.Failed),
		zap.Int("records", result.Summary.Records),
		zap.Int("warnings", result.Summary.Warnings),
	)
	for _, doc := range result.Documents {
		if doc.Error != "" {
			logger.Warn("run.document_failed", zap.String("source", doc.SourceID), zap.String("error", doc.Error))
		}
	}
	return nil
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "Invoice Extractor\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
