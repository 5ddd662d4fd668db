package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeBatch = "batch"
	ModeStdio = "stdio"

	// Default values
	DefaultOutput      = "invoices.xlsx"
	DefaultProfile     = "standard"
	DefaultTaxRate     = 0.15
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB

	// Directory permissions
	DefaultDirPerm = 0o750

	// EnvPrefix prefixes every environment variable, e.g. INVOICE_X_DIR.
	EnvPrefix = "INVOICE_X"
)

// ErrVersionRequested is returned by LoadFromFlags when --version is given.
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the invoice extractor
type Config struct {
	// Run configuration
	Mode string // "batch" or "stdio"

	// Input and output
	InputDirectory string
	Output         string
	WorkDir        string // archive expansion target

	// Extraction configuration
	Profile      string // profile name or "auto"
	ProfilesFile string // optional YAML file with extra profiles
	TaxRate      float64
	Workers      int // 0 means one per CPU

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum input file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:           ModeBatch,
		InputDirectory: currentDir,
		Output:         DefaultOutput,
		WorkDir:        filepath.Join(os.TempDir(), "invoice-extractor"),
		Profile:        DefaultProfile,
		TaxRate:        DefaultTaxRate,
		Version:        "1.0.0",
		ServerName:     "invoice-extractor",
		LogLevel:       DefaultLogLevel,
		MaxFileSize:    DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	for _, p := range []*string{&cfg.InputDirectory, &cfg.Output, &cfg.WorkDir, &cfg.ProfilesFile} {
		if *p == "" {
			continue
		}
		if expandedPath, err := filepath.Abs(*p); err == nil {
			*p = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// keys lists every configuration key; each is a flag and an environment
// variable.
var keys = []string{
	"mode", "dir", "output", "workdir", "profile", "profiles",
	"taxrate", "workers", "loglevel", "maxfilesize",
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("dir", cfg.InputDirectory)
	viper.SetDefault("output", cfg.Output)
	viper.SetDefault("workdir", cfg.WorkDir)
	viper.SetDefault("profile", cfg.Profile)
	viper.SetDefault("profiles", cfg.ProfilesFile)
	viper.SetDefault("taxrate", cfg.TaxRate)
	viper.SetDefault("workers", cfg.Workers)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'batch' to process a directory, 'stdio' for the MCP tool server")
	pflag.String("dir", cfg.InputDirectory, "Directory containing invoice PDFs, sidecar files or zip archives")
	pflag.String("output", cfg.Output, "XLSX file written in batch mode")
	pflag.String("workdir", cfg.WorkDir, "Directory archives are expanded into")
	pflag.String("profile", cfg.Profile, "Layout profile name, or 'auto' to detect per document")
	pflag.String("profiles", cfg.ProfilesFile, "YAML file with additional layout profiles")
	pflag.Float64("taxrate", cfg.TaxRate, "Tax rate applied to line totals (profiles may override)")
	pflag.Int("workers", cfg.Workers, "Documents processed in parallel (0 = number of CPUs)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum input file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, key := range keys {
		_ = viper.BindPFlag(key, pflag.Lookup(key))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nInvoice Extractor - extracts bilingual Arabic/English invoices into a spreadsheet\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/invoices                      "+
			"# batch mode, writes invoices.xlsx\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/invoices --profile=auto       "+
			"# detect the layout per document\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=stdio --dir=/path/to/invoices         # MCP tool server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		for _, key := range keys {
			fmt.Fprintf(os.Stderr, "  %s_%s\n", EnvPrefix, strings.ToUpper(key))
		}
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return ErrVersionRequested
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.InputDirectory = viper.GetString("dir")
	cfg.Output = viper.GetString("output")
	cfg.WorkDir = viper.GetString("workdir")
	cfg.Profile = viper.GetString("profile")
	cfg.ProfilesFile = viper.GetString("profiles")
	cfg.TaxRate = viper.GetFloat64("taxrate")
	cfg.Workers = viper.GetInt("workers")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeBatch && c.Mode != ModeStdio {
		return errors.New("mode must be either 'batch' or 'stdio'")
	}

	// Validate input directory
	if c.InputDirectory == "" {
		return errors.New("input directory cannot be empty")
	}
	info, err := os.Stat(c.InputDirectory)
	switch {
	case os.IsNotExist(err) && c.IsStdioMode():
		// The server may be started before any invoice arrives
		if err := os.MkdirAll(c.InputDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create input directory %s: %w", c.InputDirectory, err)
		}
	case err != nil:
		return fmt.Errorf("cannot access input directory %s: %w", c.InputDirectory, err)
	case !info.IsDir():
		return fmt.Errorf("input path %s is not a directory", c.InputDirectory)
	}

	// Validate output
	if c.IsBatchMode() && !strings.EqualFold(filepath.Ext(c.Output), ".xlsx") {
		return fmt.Errorf("output must be an .xlsx file, got %q", c.Output)
	}
	if c.WorkDir == "" {
		return errors.New("work directory cannot be empty")
	}

	// Validate extraction settings
	if strings.TrimSpace(c.Profile) == "" {
		return errors.New("profile cannot be empty")
	}
	if c.ProfilesFile != "" {
		if _, err := os.Stat(c.ProfilesFile); err != nil {
			return fmt.Errorf("cannot access profiles file %s: %w", c.ProfilesFile, err)
		}
	}
	if c.TaxRate < 0 || c.TaxRate >= 1 {
		return fmt.Errorf("tax rate must be in [0, 1), got %v", c.TaxRate)
	}
	if c.Workers < 0 {
		return errors.New("workers cannot be negative")
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, InputDirectory: %s, Output: %s, Profile: %s, TaxRate: %v, Workers: %d, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.InputDirectory, c.Output, c.Profile, c.TaxRate, c.Workers, c.LogLevel, c.MaxFileSize)
}

// IsBatchMode returns true if the extractor runs once over a directory
func (c *Config) IsBatchMode() bool {
	return c.Mode == ModeBatch
}

// IsStdioMode returns true if the extractor runs as an MCP stdio server
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
