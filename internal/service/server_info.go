package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/a3tai/invoice-extractor/internal/descriptions"
	"github.com/a3tai/invoice-extractor/internal/source"
)

// maxListedFiles caps the directory listing of the server info
const maxListedFiles = 100

// DirectoryCache provides TTL-based caching for directory contents
type DirectoryCache struct {
	entries map[string]*CacheEntry
	ttl     time.Duration
	mu      sync.RWMutex
}

// CacheEntry represents a cached directory scan result
type CacheEntry struct {
	files      []source.FileInfo
	lastUpdate time.Time
}

// NewDirectoryCache creates a new directory cache with specified TTL
func NewDirectoryCache(ttl time.Duration) *DirectoryCache {
	return &DirectoryCache{
		entries: make(map[string]*CacheEntry),
		ttl:     ttl,
	}
}

// Get returns the cached files of path, or nil when absent or expired
func (c *DirectoryCache) Get(path string) []source.FileInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[path]
	if !ok || time.Since(entry.lastUpdate) > c.ttl {
		return nil
	}
	return entry.files
}

// Set stores the files of path
func (c *DirectoryCache) Set(path string, files []source.FileInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[path] = &CacheEntry{files: files, lastUpdate: time.Now()}
}

// Clear drops every entry
func (c *DirectoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*CacheEntry)
}

// ServerInfo gathers configuration, capabilities and directory contents
type ServerInfo struct {
	service *Service
	cache   *DirectoryCache
}

// NewServerInfo creates a new server info provider with a five minute cache
func NewServerInfo(service *Service) *ServerInfo {
	return &ServerInfo{
		service: service,
		cache:   NewDirectoryCache(5 * time.Minute),
	}
}

// GetServerInfo returns the server information
func (p *ServerInfo) GetServerInfo(serverName, version string) (*ServerInfoResult, error) {
	dir := p.service.Directory()

	files := p.cache.Get(dir)
	if files == nil {
		found, err := p.service.search.FindInputs(dir)
		if err != nil || found == nil {
			found = []source.FileInfo{}
		}
		if len(found) > maxListedFiles {
			found = found[:maxListedFiles]
		}
		p.cache.Set(dir, found)
		files = found
	}

	engine := p.service.engine
	return &ServerInfoResult{
		ServerName:        serverName,
		Version:           version,
		DefaultDirectory:  dir,
		MaxFileSize:       p.service.maxFileSize,
		Profile:           engine.ProfileName(),
		Profiles:          engine.Profiles(),
		TaxRate:           engine.TaxRate().String(),
		Loaders:           p.service.registry.Names(),
		AvailableTools:    p.getAvailableTools(),
		DirectoryContents: files,
		UsageGuidance:     p.getUsageGuidance(),
	}, nil
}

// getAvailableTools returns the list of available tools
func (p *ServerInfo) getAvailableTools() []ToolInfo {
	return []ToolInfo{
		{
			Name:        descriptions.ExtractFileTool,
			Description: descriptions.GetToolDescription(descriptions.ExtractFileTool),
			Usage:       "Use this tool to turn one invoice, sidecar table file or zip archive into records.",
			Parameters: "path (required): Full path to the input file, " +
				"output (optional): .xlsx file to write inside the configured directory",
		},
		{
			Name:        descriptions.ExtractDirectoryTool,
			Description: descriptions.GetToolDescription(descriptions.ExtractDirectoryTool),
			Usage:       "Use this tool to extract every supported file of a directory in one run.",
			Parameters: "directory (optional): Directory to process (uses the configured directory if empty), " +
				"output (optional): .xlsx file to write inside the configured directory",
		},
		{
			Name:        descriptions.ValidateFileTool,
			Description: descriptions.GetToolDescription(descriptions.ValidateFileTool),
			Usage:       "Use this tool to check that a file can be loaded before extracting it.",
			Parameters:  "path (required): Full path to the input file",
		},
		{
			Name:        descriptions.ServerInfoTool,
			Description: descriptions.GetToolDescription(descriptions.ServerInfoTool),
			Usage:       "Use this tool to get server configuration and available invoices.",
			Parameters:  "No parameters required",
		},
	}
}

// getUsageGuidance returns usage guidance
func (p *ServerInfo) getUsageGuidance() string {
	maxFileSizeMB := p.service.maxFileSize / (1024 * 1024)

	return fmt.Sprintf(`Invoice Extractor Usage Guide:

1. DISCOVER:
   - Use 'invoice_server_info' to list invoices in the configured directory

2. VALIDATE:
   - Use 'invoice_validate_file' to check a file before extracting it

3. EXTRACT:
   - Use 'invoice_extract_file' for one invoice or archive
   - Use 'invoice_extract_directory' for a whole directory
   - Pass 'output' to also write an .xlsx workbook (sheets: Invoices, Issues, Run)

4. READ THE ISSUES:
   - SOURCE_READ_FAILURE: the document was skipped
   - FIELD_NOT_FOUND: a header field is empty in the records
   - TABLE_SHAPE_UNRECOGNIZED: a table row with an unknown column count was dropped
   - VALUE_PARSE_FAILURE: a date or amount could not be parsed and is left empty

IMPORTANT NOTES:
- Paths must be inside the configured directory
- The server can handle files up to %dMB
- Scanned invoices without a text layer cannot be extracted
- Dates are exported as MM/DD/YYYY and amounts with two decimals`, maxFileSizeMB)
}
