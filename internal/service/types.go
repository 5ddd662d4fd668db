package service

import (
	"github.com/a3tai/invoice-extractor/internal/errors"
	"github.com/a3tai/invoice-extractor/internal/extract"
	"github.com/a3tai/invoice-extractor/internal/source"
)

// Request Types

// ExtractFileRequest represents a request to extract one invoice file
type ExtractFileRequest struct {
	Path   string `json:"path"`
	Output string `json:"output,omitempty"`
}

// ExtractDirectoryRequest represents a request to extract every invoice in a directory
type ExtractDirectoryRequest struct {
	Directory string `json:"directory"`
	Output    string `json:"output,omitempty"`
}

// ValidateFileRequest represents a request to validate an input file
type ValidateFileRequest struct {
	Path string `json:"path"`
}

// Response Types

// DocumentSummary describes the outcome of one document
type DocumentSummary struct {
	SourceID string `json:"source_id"`
	Path     string `json:"path"`
	Profile  string `json:"profile,omitempty"`
	Records  int    `json:"records"`
	Warnings int    `json:"warnings"`
	Error    string `json:"error,omitempty"`
}

// ExtractResult represents the result of an extraction run
type ExtractResult struct {
	RunID     string                 `json:"run_id"`
	Profile   string                 `json:"profile"`
	Output    string                 `json:"output,omitempty"`
	Summary   extract.Summary        `json:"summary"`
	Documents []DocumentSummary      `json:"documents"`
	Columns   []string               `json:"columns"`
	Rows      [][]string             `json:"rows"`
	Issues    []*errors.ExtractError `json:"issues"`
}

// ToolInfo represents information about an available tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}

// ServerInfoResult represents server information and usage guidance
type ServerInfoResult struct {
	ServerName        string            `json:"server_name"`
	Version           string            `json:"version"`
	DefaultDirectory  string            `json:"default_directory"`
	MaxFileSize       int64             `json:"max_file_size"`
	Profile           string            `json:"profile"`
	Profiles          []string          `json:"profiles"`
	TaxRate           string            `json:"tax_rate"`
	Loaders           []string          `json:"loaders"`
	AvailableTools    []ToolInfo        `json:"available_tools"`
	DirectoryContents []source.FileInfo `json:"directory_contents"`
	UsageGuidance     string            `json:"usage_guidance"`
}
