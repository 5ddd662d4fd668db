package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/a3tai/invoice-extractor/internal/config"
	"github.com/a3tai/invoice-extractor/internal/descriptions"
	"github.com/a3tai/invoice-extractor/internal/service"
)

// maxRowsInResponse caps the record rows rendered into a tool response
const maxRowsInResponse = 50

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	service    *service.Service
	serverInfo *service.ServerInfo
	mcpServer  *server.MCPServer
	logger     *zap.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, svc *service.Service, logger *zap.Logger) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:     cfg,
		service:    svc,
		serverInfo: service.NewServerInfo(svc),
		mcpServer:  mcpServer,
		logger:     logger,
	}

	// Register tools
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	extractFileTool := mcp.NewTool(
		descriptions.ExtractFileTool,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ExtractFileTool)),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the invoice PDF, sidecar file or zip archive"),
		),
		mcp.WithString("output",
			mcp.Description("Optional .xlsx file to write inside the configured directory"),
		),
	)
	s.mcpServer.AddTool(extractFileTool, s.handleExtractFile)

	extractDirectoryTool := mcp.NewTool(
		descriptions.ExtractDirectoryTool,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ExtractDirectoryTool)),
		mcp.WithString("directory",
			mcp.Description("Directory to process (uses default if empty)"),
		),
		mcp.WithString("output",
			mcp.Description("Optional .xlsx file to write inside the configured directory"),
		),
	)
	s.mcpServer.AddTool(extractDirectoryTool, s.handleExtractDirectory)

	validateFileTool := mcp.NewTool(
		descriptions.ValidateFileTool,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ValidateFileTool)),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the input file"),
		),
	)
	s.mcpServer.AddTool(validateFileTool, s.handleValidateFile)

	serverInfoTool := mcp.NewTool(
		descriptions.ServerInfoTool,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ServerInfoTool)),
	)
	s.mcpServer.AddTool(serverInfoTool, s.handleServerInfo)
}

// Handler functions
func (s *Server) handleExtractFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	output, err := s.outputArgument(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.service.ExtractFile(ctx, service.ExtractFileRequest{Path: path, Output: output})
	if err != nil {
		s.logger.Warn("tool.failed", zap.String("tool", descriptions.ExtractFileTool), zap.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatExtractResult(result)), nil
}

func (s *Server) handleExtractDirectory(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	directory := request.GetString("directory", s.config.InputDirectory)
	if directory == "" {
		directory = s.config.InputDirectory
	}
	output, err := s.outputArgument(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.service.ExtractDirectory(ctx, service.ExtractDirectoryRequest{
		Directory: directory,
		Output:    output,
	})
	if err != nil {
		s.logger.Warn("tool.failed", zap.String("tool", descriptions.ExtractDirectoryTool), zap.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatExtractResult(result)), nil
}

func (s *Server) handleValidateFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.service.ValidateFile(service.ValidateFileRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Valid {
		responseText = fmt.Sprintf("File %s is a valid %s input", result.Path, result.Kind)
		if result.Pages > 0 {
			responseText += fmt.Sprintf(" (%d pages)", result.Pages)
		}
	} else {
		responseText = fmt.Sprintf("Validation failed for %s: %s", result.Path, result.Message)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.serverInfo.GetServerInfo(s.config.ServerName, s.config.Version)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatServerInfoResult(result)), nil
}

// outputArgument returns the optional output path after checking it stays
// inside the configured directory and names a workbook.
func (s *Server) outputArgument(request mcp.CallToolRequest) (string, error) {
	output := request.GetString("output", "")
	if output == "" {
		return "", nil
	}
	if !strings.EqualFold(filepath.Ext(output), ".xlsx") {
		return "", fmt.Errorf("output must be an .xlsx file: %s", output)
	}
	if err := s.service.ValidateOutputPath(output); err != nil {
		return "", err
	}
	return output, nil
}

// Formatting methods
func (s *Server) formatExtractResult(result *service.ExtractResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extraction run %s (profile: %s)\n", result.RunID, result.Profile)
	fmt.Fprintf(&b, "Documents: %d, failed: %d, records: %d, warnings: %d\n",
		result.Summary.Documents, result.Summary.Failed, result.Summary.Records, result.Summary.Warnings)
	if result.Output != "" {
		fmt.Fprintf(&b, "Workbook written to: %s\n", result.Output)
	}

	b.WriteString("\nDocuments:\n")
	for i, doc := range result.Documents {
		fmt.Fprintf(&b, "%d. %s", i+1, doc.SourceID)
		if doc.Error != "" {
			fmt.Fprintf(&b, " FAILED: %s\n", doc.Error)
			continue
		}
		fmt.Fprintf(&b, " [%s] %d record(s), %d warning(s)\n", doc.Profile, doc.Records, doc.Warnings)
	}

	if len(result.Rows) > 0 {
		b.WriteString("\nRecords:\n")
		b.WriteString(strings.Join(result.Columns, " | "))
		b.WriteString("\n")
		for i, row := range result.Rows {
			if i >= maxRowsInResponse {
				fmt.Fprintf(&b, "... and %d more records\n", len(result.Rows)-maxRowsInResponse)
				break
			}
			b.WriteString(strings.Join(row, " | "))
			b.WriteString("\n")
		}
	}

	if len(result.Issues) > 0 {
		b.WriteString("\nIssues:\n")
		for _, issue := range result.Issues {
			fmt.Fprintf(&b, "- %s\n", issue.Error())
		}
	}
	return b.String()
}

func (s *Server) formatServerInfoResult(result *service.ServerInfoResult) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("📁 Default Directory: %s\n", result.DefaultDirectory)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", result.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("🧾 Profile: %s (available: %s)\n", result.Profile, strings.Join(result.Profiles, ", "))
	text += fmt.Sprintf("💰 Tax Rate: %s\n", result.TaxRate)
	text += fmt.Sprintf("📥 Loaders: %s (plus zip archives)\n\n", strings.Join(result.Loaders, ", "))

	// Directory contents
	if len(result.DirectoryContents) > 0 {
		text += fmt.Sprintf("📂 Directory Contents (%d input files found):\n", len(result.DirectoryContents))
		for i, file := range result.DirectoryContents {
			if i >= 10 { // Limit to first 10 files for readability
				text += fmt.Sprintf("   ... and %d more files\n", len(result.DirectoryContents)-10)
				break
			}
			text += fmt.Sprintf("   %d. %s (%s, %d bytes)\n", i+1, file.Name, file.Kind, file.Size)
		}
		text += "\n"
	} else {
		text += "📂 Directory Contents: No input files found in default directory\n\n"
	}

	// Available tools
	text += "🛠️  Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Usage: %s\n", tool.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	// Usage guidance
	text += "\n" + result.UsageGuidance

	return text
}

// Run starts the MCP server on standard I/O
func (s *Server) Run(_ context.Context) error {
	s.logger.Info("server.start",
		zap.String("directory", s.config.InputDirectory),
		zap.String("profile", s.config.Profile),
	)

	// Use the mark3labs/mcp-go server.ServeStdio function
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
