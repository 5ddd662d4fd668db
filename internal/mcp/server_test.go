package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/a3tai/invoice-extractor/internal/config"
	"github.com/a3tai/invoice-extractor/internal/extract"
	"github.com/a3tai/invoice-extractor/internal/profile"
	"github.com/a3tai/invoice-extractor/internal/service"
	"github.com/a3tai/invoice-extractor/internal/source"
)

const invoiceText = "رقم الفاتورة: INV-77\nتاريخ الفاتورة: 05/07/2024\nمدفوع: 100.00"

func writeSidecar(t *testing.T, path string) {
	t.Helper()
	data, err := json.Marshal(source.Sidecar{
		Text:   invoiceText,
		Tables: [][][]string{{{"10", "5", "2.5", "3", "bolts", "B1"}}},
	})
	if err != nil {
		t.Fatalf("failed to marshal sidecar: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write sidecar: %v", err)
	}
}

// newTestServer builds a server rooted at a fresh temp directory
func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	tempDir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Mode = config.ModeStdio
	cfg.InputDirectory = tempDir
	cfg.WorkDir = t.TempDir()
	cfg.ServerName = "test-server"
	cfg.MaxFileSize = 1024 * 1024

	engine, err := extract.NewEngine(profile.Builtin(), extract.Options{Workers: 2})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	svc, err := service.NewService(cfg.MaxFileSize, cfg.InputDirectory, cfg.WorkDir, engine, nil)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	server, err := NewServer(cfg, svc, nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return server, tempDir
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestNewServer(t *testing.T) {
	server, _ := newTestServer(t)

	if server.mcpServer == nil {
		t.Error("mcpServer should be initialized")
	}
	if server.serverInfo == nil {
		t.Error("serverInfo should be initialized")
	}

	if _, err := NewServer(config.DefaultConfig(), nil, nil); err == nil {
		t.Error("expected error for nil service")
	}
}

func TestServer_ToolsRegistered(t *testing.T) {
	server, _ := newTestServer(t)

	msg := server.mcpServer.HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))

	resp, ok := msg.(mcp.JSONRPCResponse)
	if !ok {
		t.Fatalf("expected JSONRPCResponse, got %T", msg)
	}
	result, ok := resp.Result.(mcp.ListToolsResult)
	if !ok {
		t.Fatalf("expected ListToolsResult, got %T", resp.Result)
	}

	var names []string
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	want := "invoice_extract_directory,invoice_extract_file,invoice_server_info,invoice_validate_file"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("tools = %s, want %s", got, want)
	}
}

func TestServer_HandleExtractFile(t *testing.T) {
	server, tempDir := newTestServer(t)
	path := filepath.Join(tempDir, "bill_1.json")
	writeSidecar(t, path)
	output := filepath.Join(tempDir, "bill_1.xlsx")

	result, err := server.handleExtractFile(context.Background(), callRequest(map[string]interface{}{
		"path":   path,
		"output": output,
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", extractTextFromResult(result))
	}

	text := extractTextFromResult(result)
	for _, want := range []string{
		"Documents: 1, failed: 0, records: 1",
		"bill_1.json [standard] 1 record(s)",
		"INV-77 | 07/05/2024",
		"Workbook written to: " + output,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("response missing %q:\n%s", want, text)
		}
	}
	if _, err := os.Stat(output); err != nil {
		t.Errorf("workbook not written: %v", err)
	}
}

func TestServer_HandleExtractDirectory(t *testing.T) {
	server, tempDir := newTestServer(t)
	writeSidecar(t, filepath.Join(tempDir, "a.json"))
	writeSidecar(t, filepath.Join(tempDir, "b.json"))
	if err := os.WriteFile(filepath.Join(tempDir, "broken.pdf"), make([]byte, 64), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	// Empty arguments use the configured directory
	result, err := server.handleExtractDirectory(context.Background(), callRequest(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	text := extractTextFromResult(result)
	if !strings.Contains(text, "Documents: 3, failed: 1, records: 2") {
		t.Errorf("unexpected summary:\n%s", text)
	}
	if !strings.Contains(text, "broken.pdf FAILED") {
		t.Errorf("failed document not reported:\n%s", text)
	}
	if !strings.Contains(text, "SOURCE_READ_FAILURE") {
		t.Errorf("issues not listed:\n%s", text)
	}
}

func TestServer_OutputValidation(t *testing.T) {
	server, tempDir := newTestServer(t)
	path := filepath.Join(tempDir, "a.json")
	writeSidecar(t, path)

	tests := []struct {
		name   string
		output string
		want   string
	}{
		{name: "not a workbook", output: filepath.Join(tempDir, "out.csv"), want: "output must be an .xlsx file"},
		{name: "outside directory", output: filepath.Join(t.TempDir(), "out.xlsx"), want: "security validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := server.handleExtractFile(context.Background(), callRequest(map[string]interface{}{
				"path":   path,
				"output": tt.output,
			}))
			if err != nil {
				t.Fatalf("handler failed: %v", err)
			}
			if !result.IsError {
				t.Fatal("expected tool error")
			}
			if text := extractTextFromResult(result); !strings.Contains(text, tt.want) {
				t.Errorf("error = %s, want %s", text, tt.want)
			}
		})
	}
}

func TestServer_HandleValidateFile(t *testing.T) {
	server, tempDir := newTestServer(t)

	// Create test file
	testFile := filepath.Join(tempDir, "test.pdf")
	if err := os.WriteFile(testFile, make([]byte, 1024), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	sidecar := filepath.Join(tempDir, "a.json")
	writeSidecar(t, sidecar)

	result, err := server.handleValidateFile(context.Background(), callRequest(map[string]interface{}{"path": testFile}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	// The file should be invalid since it's not a real PDF
	if text := extractTextFromResult(result); !strings.Contains(text, "Validation failed") {
		t.Errorf("expected validation to fail, got: %s", text)
	}

	result, err = server.handleValidateFile(context.Background(), callRequest(map[string]interface{}{"path": sidecar}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if text := extractTextFromResult(result); !strings.Contains(text, "is a valid sidecar input") {
		t.Errorf("expected sidecar to validate, got: %s", text)
	}
}

func TestServer_HandleServerInfo(t *testing.T) {
	server, tempDir := newTestServer(t)
	writeSidecar(t, filepath.Join(tempDir, "a.json"))

	result, err := server.handleServerInfo(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	text := extractTextFromResult(result)
	for _, want := range []string{
		"test-server v1.0.0",
		"Profile: standard (available: standard, strict, legacy)",
		"Tax Rate: 0.15",
		"a.json (sidecar",
		"invoice_extract_directory",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("server info missing %q:\n%s", want, text)
		}
	}
}

func TestServer_InvalidArguments(t *testing.T) {
	server, _ := newTestServer(t)
	emptyRequest := callRequest(map[string]interface{}{})

	handlers := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
	}{
		{name: "extract file", handler: server.handleExtractFile},
		{name: "validate file", handler: server.handleValidateFile},
	}

	for _, tt := range handlers {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.handler(context.Background(), emptyRequest)
			if err != nil {
				t.Fatalf("handler should report errors in the result, got: %v", err)
			}
			if !result.IsError {
				t.Error("expected tool error for missing path")
			}
		})
	}
}

// extractTextFromResult returns the first text content of a tool result
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		// Handle pointer to TextContent as well
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}

	return ""
}
