package descriptions

import "sort"

// Tool names exposed by the MCP server
const (
	ExtractFileTool      = "invoice_extract_file"
	ExtractDirectoryTool = "invoice_extract_directory"
	ValidateFileTool     = "invoice_validate_file"
	ServerInfoTool       = "invoice_server_info"
)

// Tool descriptions with practical examples and use cases

const (
	ExtractFileDescription = `Extract invoice records from a single bilingual (Arabic/English) invoice.

**When to use:** One invoice PDF, sidecar table file (.json/.yaml) or zip archive of invoices needs to be turned into structured rows.

**Why it's useful:** Locates header fields (invoice number, date, customer, address, paid, balance) whatever the label order or language, rebuilds line items whose descriptions wrap across rows, and computes tax and totals with exact decimal arithmetic.

**Examples:**
• Single invoice: "Extract invoice_1024.pdf and show the line items"
• Archive upload: "Extract every invoice inside march.zip"
• Spreadsheet: "Extract bill_7.pdf and write the result to bill_7.xlsx"

**Common workflows:**
1. Check a file: invoice_validate_file → invoice_extract_file
2. Export: invoice_extract_file with output → open the workbook

**Best practices:** Read the issues list: missing fields and dropped table rows are reported there, never guessed.`

	ExtractDirectoryDescription = `Extract invoice records from every supported file in a directory.

**When to use:** A folder of invoices (PDF, sidecar tables, zip archives) needs to be consolidated into one table or workbook.

**Why it's useful:** Documents are processed in parallel; a corrupt file is reported and skipped without affecting the others. Output rows keep the order of the files.

**Examples:**
• Monthly batch: "Extract all invoices in /invoices/2024-07 into july.xlsx"
• Quick audit: "Extract the configured directory and list documents with warnings"

**Common workflows:**
1. Consolidation: invoice_server_info → invoice_extract_directory with output
2. Quality control: invoice_extract_directory → inspect failed documents → invoice_validate_file

**Best practices:** Use the output parameter for large directories; the text response lists only the first rows.`

	ValidateFileDescription = `Check that an input file can be loaded before extracting it.

**When to use:** Before extracting an unknown file, or to diagnose a document reported as failed.

**Why it's useful:** Checks type, size limits, PDF structure and archive integrity without running extraction.

**Examples:**
• "Validate upload_17.pdf"
• "Is batch.zip a readable archive?"

**Best practices:** A valid file may still yield no fields when its layout is unknown; try the auto profile.`

	ServerInfoDescription = `Show server configuration, layout profiles, supported inputs and the invoices in the default directory.

**When to use:** At the start of a session to discover what can be extracted and how.

**Examples:**
• "What invoices are available?"
• "Which layout profiles does the server know?"`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	ExtractFileTool:      ExtractFileDescription,
	ExtractDirectoryTool: ExtractDirectoryDescription,
	ValidateFileTool:     ValidateFileDescription,
	ServerInfoTool:       ServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns every tool name, sorted
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
