package mcp

import (
	"database/sql"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/bitext/internal/config"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"project", "rule", "filepair", "session"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"project_create": {projectCreateToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleProjectCreate }},
	"project_list":   {projectListToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleProjectList }},
	"project_delete": {projectDeleteToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleProjectDelete }},

	"rule_add":    {ruleAddToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRuleAdd }},
	"rule_list":   {ruleListToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRuleList }},
	"rule_delete": {ruleDeleteToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRuleDelete }},
	"rule_import": {ruleImportToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRuleImport }},

	"filepair_import":   {filePairImportToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFilePairImport }},
	"filepair_list":     {filePairListToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFilePairList }},
	"filepair_segments": {filePairSegmentsToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFilePairSegments }},
	"filepair_delete":   {filePairDeleteToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFilePairDelete }},
	"filepair_export":   {filePairExportToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFilePairExport }},

	"session_open":        {sessionOpenToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionOpen }},
	"session_close":       {sessionCloseToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionClose }},
	"session_state":       {sessionStateToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionState }},
	"session_select":      {sessionSelectToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionSelect }},
	"session_toggle_edit": {sessionToggleEditToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionToggleEdit }},
	"session_move":        {sessionMoveToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionMove }},
	"session_merge":       {sessionMergeToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionMerge }},
	"session_create":      {sessionCreateToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionCreate }},
	"session_delete":      {sessionDeleteToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionDelete }},
	"session_edit":        {sessionEditToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionEdit }},
	"session_split":       {sessionSplitToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionSplit }},
	"session_save":        {sessionSaveToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionSave }},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "session_merge" → "session").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates an MCP server with the bitext tools registered. Tools
// listed in cfg.DisabledTools or belonging to cfg.DisabledTypes are excluded
// from registration. The returned Handlers own the open alignment sessions;
// call Close on shutdown.
func NewServer(db *sql.DB, cfg *config.Config, version string, logger *slog.Logger) (*server.MCPServer, *Handlers) {
	s := server.NewMCPServer(
		"bitext",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, logger)

	// Build set of disabled tools: first expand types, then add individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s, h
}

// Run serves the MCP protocol over stdio until stdin closes, then closes
// every open session.
func Run(db *sql.DB, cfg *config.Config, version string, logger *slog.Logger) error {
	s, h := NewServer(db, cfg, version, logger)
	defer h.Close()
	return server.ServeStdio(s)
}
