package mcp

import "github.com/mark3labs/mcp-go/mcp"

func filePairIDParam() mcp.ToolOption {
	return mcp.WithString("file_pair_id", mcp.Required(), mcp.Description("File pair ID"))
}

func projectParam(required bool) mcp.ToolOption {
	if required {
		return mcp.WithString("project", mcp.Required(), mcp.Description("Project ID or name"))
	}
	return mcp.WithString("project", mcp.Description("Project ID or name; omit for the default rule scope"))
}

var projectCreateToolDef = mcp.NewTool("project_create",
	mcp.WithDescription("Create a project with a source and a target language."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Unique project name (case-insensitive)")),
	mcp.WithString("source_lang", mcp.Required(), mcp.Description("Source language code, e.g. en")),
	mcp.WithString("target_lang", mcp.Required(), mcp.Description("Target language code, e.g. fr")),
)

var projectListToolDef = mcp.NewTool("project_list",
	mcp.WithDescription("List all projects, oldest first."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var projectDeleteToolDef = mcp.NewTool("project_delete",
	mcp.WithDescription("Delete a project with its file pairs, segments and rules."),
	projectParam(true),
	mcp.WithDestructiveHintAnnotation(true),
)

var ruleAddToolDef = mcp.NewTool("rule_add",
	mcp.WithDescription("Append a segmentation rule. A boundary is placed after text matching `before` when it is followed by text matching `after`. Non-breaking rules cancel boundaries set by earlier rules."),
	projectParam(false),
	mcp.WithString("language", mcp.Required(), mcp.Description("Language code the rule applies to")),
	mcp.WithString("before", mcp.Description("Regular expression for the text before the boundary")),
	mcp.WithString("after", mcp.Description("Regular expression for the text after the boundary")),
	mcp.WithBoolean("breaking", mcp.Description("Whether the rule creates (true, default) or cancels (false) a boundary")),
)

var ruleListToolDef = mcp.NewTool("rule_list",
	mcp.WithDescription("List the rules of a scope. With effective=true, list the rules an import would use (project, then default, then built-in)."),
	projectParam(false),
	mcp.WithString("language", mcp.Required(), mcp.Description("Language code")),
	mcp.WithBoolean("effective", mcp.Description("Resolve the fallback chain")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var ruleDeleteToolDef = mcp.NewTool("rule_delete",
	mcp.WithDescription("Delete one stored rule."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Rule ID")),
	mcp.WithDestructiveHintAnnotation(true),
)

var ruleImportToolDef = mcp.NewTool("rule_import",
	mcp.WithDescription("Import rules from a YAML rule file (.yaml or .yml)."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Rule file path")),
	projectParam(false),
	mcp.WithBoolean("replace", mcp.Description("Replace the scope's existing rules for the file's language")),
)

var filePairImportToolDef = mcp.NewTool("filepair_import",
	mcp.WithDescription("Import a source and a target document (.txt, .md) into a project. Both are segmented and padded to equal length."),
	projectParam(true),
	mcp.WithString("source_path", mcp.Required(), mcp.Description("Source document path")),
	mcp.WithString("target_path", mcp.Required(), mcp.Description("Target document path")),
)

var filePairListToolDef = mcp.NewTool("filepair_list",
	mcp.WithDescription("List a project's file pairs."),
	projectParam(true),
	mcp.WithReadOnlyHintAnnotation(true),
)

var filePairSegmentsToolDef = mcp.NewTool("filepair_segments",
	mcp.WithDescription("List stored segments of a file pair, both sides row by row."),
	filePairIDParam(),
	mcp.WithNumber("limit", mcp.Description("Rows per page (default 100, max 1000)")),
	mcp.WithNumber("offset", mcp.Description("Rows to skip")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var filePairDeleteToolDef = mcp.NewTool("filepair_delete",
	mcp.WithDescription("Delete a file pair and its segments. An open session on it is closed first."),
	filePairIDParam(),
	mcp.WithDestructiveHintAnnotation(true),
)

var filePairExportToolDef = mcp.NewTool("filepair_export",
	mcp.WithDescription("Export the aligned rows of a file pair as TMX 1.4. Rows with an empty side are skipped. An open session is saved first."),
	filePairIDParam(),
	mcp.WithString("path", mcp.Description("Output .tmx path (default ~/.bitext/files/<project>-<timestamp>.tmx)")),
)

var sessionOpenToolDef = mcp.NewTool("session_open",
	mcp.WithDescription("Open an alignment session on a file pair, or return the one already open."),
	filePairIDParam(),
)

var sessionCloseToolDef = mcp.NewTool("session_close",
	mcp.WithDescription("Close a session. Pending edits are saved unless discard is true."),
	filePairIDParam(),
	mcp.WithBoolean("discard", mcp.Description("Drop unsaved changes")),
)

var sessionStateToolDef = mcp.NewTool("session_state",
	mcp.WithDescription("Return the current state of an open session."),
	filePairIDParam(),
	mcp.WithReadOnlyHintAnnotation(true),
)

var sessionSelectToolDef = mcp.NewTool("session_select",
	mcp.WithDescription("Select a segment. Selecting the selected segment clears the selection."),
	filePairIDParam(),
	mcp.WithString("side", mcp.Required(), mcp.Enum("source", "target")),
	mcp.WithString("segment_id", mcp.Required(), mcp.Description("Segment ID")),
)

var sessionToggleEditToolDef = mcp.NewTool("session_toggle_edit",
	mcp.WithDescription("Enter or leave editing for the selected segment. Leaving saves its text."),
	filePairIDParam(),
)

var sessionMoveToolDef = mcp.NewTool("session_move",
	mcp.WithDescription("Swap the selected segment with its neighbour."),
	filePairIDParam(),
	mcp.WithString("direction", mcp.Required(), mcp.Enum("up", "down")),
)

var sessionMergeToolDef = mcp.NewTool("session_merge",
	mcp.WithDescription("Merge the selected segment with its previous or next neighbour."),
	filePairIDParam(),
	mcp.WithString("direction", mcp.Required(), mcp.Enum("previous", "next")),
)

var sessionCreateToolDef = mcp.NewTool("session_create",
	mcp.WithDescription("Insert an empty segment before or after the selection and start editing it."),
	filePairIDParam(),
	mcp.WithString("position", mcp.Required(), mcp.Enum("before", "after")),
)

var sessionDeleteToolDef = mcp.NewTool("session_delete",
	mcp.WithDescription("Delete the selected segment."),
	filePairIDParam(),
	mcp.WithDestructiveHintAnnotation(true),
)

var sessionEditToolDef = mcp.NewTool("session_edit",
	mcp.WithDescription("Replace the text of the segment being edited and record the cursor for splitting."),
	filePairIDParam(),
	mcp.WithString("segment_id", mcp.Required(), mcp.Description("Segment ID")),
	mcp.WithString("text", mcp.Required(), mcp.Description("New text")),
	mcp.WithNumber("cursor", mcp.Description("Cursor offset in characters")),
)

var sessionSplitToolDef = mcp.NewTool("session_split",
	mcp.WithDescription("Split the segment being edited at the cursor."),
	filePairIDParam(),
	mcp.WithNumber("cursor", mcp.Description("Cursor offset in characters; defaults to the last recorded cursor")),
)

var sessionSaveToolDef = mcp.NewTool("session_save",
	mcp.WithDescription("Renumber and write both sequences."),
	filePairIDParam(),
)
