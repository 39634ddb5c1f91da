package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/bitext/internal/align"
	"github.com/hpungsan/bitext/internal/config"
	"github.com/hpungsan/bitext/internal/errors"
	"github.com/hpungsan/bitext/internal/model"
	"github.com/hpungsan/bitext/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers and the alignment
// sessions opened through them, keyed by file pair ID.
type Handlers struct {
	db     *sql.DB
	cfg    *config.Config
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*align.Session
}

// NewHandlers creates a new Handlers instance. A nil logger discards.
func NewHandlers(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		db:       db,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*align.Session),
	}
}

// Close closes every open session without saving.
func (h *Handlers) Close() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*align.Session)
	h.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

// session returns the open session for filePairID.
func (h *Handlers) session(filePairID string) (*align.Session, error) {
	if strings.TrimSpace(filePairID) == "" {
		return nil, errors.NewInvalidRequest("file_pair_id is required")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[filePairID]
	if !ok {
		return nil, errors.NewNotFound("session", filePairID)
	}
	if s.Closed() {
		delete(h.sessions, filePairID)
		return nil, errors.NewSessionClosed(filePairID)
	}
	return s, nil
}

// detach removes and closes the session for filePairID, if any.
func (h *Handlers) detach(filePairID string) {
	h.mu.Lock()
	s, ok := h.sessions[filePairID]
	delete(h.sessions, filePairID)
	h.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Request types for each tool

// ProjectCreateRequest represents the arguments for project_create.
type ProjectCreateRequest struct {
	Name       string `json:"name"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// ProjectRequest identifies a project.
type ProjectRequest struct {
	Project string `json:"project"`
}

// RuleAddRequest represents the arguments for rule_add.
type RuleAddRequest struct {
	Project  string `json:"project,omitempty"`
	Language string `json:"language"`
	Before   string `json:"before,omitempty"`
	After    string `json:"after,omitempty"`
	Breaking *bool  `json:"breaking,omitempty"`
}

// RuleListRequest represents the arguments for rule_list.
type RuleListRequest struct {
	Project   string `json:"project,omitempty"`
	Language  string `json:"language"`
	Effective bool   `json:"effective,omitempty"`
}

// RuleDeleteRequest represents the arguments for rule_delete.
type RuleDeleteRequest struct {
	ID string `json:"id"`
}

// RuleImportRequest represents the arguments for rule_import.
type RuleImportRequest struct {
	Path    string `json:"path"`
	Project string `json:"project,omitempty"`
	Replace bool   `json:"replace,omitempty"`
}

// FilePairImportRequest represents the arguments for filepair_import.
type FilePairImportRequest struct {
	Project    string `json:"project"`
	SourcePath string `json:"source_path"`
	TargetPath string `json:"target_path"`
}

// FilePairSegmentsRequest represents the arguments for filepair_segments.
type FilePairSegmentsRequest struct {
	FilePairID string `json:"file_pair_id"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// FilePairExportRequest represents the arguments for filepair_export.
type FilePairExportRequest struct {
	FilePairID string `json:"file_pair_id"`
	Path       string `json:"path,omitempty"`
}

// SessionRequest identifies a session by its file pair.
type SessionRequest struct {
	FilePairID string `json:"file_pair_id"`
}

// SessionCloseRequest represents the arguments for session_close.
type SessionCloseRequest struct {
	FilePairID string `json:"file_pair_id"`
	Discard    bool   `json:"discard,omitempty"`
}

// SessionSelectRequest represents the arguments for session_select.
type SessionSelectRequest struct {
	FilePairID string `json:"file_pair_id"`
	Side       string `json:"side"`
	SegmentID  string `json:"segment_id"`
}

// SessionDirectionRequest represents the arguments for session_move,
// session_merge and session_create.
type SessionDirectionRequest struct {
	FilePairID string `json:"file_pair_id"`
	Direction  string `json:"direction,omitempty"`
	Position   string `json:"position,omitempty"`
}

// SessionEditRequest represents the arguments for session_edit.
type SessionEditRequest struct {
	FilePairID string `json:"file_pair_id"`
	SegmentID  string `json:"segment_id"`
	Text       string `json:"text"`
	Cursor     int    `json:"cursor,omitempty"`
}

// SessionSplitRequest represents the arguments for session_split.
type SessionSplitRequest struct {
	FilePairID string `json:"file_pair_id"`
	Cursor     *int   `json:"cursor,omitempty"`
}

// SessionOutput is returned by every session tool.
type SessionOutput struct {
	FilePairID string         `json:"file_pair_id"`
	SourceLang model.Language `json:"source_lang"`
	TargetLang model.Language `json:"target_lang"`
	Mode       string         `json:"mode"`
	State      align.State    `json:"state"`
}

// SessionCloseOutput is returned by session_close.
type SessionCloseOutput struct {
	FilePairID string `json:"file_pair_id"`
	Closed     bool   `json:"closed"`
	Saved      bool   `json:"saved"`
}

func sessionOutput(s *align.Session) SessionOutput {
	st := s.State()
	src, tgt := s.Languages()
	return SessionOutput{
		FilePairID: s.FilePairID(),
		SourceLang: src,
		TargetLang: tgt,
		Mode:       st.Mode().String(),
		State:      st,
	}
}

// Handler implementations

// HandleProjectCreate handles the project_create tool call.
func (h *Handlers) HandleProjectCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProjectCreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.CreateProject(ctx, h.db, ops.CreateProjectInput{
		Name:       input.Name,
		SourceLang: input.SourceLang,
		TargetLang: input.TargetLang,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleProjectList handles the project_list tool call.
func (h *Handlers) HandleProjectList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.ListProjects(ctx, h.db)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleProjectDelete handles the project_delete tool call. Sessions on the
// project's file pairs are closed first.
func (h *Handlers) HandleProjectDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProjectRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	pairs, err := ops.ListFilePairs(ctx, h.db, input.Project)
	if err != nil {
		return errorResult(err), nil
	}
	for _, fp := range pairs.Items {
		h.detach(fp.ID)
	}

	result, err := ops.DeleteProject(ctx, h.db, input.Project)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRuleAdd handles the rule_add tool call.
func (h *Handlers) HandleRuleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RuleAddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.AddRule(ctx, h.db, ops.AddRuleInput{
		Project:  input.Project,
		Language: input.Language,
		Before:   input.Before,
		After:    input.After,
		Breaking: input.Breaking,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRuleList handles the rule_list tool call.
func (h *Handlers) HandleRuleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RuleListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListRules(ctx, h.db, ops.ListRulesInput{
		Project:   input.Project,
		Language:  input.Language,
		Effective: input.Effective,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRuleDelete handles the rule_delete tool call.
func (h *Handlers) HandleRuleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RuleDeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if err := ops.DeleteRule(ctx, h.db, input.ID); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"deleted": true, "id": input.ID})
}

// HandleRuleImport handles the rule_import tool call.
func (h *Handlers) HandleRuleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RuleImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ImportRules(ctx, h.db, h.cfg, ops.ImportRulesInput{
		Path:    input.Path,
		Project: input.Project,
		Replace: input.Replace,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleFilePairImport handles the filepair_import tool call.
func (h *Handlers) HandleFilePairImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FilePairImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ImportFilePair(ctx, h.db, h.cfg, h.logger, ops.ImportFilePairInput{
		Project:    input.Project,
		SourcePath: input.SourcePath,
		TargetPath: input.TargetPath,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleFilePairList handles the filepair_list tool call.
func (h *Handlers) HandleFilePairList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProjectRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListFilePairs(ctx, h.db, input.Project)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleFilePairSegments handles the filepair_segments tool call.
func (h *Handlers) HandleFilePairSegments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FilePairSegmentsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListSegments(ctx, h.db, ops.ListSegmentsInput{
		FilePairID: input.FilePairID,
		Limit:      input.Limit,
		Offset:     input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleFilePairDelete handles the filepair_delete tool call.
func (h *Handlers) HandleFilePairDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	h.detach(input.FilePairID)
	if err := ops.DeleteFilePair(ctx, h.db, input.FilePairID); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"deleted": true, "file_pair_id": input.FilePairID})
}

// HandleFilePairExport handles the filepair_export tool call.
func (h *Handlers) HandleFilePairExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FilePairExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if s, err := h.session(input.FilePairID); err == nil {
		if err := s.Save(ctx); err != nil {
			return errorResult(err), nil
		}
	}

	result, err := ops.ExportTMX(ctx, h.db, h.cfg, ops.ExportInput{
		FilePairID: input.FilePairID,
		Path:       input.Path,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSessionOpen handles the session_open tool call. Opening a file pair
// that already has a session returns that session's state.
func (h *Handlers) HandleSessionOpen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(input.FilePairID) == "" {
		return errorResult(errors.NewInvalidRequest("file_pair_id is required")), nil
	}

	if s, ok := h.openSession(input.FilePairID); ok {
		return successResult(sessionOutput(s))
	}

	// Load outside the lock; a concurrent open of the same pair wins and the
	// extra session is dropped.
	opened, err := ops.OpenSession(ctx, h.db, input.FilePairID, h.logger)
	if err != nil {
		return errorResult(err), nil
	}

	h.mu.Lock()
	if s, ok := h.sessions[input.FilePairID]; ok && !s.Closed() {
		h.mu.Unlock()
		opened.Close()
		return successResult(sessionOutput(s))
	}
	h.sessions[input.FilePairID] = opened
	h.mu.Unlock()

	h.logger.Info("session opened", "file_pair", input.FilePairID)
	return successResult(sessionOutput(opened))
}

// openSession returns the live session for filePairID, if any.
func (h *Handlers) openSession(filePairID string) (*align.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[filePairID]
	if !ok || s.Closed() {
		return nil, false
	}
	return s, true
}

// HandleSessionClose handles the session_close tool call.
func (h *Handlers) HandleSessionClose(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionCloseRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	s, err := h.session(input.FilePairID)
	if err != nil {
		return errorResult(err), nil
	}

	saved := false
	if !input.Discard {
		st := s.State()
		if st.Editing {
			if err := s.ToggleEditing(ctx); err != nil {
				return errorResult(err), nil
			}
		}
		if st.Dirty || st.Editing {
			if err := s.Save(ctx); err != nil {
				return errorResult(err), nil
			}
			saved = true
		}
	}

	h.detach(input.FilePairID)
	return successResult(SessionCloseOutput{FilePairID: input.FilePairID, Closed: true, Saved: saved})
}

// HandleSessionState handles the session_state tool call.
func (h *Handlers) HandleSessionState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	s, err := h.session(input.FilePairID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(sessionOutput(s))
}

// HandleSessionSelect handles the session_select tool call.
func (h *Handlers) HandleSessionSelect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionSelectRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	side, err := align.ParseSide(input.Side)
	if err != nil || side == align.SideNone {
		return errorResult(errors.NewInvalidRequest("side must be source or target")), nil
	}
	return h.apply(ctx, input.FilePairID, func(s *align.Session) error {
		return s.Select(ctx, side, input.SegmentID)
	})
}

// HandleSessionToggleEdit handles the session_toggle_edit tool call.
func (h *Handlers) HandleSessionToggleEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.apply(ctx, input.FilePairID, func(s *align.Session) error {
		return s.ToggleEditing(ctx)
	})
}

// HandleSessionMove handles the session_move tool call.
func (h *Handlers) HandleSessionMove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionDirectionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	var op func(*align.Session, context.Context) error
	switch input.Direction {
	case "up":
		op = (*align.Session).MoveUp
	case "down":
		op = (*align.Session).MoveDown
	default:
		return errorResult(errors.NewInvalidRequest("direction must be up or down")), nil
	}
	return h.apply(ctx, input.FilePairID, func(s *align.Session) error {
		return op(s, ctx)
	})
}

// HandleSessionMerge handles the session_merge tool call.
func (h *Handlers) HandleSessionMerge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionDirectionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	var op func(*align.Session, context.Context) error
	switch input.Direction {
	case "previous", "prev":
		op = (*align.Session).MergeWithPrevious
	case "next":
		op = (*align.Session).MergeWithNext
	default:
		return errorResult(errors.NewInvalidRequest("direction must be previous or next")), nil
	}
	return h.apply(ctx, input.FilePairID, func(s *align.Session) error {
		return op(s, ctx)
	})
}

// HandleSessionCreate handles the session_create tool call.
func (h *Handlers) HandleSessionCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionDirectionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	var op func(*align.Session, context.Context) error
	switch input.Position {
	case "before":
		op = (*align.Session).CreateBefore
	case "after":
		op = (*align.Session).CreateAfter
	default:
		return errorResult(errors.NewInvalidRequest("position must be before or after")), nil
	}
	return h.apply(ctx, input.FilePairID, func(s *align.Session) error {
		return op(s, ctx)
	})
}

// HandleSessionDelete handles the session_delete tool call.
func (h *Handlers) HandleSessionDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.apply(ctx, input.FilePairID, func(s *align.Session) error {
		return s.DeleteSegment(ctx)
	})
}

// HandleSessionEdit handles the session_edit tool call.
func (h *Handlers) HandleSessionEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionEditRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.apply(ctx, input.FilePairID, func(s *align.Session) error {
		return s.EditText(ctx, input.SegmentID, input.Text, input.Cursor)
	})
}

// HandleSessionSplit handles the session_split tool call. A cursor argument
// replaces the last recorded cursor offset.
func (h *Handlers) HandleSessionSplit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionSplitRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.apply(ctx, input.FilePairID, func(s *align.Session) error {
		if input.Cursor != nil {
			return s.SplitAt(ctx, *input.Cursor)
		}
		return s.SplitSegment(ctx)
	})
}

// HandleSessionSave handles the session_save tool call.
func (h *Handlers) HandleSessionSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.apply(ctx, input.FilePairID, func(s *align.Session) error {
		return s.Save(ctx)
	})
}

// apply runs op on the session for filePairID and returns the resulting state.
func (h *Handlers) apply(ctx context.Context, filePairID string, op func(*align.Session) error) (*mcp.CallToolResult, error) {
	s, err := h.session(filePairID)
	if err != nil {
		return errorResult(err), nil
	}
	if err := op(s); err != nil {
		return errorResult(err), nil
	}
	return successResult(sessionOutput(s))
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if e, ok := errors.As(err); ok {
		message := e.Message
		// Keep context added by fmt.Errorf("...: %w", err) wrappers.
		if err != error(e) {
			message = strings.TrimSuffix(err.Error(), e.Error()) + e.Message
		}
		if e.Code == errors.ErrInternal {
			message = "an internal error occurred"
		}
		errorObj := map[string]any{
			"code":    e.Code,
			"message": message,
			"status":  e.Status,
		}
		if e.Code != errors.ErrInternal && e.Details != nil {
			errorObj["details"] = e.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
