package mcp

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/dirdump/internal/capture"
	"github.com/hpungsan/dirdump/internal/config"
	"github.com/hpungsan/dirdump/internal/dump"
	"github.com/hpungsan/dirdump/internal/errors"
	"github.com/hpungsan/dirdump/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db     *sql.DB
	cfg    *config.Config
	dumper *dump.Dumper
	filter capture.Filter
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, dumper *dump.Dumper, cfg *config.Config) *Handlers {
	return &Handlers{
		db:     db,
		cfg:    cfg,
		dumper: dumper,
		filter: capture.Filter{DumpRequestContent: cfg.DumpRequestContent},
	}
}

// Request types for each tool

// TargetArgs addresses a capture by URL or by host, port and path.
type TargetArgs struct {
	URL  string `json:"url,omitempty"`
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
	Path string `json:"path,omitempty"`
}

func (a TargetArgs) target() ops.Target {
	return ops.Target{URL: a.URL, Host: a.Host, Port: a.Port, Path: a.Path}
}

// KeyRequest represents the arguments for dump_key.
type KeyRequest struct {
	TargetArgs
	IsRequest bool `json:"is_request,omitempty"`
}

// PersistRequest represents the arguments for dump_persist.
type PersistRequest struct {
	TargetArgs
	IsRequest     bool    `json:"is_request,omitempty"`
	Content       *string `json:"content,omitempty"`
	ContentBase64 *string `json:"content_base64,omitempty"`
}

// body returns the raw payload from whichever content field was set.
func (r PersistRequest) body() ([]byte, error) {
	switch {
	case r.Content != nil && r.ContentBase64 != nil:
		return nil, errors.NewInvalidRequest("specify either content or content_base64, not both")
	case r.ContentBase64 != nil:
		b, err := base64.StdEncoding.DecodeString(*r.ContentBase64)
		if err != nil {
			return nil, errors.NewInvalidRequest("content_base64 is not valid base64")
		}
		return b, nil
	case r.Content != nil:
		return []byte(*r.Content), nil
	default:
		return nil, nil
	}
}

// ListRequest represents the arguments for dump_list.
type ListRequest struct {
	Host      string `json:"host,omitempty"`
	KeyPrefix string `json:"key_prefix,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
	IsRequest *bool  `json:"is_request,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// FetchRequest represents the arguments for dump_fetch.
type FetchRequest struct {
	ID             string `json:"id"`
	IncludeContent *bool  `json:"include_content,omitempty"`
}

// PurgeRequest represents the arguments for dump_purge.
type PurgeRequest struct {
	Host          *string `json:"host,omitempty"`
	OlderThanDays int     `json:"older_than_days,omitempty"`
}

// HandleKey handles the dump_key tool call.
func (h *Handlers) HandleKey(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[KeyRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Key(ops.KeyInput{
		Target:    input.target(),
		IsRequest: input.IsRequest,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePersist handles the dump_persist tool call.
func (h *Handlers) HandlePersist(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PersistRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	content, err := input.body()
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Persist(ctx, h.db, h.dumper, h.filter, ops.PersistInput{
		Target:    input.target(),
		IsRequest: input.IsRequest,
		Content:   content,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the dump_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(ctx, h.db, ops.ListInput{
		Host:      input.Host,
		KeyPrefix: input.KeyPrefix,
		Outcome:   input.Outcome,
		Request:   input.IsRequest,
		Limit:     input.Limit,
		Offset:    input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFetch handles the dump_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Fetch(ctx, h.db, h.dumper.Root(), ops.FetchInput{
		ID:             input.ID,
		IncludeContent: input.IncludeContent,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStats handles the dump_stats tool call.
func (h *Handlers) HandleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Stats(ctx, h.db)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePurge handles the dump_purge tool call.
func (h *Handlers) HandlePurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PurgeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Purge(ctx, h.db, ops.PurgeInput{
		Host:          input.Host,
		OlderThanDays: input.OlderThanDays,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// The wrapped cause is never sent; details are dropped for internal errors.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var dErr *errors.DumpError
	if stderrors.As(err, &dErr) {
		errorObj := map[string]any{
			"code":    dErr.Code,
			"message": dErr.Message,
			"status":  dErr.Status,
		}
		if dErr.Code != errors.ErrInternal && dErr.Details != nil {
			errorObj["details"] = dErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
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
