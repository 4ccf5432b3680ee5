// ABOUTME: JSON-RPC dispatcher owning the initialize/ready state machine.
// ABOUTME: Routes methods to the registry and providers; every outcome becomes a well-formed response.

// Package engine dispatches parsed JSON-RPC messages to the tool
// registry and the resource/prompt providers. The engine owns the
// one-way Uninitialized -> Initialized transition: initialize is the
// only method accepted before the transition, everything else is an
// invalid request until it happens.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/orbitalci/orbital-mcp/internal/protocol"
	"github.com/orbitalci/orbital-mcp/internal/registry"
)

// Recorder receives one record per completed tools/call. Implementations
// must be safe for concurrent use; recording failures are the
// implementation's problem and never surface to the caller.
type Recorder interface {
	Record(ctx context.Context, rec CallRecord)
}

// CallRecord describes one tool invocation outcome.
type CallRecord struct {
	RequestID string
	ToolName  string
	AccountID string
	IsError   bool
	Duration  time.Duration
}

// Config holds construction parameters for an Engine.
type Config struct {
	Registry      *registry.Registry
	Resources     *ResourceProvider // optional
	Prompts       *PromptProvider   // optional
	Recorder      Recorder          // optional
	AccountID     string            // account scope recorded with tool calls
	ServerName    string
	ServerVersion string
	Logger        *slog.Logger
}

// Engine dispatches JSON-RPC methods. Shared by all transports; safe for
// concurrent use. The only mutable state is the write-once initialized
// flag.
type Engine struct {
	registry      *registry.Registry
	resources     *ResourceProvider
	prompts       *PromptProvider
	recorder      Recorder
	accountID     string
	serverName    string
	serverVersion string
	logger        *slog.Logger

	initialized atomic.Bool
}

// New creates an Engine in the Uninitialized state.
func New(cfg Config) (*Engine, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.ServerName
	if name == "" {
		name = "orbital-mcp"
	}
	version := cfg.ServerVersion
	if version == "" {
		version = "dev"
	}

	return &Engine{
		registry:      cfg.Registry,
		resources:     cfg.Resources,
		prompts:       cfg.Prompts,
		recorder:      cfg.Recorder,
		accountID:     cfg.AccountID,
		serverName:    name,
		serverVersion: version,
		logger:        logger.With("component", "engine"),
	}, nil
}

// Initialized reports whether the initialize transition has happened.
func (e *Engine) Initialized() bool {
	return e.initialized.Load()
}

// Handle processes one raw JSON-RPC message and returns the response to
// write, or nil for notifications, which never receive a reply.
func (e *Engine) Handle(ctx context.Context, raw []byte) *protocol.Response {
	req, errResp := protocol.Parse(raw)
	if errResp != nil {
		return errResp
	}

	if req.IsNotification() {
		e.logger.Debug("notification received", "method", req.Method)
		return nil
	}

	e.logger.Debug("request received", "method", req.Method)

	if req.Method == "initialize" {
		return e.handleInitialize(req)
	}
	if !e.initialized.Load() {
		return protocol.NewError(req.ID, protocol.CodeInvalidRequest, "server not initialized")
	}

	switch req.Method {
	case "ping":
		return protocol.NewResult(req.ID, map[string]any{})
	case "tools/list":
		return e.handleToolsList(req)
	case "tools/call":
		return e.handleToolsCall(ctx, req)
	case "resources/list":
		return e.handleResourcesList(req)
	case "resources/read":
		return e.handleResourcesRead(req)
	case "prompts/list":
		return e.handlePromptsList(req)
	case "prompts/get":
		return e.handlePromptsGet(req)
	default:
		return protocol.NewError(req.ID, protocol.CodeMethodNotFound, "method not found: "+req.Method)
	}
}

// handleInitialize flips the state machine to Initialized. The flip is
// idempotent: a repeated initialize returns the same result and cannot
// corrupt state.
func (e *Engine) handleInitialize(req *protocol.Request) *protocol.Response {
	var params protocol.InitializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return protocol.NewError(req.ID, protocol.CodeInvalidParams, "invalid initialize params")
		}
	}

	if e.initialized.CompareAndSwap(false, true) {
		e.logger.Info("initialized",
			"client_name", params.ClientInfo.Name,
			"client_version", params.ClientInfo.Version,
			"client_protocol_version", params.ProtocolVersion,
		)
	}

	result := protocol.InitializeResult{
		ProtocolVersion: protocol.ProtocolVersion,
		Capabilities: protocol.ServerCapabilities{
			Tools:     map[string]any{},
			Resources: map[string]any{},
			Prompts:   map[string]any{},
			Logging:   map[string]any{},
		},
		ServerInfo: protocol.ServerInfo{Name: e.serverName, Version: e.serverVersion},
	}
	return protocol.NewResult(req.ID, result)
}

func (e *Engine) handleToolsList(req *protocol.Request) *protocol.Response {
	tools := e.registry.List()
	result := protocol.ListToolsResult{Tools: make([]protocol.ToolInfo, len(tools))}
	for i, tool := range tools {
		result.Tools[i] = protocol.ToolInfo{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}
	}
	return protocol.NewResult(req.ID, result)
}

// handleToolsCall resolves and runs a tool. Unknown names and missing
// required arguments are protocol-visible domain errors; a handler
// failure becomes an error-flagged tool result so the calling agent
// receives readable diagnostics instead of a dead exchange.
func (e *Engine) handleToolsCall(ctx context.Context, req *protocol.Request) *protocol.Response {
	var params protocol.CallToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return protocol.NewError(req.ID, protocol.CodeInvalidParams, "invalid params")
		}
	}
	if params.Name == "" {
		return protocol.NewError(req.ID, protocol.CodeInvalidParams, "tool name is required")
	}

	requestID := uuid.New().String()
	start := time.Now()

	result, err := e.registry.Call(ctx, params.Name, params.Arguments)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrToolNotFound):
			return protocol.NewError(req.ID, protocol.CodeToolNotFound, err.Error())
		case errors.Is(err, registry.ErrInvalidParameters):
			return protocol.NewError(req.ID, protocol.CodeInvalidParams, err.Error())
		default:
			e.logger.Warn("tool execution failed",
				"tool_name", params.Name,
				"request_id", requestID,
				"error", err,
			)
			result = protocol.ErrorResult(err.Error())
		}
	}
	if result == nil {
		result = protocol.TextResult("")
	}

	e.record(ctx, CallRecord{
		RequestID: requestID,
		ToolName:  params.Name,
		AccountID: e.accountID,
		IsError:   result.IsError,
		Duration:  time.Since(start),
	})

	e.logger.Debug("tools/call complete",
		"tool_name", params.Name,
		"request_id", requestID,
		"is_error", result.IsError,
	)
	return protocol.NewResult(req.ID, result)
}

func (e *Engine) record(ctx context.Context, rec CallRecord) {
	if e.recorder == nil {
		return
	}
	e.recorder.Record(ctx, rec)
}
