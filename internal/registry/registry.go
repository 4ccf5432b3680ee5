// ABOUTME: Write-once tool registry built from enabled toolsets at startup.
// ABOUTME: Readers need no locking; argument validation runs before dispatch.

// Package registry holds the named tool definitions the server exposes.
// The registry is built exactly once at startup from the enabled
// toolsets and is immutable afterward, so lookups are safe under
// concurrent readers with no locking.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/orbitalci/orbital-mcp/internal/protocol"
)

// Registry errors
var (
	ErrToolNotFound      = errors.New("tool not found")
	ErrInvalidParameters = errors.New("invalid parameters")
	ErrToolCollision     = errors.New("tool name collision")
)

// Handler executes a tool with the supplied arguments. Handlers are
// supplied by tool modules; the registry stores but does not own them.
type Handler func(ctx context.Context, args json.RawMessage) (*protocol.CallToolResult, error)

// Tool is one named operation: schema plus handler. Tools are created
// when their toolset is registered and never change afterward.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     Handler
}

// registeredTool tracks which toolset contributed a tool.
type registeredTool struct {
	tool    *Tool
	toolset string
}

// BuildConfig holds the inputs for building a registry.
type BuildConfig struct {
	// Toolsets are all candidate toolsets, in registration order.
	Toolsets []*Toolset
	// Enabled names the explicitly requested toolsets; the single entry
	// "all" enables everything.
	Enabled []string
	// Licenses gates module-owned toolsets; nil means nothing is licensed.
	Licenses LicenseChecker
	Logger   *slog.Logger
}

// Registry is the immutable tool table. Construct with Build.
type Registry struct {
	tools  map[string]registeredTool
	names  []string // sorted, for deterministic listings
	groups []ToolsetGroup
	logger *slog.Logger
}

// Build enumerates the candidate toolsets, keeps the enabled ones, and
// registers their tools. Name collisions keep the first registration
// and are reported via an ErrToolCollision-wrapped error so callers can
// treat them as a configuration fault; the registry itself stays usable.
func Build(cfg BuildConfig) (*Registry, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "registry")

	r := &Registry{
		tools:  make(map[string]registeredTool),
		logger: logger,
	}

	var collisions []string
	for _, ts := range cfg.Toolsets {
		reason, enabled := gate(ts, cfg.Enabled, cfg.Licenses)
		if !enabled {
			logger.Debug("toolset not enabled", "toolset", ts.Name)
			continue
		}

		for _, tool := range ts.Tools {
			if existing, ok := r.tools[tool.Name]; ok {
				collisions = append(collisions, fmt.Sprintf(
					"tool %q from toolset %q already registered by toolset %q",
					tool.Name, ts.Name, existing.toolset))
				continue
			}
			r.tools[tool.Name] = registeredTool{tool: tool, toolset: ts.Name}
			r.names = append(r.names, tool.Name)
		}

		r.groups = append(r.groups, ToolsetGroup{Toolset: ts, Reason: reason})
		logger.Info("toolset registered",
			"toolset", ts.Name,
			"reason", string(reason),
			"tool_count", len(ts.Tools),
		)
	}

	sort.Strings(r.names)

	if len(collisions) > 0 {
		return r, fmt.Errorf("%w: %s", ErrToolCollision, strings.Join(collisions, "; "))
	}
	return r, nil
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []*Tool {
	tools := make([]*Tool, 0, len(r.names))
	for _, name := range r.names {
		tools = append(tools, r.tools[name].tool)
	}
	return tools
}

// Find returns the tool with the given name.
func (r *Registry) Find(name string) (*Tool, bool) {
	rt, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return rt.tool, true
}

// Groups returns the toolset groups that were loaded, with the gating
// reason that admitted each.
func (r *Registry) Groups() []ToolsetGroup {
	return r.groups
}

// Call resolves a tool by name, validates required arguments against
// its input schema, and invokes the handler. The handler never runs for
// an unknown name or missing required arguments.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (*protocol.CallToolResult, error) {
	rt, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	if err := validateArguments(rt.tool.InputSchema, args); err != nil {
		return nil, err
	}
	return rt.tool.Handler(ctx, args)
}

// validateArguments checks that every property named in the schema's
// "required" list is present in the argument object. Full JSON-Schema
// validation is the backend's job; presence of required keys is enough
// to reject obviously broken calls before a handler runs.
func validateArguments(schema, args json.RawMessage) error {
	if len(schema) == 0 {
		return nil
	}

	var shape struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(schema, &shape); err != nil || len(shape.Required) == 0 {
		return nil
	}

	var argMap map[string]json.RawMessage
	if len(args) > 0 && string(args) != "null" {
		if err := json.Unmarshal(args, &argMap); err != nil {
			return fmt.Errorf("%w: arguments must be an object", ErrInvalidParameters)
		}
	}

	var missing []string
	for _, field := range shape.Required {
		if _, ok := argMap[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required arguments: %s",
			ErrInvalidParameters, strings.Join(missing, ", "))
	}
	return nil
}
