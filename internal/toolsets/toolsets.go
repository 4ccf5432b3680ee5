// ABOUTME: Toolset definitions wiring tool handlers to the Orbital REST API.
// ABOUTME: Each file contributes one toolset; this file holds shared helpers.

// Package toolsets defines the tool modules shipped with the server.
// Each toolset bundles a few named tools whose handlers call the
// Orbital platform through the resilient client. Handlers keep DTOs
// minimal; the full per-resource field zoo lives on the backend.
package toolsets

import (
	"encoding/json"
	"fmt"

	"github.com/orbitalci/orbital-mcp/internal/protocol"
)

// objectSchema builds a JSON-Schema object with the given properties
// and required list. Panics on marshal failure, which only a programmer
// error can cause; schemas are static.
func objectSchema(properties map[string]any, required ...string) json.RawMessage {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	data, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("marshaling tool schema: %v", err))
	}
	return data
}

// stringProp describes one string property.
func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// jsonResult renders v as an indented JSON text block.
func jsonResult(v any) (*protocol.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return protocol.TextResult(string(data)), nil
}

// argString extracts a string argument by name, or "" when absent.
func argString(args json.RawMessage, name string) string {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(args, &m); err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(m[name], &s); err != nil {
		return ""
	}
	return s
}
