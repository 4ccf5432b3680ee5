// ABOUTME: The always-on default toolset: connectivity and identity checks.

package toolsets

import (
	"context"
	"encoding/json"

	"github.com/orbitalci/orbital-mcp/internal/auth"
	"github.com/orbitalci/orbital-mcp/internal/protocol"
	"github.com/orbitalci/orbital-mcp/internal/registry"
)

// Default returns the default toolset. It is gated on, always.
func Default(provider auth.Provider) *registry.Toolset {
	return &registry.Toolset{
		Name:        registry.DefaultToolsetName,
		Description: "Connectivity and identity tools",
		Tools: []*registry.Tool{
			{
				Name:        "ping",
				Description: "Check that the server is responsive",
				InputSchema: objectSchema(map[string]any{}),
				Handler: func(_ context.Context, _ json.RawMessage) (*protocol.CallToolResult, error) {
					return protocol.TextResult("pong"), nil
				},
			},
			{
				Name:        "whoami",
				Description: "Show the account the server is authenticated against",
				InputSchema: objectSchema(map[string]any{}),
				Handler: func(_ context.Context, _ json.RawMessage) (*protocol.CallToolResult, error) {
					if err := provider.Validate(); err != nil {
						return nil, err
					}
					return jsonResult(map[string]string{
						"accountId": provider.GetAccountID(),
					})
				},
			},
		},
	}
}
