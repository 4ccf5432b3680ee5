// ABOUTME: License-gated logs toolset for fetching execution log archives.

package toolsets

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/orbitalci/orbital-mcp/internal/client"
	"github.com/orbitalci/orbital-mcp/internal/protocol"
	"github.com/orbitalci/orbital-mcp/internal/registry"
)

// LogsModule is the platform module that licenses the logs toolset.
const LogsModule = "logs"

// Logs returns the logs toolset. It loads only when explicitly enabled
// or when the logs module license check passes.
func Logs(c *client.Client) *registry.Toolset {
	return &registry.Toolset{
		Name:        "logs",
		Description: "Execution log retrieval",
		Module:      LogsModule,
		Tools: []*registry.Tool{
			{
				Name:        "download_execution_logs",
				Description: "Get a signed download URL for an execution's log archive",
				InputSchema: objectSchema(map[string]any{
					"execution_id": stringProp("Identifier of the pipeline execution"),
				}, "execution_id"),
				Handler: func(ctx context.Context, args json.RawMessage) (*protocol.CallToolResult, error) {
					id := argString(args, "execution_id")
					var out struct {
						URL       string `json:"url"`
						ExpiresAt string `json:"expiresAt,omitempty"`
					}
					if err := c.Get(ctx, "/api/executions/"+url.PathEscape(id)+"/logs/download", nil, &out); err != nil {
						return nil, err
					}
					return jsonResult(out)
				},
			},
		},
	}
}
