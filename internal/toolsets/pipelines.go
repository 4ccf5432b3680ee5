// ABOUTME: Pipelines toolset: list and fetch pipeline summaries from the
// ABOUTME: Orbital pipeline service.

package toolsets

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/orbitalci/orbital-mcp/internal/client"
	"github.com/orbitalci/orbital-mcp/internal/protocol"
	"github.com/orbitalci/orbital-mcp/internal/registry"
)

// Pipeline is the summary DTO this server exposes for a pipeline.
type Pipeline struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status,omitempty"`
	ProjectID  string `json:"projectId,omitempty"`
	ModifiedAt string `json:"modifiedAt,omitempty"`
}

// pipelineList is the backend list envelope.
type pipelineList struct {
	Pipelines []Pipeline `json:"pipelines"`
}

// Pipelines returns the pipelines toolset.
func Pipelines(c *client.Client) *registry.Toolset {
	return &registry.Toolset{
		Name:        "pipelines",
		Description: "Pipeline discovery and inspection",
		Tools: []*registry.Tool{
			{
				Name:        "list_pipelines",
				Description: "List pipelines, optionally filtered by project",
				InputSchema: objectSchema(map[string]any{
					"project_id": stringProp("Only list pipelines in this project"),
				}),
				Handler: func(ctx context.Context, args json.RawMessage) (*protocol.CallToolResult, error) {
					query := url.Values{}
					if project := argString(args, "project_id"); project != "" {
						query.Set("projectId", project)
					}
					var list pipelineList
					if err := c.Get(ctx, "/api/pipelines", query, &list); err != nil {
						return nil, err
					}
					return jsonResult(list.Pipelines)
				},
			},
			{
				Name:        "get_pipeline",
				Description: "Fetch one pipeline by id",
				InputSchema: objectSchema(map[string]any{
					"pipeline_id": stringProp("Identifier of the pipeline"),
				}, "pipeline_id"),
				Handler: func(ctx context.Context, args json.RawMessage) (*protocol.CallToolResult, error) {
					id := argString(args, "pipeline_id")
					var p Pipeline
					if err := c.Get(ctx, "/api/pipelines/"+url.PathEscape(id), nil, &p); err != nil {
						return nil, err
					}
					return jsonResult(p)
				},
			},
		},
	}
}
