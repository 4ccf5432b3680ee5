// ABOUTME: Connectors toolset: list and fetch connector summaries.

package toolsets

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/orbitalci/orbital-mcp/internal/client"
	"github.com/orbitalci/orbital-mcp/internal/protocol"
	"github.com/orbitalci/orbital-mcp/internal/registry"
)

// Connector is the summary DTO this server exposes for a connector.
type Connector struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type,omitempty"`
	Status string `json:"status,omitempty"`
}

type connectorList struct {
	Connectors []Connector `json:"connectors"`
}

// Connectors returns the connectors toolset.
func Connectors(c *client.Client) *registry.Toolset {
	return &registry.Toolset{
		Name:        "connectors",
		Description: "Connector discovery and inspection",
		Tools: []*registry.Tool{
			{
				Name:        "list_connectors",
				Description: "List connectors visible to the authenticated account",
				InputSchema: objectSchema(map[string]any{
					"type": stringProp("Only list connectors of this type"),
				}),
				Handler: func(ctx context.Context, args json.RawMessage) (*protocol.CallToolResult, error) {
					query := url.Values{}
					if t := argString(args, "type"); t != "" {
						query.Set("type", t)
					}
					var list connectorList
					if err := c.Get(ctx, "/api/connectors", query, &list); err != nil {
						return nil, err
					}
					return jsonResult(list.Connectors)
				},
			},
			{
				Name:        "get_connector",
				Description: "Fetch one connector by id",
				InputSchema: objectSchema(map[string]any{
					"connector_id": stringProp("Identifier of the connector"),
				}, "connector_id"),
				Handler: func(ctx context.Context, args json.RawMessage) (*protocol.CallToolResult, error) {
					id := argString(args, "connector_id")
					var conn Connector
					if err := c.Get(ctx, "/api/connectors/"+url.PathEscape(id), nil, &conn); err != nil {
						return nil, err
					}
					return jsonResult(conn)
				},
			},
		},
	}
}
