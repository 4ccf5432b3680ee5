// ABOUTME: Static resource provider backing resources/list and resources/read.
// ABOUTME: Resources are registered at startup and immutable afterward.

package engine

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/orbitalci/orbital-mcp/internal/protocol"
)

// ResourceProvider serves a fixed set of readable documents under
// orbital:// URIs. Register everything before the engine starts serving;
// reads take no locks.
type ResourceProvider struct {
	resources map[string]resourceEntry
	uris      []string
}

type resourceEntry struct {
	info protocol.Resource
	text string
}

// NewResourceProvider creates an empty provider.
func NewResourceProvider() *ResourceProvider {
	return &ResourceProvider{resources: make(map[string]resourceEntry)}
}

// Add registers a resource and its body. Last registration wins for a
// duplicate URI.
func (p *ResourceProvider) Add(info protocol.Resource, text string) {
	if _, exists := p.resources[info.URI]; !exists {
		p.uris = append(p.uris, info.URI)
		sort.Strings(p.uris)
	}
	p.resources[info.URI] = resourceEntry{info: info, text: text}
}

// List returns all resources sorted by URI.
func (p *ResourceProvider) List() []protocol.Resource {
	out := make([]protocol.Resource, 0, len(p.uris))
	for _, uri := range p.uris {
		out = append(out, p.resources[uri].info)
	}
	return out
}

// Read returns the contents of the resource at uri.
func (p *ResourceProvider) Read(uri string) (*protocol.ResourceContents, error) {
	entry, ok := p.resources[uri]
	if !ok {
		return nil, fmt.Errorf("resource not found: %q", uri)
	}
	return &protocol.ResourceContents{
		URI:      uri,
		MimeType: entry.info.MimeType,
		Text:     entry.text,
	}, nil
}

func (e *Engine) handleResourcesList(req *protocol.Request) *protocol.Response {
	result := protocol.ListResourcesResult{Resources: []protocol.Resource{}}
	if e.resources != nil {
		result.Resources = e.resources.List()
	}
	return protocol.NewResult(req.ID, result)
}

func (e *Engine) handleResourcesRead(req *protocol.Request) *protocol.Response {
	var params protocol.ReadResourceParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return protocol.NewError(req.ID, protocol.CodeInvalidParams, "invalid params")
		}
	}
	if params.URI == "" {
		return protocol.NewError(req.ID, protocol.CodeInvalidParams, "uri is required")
	}
	if e.resources == nil {
		return protocol.NewError(req.ID, protocol.CodeResourceNotFound, "no resources available")
	}

	contents, err := e.resources.Read(params.URI)
	if err != nil {
		return protocol.NewError(req.ID, protocol.CodeResourceNotFound, err.Error())
	}
	return protocol.NewResult(req.ID, protocol.ReadResourceResult{
		Contents: []protocol.ResourceContents{*contents},
	})
}
