// ABOUTME: Static prompt-template provider backing prompts/list and prompts/get.
// ABOUTME: Templates substitute {{name}} placeholders from the call arguments.

package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/orbitalci/orbital-mcp/internal/protocol"
)

// Prompt errors
var (
	ErrPromptNotFound   = errors.New("prompt not found")
	ErrMissingPromptArg = errors.New("missing required prompt argument")
)

// PromptProvider serves named prompt templates. Register everything
// before the engine starts serving; reads take no locks.
type PromptProvider struct {
	prompts map[string]promptEntry
	names   []string
}

type promptEntry struct {
	info     protocol.Prompt
	template string
}

// NewPromptProvider creates an empty provider.
func NewPromptProvider() *PromptProvider {
	return &PromptProvider{prompts: make(map[string]promptEntry)}
}

// Add registers a prompt template. Placeholders of the form {{arg}} are
// replaced with argument values on expansion.
func (p *PromptProvider) Add(info protocol.Prompt, template string) {
	if _, exists := p.prompts[info.Name]; !exists {
		p.names = append(p.names, info.Name)
		sort.Strings(p.names)
	}
	p.prompts[info.Name] = promptEntry{info: info, template: template}
}

// List returns all prompts sorted by name.
func (p *PromptProvider) List() []protocol.Prompt {
	out := make([]protocol.Prompt, 0, len(p.names))
	for _, name := range p.names {
		out = append(out, p.prompts[name].info)
	}
	return out
}

// Get expands the named template with the given arguments. A missing
// required argument fails before expansion.
func (p *PromptProvider) Get(name string, args map[string]string) (*protocol.GetPromptResult, error) {
	entry, ok := p.prompts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPromptNotFound, name)
	}

	for _, arg := range entry.info.Arguments {
		if !arg.Required {
			continue
		}
		if _, ok := args[arg.Name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingPromptArg, arg.Name)
		}
	}

	text := entry.template
	for k, v := range args {
		text = strings.ReplaceAll(text, "{{"+k+"}}", v)
	}

	return &protocol.GetPromptResult{
		Description: entry.info.Description,
		Messages: []protocol.PromptMessage{
			{Role: "user", Content: protocol.Content{Type: "text", Text: text}},
		},
	}, nil
}

func (e *Engine) handlePromptsList(req *protocol.Request) *protocol.Response {
	result := protocol.ListPromptsResult{Prompts: []protocol.Prompt{}}
	if e.prompts != nil {
		result.Prompts = e.prompts.List()
	}
	return protocol.NewResult(req.ID, result)
}

func (e *Engine) handlePromptsGet(req *protocol.Request) *protocol.Response {
	var params protocol.GetPromptParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return protocol.NewError(req.ID, protocol.CodeInvalidParams, "invalid params")
		}
	}
	if params.Name == "" {
		return protocol.NewError(req.ID, protocol.CodeInvalidParams, "prompt name is required")
	}
	if e.prompts == nil {
		return protocol.NewError(req.ID, protocol.CodePromptNotFound, "no prompts available")
	}

	result, err := e.prompts.Get(params.Name, params.Arguments)
	if err != nil {
		if errors.Is(err, ErrMissingPromptArg) {
			return protocol.NewError(req.ID, protocol.CodeInvalidParams, err.Error())
		}
		return protocol.NewError(req.ID, protocol.CodePromptNotFound, err.Error())
	}
	return protocol.NewResult(req.ID, *result)
}
