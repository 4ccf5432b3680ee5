// ABOUTME: Tests for registry building, toolset gating, collision handling,
// ABOUTME: and pre-dispatch argument validation.

package registry

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/orbitalci/orbital-mcp/internal/protocol"
)

// countingTool builds a tool whose handler increments calls.
func countingTool(name string, schema string, calls *int) *Tool {
	return &Tool{
		Name:        name,
		Description: name + " description",
		InputSchema: json.RawMessage(schema),
		Handler: func(_ context.Context, _ json.RawMessage) (*protocol.CallToolResult, error) {
			*calls++
			return protocol.TextResult("ok"), nil
		},
	}
}

func simpleToolset(name string, tools ...*Tool) *Toolset {
	return &Toolset{Name: name, Tools: tools}
}

func TestBuildGating(t *testing.T) {
	var calls int
	pipelines := simpleToolset("pipelines",
		countingTool("get_pipeline", `{"type":"object","required":["pipeline_id"]}`, &calls),
		countingTool("list_pipelines", `{"type":"object"}`, &calls),
	)
	connectors := simpleToolset("connectors",
		countingTool("list_connectors", `{"type":"object"}`, &calls),
	)
	def := simpleToolset(DefaultToolsetName, countingTool("ping", `{"type":"object"}`, &calls))

	t.Run("default is always included", func(t *testing.T) {
		reg, err := Build(BuildConfig{Toolsets: []*Toolset{def, pipelines, connectors}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := reg.Find("ping"); !ok {
			t.Error("expected default toolset tool to be registered")
		}
		if _, ok := reg.Find("get_pipeline"); ok {
			t.Error("pipelines should not be enabled without opt-in")
		}
	})

	t.Run("explicit enable admits only the named toolset", func(t *testing.T) {
		reg, err := Build(BuildConfig{
			Toolsets: []*Toolset{def, pipelines, connectors},
			Enabled:  []string{"pipelines"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		names := make(map[string]bool)
		for _, tool := range reg.List() {
			names[tool.Name] = true
		}
		if !names["get_pipeline"] || !names["list_pipelines"] {
			t.Errorf("expected pipeline tools, got %v", names)
		}
		if names["list_connectors"] {
			t.Error("connectors toolset should be excluded")
		}
	})

	t.Run("all admits everything", func(t *testing.T) {
		reg, err := Build(BuildConfig{
			Toolsets: []*Toolset{def, pipelines, connectors},
			Enabled:  []string{EnableAll},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(reg.List()) != 4 {
			t.Errorf("expected 4 tools, got %d", len(reg.List()))
		}
	})

	t.Run("license admits module-owned toolsets", func(t *testing.T) {
		licensed := &Toolset{
			Name:   "logs",
			Module: "logs",
			Tools:  []*Tool{countingTool("download_execution_logs", `{"type":"object"}`, &calls)},
		}
		reg, err := Build(BuildConfig{
			Toolsets: []*Toolset{def, licensed},
			Licenses: LicenseCheckerFunc(func(m string) bool { return m == "logs" }),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := reg.Find("download_execution_logs"); !ok {
			t.Error("expected licensed toolset to be registered")
		}

		groups := reg.Groups()
		found := false
		for _, g := range groups {
			if g.Toolset.Name == "logs" && g.Reason == GateLicensed {
				found = true
			}
		}
		if !found {
			t.Errorf("expected logs group with licensed reason, got %+v", groups)
		}
	})

	t.Run("unlicensed module stays out", func(t *testing.T) {
		gated := &Toolset{
			Name:   "logs",
			Module: "logs",
			Tools:  []*Tool{countingTool("download_execution_logs", `{"type":"object"}`, &calls)},
		}
		reg, err := Build(BuildConfig{Toolsets: []*Toolset{def, gated}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := reg.Find("download_execution_logs"); ok {
			t.Error("unlicensed toolset should not be registered")
		}
	})
}

func TestBuildCollision(t *testing.T) {
	var first, second int
	a := simpleToolset(DefaultToolsetName, countingTool("dupe", `{"type":"object"}`, &first))
	b := &Toolset{Name: "extra", Tools: []*Tool{countingTool("dupe", `{"type":"object"}`, &second)}}

	reg, err := Build(BuildConfig{
		Toolsets: []*Toolset{a, b},
		Enabled:  []string{"extra"},
	})
	if !errors.Is(err, ErrToolCollision) {
		t.Fatalf("expected ErrToolCollision, got %v", err)
	}

	// First registration wins.
	if _, callErr := reg.Call(context.Background(), "dupe", nil); callErr != nil {
		t.Fatalf("unexpected call error: %v", callErr)
	}
	if first != 1 || second != 0 {
		t.Errorf("expected first handler to win, got first=%d second=%d", first, second)
	}
}

func TestCall(t *testing.T) {
	t.Run("unknown name returns not found without running anything", func(t *testing.T) {
		var calls int
		reg, err := Build(BuildConfig{
			Toolsets: []*Toolset{simpleToolset(DefaultToolsetName,
				countingTool("known", `{"type":"object"}`, &calls))},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, callErr := reg.Call(context.Background(), "missing", nil)
		if !errors.Is(callErr, ErrToolNotFound) {
			t.Fatalf("expected ErrToolNotFound, got %v", callErr)
		}
		if calls != 0 {
			t.Errorf("no handler should have run, got %d calls", calls)
		}
	})

	t.Run("missing required argument fails before the handler", func(t *testing.T) {
		var calls int
		reg, err := Build(BuildConfig{
			Toolsets: []*Toolset{simpleToolset(DefaultToolsetName,
				countingTool("get_pipeline", `{"type":"object","properties":{"pipeline_id":{"type":"string"}},"required":["pipeline_id"]}`, &calls))},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, callErr := reg.Call(context.Background(), "get_pipeline", json.RawMessage(`{}`))
		if !errors.Is(callErr, ErrInvalidParameters) {
			t.Fatalf("expected ErrInvalidParameters, got %v", callErr)
		}
		if calls != 0 {
			t.Errorf("handler should not have run, got %d calls", calls)
		}

		_, callErr = reg.Call(context.Background(), "get_pipeline", json.RawMessage(`{"pipeline_id":"p1"}`))
		if callErr != nil {
			t.Fatalf("unexpected error with required arg present: %v", callErr)
		}
		if calls != 1 {
			t.Errorf("expected exactly one handler call, got %d", calls)
		}
	})

	t.Run("non-object arguments fail validation when schema requires fields", func(t *testing.T) {
		var calls int
		reg, err := Build(BuildConfig{
			Toolsets: []*Toolset{simpleToolset(DefaultToolsetName,
				countingTool("strict", `{"type":"object","required":["x"]}`, &calls))},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, callErr := reg.Call(context.Background(), "strict", json.RawMessage(`"just a string"`))
		if !errors.Is(callErr, ErrInvalidParameters) {
			t.Fatalf("expected ErrInvalidParameters, got %v", callErr)
		}
	})
}

func TestConcurrentReads(t *testing.T) {
	var calls int
	reg, err := Build(BuildConfig{
		Toolsets: []*Toolset{simpleToolset(DefaultToolsetName,
			countingTool("ping", `{"type":"object"}`, &calls))},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Readers need no locking after Build; race detector verifies.
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.List()
			reg.Find("ping")
			reg.Groups()
		}()
	}
	wg.Wait()
}

func TestListSorted(t *testing.T) {
	var calls int
	reg, err := Build(BuildConfig{
		Toolsets: []*Toolset{simpleToolset(DefaultToolsetName,
			countingTool("zebra", `{"type":"object"}`, &calls),
			countingTool("alpha", `{"type":"object"}`, &calls),
		)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tools := reg.List()
	if len(tools) != 2 || tools[0].Name != "alpha" || tools[1].Name != "zebra" {
		t.Errorf("expected sorted listing, got %v", []string{tools[0].Name, tools[1].Name})
	}
}
