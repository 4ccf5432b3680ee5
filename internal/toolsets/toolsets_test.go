// ABOUTME: Tests for the shipped toolsets against a fake Orbital backend,
// ABOUTME: exercising handlers end to end through the resilient client.

package toolsets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalci/orbital-mcp/internal/auth"
	"github.com/orbitalci/orbital-mcp/internal/client"
	"github.com/orbitalci/orbital-mcp/internal/protocol"
	"github.com/orbitalci/orbital-mcp/internal/registry"
)

func testBackend(t *testing.T, routes map[string]string) *client.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if q := r.URL.Query().Encode(); q != "" {
			key += "?" + q
		}
		body, ok := routes[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return client.New(client.Config{
		BaseURL:          server.URL,
		Timeout:          2 * time.Second,
		RetryMaxInterval: 10 * time.Millisecond,
		RetryMaxElapsed:  time.Second,
	})
}

func findTool(t *testing.T, ts *registry.Toolset, name string) *registry.Tool {
	t.Helper()
	for _, tool := range ts.Tools {
		if tool.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %q not in toolset %q", name, ts.Name)
	return nil
}

func callTool(t *testing.T, tool *registry.Tool, args string) *protocol.CallToolResult {
	t.Helper()
	result, err := tool.Handler(context.Background(), json.RawMessage(args))
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	return result
}

func TestDefaultToolset(t *testing.T) {
	ts := Default(auth.NewAPIKeyProvider("pat.acc123.tok456.sig"))

	t.Run("ping", func(t *testing.T) {
		result := callTool(t, findTool(t, ts, "ping"), `{}`)
		assert.Equal(t, "pong", result.Content[0].Text)
	})

	t.Run("whoami reports the credential account", func(t *testing.T) {
		result := callTool(t, findTool(t, ts, "whoami"), `{}`)
		assert.Contains(t, result.Content[0].Text, "acc123")
	})

	t.Run("whoami fails on a bad credential", func(t *testing.T) {
		bad := Default(auth.NewAPIKeyProvider("not-a-key"))
		_, err := findTool(t, bad, "whoami").Handler(context.Background(), json.RawMessage(`{}`))
		assert.ErrorIs(t, err, auth.ErrInvalidCredential)
	})
}

func TestPipelinesToolset(t *testing.T) {
	c := testBackend(t, map[string]string{
		"/api/pipelines":                  `{"pipelines":[{"id":"p1","name":"deploy"},{"id":"p2","name":"test"}]}`,
		"/api/pipelines?projectId=proj-9": `{"pipelines":[{"id":"p2","name":"test","projectId":"proj-9"}]}`,
		"/api/pipelines/p1":               `{"id":"p1","name":"deploy","status":"active"}`,
	})
	ts := Pipelines(c)

	t.Run("list all", func(t *testing.T) {
		result := callTool(t, findTool(t, ts, "list_pipelines"), `{}`)
		var pipelines []Pipeline
		require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &pipelines))
		assert.Len(t, pipelines, 2)
	})

	t.Run("list filtered by project", func(t *testing.T) {
		result := callTool(t, findTool(t, ts, "list_pipelines"), `{"project_id":"proj-9"}`)
		var pipelines []Pipeline
		require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &pipelines))
		require.Len(t, pipelines, 1)
		assert.Equal(t, "p2", pipelines[0].ID)
	})

	t.Run("get by id", func(t *testing.T) {
		result := callTool(t, findTool(t, ts, "get_pipeline"), `{"pipeline_id":"p1"}`)
		var p Pipeline
		require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &p))
		assert.Equal(t, "deploy", p.Name)
		assert.Equal(t, "active", p.Status)
	})

	t.Run("get unknown id surfaces backend error", func(t *testing.T) {
		_, err := findTool(t, ts, "get_pipeline").Handler(context.Background(), json.RawMessage(`{"pipeline_id":"missing"}`))
		require.Error(t, err)
	})
}

func TestConnectorsToolset(t *testing.T) {
	c := testBackend(t, map[string]string{
		"/api/connectors":    `{"connectors":[{"id":"c1","name":"github","type":"vcs"}]}`,
		"/api/connectors/c1": `{"id":"c1","name":"github","type":"vcs"}`,
	})
	ts := Connectors(c)

	result := callTool(t, findTool(t, ts, "list_connectors"), `{}`)
	assert.Contains(t, result.Content[0].Text, "github")

	result = callTool(t, findTool(t, ts, "get_connector"), `{"connector_id":"c1"}`)
	assert.Contains(t, result.Content[0].Text, "vcs")
}

func TestLogsToolset(t *testing.T) {
	c := testBackend(t, map[string]string{
		"/api/executions/e1/logs/download": `{"url":"https://cdn.orbital.example/logs/e1.tar.gz","expiresAt":"2026-09-01T00:00:00Z"}`,
	})
	ts := Logs(c)

	assert.Equal(t, LogsModule, ts.Module)

	result := callTool(t, findTool(t, ts, "download_execution_logs"), `{"execution_id":"e1"}`)
	assert.Contains(t, result.Content[0].Text, "logs/e1.tar.gz")
}

func TestSchemasMarkRequiredArguments(t *testing.T) {
	c := testBackend(t, nil)

	var required struct {
		Required []string `json:"required"`
	}

	tool := findTool(t, Pipelines(c), "get_pipeline")
	require.NoError(t, json.Unmarshal(tool.InputSchema, &required))
	assert.Equal(t, []string{"pipeline_id"}, required.Required)

	tool = findTool(t, Logs(c), "download_execution_logs")
	require.NoError(t, json.Unmarshal(tool.InputSchema, &required))
	assert.Equal(t, []string{"execution_id"}, required.Required)
}
