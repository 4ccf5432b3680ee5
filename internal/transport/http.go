// ABOUTME: Concurrent HTTP transport: one JSON-RPC request per POST body,
// ABOUTME: a static health endpoint, and permissive CORS.

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/orbitalci/orbital-mcp/internal/auth"
	"github.com/orbitalci/orbital-mcp/internal/engine"
	"github.com/orbitalci/orbital-mcp/internal/protocol"
)

// maxRequestBody bounds an HTTP request body (1MB).
const maxRequestBody = 1 << 20

// TokenVerifier validates inbound bearer tokens when the transport is
// configured to require auth. auth.TokenService satisfies it.
type TokenVerifier interface {
	Verify(token string) (*auth.AuthSession, error)
}

// HTTPConfig holds construction parameters for the HTTP transport.
type HTTPConfig struct {
	Engine      *engine.Engine
	Addr        string
	MCPPath     string // defaults to /mcp
	RequireAuth bool
	Verifier    TokenVerifier // required when RequireAuth is set
	Logger      *slog.Logger
}

// HTTP serves JSON-RPC over HTTP POST. Requests are dispatched
// independently and concurrently through the shared engine.
type HTTP struct {
	engine      *engine.Engine
	addr        string
	mcpPath     string
	requireAuth bool
	verifier    TokenVerifier
	logger      *slog.Logger
}

// NewHTTP creates the HTTP transport.
func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	if cfg.Engine == nil {
		return nil, errors.New("engine is required")
	}
	if cfg.RequireAuth && cfg.Verifier == nil {
		return nil, errors.New("token verifier required when auth is required")
	}
	path := cfg.MCPPath
	if path == "" {
		path = "/mcp"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTP{
		engine:      cfg.Engine,
		addr:        cfg.Addr,
		mcpPath:     path,
		requireAuth: cfg.RequireAuth,
		verifier:    cfg.Verifier,
		logger:      logger.With("component", "http"),
	}, nil
}

// Handler returns the HTTP handler serving the MCP and health paths.
func (t *HTTP) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(t.mcpPath, t.handleMCP)
	mux.HandleFunc("/health", t.handleHealth)
	return mux
}

// Run serves until ctx is canceled, then shuts down gracefully. A
// failure to bind the port is fatal and returned.
func (t *HTTP) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              t.addr,
		Handler:           t.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	t.logger.Info("http transport listening", "addr", t.addr, "mcp_path", t.mcpPath)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handleMCP processes one JSON-RPC message per POST body.
func (t *HTTP) handleMCP(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		w.Header().Set("Allow", "POST, OPTIONS")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	if t.requireAuth {
		if resp := t.authorize(r); resp != nil {
			t.writeResponse(w, resp)
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		t.writeResponse(w, protocol.NewError(nil, protocol.CodeParseError, "failed to read request body"))
		return
	}
	if len(body) > maxRequestBody {
		t.writeResponse(w, protocol.NewError(nil, protocol.CodeInvalidRequest, "request body too large"))
		return
	}

	resp := t.engine.Handle(r.Context(), body)
	if resp == nil {
		// Notification: accepted, no body.
		w.WriteHeader(http.StatusAccepted)
		return
	}
	t.writeResponse(w, resp)
}

// authorize validates the inbound bearer token. Returns a ready error
// response when the request must be rejected.
func (t *HTTP) authorize(r *http.Request) *protocol.Response {
	header := r.Header.Get("Authorization")
	if header == "" {
		return protocol.NewError(nil, protocol.CodeInvalidRequest, "authentication required")
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return protocol.NewError(nil, protocol.CodeInvalidRequest, "invalid authorization header format")
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return protocol.NewError(nil, protocol.CodeInvalidRequest, "empty token")
	}
	if _, err := t.verifier.Verify(token); err != nil {
		t.logger.Warn("inbound auth failed", "error", err)
		return protocol.NewError(nil, protocol.CodeInvalidRequest, "invalid or expired token")
	}
	return nil
}

func (t *HTTP) handleHealth(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
		t.logger.Warn("failed to write health response", "error", err)
	}
}

func (t *HTTP) writeResponse(w http.ResponseWriter, resp *protocol.Response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		t.logger.Warn("failed to encode response", "error", err)
	}
}

// setCORSHeaders applies the permissive CORS policy; client origins are
// not constrained.
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id")
}
