// ABOUTME: Entry point for the orbital-mcp server.
// ABOUTME: Wires config, auth, client, registry, engine, and transport together.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/orbitalci/orbital-mcp/internal/audit"
	"github.com/orbitalci/orbital-mcp/internal/auth"
	"github.com/orbitalci/orbital-mcp/internal/client"
	"github.com/orbitalci/orbital-mcp/internal/config"
	"github.com/orbitalci/orbital-mcp/internal/engine"
	"github.com/orbitalci/orbital-mcp/internal/protocol"
	"github.com/orbitalci/orbital-mcp/internal/registry"
	"github.com/orbitalci/orbital-mcp/internal/toolsets"
	"github.com/orbitalci/orbital-mcp/internal/transport"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
            _     _ _        _
  ___  _ __| |__ (_) |_ __ _| |      _ __ ___   ___ _ __
 / _ \| '__| '_ \| | __/ _' | |_____| '_ ' _ \ / __| '_ \
| (_) | |  | |_) | | || (_| | |_____| | | | | | (__| |_) |
 \___/|_|  |_.__/|_|\__\__,_|_|     |_| |_| |_|\___| .__/
                                                   |_|
`

// getConfigPath returns the path to the config file.
// Priority: ORBITAL_MCP_CONFIG env var > XDG_CONFIG_HOME/orbital/mcp.yaml > ~/.config/orbital/mcp.yaml
func getConfigPath() string {
	if envPath := os.Getenv("ORBITAL_MCP_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "mcp.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "orbital", "mcp.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: orbital-mcp <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve      Start the MCP server on the configured transport")
		fmt.Println("  version    Print the version")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// On the stdio transport stdout belongs to the protocol, so logs
	// always go to stderr.
	logger := setupLogger(cfg.Logging)

	provider, tokenSvc, err := buildProvider(cfg)
	if err != nil {
		return fmt.Errorf("configuring auth: %w", err)
	}

	apiClient := client.New(client.Config{
		BaseURL:          cfg.BaseURL,
		AuthProvider:     provider,
		Timeout:          cfg.Client.Timeout,
		RetryMaxInterval: cfg.Client.RetryMaxInterval,
		RetryMaxElapsed:  cfg.Client.RetryMaxElapsed,
		Logger:           logger,
	})

	licensed := make(map[string]bool, len(cfg.Toolsets.LicensedModules))
	for _, module := range cfg.Toolsets.LicensedModules {
		licensed[module] = true
	}

	reg, err := registry.Build(registry.BuildConfig{
		Toolsets: []*registry.Toolset{
			toolsets.Default(provider),
			toolsets.Pipelines(apiClient),
			toolsets.Connectors(apiClient),
			toolsets.Logs(apiClient),
		},
		Enabled:  cfg.Toolsets.Enabled,
		Licenses: registry.LicenseCheckerFunc(func(m string) bool { return licensed[m] }),
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("building tool registry: %w", err)
	}

	var recorder engine.Recorder
	if cfg.Audit.Path != "" {
		store, err := audit.Open(cfg.Audit.Path, logger)
		if err != nil {
			return fmt.Errorf("opening audit store: %w", err)
		}
		defer store.Close()
		recorder = store
	}

	eng, err := engine.New(engine.Config{
		Registry:      reg,
		Resources:     buildResources(cfg),
		Prompts:       buildPrompts(),
		Recorder:      recorder,
		AccountID:     provider.GetAccountID(),
		ServerName:    "orbital-mcp",
		ServerVersion: version,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	switch cfg.Server.Transport {
	case config.TransportStdio:
		logger.Info("starting orbital-mcp", "transport", "stdio", "version", version)
		return transport.NewStdio(eng, os.Stdin, os.Stdout, logger).Run(ctx)
	case config.TransportHTTP:
		printBanner(cfg, configPath)
		logger.Info("starting orbital-mcp",
			"transport", "http",
			"addr", cfg.Server.HTTPAddr,
			"version", version,
		)
		httpCfg := transport.HTTPConfig{
			Engine:      eng,
			Addr:        cfg.Server.HTTPAddr,
			MCPPath:     cfg.Server.MCPPath,
			RequireAuth: cfg.Server.RequireAuth,
			Logger:      logger,
		}
		if tokenSvc != nil {
			httpCfg.Verifier = tokenSvc
		}
		httpTransport, err := transport.NewHTTP(httpCfg)
		if err != nil {
			return fmt.Errorf("creating http transport: %w", err)
		}
		return httpTransport.Run(ctx)
	default:
		return fmt.Errorf("unknown transport %q", cfg.Server.Transport)
	}
}

// buildProvider constructs the configured credential provider. The
// token service is non-nil only for JWT auth, where it also verifies
// inbound tokens on the HTTP transport.
func buildProvider(cfg *config.Config) (auth.Provider, *auth.TokenService, error) {
	switch cfg.Auth.Kind {
	case config.AuthAPIKey:
		p := auth.NewAPIKeyProvider(cfg.Auth.APIKey)
		if err := p.Validate(); err != nil {
			return nil, nil, err
		}
		return p, nil, nil
	case config.AuthBearer:
		p := auth.NewBearerProvider(cfg.Auth.BearerToken)
		if err := p.Validate(); err != nil {
			return nil, nil, err
		}
		return p, nil, nil
	case config.AuthService:
		p := auth.NewServiceProvider(cfg.Auth.ServiceName, cfg.Auth.ServiceSecret, cfg.Auth.AccountID)
		if cfg.Auth.ServiceSecretHash != "" {
			p = p.WithSecretHash(cfg.Auth.ServiceSecretHash)
		}
		if err := p.Validate(); err != nil {
			return nil, nil, err
		}
		return p, nil, nil
	case config.AuthJWT:
		svc := auth.NewTokenService([]byte(cfg.Auth.JWTSecret), "orbital-mcp")
		p := auth.NewSignedTokenProvider(cfg.Auth.JWTToken, svc)
		if err := p.Validate(); err != nil {
			return nil, nil, err
		}
		return p, svc, nil
	default:
		return nil, nil, fmt.Errorf("unknown auth kind %q", cfg.Auth.Kind)
	}
}

func buildResources(cfg *config.Config) *engine.ResourceProvider {
	resources := engine.NewResourceProvider()
	resources.Add(protocol.Resource{
		URI:         "orbital://server/about",
		Name:        "About this server",
		Description: "What this MCP server exposes and how to call it",
		MimeType:    "text/markdown",
	}, aboutResource)
	resources.Add(protocol.Resource{
		URI:      "orbital://server/base-url",
		Name:     "Backend base URL",
		MimeType: "text/plain",
	}, cfg.BaseURL)
	return resources
}

func buildPrompts() *engine.PromptProvider {
	prompts := engine.NewPromptProvider()
	prompts.Add(protocol.Prompt{
		Name:        "investigate_pipeline_failure",
		Description: "Walk through diagnosing a failed pipeline",
		Arguments: []protocol.PromptArgument{
			{Name: "pipeline_id", Description: "Identifier of the failing pipeline", Required: true},
		},
	}, "Investigate why pipeline {{pipeline_id}} is failing. Fetch the pipeline with get_pipeline, check its status, and pull recent execution logs if the logs toolset is available.")
	return prompts
}

const aboutResource = `# orbital-mcp

This server exposes Orbital platform operations as MCP tools. Call
tools/list after initialize to discover what is enabled; toolsets beyond
the default load according to server configuration.
`

func printBanner(cfg *config.Config, configPath string) {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:  %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:    %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Backend: %s\n", cfg.BaseURL)
	fmt.Println()
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
