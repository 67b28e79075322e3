package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/spotify-mcp/internal/auth"
	"github.com/teemow/spotify-mcp/internal/instrumentation"
	"github.com/teemow/spotify-mcp/internal/resources"
	"github.com/teemow/spotify-mcp/internal/server"
	"github.com/teemow/spotify-mcp/internal/spotify"
	"github.com/teemow/spotify-mcp/internal/tools/spotify_tools"
)

// Supported MCP transports.
const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

// ServeConfig holds configuration for the serve command
type ServeConfig struct {
	// Transport is stdio or streamable-http
	Transport string

	// HTTPAddr is the MCP listen address for streamable-http
	HTTPAddr string

	// AuthBaseURL is where tools fetch the access token. Derived from the
	// redirect URI when empty.
	AuthBaseURL string

	// EmbedAuthServer runs the authorization server in this process
	EmbedAuthServer bool

	Auth    AuthConfig
	Metrics MetricsConfig
}

func newServeCmd() *cobra.Command {
	var config ServeConfig

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server together with the Spotify
authorization server.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on /mcp

Authentication:
  Open the login URL (default http://127.0.0.1:8888/login) in a browser and
  approve access. Until then every tool answers with the login URL.

  Credentials:
    --spotify-client-id and --spotify-client-secret flags
    OR SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET env vars (also read from .env)

  To use an authorization server started with "spotify-mcp auth-server",
  pass --auth-server=false and --auth-base-url.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadAuthEnvVars(cmd, &config.Auth)
			loadMetricsEnvVars(cmd, &config.Metrics)
			loadServeEnvVars(cmd, &config)
			return runServe(config)
		},
	}

	cmd.Flags().StringVar(&config.Transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&config.HTTPAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().StringVar(&config.AuthBaseURL, "auth-base-url", "", "Base URL of the authorization server (default: scheme and host of the redirect URI). Can also use AUTH_BASE_URL env var.")
	cmd.Flags().BoolVar(&config.EmbedAuthServer, "auth-server", true, "Run the authorization server in this process. Can also use EMBED_AUTH_SERVER env var.")

	addAuthFlags(cmd, &config.Auth)
	addMetricsFlags(cmd, &config.Metrics)

	return cmd
}

// loadServeEnvVars loads serve settings from environment variables.
// Environment variables only override flag values when the flag was not explicitly set.
func loadServeEnvVars(cmd *cobra.Command, config *ServeConfig) {
	if !cmd.Flags().Changed("auth-base-url") {
		if baseURL := os.Getenv("AUTH_BASE_URL"); baseURL != "" {
			config.AuthBaseURL = baseURL
		}
	}

	if !cmd.Flags().Changed("auth-server") {
		if envVal := os.Getenv("EMBED_AUTH_SERVER"); envVal != "" {
			if parsed, err := strconv.ParseBool(envVal); err == nil {
				config.EmbedAuthServer = parsed
			} else {
				slog.Warn("invalid EMBED_AUTH_SERVER value, using default", "value", envVal, "default", config.EmbedAuthServer)
			}
		}
	}

	if config.AuthBaseURL == "" {
		config.AuthBaseURL = authBaseURL(config.Auth.RedirectURI)
	}
}

func (c ServeConfig) validate() error {
	switch c.Transport {
	case transportStdio, transportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s)", c.Transport, transportStdio, transportStreamableHTTP)
	}
	if c.AuthBaseURL == "" {
		return errors.New("auth base url is required")
	}
	return nil
}

func runServe(config ServeConfig) error {
	if err := config.validate(); err != nil {
		return err
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			slog.Error("error during instrumentation shutdown", "error", err)
		}
	}()

	// Metrics server only for non-stdio transports
	var metricsServer *server.MetricsServer
	if config.Transport != transportStdio {
		metricsServer, err = startMetricsServer(provider, config.Metrics)
		if err != nil {
			return err
		}
	}
	defer shutdownMetricsServer(metricsServer)

	tokens := auth.NewTokenFetcher(config.AuthBaseURL, nil)
	spotifyClient := spotify.NewClient(
		spotify.WithLogger(slog.Default().With("component", "spotify")),
		spotify.WithMetrics(provider.Metrics()),
	)

	serverContext, err := server.NewServerContext(shutdownCtx, tokens, spotifyClient)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}

	// Set metrics and audit logger on server context for tool instrumentation
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
		serverContext.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(nil, instrConfig.AuditLogging))
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			slog.Error("error during server context shutdown", "error", err)
		}
	}()

	if config.EmbedAuthServer {
		authServer, _, err := newAuthServer(config.Auth, serverContext, provider.Metrics())
		if err != nil {
			return err
		}
		authDone, err := startAuthServer(authServer)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdownAuthServer(authServer); err != nil {
				slog.Error("error during auth server shutdown", "error", err)
			}
		}()
		go func() {
			if err := <-authDone; err != nil {
				slog.Error("auth server stopped with error", "error", err)
				cancel()
			}
		}()
	}

	slog.Info("log in to Spotify", "url", tokens.LoginURL())

	mcpSrv := mcpserver.NewMCPServer("spotify-mcp", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)

	if err := registerAll(mcpSrv, serverContext); err != nil {
		return err
	}

	// Start the appropriate server based on transport type
	switch config.Transport {
	case transportStreamableHTTP:
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, config.HTTPAddr)
	default:
		return runStdioServer(shutdownCtx, mcpSrv)
	}
}

// registerAll registers all MCP tools and resources
func registerAll(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext) error {
	type registration struct {
		name     string
		register func() error
	}

	registrations := []registration{
		{
			name: "Spotify tools",
			register: func() error {
				return spotify_tools.RegisterSpotifyTools(mcpSrv, sc)
			},
		},
		{
			name: "session resources",
			register: func() error {
				return resources.RegisterSessionResources(mcpSrv, sc)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, addr string) error {
	httpServer := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath("/mcp"),
	)

	slog.Info("streamable HTTP server starting", "addr", addr, "endpoint", "/mcp")

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	slog.Info("HTTP server gracefully stopped")
	return nil
}

// parseCommaSeparatedList parses a comma-separated string into a slice,
// trimming whitespace from each element and filtering out empty strings.
// Returns nil if the input is empty or contains only whitespace/commas.
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
