package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/spotify-mcp/internal/auth"
	"github.com/teemow/spotify-mcp/internal/instrumentation"
	"github.com/teemow/spotify-mcp/internal/server"
	"github.com/teemow/spotify-mcp/internal/session"
)

// serverStartupTimeout bounds the wait for a listener to bind.
const serverStartupTimeout = 5 * time.Second

// AuthConfig holds configuration for the authorization server
type AuthConfig struct {
	// ClientID and ClientSecret identify the Spotify app
	ClientID     string
	ClientSecret string

	// Addr is the listen address of the authorization server
	Addr string

	// RedirectURI must be registered for the Spotify app
	RedirectURI string

	// Scopes overrides the default Spotify scopes when non-empty
	Scopes []string

	// RateLimit and RateBurst bound /login and /callback per client IP
	RateLimit  float64
	RateBurst  int
	TrustProxy bool
}

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newAuthServerCmd() *cobra.Command {
	var (
		authConfig    AuthConfig
		metricsConfig MetricsConfig
	)

	cmd := &cobra.Command{
		Use:   "auth-server",
		Short: "Start only the Spotify authorization server",
		Long: `Start the authorization server without an MCP front end.

Open /login in a browser to log in with Spotify. After the callback the
access token is served on /token to a separately started "serve
--auth-server=false" process.

Credentials:
  --spotify-client-id and --spotify-client-secret flags
  OR SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET env vars (also read from .env)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadAuthEnvVars(cmd, &authConfig)
			loadMetricsEnvVars(cmd, &metricsConfig)
			return runAuthServer(authConfig, metricsConfig)
		},
	}

	addAuthFlags(cmd, &authConfig)
	addMetricsFlags(cmd, &metricsConfig)

	return cmd
}

func runAuthServer(authConfig AuthConfig, metricsConfig MetricsConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			slog.Error("error during instrumentation shutdown", "error", err)
		}
	}()

	metricsServer, err := startMetricsServer(provider, metricsConfig)
	if err != nil {
		return err
	}
	defer shutdownMetricsServer(metricsServer)

	authServer, _, err := newAuthServer(authConfig, nil, provider.Metrics())
	if err != nil {
		return err
	}

	serverDone, err := startAuthServer(authServer)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("auth server stopped with error: %w", err)
		}
		return nil
	}

	return shutdownAuthServer(authServer)
}

func addAuthFlags(cmd *cobra.Command, config *AuthConfig) {
	cmd.Flags().StringVar(&config.ClientID, "spotify-client-id", "", "Spotify app client ID. Can also use SPOTIFY_CLIENT_ID env var.")
	cmd.Flags().StringVar(&config.ClientSecret, "spotify-client-secret", "", "Spotify app client secret. Can also use SPOTIFY_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&config.Addr, "auth-addr", server.DefaultAuthAddr, "Authorization server address. Can also use AUTH_ADDR env var.")
	cmd.Flags().StringVar(&config.RedirectURI, "redirect-uri", auth.DefaultRedirectURI, "OAuth redirect URI registered for the Spotify app. Can also use SPOTIFY_REDIRECT_URI env var.")
	cmd.Flags().StringSliceVar(&config.Scopes, "scopes", nil, "Spotify scopes to request (comma-separated, default: all supported). Can also use SPOTIFY_SCOPES env var.")
	cmd.Flags().Float64Var(&config.RateLimit, "auth-rate-limit", server.DefaultRateLimit, "Requests per second allowed per client IP on /login and /callback (0 disables)")
	cmd.Flags().IntVar(&config.RateBurst, "auth-rate-burst", server.DefaultRateBurst, "Burst size for the per-IP rate limit")
	cmd.Flags().BoolVar(&config.TrustProxy, "trust-proxy", false, "Use X-Forwarded-For for rate limiting. Only enable behind a trusted proxy.")
}

func addMetricsFlags(cmd *cobra.Command, config *MetricsConfig) {
	cmd.Flags().BoolVar(&config.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&config.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")
}

// loadAuthEnvVars loads authorization settings from environment variables.
// Environment variables only override flag values when the flag was not explicitly set.
func loadAuthEnvVars(cmd *cobra.Command, config *AuthConfig) {
	if !cmd.Flags().Changed("spotify-client-id") {
		if clientID := os.Getenv("SPOTIFY_CLIENT_ID"); clientID != "" {
			config.ClientID = clientID
		}
	}

	if !cmd.Flags().Changed("spotify-client-secret") {
		if clientSecret := os.Getenv("SPOTIFY_CLIENT_SECRET"); clientSecret != "" {
			config.ClientSecret = clientSecret
		}
	}

	if !cmd.Flags().Changed("auth-addr") {
		if addr := os.Getenv("AUTH_ADDR"); addr != "" {
			config.Addr = addr
		}
	}

	if !cmd.Flags().Changed("redirect-uri") {
		if redirectURI := os.Getenv("SPOTIFY_REDIRECT_URI"); redirectURI != "" {
			config.RedirectURI = redirectURI
		}
	}

	if !cmd.Flags().Changed("scopes") {
		if scopes := parseCommaSeparatedList(os.Getenv("SPOTIFY_SCOPES")); len(scopes) > 0 {
			config.Scopes = scopes
		}
	}
}

// loadMetricsEnvVars loads metrics server settings from environment variables.
func loadMetricsEnvVars(cmd *cobra.Command, config *MetricsConfig) {
	if !cmd.Flags().Changed("metrics-enabled") {
		if envVal := os.Getenv("METRICS_ENABLED"); envVal != "" {
			if parsed, err := strconv.ParseBool(envVal); err == nil {
				config.Enabled = parsed
			} else {
				slog.Warn("invalid METRICS_ENABLED value, using default", "value", envVal, "default", config.Enabled)
			}
		}
	}

	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			config.Addr = addr
		}
	}
}

// newAuthServer wires the session store, OAuth handler, rate limiter and
// health checker into an authorization server. sc may be nil.
func newAuthServer(config AuthConfig, sc *server.ServerContext, metrics *instrumentation.Metrics) (*server.AuthHTTPServer, *session.Store, error) {
	store := session.NewStore()

	handler, err := auth.NewHandler(auth.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RedirectURI:  config.RedirectURI,
		Scopes:       config.Scopes,
		Logger:       slog.Default().With("component", "auth"),
		Metrics:      metrics,
	}, store)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid spotify credentials: %w", err)
	}

	var rateLimiter *server.RateLimiter
	if config.RateLimit > 0 {
		rateLimiter = server.NewRateLimiter(config.RateLimit, config.RateBurst, config.TrustProxy)
	}

	authServer, err := server.NewAuthHTTPServer(server.AuthHTTPServerConfig{
		Addr:        config.Addr,
		Handler:     handler,
		RedirectURI: config.RedirectURI,
		Health:      server.NewHealthChecker(sc, store),
		RateLimiter: rateLimiter,
		Metrics:     metrics,
		Logger:      slog.Default().With("component", "auth_server"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create auth server: %w", err)
	}

	return authServer, store, nil
}

// startAuthServer starts srv in the background and waits until it listens.
// The returned channel yields the serve error, if any, and is then closed.
func startAuthServer(srv *server.AuthHTTPServer) (<-chan error, error) {
	ready := make(chan struct{})
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := srv.StartWithReadySignal(ready); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ready:
		return serverDone, nil
	case err := <-serverDone:
		return nil, fmt.Errorf("auth server failed to start: %w", err)
	case <-time.After(serverStartupTimeout):
		return nil, errors.New("auth server startup timed out")
	}
}

func shutdownAuthServer(srv *server.AuthHTTPServer) error {
	ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down auth server: %w", err)
	}
	return nil
}

// startMetricsServer starts the Prometheus metrics server when enabled.
// It returns nil when metrics are disabled.
func startMetricsServer(provider *instrumentation.Provider, config MetricsConfig) (*server.MetricsServer, error) {
	if !config.Enabled || !provider.Enabled() {
		return nil, nil
	}
	if provider.MetricsHandler() == nil {
		slog.Info("metrics server skipped, metrics are pushed by the configured exporter")
		return nil, nil
	}

	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    config.Addr,
		Enabled:                 true,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(serverStartupTimeout):
		return nil, errors.New("metrics server startup timed out")
	}
}

func shutdownMetricsServer(metricsServer *server.MetricsServer) {
	if metricsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(ctx); err != nil {
		slog.Error("error during metrics server shutdown", "error", err)
	}
}

// authBaseURL returns the URL tools use to reach the authorization server.
// It shares scheme and host with the redirect URI so the state cookie set on
// /login is sent back to /callback.
func authBaseURL(redirectURI string) string {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return auth.DefaultBaseURL
	}
	return u.Scheme + "://" + u.Host
}
