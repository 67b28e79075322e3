package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/teemow/spotify-mcp/internal/auth"
	"github.com/teemow/spotify-mcp/internal/instrumentation"
)

const (
	// DefaultAuthAddr is the loopback address of the authorization server.
	DefaultAuthAddr = "127.0.0.1:8888"

	authReadHeaderTimeout = 10 * time.Second
	// The callback waits on the Spotify token exchange.
	authWriteTimeout = auth.DefaultHTTPTimeout + 10*time.Second
	authIdleTimeout  = 120 * time.Second
)

const indexPage = `<!DOCTYPE html>
<html>
<head><title>Spotify MCP</title></head>
<body>
<p>Spotify MCP authorization server.</p>
<p><a href="/login">Log in with Spotify</a></p>
<p id="error"></p>
<script>
const err = new URLSearchParams(location.hash.slice(1)).get("error");
if (err) document.getElementById("error").textContent = "Login failed: " + err;
</script>
</body>
</html>
`

// AuthHTTPServerConfig configures the authorization HTTP server.
type AuthHTTPServerConfig struct {
	// Addr defaults to DefaultAuthAddr.
	Addr string

	// Handler serves /login, /callback and /token. Required.
	Handler *auth.Handler

	// RedirectURI is checked with validateHTTPSRequirement when set.
	RedirectURI string

	// Health adds /healthz, /readyz and /healthz/detailed when set.
	Health *HealthChecker

	// RateLimiter guards /login and /callback when set.
	RateLimiter *RateLimiter

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// AuthHTTPServer serves the Spotify login flow and the local /token endpoint.
type AuthHTTPServer struct {
	config     AuthHTTPServerConfig
	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewAuthHTTPServer creates a new authorization server.
func NewAuthHTTPServer(config AuthHTTPServerConfig) (*AuthHTTPServer, error) {
	if config.Handler == nil {
		return nil, errors.New("auth handler is required")
	}
	if config.RedirectURI != "" {
		if err := validateHTTPSRequirement(config.RedirectURI); err != nil {
			return nil, fmt.Errorf("invalid redirect uri: %w", err)
		}
	}
	if config.Addr == "" {
		config.Addr = DefaultAuthAddr
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	s := &AuthHTTPServer{config: config}
	s.httpServer = &http.Server{
		Addr:              config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: authReadHeaderTimeout,
		WriteTimeout:      authWriteTimeout,
		IdleTimeout:       authIdleTimeout,
	}
	return s, nil
}

// Handler returns the routed and instrumented HTTP handler.
func (s *AuthHTTPServer) Handler() http.Handler {
	h := s.config.Handler
	rl := s.config.RateLimiter

	mux := http.NewServeMux()
	mux.Handle("GET /login", rl.Middleware(http.HandlerFunc(h.Login)))
	mux.Handle("GET /callback", rl.Middleware(http.HandlerFunc(h.Callback)))
	mux.HandleFunc("GET /token", h.Token)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(indexPage))
	})

	if s.config.Health != nil {
		s.config.Health.RegisterHealthEndpoints(mux)
	}

	return securityHeaders(instrumentHTTP(s.config.Metrics, mux))
}

// Start listens on the configured address and serves until Shutdown.
func (s *AuthHTTPServer) Start() error {
	return s.StartWithReadySignal(nil)
}

// StartWithReadySignal is Start, closing ready once the listener is bound.
func (s *AuthHTTPServer) StartWithReadySignal(ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.config.Logger.Info("Spotify auth server running", "url", "http://"+ln.Addr().String())
	if ready != nil {
		close(ready)
	}

	return s.httpServer.Serve(ln)
}

// Addr returns the bound address once started, otherwise the configured one.
func (s *AuthHTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// Shutdown gracefully stops the server.
func (s *AuthHTTPServer) Shutdown(ctx context.Context) error {
	s.config.Logger.Info("shutting down auth server")
	return s.httpServer.Shutdown(ctx)
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func instrumentHTTP(metrics *instrumentation.Metrics, next http.Handler) http.Handler {
	if metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// validateHTTPSRequirement accepts https URLs and plain http on loopback hosts.
func validateHTTPSRequirement(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("plain http is only allowed on loopback hosts (got: %s)", rawURL)
		}
		return nil
	default:
		return fmt.Errorf("invalid URL scheme %q: must be http (loopback only) or https", u.Scheme)
	}
}
