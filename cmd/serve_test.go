package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/spotify-mcp/internal/auth"
	"github.com/teemow/spotify-mcp/internal/server"
	"github.com/teemow/spotify-mcp/internal/spotify"
	"github.com/teemow/spotify-mcp/internal/tools/common"
	"github.com/teemow/spotify-mcp/internal/tools/spotify_tools"
)

func TestParseCommaSeparatedList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single value",
			input:    "user-top-read",
			expected: []string{"user-top-read"},
		},
		{
			name:     "multiple values",
			input:    "user-top-read,playlist-read-private",
			expected: []string{"user-top-read", "playlist-read-private"},
		},
		{
			name:     "values with spaces around comma",
			input:    "user-top-read, playlist-read-private",
			expected: []string{"user-top-read", "playlist-read-private"},
		},
		{
			name:     "trailing and consecutive commas",
			input:    "user-top-read,,playlist-read-private,",
			expected: []string{"user-top-read", "playlist-read-private"},
		},
		{
			name:     "only commas and spaces",
			input:    ",  , , ",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseCommaSeparatedList(tt.input))
		})
	}
}

func TestAuthBaseURL(t *testing.T) {
	tests := []struct {
		name        string
		redirectURI string
		expected    string
	}{
		{name: "default redirect", redirectURI: auth.DefaultRedirectURI, expected: "http://127.0.0.1:8888"},
		{name: "https host", redirectURI: "https://spotify.example.com/callback", expected: "https://spotify.example.com"},
		{name: "relative", redirectURI: "/callback", expected: auth.DefaultBaseURL},
		{name: "empty", redirectURI: "", expected: auth.DefaultBaseURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, authBaseURL(tt.redirectURI))
		})
	}
}

func newTestServeCmd(t *testing.T, args ...string) (*cobra.Command, *ServeConfig) {
	t.Helper()

	var config ServeConfig
	cmd := &cobra.Command{Use: "serve"}
	cmd.Flags().StringVar(&config.AuthBaseURL, "auth-base-url", "", "")
	cmd.Flags().BoolVar(&config.EmbedAuthServer, "auth-server", true, "")
	addAuthFlags(cmd, &config.Auth)
	addMetricsFlags(cmd, &config.Metrics)
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd, &config
}

func TestLoadAuthEnvVars(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "env-secret")
	t.Setenv("SPOTIFY_REDIRECT_URI", "http://127.0.0.1:9999/callback")
	t.Setenv("SPOTIFY_SCOPES", "user-top-read, user-library-read")
	t.Setenv("AUTH_ADDR", "127.0.0.1:9999")

	t.Run("env fills unset flags", func(t *testing.T) {
		cmd, config := newTestServeCmd(t)
		loadAuthEnvVars(cmd, &config.Auth)

		assert.Equal(t, "env-id", config.Auth.ClientID)
		assert.Equal(t, "env-secret", config.Auth.ClientSecret)
		assert.Equal(t, "http://127.0.0.1:9999/callback", config.Auth.RedirectURI)
		assert.Equal(t, []string{"user-top-read", "user-library-read"}, config.Auth.Scopes)
		assert.Equal(t, "127.0.0.1:9999", config.Auth.Addr)
	})

	t.Run("explicit flags win", func(t *testing.T) {
		cmd, config := newTestServeCmd(t, "--spotify-client-id=flag-id", "--auth-addr=127.0.0.1:7777")
		loadAuthEnvVars(cmd, &config.Auth)

		assert.Equal(t, "flag-id", config.Auth.ClientID)
		assert.Equal(t, "env-secret", config.Auth.ClientSecret)
		assert.Equal(t, "127.0.0.1:7777", config.Auth.Addr)
	})
}

func TestLoadAuthEnvVars_Defaults(t *testing.T) {
	for _, key := range []string{"SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_SECRET", "SPOTIFY_REDIRECT_URI", "SPOTIFY_SCOPES", "AUTH_ADDR"} {
		t.Setenv(key, "")
	}

	cmd, config := newTestServeCmd(t)
	loadAuthEnvVars(cmd, &config.Auth)

	assert.Empty(t, config.Auth.ClientID)
	assert.Equal(t, auth.DefaultRedirectURI, config.Auth.RedirectURI)
	assert.Equal(t, server.DefaultAuthAddr, config.Auth.Addr)
	assert.Nil(t, config.Auth.Scopes)
	assert.Equal(t, float64(server.DefaultRateLimit), config.Auth.RateLimit)
}

func TestLoadMetricsEnvVars(t *testing.T) {
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("METRICS_ADDR", ":9191")

	cmd, config := newTestServeCmd(t)
	loadMetricsEnvVars(cmd, &config.Metrics)
	assert.False(t, config.Metrics.Enabled)
	assert.Equal(t, ":9191", config.Metrics.Addr)

	t.Setenv("METRICS_ENABLED", "not-a-bool")
	cmd, config = newTestServeCmd(t)
	loadMetricsEnvVars(cmd, &config.Metrics)
	assert.True(t, config.Metrics.Enabled)
}

func TestLoadServeEnvVars(t *testing.T) {
	t.Setenv("AUTH_BASE_URL", "")
	t.Setenv("EMBED_AUTH_SERVER", "")

	t.Run("base url derived from redirect uri", func(t *testing.T) {
		cmd, config := newTestServeCmd(t, "--redirect-uri=http://127.0.0.1:9000/callback")
		loadServeEnvVars(cmd, config)
		assert.Equal(t, "http://127.0.0.1:9000", config.AuthBaseURL)
		assert.True(t, config.EmbedAuthServer)
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("AUTH_BASE_URL", "http://auth.internal:8888")
		t.Setenv("EMBED_AUTH_SERVER", "false")

		cmd, config := newTestServeCmd(t)
		loadServeEnvVars(cmd, config)
		assert.Equal(t, "http://auth.internal:8888", config.AuthBaseURL)
		assert.False(t, config.EmbedAuthServer)
	})
}

// The login URL shares its host with the default redirect URI, so the
// prompt names 127.0.0.1 rather than localhost.
func TestServe_DefaultLoginPrompt(t *testing.T) {
	for _, key := range []string{"AUTH_BASE_URL", "EMBED_AUTH_SERVER", "SPOTIFY_REDIRECT_URI"} {
		t.Setenv(key, "")
	}

	cmd, config := newTestServeCmd(t)
	loadAuthEnvVars(cmd, &config.Auth)
	loadServeEnvVars(cmd, config)
	require.Equal(t, "http://127.0.0.1:8888", config.AuthBaseURL)

	sc, err := server.NewServerContext(context.Background(), auth.NewTokenFetcher(config.AuthBaseURL, nil), spotify.NewClient())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	mcpSrv := mcpserver.NewMCPServer("spotify-mcp", "test", mcpserver.WithToolCapabilities(true))
	require.NoError(t, registerAll(mcpSrv, sc))

	tool, ok := mcpSrv.ListTools()[spotify_tools.ToolProfile]
	require.True(t, ok)

	// Nothing serves /token on the default address in tests, or it answers
	// without a token; both read as not logged in.
	result, err := tool.Handler(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "Access token not found. Please log in via http://127.0.0.1:8888/login", common.ResultText(result))
}

func TestServeConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  ServeConfig
		wantErr bool
	}{
		{name: "stdio", config: ServeConfig{Transport: transportStdio, AuthBaseURL: "http://127.0.0.1:8888"}},
		{name: "streamable http", config: ServeConfig{Transport: transportStreamableHTTP, AuthBaseURL: "http://127.0.0.1:8888"}},
		{name: "unknown transport", config: ServeConfig{Transport: "sse", AuthBaseURL: "http://127.0.0.1:8888"}, wantErr: true},
		{name: "missing base url", config: ServeConfig{Transport: transportStdio}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewAuthServer_RequiresCredentials(t *testing.T) {
	_, _, err := newAuthServer(AuthConfig{RedirectURI: auth.DefaultRedirectURI}, nil, nil)
	assert.Error(t, err)

	srv, store, err := newAuthServer(AuthConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		Addr:         "127.0.0.1:0",
		RedirectURI:  auth.DefaultRedirectURI,
		RateLimit:    1,
		RateBurst:    1,
	}, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, srv)
	assert.False(t, store.HasToken())
}

func TestStartAuthServer(t *testing.T) {
	srv, _, err := newAuthServer(AuthConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		Addr:         "127.0.0.1:0",
		RedirectURI:  auth.DefaultRedirectURI,
	}, nil, nil)
	require.NoError(t, err)

	done, err := startAuthServer(srv)
	require.NoError(t, err)
	assert.NotEqual(t, "127.0.0.1:0", srv.Addr())

	require.NoError(t, shutdownAuthServer(srv))
	assert.NoError(t, <-done)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing default file is ignored", func(t *testing.T) {
		assert.NoError(t, loadEnvFile(filepath.Join(dir, "missing.env"), false))
	})

	t.Run("missing explicit file fails", func(t *testing.T) {
		assert.Error(t, loadEnvFile(filepath.Join(dir, "missing.env"), true))
	})

	t.Run("values are loaded without overriding", func(t *testing.T) {
		path := filepath.Join(dir, "test.env")
		require.NoError(t, os.WriteFile(path, []byte("SPOTIFY_MCP_TEST_A=from-file\nSPOTIFY_MCP_TEST_B=from-file\n"), 0600))
		t.Setenv("SPOTIFY_MCP_TEST_B", "from-env")
		t.Cleanup(func() { _ = os.Unsetenv("SPOTIFY_MCP_TEST_A") })

		require.NoError(t, loadEnvFile(path, true))
		assert.Equal(t, "from-file", os.Getenv("SPOTIFY_MCP_TEST_A"))
		assert.Equal(t, "from-env", os.Getenv("SPOTIFY_MCP_TEST_B"))
	})
}
