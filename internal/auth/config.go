package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/teemow/spotify-mcp/internal/instrumentation"
)

const (
	// DefaultAuthURL is the Spotify consent page.
	DefaultAuthURL = spotifyauth.AuthURL

	// DefaultTokenURL is the Spotify token endpoint.
	DefaultTokenURL = spotifyauth.TokenURL

	// DefaultRedirectURI must match a redirect URI registered for the Spotify app.
	DefaultRedirectURI = "http://127.0.0.1:8888/callback"

	// StateCookieName holds the anti-forgery state between /login and /callback.
	StateCookieName = "spotify_auth_state"
)

// DefaultScopes are requested on every login.
var DefaultScopes = []string{
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
	"user-read-playback-position",
	spotifyauth.ScopeUserReadRecentlyPlayed,
	spotifyauth.ScopeUserTopRead,
	spotifyauth.ScopeUserLibraryModify,
	spotifyauth.ScopeUserLibraryRead,
}

// Config holds the settings of the authorization server.
type Config struct {
	ClientID     string
	ClientSecret string

	// RedirectURI defaults to DefaultRedirectURI.
	RedirectURI string

	// Scopes defaults to DefaultScopes.
	Scopes []string

	// AuthURL and TokenURL default to the Spotify accounts service.
	AuthURL  string
	TokenURL string

	// HTTPClient is used for the code exchange. Defaults to a client with
	// DefaultHTTPTimeout.
	HTTPClient *http.Client

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Validate reports missing or malformed settings.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return errors.New("spotify client id is required (set SPOTIFY_CLIENT_ID)")
	}
	if c.ClientSecret == "" {
		return errors.New("spotify client secret is required (set SPOTIFY_CLIENT_SECRET)")
	}
	if c.RedirectURI != "" {
		u, err := url.Parse(c.RedirectURI)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("redirect uri must be an absolute URL")
		}
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.RedirectURI == "" {
		c.RedirectURI = DefaultRedirectURI
	}
	if len(c.Scopes) == 0 {
		c.Scopes = DefaultScopes
	}
	if c.AuthURL == "" {
		c.AuthURL = DefaultAuthURL
	}
	if c.TokenURL == "" {
		c.TokenURL = DefaultTokenURL
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// oauth2Config builds the x/oauth2 configuration. Spotify expects the client
// credentials as HTTP Basic auth on the token request.
func (c *Config) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURI,
		Scopes:       c.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.AuthURL,
			TokenURL:  c.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// secureCookies reports whether the state cookie should carry the Secure flag.
func (c *Config) secureCookies() bool {
	return strings.HasPrefix(c.RedirectURI, "https://")
}
