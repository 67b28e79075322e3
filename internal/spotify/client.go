package spotify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	spotifyapi "github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/teemow/spotify-mcp/internal/instrumentation"
	"github.com/teemow/spotify-mcp/internal/logging"
)

const (
	// DefaultBaseURL is the Spotify Web API root.
	DefaultBaseURL = "https://api.spotify.com/v1/"

	// DefaultTimeout bounds each Spotify request.
	DefaultTimeout = 30 * time.Second
)

// Client calls the Spotify Web API through the zmb3/spotify SDK. It is safe
// for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/") + "/"
	}
}

// WithHTTPClient sets the HTTP client requests are sent with. Its transport
// and timeout are kept; the bearer token is added per call.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger for request outcomes.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// NewClient creates a Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// api returns an SDK client that authenticates with accessToken.
func (c *Client) api(ctx context.Context, accessToken string) *spotifyapi.Client {
	base := *c.httpClient
	base.Transport = &statusTransport{base: c.httpClient.Transport}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, &base)
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	return spotifyapi.New(httpClient, spotifyapi.WithBaseURL(c.baseURL))
}

// Profile returns the current user's profile.
func (c *Client) Profile(ctx context.Context, accessToken string) (*spotifyapi.PrivateUser, error) {
	if accessToken == "" {
		c.logger.Error("Missing access_token", logging.Operation(instrumentation.OperationProfile))
		return nil, ErrMissingToken
	}

	var user *spotifyapi.PrivateUser
	_, err := c.call(ctx, instrumentation.OperationProfile, accessToken, func(ctx context.Context, api *spotifyapi.Client) (err error) {
		user, err = api.CurrentUser(ctx)
		return err
	})
	if err != nil {
		c.logger.Error("Failed to fetch profile", logging.Err(err))
		return nil, err
	}

	c.logger.Info("User Profile",
		logging.UserHash(user.ID),
		slog.String("product", user.Product),
		slog.Int("followers", int(user.Followers.Count)))
	return user, nil
}

// UserID returns the current user's Spotify id.
func (c *Client) UserID(ctx context.Context, accessToken string) (string, error) {
	if accessToken == "" {
		c.logger.Error("Missing access_token", logging.Operation(instrumentation.OperationUserID))
		return "", ErrMissingToken
	}

	var user *spotifyapi.PrivateUser
	_, err := c.call(ctx, instrumentation.OperationUserID, accessToken, func(ctx context.Context, api *spotifyapi.Client) (err error) {
		user, err = api.CurrentUser(ctx)
		return err
	})
	if err != nil {
		c.logger.Error("Failed to fetch user ID", logging.Err(err))
		return "", err
	}
	if user.ID == "" {
		err := errors.New("profile response has no id")
		c.logger.Error("Failed to fetch user ID", logging.Err(err))
		return "", err
	}

	return user.ID, nil
}

// CurrentlyPlaying returns the user's current playback. It returns (nil, nil)
// when nothing is playing.
func (c *Client) CurrentlyPlaying(ctx context.Context, accessToken string) (*spotifyapi.CurrentlyPlaying, error) {
	if accessToken == "" {
		c.logger.Error("Missing access_token", logging.Operation(instrumentation.OperationCurrentlyPlaying))
		return nil, ErrMissingToken
	}

	var playback *spotifyapi.CurrentlyPlaying
	status, err := c.call(ctx, instrumentation.OperationCurrentlyPlaying, accessToken, func(ctx context.Context, api *spotifyapi.Client) (err error) {
		playback, err = api.PlayerCurrentlyPlaying(ctx)
		return err
	})
	if err != nil {
		c.logger.Error("Failed to fetch currently playing track", logging.Err(err))
		return nil, err
	}
	if status == http.StatusNoContent {
		c.logger.Info("No track currently playing.")
		return nil, nil
	}

	attrs := []any{slog.Bool("is_playing", playback.Playing)}
	if playback.Item != nil {
		attrs = append(attrs, slog.String("track", playback.Item.Name))
	}
	c.logger.Info("Currently Playing", attrs...)
	return playback, nil
}

// Playlists returns the first page of the current user's playlists. The user
// id is resolved first; if that fails the result is ErrIDResolution and no
// playlist request is made.
func (c *Client) Playlists(ctx context.Context, accessToken string) (*spotifyapi.SimplePlaylistPage, error) {
	if accessToken == "" {
		c.logger.Error("Missing access_token", logging.Operation(instrumentation.OperationPlaylists))
		return nil, ErrMissingToken
	}

	userID, err := c.UserID(ctx, accessToken)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrIDResolution, err)
		c.logger.Error("Failed to fetch user playlists", logging.Err(err))
		return nil, err
	}

	var page *spotifyapi.SimplePlaylistPage
	_, err = c.call(ctx, instrumentation.OperationPlaylists, accessToken, func(ctx context.Context, api *spotifyapi.Client) (err error) {
		// The SDK joins the id into the path as is.
		page, err = api.GetPlaylistsForUser(ctx, url.PathEscape(userID))
		return err
	})
	if err != nil {
		c.logger.Error("Failed to fetch user playlists", logging.Err(err))
		return nil, err
	}

	c.logger.Info("User Playlists", slog.Int("count", len(page.Playlists)), slog.Int("total", int(page.Total)))
	return page, nil
}

// call runs one SDK request inside a span and records its outcome. It
// returns the HTTP status; a 204 or an empty 2xx body is reported as
// http.StatusNoContent and is not an error.
func (c *Client) call(ctx context.Context, operation, accessToken string, fn func(context.Context, *spotifyapi.Client) error) (int, error) {
	ctx, span := instrumentation.StartSpotifySpan(ctx, operation)
	defer span.End()

	start := time.Now()
	var status int
	err := fn(withStatusRecorder(ctx, &status), c.api(ctx, accessToken))
	switch {
	case err == nil:
	case errors.Is(err, io.EOF) && status >= 200 && status < 300:
		status, err = http.StatusNoContent, nil
	default:
		err = newAPIError(status, err)
	}

	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithHTTPStatus(status).Build()...)
	result := instrumentation.StatusSuccess
	switch {
	case err != nil:
		result = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	case status == http.StatusNoContent:
		result = instrumentation.StatusNoContent
		instrumentation.SetSpanSuccess(span)
	default:
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordSpotifyAPIRequest(ctx, operation, result, time.Since(start))

	c.logger.Debug("Spotify API request",
		logging.Operation(operation),
		logging.StatusCode(status),
		logging.Status(result),
		logging.Token(accessToken),
		slog.Duration(logging.KeyDuration, time.Since(start)))

	return status, err
}

type statusKey struct{}

func withStatusRecorder(ctx context.Context, status *int) context.Context {
	return context.WithValue(ctx, statusKey{}, status)
}

// statusTransport stores the response status in the request context's
// recorder. The SDK hides it, and a 204 is only visible here.
type statusTransport struct {
	base http.RoundTripper
}

func (t *statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err == nil {
		if status, ok := req.Context().Value(statusKey{}).(*int); ok {
			*status = resp.StatusCode
		}
	}
	return resp, err
}
