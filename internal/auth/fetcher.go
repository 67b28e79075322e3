package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultBaseURL is where tools reach the authorization server.
const DefaultBaseURL = "http://localhost:8888"

// maxTokenResponseSize caps the /token body read by TokenFetcher.
const maxTokenResponseSize = 64 << 10

// TokenFetcher retrieves the current access token from the /token endpoint
// of a running authorization server.
type TokenFetcher struct {
	baseURL    string
	httpClient *http.Client
}

// NewTokenFetcher creates a fetcher for the server at baseURL. A nil
// httpClient gets a client with DefaultHTTPTimeout.
func NewTokenFetcher(baseURL string, httpClient *http.Client) *TokenFetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &TokenFetcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// BaseURL returns the authorization server base URL.
func (f *TokenFetcher) BaseURL() string {
	return f.baseURL
}

// LoginURL returns the URL a user opens to log in.
func (f *TokenFetcher) LoginURL() string {
	return f.baseURL + "/login"
}

// Fetch returns the stored access token. Any response other than 200 with a
// non-empty access_token yields an error wrapping ErrMissingToken.
func (f *TokenFetcher) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/token", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: auth server unreachable: %w", ErrMissingToken, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxTokenResponseSize))
		return "", fmt.Errorf("%w: auth server returned status %d", ErrMissingToken, resp.StatusCode)
	}

	var body TokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxTokenResponseSize)).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: invalid token response: %w", ErrMissingToken, err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrMissingToken)
	}

	return body.AccessToken, nil
}
