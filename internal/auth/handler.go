package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/spotify-mcp/internal/instrumentation"
	"github.com/teemow/spotify-mcp/internal/logging"
	"github.com/teemow/spotify-mcp/internal/session"
)

const (
	// DefaultHTTPTimeout bounds outgoing requests to Spotify and to /token.
	DefaultHTTPTimeout = 30 * time.Second

	// MessageNoToken is returned by /token before the first login.
	MessageNoToken = "No token found. Please login first."
)

// CallbackResponse is returned by /callback after a successful exchange.
type CallbackResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is returned by /token when a token is stored.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

// ErrorResponse is the JSON error body used by /token.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler serves the authorization endpoints. Only Callback writes the
// session store.
type Handler struct {
	config  Config
	oauth   *oauth2.Config
	store   *session.Store
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewHandler creates a Handler backed by store.
func NewHandler(config Config, store *session.Store) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("session store is required")
	}
	config.setDefaults()

	return &Handler{
		config:  config,
		oauth:   config.oauth2Config(),
		store:   store,
		logger:  config.Logger,
		metrics: config.Metrics,
	}, nil
}

// Store returns the session store the handler writes to.
func (h *Handler) Store() *session.Store {
	return h.store
}

// Login starts the authorization flow by redirecting to Spotify.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		h.logger.Error("Failed to start login", logging.Err(err))
		http.Error(w, "failed to start login", http.StatusInternalServerError)
		return
	}

	setStateCookie(w, state, h.config.secureCookies())
	h.metrics.RecordOAuthLogin(r.Context())
	h.logger.Debug("Redirecting to Spotify authorization")

	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusFound)
}

// Callback completes the flow: it verifies the state, exchanges the code and
// stores the resulting tokens.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := validateState(r); err != nil {
		h.logger.Warn("Rejected OAuth callback", logging.Err(err))
		h.metrics.RecordOAuthCallback(ctx, instrumentation.OAuthResultStateMismatch)
		h.redirectError(w, r, err)
		return
	}

	clearStateCookie(w, h.config.secureCookies())

	query := r.URL.Query()
	token, err := h.exchange(ctx, query.Get("code"), query.Get("error"))
	if err != nil {
		h.logger.Error("Failed to exchange authorization code", logging.Err(err))
		h.metrics.RecordOAuthCallback(ctx, instrumentation.OAuthResultExchangeFailed)
		h.redirectError(w, r, err)
		return
	}

	h.store.Set(token.AccessToken, token.RefreshToken)
	h.metrics.RecordOAuthCallback(ctx, instrumentation.OAuthResultSuccess)
	h.logger.Info("Stored Spotify access token", logging.Token(token.AccessToken))

	writeJSON(w, http.StatusOK, CallbackResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	})
}

// Token returns the stored access token, or 401 before the first login.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	token, ok := h.store.AccessToken()
	if !ok {
		h.metrics.RecordTokenFetch(r.Context(), instrumentation.TokenResultMissing)
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: MessageNoToken})
		return
	}

	h.metrics.RecordTokenFetch(r.Context(), instrumentation.TokenResultFound)
	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token})
}

// exchange trades code for tokens. denied is the error parameter Spotify
// sends instead of a code when the user declines consent.
func (h *Handler) exchange(ctx context.Context, code, denied string) (*oauth2.Token, error) {
	if code == "" {
		if denied != "" {
			return nil, &ExchangeError{Err: fmt.Errorf("authorization denied: %s", denied)}
		}
		return nil, &ExchangeError{Err: errors.New("authorization code missing")}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, h.config.HTTPClient)
	token, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, &ExchangeError{Err: err}
	}
	if token.AccessToken == "" {
		return nil, &ExchangeError{Err: errors.New("token response missing access_token")}
	}
	return token, nil
}

func (h *Handler) redirectError(w http.ResponseWriter, r *http.Request, err error) {
	fragment := url.Values{"error": {errorCode(err)}}.Encode()
	http.Redirect(w, r, "/#"+fragment, http.StatusFound)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
