package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/spotify-mcp/internal/auth"
	"github.com/teemow/spotify-mcp/internal/session"
	"github.com/teemow/spotify-mcp/internal/spotify"
)

func TestHealthChecker_Readiness(t *testing.T) {
	h := NewHealthChecker(nil, nil)

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	h.SetReady(false)
	assert.False(t, h.IsReady())

	rec = httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, healthStatusNotReady, resp.Checks["ready"])
}

func TestHealthChecker_ShuttingDown(t *testing.T) {
	sc, err := NewServerContext(context.Background(), auth.NewTokenFetcher("", nil), spotify.NewClient())
	require.NoError(t, err)
	h := NewHealthChecker(sc, nil)

	require.NoError(t, sc.Shutdown())

	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, healthStatusShuttingDown, resp.Status)
}

func TestHealthChecker_DetailedLoginState(t *testing.T) {
	store := session.NewStore()
	h := NewHealthChecker(nil, store)

	get := func() DetailedHealthResponse {
		rec := httptest.NewRecorder()
		h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))
		var resp DetailedHealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	assert.False(t, get().LoggedIn)

	store.Set("A", "B")
	resp := get()
	assert.True(t, resp.LoggedIn)
	assert.NotEmpty(t, resp.TokenAge)
}

func TestServerContext(t *testing.T) {
	_, err := NewServerContext(context.Background(), nil, spotify.NewClient())
	assert.Error(t, err)
	_, err = NewServerContext(context.Background(), auth.NewTokenFetcher("", nil), nil)
	assert.Error(t, err)

	sc, err := NewServerContext(context.Background(), auth.NewTokenFetcher("", nil), spotify.NewClient())
	require.NoError(t, err)

	assert.Nil(t, sc.Metrics())
	assert.Nil(t, sc.AuditLogger())
	assert.NotNil(t, sc.Tokens())
	assert.NotNil(t, sc.Spotify())

	require.NoError(t, sc.Shutdown())
	require.NoError(t, sc.Shutdown(), "shutdown is idempotent")
	assert.True(t, sc.IsShutdown())
	assert.Error(t, sc.Context().Err())
}
