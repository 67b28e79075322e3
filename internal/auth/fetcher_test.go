package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenFetcher_Fetch(t *testing.T) {
	h := newTestHandler(t, "")
	srv := httptest.NewServer(http.HandlerFunc(h.Token))
	defer srv.Close()

	f := NewTokenFetcher(srv.URL, srv.Client())

	_, err := f.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrMissingToken)

	h.Store().Set("A", "B")

	token, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A", token)
}

func TestTokenFetcher_NonOKStatus(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusInternalServerError, http.StatusNotFound} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		_, err := NewTokenFetcher(srv.URL, nil).Fetch(context.Background())
		assert.ErrorIs(t, err, ErrMissingToken, "status %d", status)
		srv.Close()
	}
}

func TestTokenFetcher_EmptyOrInvalidBody(t *testing.T) {
	for _, body := range []string{`{}`, `{"access_token":""}`, `not json`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		_, err := NewTokenFetcher(srv.URL, nil).Fetch(context.Background())
		assert.ErrorIs(t, err, ErrMissingToken, "body %q", body)
		srv.Close()
	}
}

func TestTokenFetcher_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewTokenFetcher(url, nil).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestTokenFetcher_LoginURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8888/login", NewTokenFetcher("", nil).LoginURL())
	assert.Equal(t, "http://127.0.0.1:9999/login", NewTokenFetcher("http://127.0.0.1:9999/", nil).LoginURL())
}
