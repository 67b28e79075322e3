package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(1, 3, false)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("198.51.100.1"), "request %d within burst", i)
	}
	assert.False(t, rl.Allow("198.51.100.1"), "burst exhausted")

	// Buckets are per IP.
	assert.True(t, rl.Allow("198.51.100.2"))
}

func TestRateLimiter_Refill(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(1, 1, false)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("ip"))
	assert.False(t, rl.Allow("ip"))

	now = now.Add(1100 * time.Millisecond)
	assert.True(t, rl.Allow("ip"))
}

func TestRateLimiter_EvictsIdle(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(1, 1, false)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(limiterIdleTTL + time.Second)
	rl.Allow("new")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.limiters, "old")
	assert.Contains(t, rl.limiters, "new")
}

func TestRateLimiter_NilMiddlewarePassesThrough(t *testing.T) {
	var rl *RateLimiter
	called := false
	h := rl.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.True(t, called)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{"remote addr", "203.0.113.5:1234", nil, false, "203.0.113.5"},
		{"ipv6 remote addr", "[2001:db8::1]:1234", nil, false, "2001:db8::1"},
		{"xff ignored without trust", "203.0.113.5:1234", map[string]string{"X-Forwarded-For": "10.0.0.1"}, false, "203.0.113.5"},
		{"xff first hop", "203.0.113.5:1234", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, true, "10.0.0.1"},
		{"x-real-ip", "203.0.113.5:1234", map[string]string{"X-Real-IP": "10.0.0.9"}, true, "10.0.0.9"},
		{"no port", "203.0.113.5", nil, false, "203.0.113.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req, tt.trustProxy))
		})
	}
}
