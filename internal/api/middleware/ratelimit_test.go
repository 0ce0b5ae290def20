package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (rl *RateLimiter) clientIDs() []string {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	ids := make([]string, 0, len(rl.clients))
	for id := range rl.clients {
		ids = append(ids, id)
	}
	return ids
}

// Mirrors the server wiring: viewer resolution runs before the rate
// limiter, so authenticated requests must be keyed by DID, not IP
func TestRateLimiter_AuthenticatedRequestsKeyedByViewer(t *testing.T) {
	setupSecret(t)
	rl := NewRateLimiter(100, time.Minute)
	mw := NewViewerAuthMiddleware()

	handler := mw.OptionalViewer(rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:4000"
	req.Header.Set("Authorization", "Bearer "+viewerToken(t, "test-secret", "did:plc:alice"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"did:plc:alice"}, rl.clientIDs())
}

func TestRateLimiter_AnonymousRequestsKeyedByIP(t *testing.T) {
	setupSecret(t)
	rl := NewRateLimiter(100, time.Minute)
	mw := NewViewerAuthMiddleware()

	handler := mw.OptionalViewer(rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:4000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"203.0.113.7"}, rl.clientIDs())
}

func TestRateLimiter_RejectsOverLimit(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
