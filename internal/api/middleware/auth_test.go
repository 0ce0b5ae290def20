package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Hollows/internal/atproto/auth"
)

func viewerToken(t *testing.T, secret, did string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   did,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func setupSecret(t *testing.T) {
	t.Helper()
	auth.ResetJWTConfigForTesting()
	t.Setenv("SERVICE_JWT_SECRET", "test-secret")
	t.Cleanup(auth.ResetJWTConfigForTesting)
}

func TestOptionalViewer_AnonymousPassesThrough(t *testing.T) {
	setupSecret(t)
	mw := NewViewerAuthMiddleware()

	var captured *string
	handler := mw.OptionalViewer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetViewerDID(r)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, captured)
}

func TestOptionalViewer_ValidTokenSetsViewer(t *testing.T) {
	setupSecret(t)
	mw := NewViewerAuthMiddleware()

	var captured *string
	handler := mw.OptionalViewer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetViewerDID(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+viewerToken(t, "test-secret", "did:plc:alice"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "did:plc:alice", *captured)
}

func TestOptionalViewer_InvalidTokenRejected(t *testing.T) {
	setupSecret(t)
	mw := NewViewerAuthMiddleware()

	called := false
	handler := mw.OptionalViewer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+viewerToken(t, "wrong-secret", "did:plc:alice"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called, "an invalid token must not downgrade to anonymous")
}

func TestRequireAuth_MissingTokenRejected(t *testing.T) {
	setupSecret(t)
	mw := NewViewerAuthMiddleware()

	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
