package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"Hollows/internal/atproto/auth"
)

// Context keys for storing viewer information
type contextKey string

const (
	// ViewerDIDKey holds the authenticated viewer's DID, when present
	ViewerDIDKey contextKey = "viewer_did"
)

// ViewerAuthMiddleware resolves the acting viewer from a Bearer service
// token. Read endpoints accept anonymous requests, so the viewer is
// optional there; visibility filtering simply runs with no viewer.
type ViewerAuthMiddleware struct{}

// NewViewerAuthMiddleware creates a new viewer auth middleware
func NewViewerAuthMiddleware() *ViewerAuthMiddleware {
	return &ViewerAuthMiddleware{}
}

// OptionalViewer extracts the viewer DID from the Authorization header if
// one is present. Requests without a token proceed anonymously; requests
// with an invalid token are rejected rather than silently downgraded.
func (m *ViewerAuthMiddleware) OptionalViewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		did, ok := m.resolveViewer(w, r, authHeader)
		if !ok {
			return
		}

		ctx := context.WithValue(r.Context(), ViewerDIDKey, did)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth ensures the request carries a valid viewer token
// Returns 401 otherwise
func (m *ViewerAuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeAuthError(w, "Missing Authorization header")
			return
		}

		did, ok := m.resolveViewer(w, r, authHeader)
		if !ok {
			return
		}

		ctx := context.WithValue(r.Context(), ViewerDIDKey, did)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolveViewer verifies the Bearer token and returns the viewer DID
// Writes the 401 response itself when verification fails
func (m *ViewerAuthMiddleware) resolveViewer(w http.ResponseWriter, r *http.Request, authHeader string) (string, bool) {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		writeAuthError(w, "Invalid Authorization header format. Expected: Bearer <token>")
		return "", false
	}

	claims, err := auth.VerifyJWT(authHeader)
	if err != nil {
		log.Printf("[AUTH_FAILURE] ip=%s method=%s path=%s error=%v",
			r.RemoteAddr, r.Method, r.URL.Path, err)
		writeAuthError(w, "Invalid or expired token")
		return "", false
	}

	return claims.Subject, true
}

// GetViewerDID returns the authenticated viewer's DID from the request
// context, or nil for anonymous requests
func GetViewerDID(r *http.Request) *string {
	if did, ok := r.Context().Value(ViewerDIDKey).(string); ok && did != "" {
		return &did
	}
	return nil
}

// SetTestViewerDID sets the viewer DID in the context for testing purposes
// This should only be used in tests
func SetTestViewerDID(ctx context.Context, viewerDID string) context.Context {
	return context.WithValue(ctx, ViewerDIDKey, viewerDID)
}

// writeAuthError writes a standardized 401 JSON response
func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"error":   "AuthenticationRequired",
		"message": message,
	}); err != nil {
		log.Printf("Failed to encode auth error response: %v", err)
	}
}
