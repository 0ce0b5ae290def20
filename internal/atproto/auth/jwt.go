package auth

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// jwtConfig holds cached JWT configuration to avoid reading env vars on
// every request
type jwtConfig struct {
	serviceSecret []byte // Cached SERVICE_JWT_SECRET
}

var (
	cachedConfig *jwtConfig
	configOnce   sync.Once
)

// InitJWTConfig initializes the JWT configuration from environment
// variables. Called once at startup; initialized lazily on first use
// otherwise.
func InitJWTConfig() {
	configOnce.Do(func() {
		cachedConfig = &jwtConfig{}
		if secret := os.Getenv("SERVICE_JWT_SECRET"); secret != "" {
			cachedConfig.serviceSecret = []byte(secret)
		}
	})
}

func getConfig() *jwtConfig {
	InitJWTConfig()
	return cachedConfig
}

// ResetJWTConfigForTesting resets the cached config to allow
// re-initialization. This should ONLY be used in tests.
func ResetJWTConfigForTesting() {
	cachedConfig = nil
	configOnce = sync.Once{}
}

// Claims represents the JWT claims carried by viewer service tokens
// The subject is the viewer's DID
type Claims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope,omitempty"`
}

// stripBearerPrefix removes the "Bearer " prefix from a token string
func stripBearerPrefix(tokenString string) string {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	return strings.TrimSpace(tokenString)
}

// ParseJWT parses a JWT without signature verification
// Used only for logging context on verification failures
func ParseJWT(tokenString string) (*Claims, error) {
	tokenString = stripBearerPrefix(tokenString)

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, _, err := parser.ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type")
	}

	return claims, nil
}

// VerifyJWT verifies a viewer service token's HS256 signature and claims
// using the shared SERVICE_JWT_SECRET. Only HMAC is accepted: rejecting
// other methods outright closes the algorithm confusion hole where a
// public key could be replayed as an HMAC secret.
func VerifyJWT(tokenString string) (*Claims, error) {
	tokenString = stripBearerPrefix(tokenString)

	cfg := getConfig()
	if len(cfg.serviceSecret) == 0 {
		return nil, fmt.Errorf("verification failed: SERVICE_JWT_SECRET not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.serviceSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("verification failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("verification failed: token signature invalid")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("verification failed: invalid claims type")
	}

	// exp and nbf are already enforced by ParseWithClaims; only the
	// subject shape needs checking here. The subject is the viewer's DID.
	if !strings.HasPrefix(claims.Subject, "did:") {
		return nil, fmt.Errorf("invalid DID format in 'sub' claim: %s", claims.Subject)
	}

	return claims, nil
}
