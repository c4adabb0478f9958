package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const adminClaimsKey contextKey = "adminClaims"

// AdminClaims are the claims operator tokens carry. Role is advisory for
// now; every admin route requires a valid token, not a specific role.
type AdminClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AdminJWT gates the /admin subtree behind an HMAC-signed operator token.
// An empty secret disables the surface entirely rather than leaving it
// open.
func AdminJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				unauthorized(w, "admin surface disabled")
				return
			}
			raw := bearerToken(r)
			if raw == "" {
				unauthorized(w, "missing bearer token")
				return
			}
			claims := &AdminClaims{}
			token, err := jwt.ParseWithClaims(raw, claims,
				func(*jwt.Token) (any, error) { return []byte(secret), nil },
				jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
			)
			if err != nil || !token.Valid {
				unauthorized(w, "invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), adminClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// AdminFromContext returns the operator claims set by AdminJWT.
func AdminFromContext(ctx context.Context) (*AdminClaims, bool) {
	claims, ok := ctx.Value(adminClaimsKey).(*AdminClaims)
	return claims, ok
}
