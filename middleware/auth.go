package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"shopease/utils"
	"strings"
)

// Key type for context
type contextKey string

const UserContextKey = contextKey("user")

// TokenVerifier validates bearer tokens
type TokenVerifier interface {
	Verify(token string) (*utils.Claims, error)
}

// AuthMiddleware verifies the bearer token and attaches its claims to the context
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			var claims *utils.Claims
			if err == nil {
				claims, err = verifier.Verify(token)
			}
			if errors.Is(err, utils.ErrUnauthorized) {
				writeMessage(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if err != nil {
				writeMessage(w, http.StatusForbidden, "Invalid token")
				return
			}

			// Attach user information to the request context
			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches claims when a valid bearer token is present and
// otherwise lets the request through unchanged.
func OptionalAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, err := bearerToken(r); err == nil {
				if claims, err := verifier.Verify(token); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), UserContextKey, claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminMiddleware ensures that the user has admin privileges
func AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || !claims.IsAdmin() {
			writeMessage(w, http.StatusForbidden, "Forbidden: Admins only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClaimsFromContext returns the claims attached by AuthMiddleware or OptionalAuth
func ClaimsFromContext(ctx context.Context) (*utils.Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*utils.Claims)
	return claims, ok && claims != nil
}

// bearerToken returns the token of an "Authorization: Bearer <token>" header.
// A missing header is ErrUnauthorized; a header in any other shape is
// ErrInvalidToken.
func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", utils.ErrUnauthorized
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", utils.ErrInvalidToken
	}
	return parts[1], nil
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
