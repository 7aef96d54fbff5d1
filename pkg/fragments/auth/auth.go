// Package auth verifies bearer tokens and derives the pseudonymous owner
// id handed to the fragments service. The owner id is the hex SHA-256 of
// the token's subject claim, so the raw credential never reaches storage
// and the same principal always maps to the same owner.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
)

type contextKey struct{}

var ownerKey contextKey

// New creates the token verifier for an HS256 shared secret.
func New(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// Verifier extracts and verifies the bearer token. Chain it before
// Authenticator.
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return jwtauth.Verifier(ja)
}

// Authenticator rejects requests whose token is missing or invalid and
// stores the derived owner id in the request context for handlers.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			unauthorized(w, r)
			return
		}

		subject, _ := claims["sub"].(string)
		if subject == "" {
			slog.Warn("token verified but subject claim missing")
			unauthorized(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), ownerKey, HashOwner(subject))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OwnerID returns the owner id stored by Authenticator, or "" when the
// request was not authenticated.
func OwnerID(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}

// HashOwner derives the stable pseudonymous owner id from a subject.
func HashOwner(subject string) string {
	sum := sha256.Sum256([]byte(subject))
	return hex.EncodeToString(sum[:])
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]interface{}{
		"status": "error",
		"error": map[string]interface{}{
			"code":    http.StatusUnauthorized,
			"message": "Unauthorized",
		},
	})
}
