package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gatherly/server/internal/api/problem"
	"github.com/gatherly/server/internal/auth"
	"github.com/gatherly/server/internal/domain/sessions"
)

type contextKey string

const (
	identityKey contextKey = "identity"
	rawTokenKey contextKey = "rawToken"
)

// Identity is the verified acting identity attached to the request
// context by RequireAuth.
type Identity struct {
	UserID int64
	Email  string
	Name   string
}

// RequireAuth authenticates the bearer token and attaches the verified
// identity to the request context. Routes mounted without this
// middleware are anonymous; there is no fallthrough for malformed
// tokens.
func RequireAuth(sessionSvc *sessions.Service, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, env)
				return
			}

			claims, err := sessionSvc.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, sessions.ErrTokenRevoked) {
					problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Token has been revoked", err, env)
					return
				}
				if errors.Is(err, sessions.ErrUnauthenticated) {
					problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, env)
					return
				}
				problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, env)
				return
			}

			userID, err := claims.UserID()
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, env)
				return
			}

			identity := Identity{UserID: userID, Email: claims.Email, Name: claims.Name}
			ctx := context.WithValue(r.Context(), identityKey, identity)
			ctx = context.WithValue(ctx, rawTokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the verified identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// RawTokenFromContext returns the bearer token the request carried.
// Logout needs the raw string to record it in the revocation ledger.
func RawTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(rawTokenKey).(string)
	return token
}

// ContextWithIdentity attaches an identity directly; handler tests use
// this to bypass the full token flow.
func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// ContextWithRawToken attaches a bearer token directly, likewise for
// handler tests.
func ContextWithRawToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, rawTokenKey, token)
}
