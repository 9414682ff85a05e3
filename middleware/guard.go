package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

// Error details written by the guards.
const (
	DetailInvalidToken       = "Invalid token"
	DetailAccessRequired     = "Access token required"
	DetailUserNotFound       = "User not found"
	DetailAdminOnly          = "Admin only"
	DetailForbidden          = "Forbidden"
	DetailServiceUnavailable = "Service temporarily unavailable"
)

type authResultContextKey struct{}

type principalContextKey struct{}

// AuthResultFromContext returns the result stored by [Guard].
func AuthResultFromContext(ctx context.Context) (*goSession.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*goSession.AuthResult)
	return res, ok
}

// PrincipalFromContext returns the principal stored by [RequirePrincipal].
func PrincipalFromContext(ctx context.Context) (*goSession.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*goSession.Principal)
	return p, ok
}

// Guard verifies the bearer access token with Engine.Authorize and stores the result
// in the request context. It performs no I/O.
//
// A missing, malformed or expired token yields 401 "Invalid token"; a refresh token
// yields 401 "Access token required".
func Guard(engine *goSession.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, http.StatusUnauthorized, DetailInvalidToken)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				WriteError(w, http.StatusUnauthorized, DetailInvalidToken)
				return
			}

			res, err := engine.Authorize(r.Context(), token)
			if err != nil {
				detail := DetailInvalidToken
				if errors.Is(err, goSession.ErrWrongTokenType) {
					detail = DetailAccessRequired
				}
				WriteError(w, http.StatusUnauthorized, detail)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WriteError writes {"detail": detail} with status. 401 responses carry a Bearer
// challenge.
func WriteError(w http.ResponseWriter, status int, detail string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

func bearerToken(value string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}

	return token, true
}
