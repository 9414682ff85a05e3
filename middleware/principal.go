package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	goSession "github.com/MrEthical07/goSession"
)

// RequirePrincipal runs [Guard] and then resolves the token subject with
// Engine.Principal, storing the principal in the request context.
//
// An unknown or inactive subject yields 401 "User not found". An unreachable identity
// backend yields 503.
func RequirePrincipal(engine *goSession.Engine) func(http.Handler) http.Handler {
	guard := Guard(engine)
	return func(next http.Handler) http.Handler {
		return guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, _ := AuthResultFromContext(r.Context())

			p, err := engine.Principal(r.Context(), res.Subject)
			switch {
			case errors.Is(err, goSession.ErrPrincipalNotFound):
				WriteError(w, http.StatusUnauthorized, DetailUserNotFound)
				return
			case err != nil:
				WriteError(w, http.StatusServiceUnavailable, DetailServiceUnavailable)
				return
			case !p.Active:
				WriteError(w, http.StatusUnauthorized, DetailUserNotFound)
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey{}, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		}))
	}
}

// RequireAdmin allows only principals with the admin role. It must run inside
// [RequirePrincipal].
func RequireAdmin() func(http.Handler) http.Handler {
	return requirePrincipal(func(p *goSession.Principal, _ *http.Request) bool {
		return p.IsAdmin()
	}, DetailAdminOnly)
}

// RequireRole allows only principals whose role is one of roles. It must run inside
// [RequirePrincipal].
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return requirePrincipal(func(p *goSession.Principal, _ *http.Request) bool {
		for _, role := range roles {
			if p.Role == role {
				return true
			}
		}
		return false
	}, DetailForbidden)
}

// RequireSelfOrAdmin allows the principal whose id matches subjectID(r), or any admin.
// It must run inside [RequirePrincipal]. Handlers that must report a missing subject
// before a 403 should look it up first and call [AllowSelfOrAdmin] instead.
func RequireSelfOrAdmin(subjectID func(*http.Request) string) func(http.Handler) http.Handler {
	return requirePrincipal(func(p *goSession.Principal, r *http.Request) bool {
		return p.IsAdmin() || (subjectID != nil && AllowSelfOrAdmin(p, subjectID(r)))
	}, DetailForbidden)
}

// AllowSelfOrAdmin reports whether p may act on subjectID. Ids that both parse as
// integers compare by value, so "01" matches "1".
func AllowSelfOrAdmin(p *goSession.Principal, subjectID string) bool {
	if p == nil {
		return false
	}
	if p.IsAdmin() || p.ID == subjectID {
		return true
	}
	a, errA := strconv.ParseInt(p.ID, 10, 64)
	b, errB := strconv.ParseInt(subjectID, 10, 64)
	return errA == nil && errB == nil && a == b
}

func requirePrincipal(allow func(*goSession.Principal, *http.Request) bool, detail string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, DetailInvalidToken)
				return
			}
			if !allow(p, r) {
				WriteError(w, http.StatusForbidden, detail)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
