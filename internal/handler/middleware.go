package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/boddenberg/lease-report-bfa-go/internal/access"
	"go.uber.org/zap"
)

type contextKey string

const principalKey contextKey = "principal"

// devPrincipal is used for every request when auth is disabled.
var devPrincipal = access.Principal{UserID: "dev", Role: access.RoleSuperAdmin}

// AuthMiddleware validates Bearer tokens and injects the caller's principal
// into the context.
func AuthMiddleware(secret string, disabled bool, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if disabled {
				p := devPrincipal
				p.OrganizationID = r.Header.Get("X-Organization-Id")
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			p, err := access.ParseClaims(parts[1], secret)
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission rejects callers whose effective role may not perform op
// on resource.
func RequirePermission(resource string, op access.Op, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok || !p.Can(resource, op) {
				logger.Warn("access denied",
					zap.String("user_id", p.UserID),
					zap.String("role", string(p.EffectiveRole())),
					zap.String("resource", resource),
					zap.String("op", string(op)),
				)
				writeError(w, http.StatusForbidden, "forbidden: "+string(op)+" "+resource)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext extracts the authenticated principal from context.
func PrincipalFromContext(ctx context.Context) (access.Principal, bool) {
	p, ok := ctx.Value(principalKey).(access.Principal)
	return p, ok
}
