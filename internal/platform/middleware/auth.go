package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	dErrors "misiones/pkg/domain-errors"
	"misiones/pkg/platform/httputil"
	"misiones/pkg/requestcontext"
)

const (
	// RoleAdmin manages every site.
	RoleAdmin = "admin"
	// RoleSiteAdmin manages the sites listed in the token's site_ids.
	RoleSiteAdmin = "site_admin"
)

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims is the operator identity the admin routes authorize against.
type JWTClaims struct {
	Subject string
	Role    string
	SiteIDs []string
}

// CanManageSite reports whether the operator may act on siteID.
func (c *JWTClaims) CanManageSite(siteID string) bool {
	if c == nil {
		return false
	}
	switch c.Role {
	case RoleAdmin:
		return true
	case RoleSiteAdmin:
		return slices.Contains(c.SiteIDs, siteID)
	default:
		return false
	}
}

type contextKeyClaims struct{}

// GetClaims returns the authenticated operator claims, or nil.
func GetClaims(ctx context.Context) *JWTClaims {
	claims, _ := ctx.Value(contextKeyClaims{}).(*JWTClaims)
	return claims
}

// WithClaims injects operator claims. Useful for handler tests that skip
// RequireAuth.
func WithClaims(ctx context.Context, claims *JWTClaims) context.Context {
	ctx = context.WithValue(ctx, contextKeyClaims{}, claims)
	if claims != nil {
		ctx = requestcontext.WithActor(ctx, claims.Subject)
	}
	return ctx
}

// RequireAuth validates the bearer token and stores the claims in the context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header"))
				return
			}
			claims, err := validator.ValidateToken(strings.TrimSpace(token))
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(ctx, claims)))
		})
	}
}

// RequireRole admits only operators holding one of roles.
func RequireRole(logger *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			claims := GetClaims(ctx)
			if claims == nil || !slices.Contains(roles, claims.Role) {
				logger.WarnContext(ctx, "forbidden - role not allowed",
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "operator role not allowed"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSiteAccess checks the chi URL parameter param against the operator's
// site scope.
func RequireSiteAccess(logger *slog.Logger, param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			siteID := strings.ToLower(chi.URLParam(r, param))
			if !GetClaims(ctx).CanManageSite(siteID) {
				logger.WarnContext(ctx, "forbidden - site outside operator scope",
					"site_id", siteID,
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "site outside operator scope"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
