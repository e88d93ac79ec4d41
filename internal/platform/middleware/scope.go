package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"stratum/internal/isolation"
	jwttoken "stratum/internal/jwt_token"
	"stratum/pkg/domain"
)

// TokenValidator validates bearer tokens for scope construction.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

type contextKeyActor struct{}

// GetActor retrieves the authenticated principal from the context.
func GetActor(ctx context.Context) string {
	actor, ok := ctx.Value(contextKeyActor{}).(string)
	if !ok {
		return ""
	}
	return actor
}

// RequireScope authenticates the bearer token and installs an isolation
// scope in the request context. Tenant tokens yield a tenant-bound scope;
// elevated tokens yield an audited elevated scope. Handlers below this
// middleware never see a request without a scope.
func RequireScope(validator TokenValidator, guard *isolation.ScopeGuard, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", GetRequestID(ctx),
					"error", err.Error(),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			scope, err := scopeFromClaims(ctx, guard, claims, deviceOf(r))
			if err != nil {
				logger.WarnContext(ctx, "scope construction refused",
					"request_id", GetRequestID(ctx),
					"actor", claims.Actor,
					"error", err.Error(),
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "Token does not grant a usable isolation scope")
				return
			}

			ctx = context.WithValue(ctx, contextKeyActor{}, claims.Actor)
			ctx = isolation.WithScope(ctx, scope)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func scopeFromClaims(ctx context.Context, guard *isolation.ScopeGuard, claims *jwttoken.Claims, device string) (isolation.Scope, error) {
	if claims.Elevated {
		return guard.Elevated(ctx, claims.Actor, claims.ElevationReason, device)
	}
	tenantID, err := domain.ParseTenantID(claims.TenantID)
	if err != nil {
		return isolation.Scope{}, err
	}
	return guard.Scope(ctx, tenantID)
}

// deviceOf condenses the client's User-Agent into "browser version (os)" for
// the elevated-scope audit trail. Unparseable agents are recorded raw.
func deviceOf(r *http.Request) string {
	raw := r.UserAgent()
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return raw
	}
	device := name
	if version != "" {
		device += " " + version
	}
	if os := ua.OS(); os != "" {
		device += " (" + os + ")"
	}
	return device
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}
