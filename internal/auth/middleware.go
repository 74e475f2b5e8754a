package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/aiox-platform/concierge/internal/api"
)

type contextKey string

const ClaimsKey contextKey = "actor_claims"

func Middleware(mgr *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			claims, err := mgr.Validate(parts[1])
			if err != nil {
				api.HandleError(w, api.ErrInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func WithClaims(ctx context.Context, claims *AccessClaims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

func GetClaims(ctx context.Context) *AccessClaims {
	claims, _ := ctx.Value(ClaimsKey).(*AccessClaims)
	return claims
}

// ActorID is the authenticated actor, or "" when the request carries no claims.
func ActorID(ctx context.Context) string {
	if c := GetClaims(ctx); c != nil {
		return c.ActorID
	}
	return ""
}

// RateLimitKey keys the turn limiter by authenticated actor, then by the
// X-Actor-ID header.
func RateLimitKey(r *http.Request) string {
	if id := ActorID(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Actor-ID")
}
