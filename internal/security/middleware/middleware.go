package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yourorg/tourbook/internal/security/audit"
	"github.com/yourorg/tourbook/internal/security/auth"
	"github.com/yourorg/tourbook/internal/security/ratelimit"
)

type UserContextKey struct{}
type ClaimsContextKey struct{}
type TokenContextKey struct{}

// publicPath reports whether a path serves unauthenticated traffic: health,
// metrics, the public tour catalog and the quote form.
func publicPath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics" ||
		path == "/api/tours" || path == "/api/quotes" ||
		strings.HasPrefix(path, "/api/tours/")
}

// JWTMiddleware validates the bearer token (jwt cookie or Authorization
// header) and stores the claims plus the raw token on the context; the raw
// token is forwarded verbatim to the reference store on user-scoped calls.
func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, err := auth.ExtractToken(r)
			if err != nil {
				http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			ctx = context.WithValue(ctx, UserContextKey{}, claims.UserID)
			ctx = context.WithValue(ctx, TokenContextKey{}, tokenString)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware enforces the per-caller limit, with a stricter bucket
// for document uploads. Unauthenticated public paths are keyed by remote
// address.
func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			callerID := GetUserFromContext(r.Context())
			if callerID == "" {
				callerID = r.RemoteAddr
			}

			allowed := limiter.Allow(callerID)
			if allowed && r.Method == http.MethodPost && r.URL.Path == "/api/documents/upload" {
				allowed = limiter.AllowStrict(callerID, 10, time.Minute)
			}
			if !allowed {
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuditMiddleware records initiation of document mutations. Completion lines
// are written by the handlers.
func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserFromContext(r.Context())

			if r.Method == http.MethodPost && r.URL.Path == "/api/documents/upload" {
				auditLog.LogAction(r.Context(), userID, "document_upload", "document", "", "initiated", "")
			}
			if r.Method == http.MethodDelete && r.URL.Path == "/api/documents/delete" {
				auditLog.LogAction(r.Context(), userID, "document_delete", "document", "", "initiated", "")
			}

			next.ServeHTTP(w, r)
		})
	}
}

func GetUserFromContext(ctx context.Context) string {
	if u := ctx.Value(UserContextKey{}); u != nil {
		return u.(string)
	}
	return ""
}

func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c := ctx.Value(ClaimsContextKey{}); c != nil {
		return c.(*auth.Claims)
	}
	return nil
}

func GetTokenFromContext(ctx context.Context) string {
	if t := ctx.Value(TokenContextKey{}); t != nil {
		return t.(string)
	}
	return ""
}
