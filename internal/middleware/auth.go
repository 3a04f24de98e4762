package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/voxroom/voxroom-api/internal/pkg/jwt"
	"github.com/voxroom/voxroom-api/internal/pkg/response"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	AdminKey  contextKey = "admin"
)

// Auth returns middleware that validates JWT. Browsers cannot set headers
// on a WebSocket upgrade, so GET requests may pass the token as ?token=.
func Auth(jwtService *jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				response.Unauthorized(w, "Unauthorized")
				return
			}

			claims, err := jwtService.ValidateAccessToken(token)
			if err != nil {
				if err == jwt.ErrExpiredToken {
					response.Unauthorized(w, "Token expired")
				} else {
					response.Unauthorized(w, "Invalid token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, AdminKey, claims.Admin)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if r.Method == http.MethodGet {
			if t := r.URL.Query().Get("token"); t != "" {
				return t, true
			}
		}
		return "", false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// IsAdmin reports whether the caller holds the admin claim
func IsAdmin(ctx context.Context) bool {
	admin, _ := ctx.Value(AdminKey).(bool)
	return admin
}

// WithIdentity returns a context carrying the given caller, for workers
// and tests that invoke handlers outside the HTTP stack
func WithIdentity(ctx context.Context, userID string, admin bool) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, AdminKey, admin)
}

// RequireAdmin rejects callers without the admin claim
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsAdmin(r.Context()) {
				response.Error(w, http.StatusForbidden, "ADMIN_ONLY", "Admin only")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ResolveSelf returns the caller's id for operations a user may only run
// on their own account. An empty claimed id means "me"; any other id must
// match the caller.
func ResolveSelf(ctx context.Context, claimed string) (string, bool) {
	caller := GetUserID(ctx)
	if caller == "" {
		return "", false
	}
	if claimed != "" && claimed != caller {
		return "", false
	}
	return caller, true
}
