package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/good-yellow-bee/staffplan/internal/access"
	"github.com/good-yellow-bee/staffplan/internal/api/auth"
	"github.com/good-yellow-bee/staffplan/internal/models"
)

// Context keys for storing user information.
type contextKey string

const (
	userKey   contextKey = "user"
	userIDKey contextKey = "user_id"
	roleKey   contextKey = "role"
	claimsKey contextKey = "claims"
)

func jsonErrorBody(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// jsonUnauthorized writes an unauthorized error response.
func jsonUnauthorized(w http.ResponseWriter) {
	jsonErrorBody(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
}

// jsonForbidden writes a forbidden error response.
func jsonForbidden(w http.ResponseWriter) {
	jsonErrorBody(w, http.StatusForbidden, "FORBIDDEN", "access denied")
}

// UserResolver loads the user named by a token subject.
type UserResolver interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

// JWTAuth returns middleware that validates bearer tokens and resolves the
// calling user. The stored user, not the token, is authoritative for the
// role, so a deleted user is rejected even with an unexpired token.
func JWTAuth(jwtService *auth.JWTService, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				jsonUnauthorized(w)
				return
			}

			claims, err := jwtService.ValidateToken(tokenString)
			if err != nil {
				log.Printf("JWT auth failed for %s: %v", r.RemoteAddr, err)
				jsonUnauthorized(w)
				return
			}

			ctx := r.Context()
			user, err := users.Get(ctx, claims.UserID)
			if err != nil {
				log.Printf("JWT auth: resolve user %s: %v", claims.UserID, err)
				jsonErrorBody(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
				return
			}
			if user == nil {
				log.Printf("JWT auth failed for %s: user %s no longer exists", r.RemoteAddr, claims.UserID)
				jsonUnauthorized(w)
				return
			}

			ctx = context.WithValue(ctx, userKey, user)
			ctx = context.WithValue(ctx, userIDKey, user.ID)
			ctx = context.WithValue(ctx, roleKey, user.Role)
			ctx = context.WithValue(ctx, claimsKey, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// WithUser returns a context carrying user as the authenticated caller.
func WithUser(ctx context.Context, user *models.User) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	ctx = context.WithValue(ctx, userIDKey, user.ID)
	return context.WithValue(ctx, roleKey, user.Role)
}

// GetUser returns the authenticated user from context.
func GetUser(ctx context.Context) *models.User {
	if u, ok := ctx.Value(userKey).(*models.User); ok {
		return u
	}
	return nil
}

// GetUserID returns the user ID from context.
func GetUserID(ctx context.Context) string {
	if s, ok := ctx.Value(userIDKey).(string); ok {
		return s
	}
	return ""
}

// GetRole returns the user role from context.
func GetRole(ctx context.Context) models.Role {
	if r, ok := ctx.Value(roleKey).(models.Role); ok {
		return r
	}
	return ""
}

// GetPrincipal returns the caller as seen by the access policy.
func GetPrincipal(ctx context.Context) access.Principal {
	return access.Principal{UserID: GetUserID(ctx), Role: GetRole(ctx)}
}

// GetClaims returns the JWT claims from context.
func GetClaims(ctx context.Context) *auth.Claims {
	if c, ok := ctx.Value(claimsKey).(*auth.Claims); ok {
		return c
	}
	return nil
}
