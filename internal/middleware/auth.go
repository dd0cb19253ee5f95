package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"shop-api/internal/domain"
	"shop-api/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "user_role"
	ClaimsKey   contextKey = "claims"
)

// AuthMiddleware validates bearer access tokens and stores their claims
// in the request context
func AuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug("Missing authorization header")
				RespondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.Debug("Invalid authorization header format")
				RespondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			claims, err := service.ParseAccessToken(parts[1], jwtSecret)
			if err != nil {
				logger.Debug("Token validation failed", zap.Error(err))
				if errors.Is(err, service.ErrTokenExpired) {
					RespondWithError(w, http.StatusUnauthorized, "token expired")
				} else {
					RespondWithError(w, http.StatusUnauthorized, "invalid token")
				}
				return
			}

			if claims.UserID == 0 || (claims.Role != domain.RoleAdmin && claims.Role != domain.RoleMember) {
				logger.Debug("Token carries unusable claims", zap.String("role", claims.Role))
				RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			if captured, ok := r.Context().Value(userCaptureKey{}).(*int64); ok {
				*captured = claims.UserID
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
			ctx = context.WithValue(ctx, ClaimsKey, claims)

			logger.Debug("User authenticated",
				zap.Int64("user_id", claims.UserID),
				zap.String("role", claims.Role),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type userCaptureKey struct{}

// withUserCapture lets an outer middleware observe the id authenticated by
// an inner one.
func withUserCapture(ctx context.Context, userID *int64) context.Context {
	return context.WithValue(ctx, userCaptureKey{}, userID)
}

// GetUserID extracts user ID from request context
func GetUserID(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}

// GetUserRole extracts user role from request context
func GetUserRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(UserRoleKey).(string)
	return role, ok
}

// GetClaims extracts the full token claims from request context
func GetClaims(ctx context.Context) (*domain.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*domain.Claims)
	return claims, ok
}
