package middleware

import (
	"net/http"
	"strconv"

	"shop-api/internal/domain"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RequireAdmin middleware ensures the user has admin role
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole([]string{domain.RoleAdmin}, logger)
}

// RequireRole middleware ensures the user has one of the specified roles
func RequireRole(allowedRoles []string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRole(r.Context())
			if !ok {
				logger.Warn("Role not found in context")
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			for _, allowedRole := range allowedRoles {
				if role == allowedRole {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Warn("User role not authorized",
				zap.String("role", role),
				zap.Strings("allowed_roles", allowedRoles),
			)
			RespondWithError(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}

// RequireSelfOrAdmin lets administrators through and otherwise requires the
// member id in the named URL parameter to be the caller's own id
func RequireSelfOrAdmin(param string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if role, _ := GetUserRole(r.Context()); role == domain.RoleAdmin {
				next.ServeHTTP(w, r)
				return
			}

			userID, ok := GetUserID(r.Context())
			if !ok {
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			target, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
			if err != nil {
				RespondWithError(w, http.StatusBadRequest, "invalid "+param)
				return
			}

			if target != userID {
				logger.Warn("Member attempted to access another member's resource",
					zap.Int64("user_id", userID),
					zap.Int64("target_id", target),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
