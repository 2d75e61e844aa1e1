package middleware

import (
	"context"
	"net/http"

	"charity-admin/internal/domain/aggregate"
	"charity-admin/pkg/errors"
)

// RoleAuthMiddleware checks if the user has one of the required roles
func RoleAuthMiddleware(allowedRoles ...aggregate.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRole(r.Context())
			if !ok || role == "" {
				HandleError(w, r, errors.NewUnauthorizedError("User role not found"))
				return
			}

			for _, allowed := range allowedRoles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			HandleError(w, r, errors.NewForbiddenError("Insufficient permissions"))
		})
	}
}

// RequireAdmin middleware that requires Admin role
func RequireAdmin(next http.Handler) http.Handler {
	return RoleAuthMiddleware(aggregate.RoleAdmin)(next)
}

// RequireStatsViewer lets admins and team leads read reports.
func RequireStatsViewer(next http.Handler) http.Handler {
	return RoleAuthMiddleware(aggregate.RoleAdmin, aggregate.RoleTeamLead)(next)
}

// GetUserRole returns the role stored by JWTAuthMiddleware.
func GetUserRole(ctx context.Context) (aggregate.UserRole, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	if !ok {
		return "", false
	}
	return aggregate.UserRole(role), true
}
