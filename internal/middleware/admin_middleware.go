package middleware

import (
	"log"
	"net/http"

	"taskdeck/pkg/response"
)

// RoleChecker reports whether a user holds the admin role.
type RoleChecker interface {
	IsAdmin(userID string) (bool, error)
}

// AdminMiddleware must run after AuthMiddleware.
func AdminMiddleware(roles RoleChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			userID := GetUserID(r)
			if userID == "" {
				response.Unauthorized(w, "Unauthorized")
				return
			}

			isAdmin, err := roles.IsAdmin(userID)
			if err != nil {
				log.Printf("[Admin] role lookup for %s failed: %v", userID, err)
				response.Forbidden(w, "Admin access required")
				return
			}
			if !isAdmin {
				response.Forbidden(w, "Admin access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
