package middleware

import (
	"net/http"

	"github.com/dom/account-api/internal/api/response"
	"github.com/dom/account-api/internal/service"
)

// RequireAccess rejects callers whose roles do not grant permission. It must
// run after Auth.
func RequireAccess(access *service.AccessService, permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserID(r.Context())
			if !ok {
				response.Error(w, "middleware.RequireAccess", service.ErrTokenMissing)
				return
			}

			if err := access.Authorize(r.Context(), userID, permission); err != nil {
				response.Error(w, "middleware.RequireAccess", err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
