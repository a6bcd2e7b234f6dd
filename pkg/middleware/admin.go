package middleware

import (
	"net/http"

	"prepaid-shop/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AdminTokenHeader carries the shared admin token
const AdminTokenHeader = "X-Admin-Token"

// Admin checks X-Admin-Token against a bcrypt hash. An empty hash leaves the
// routes open, which is only meant for local development.
func Admin(tokenHash string, logger *zap.Logger) func(http.Handler) http.Handler {
	if tokenHash == "" {
		logger.Warn("ADMIN_TOKEN_HASH is not set, admin routes are unprotected")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenHash == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := r.Header.Get(AdminTokenHeader)
			if token == "" {
				utils.ResponseUnauthorized(w, "Missing admin token")
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)); err != nil {
				logger.Warn("Admin check: invalid token",
					zap.String("path", r.URL.Path),
					zap.String("ip", r.RemoteAddr))
				utils.ResponseForbidden(w, "Admin access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
