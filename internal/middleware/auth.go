package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sonderhq/account-api/internal/ctxkeys"
	"github.com/sonderhq/account-api/internal/service"
)

// Authenticate resolves the Authorization bearer token into a user and
// attaches user + claims to the request context. Requests without a valid
// token continue unauthenticated; handlers that need a caller check the
// context and answer with the standard not-authenticated body themselves.
func Authenticate(authService *service.AuthService, userService *service.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := authService.VerifyJWT(tokenString)
			if err != nil {
				slog.Debug("bearer token rejected", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			userID, ok := claims["user_id"].(string)
			if !ok || userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := userService.ByID(userID)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := ctxkeys.WithUser(r.Context(), user)
			ctx = ctxkeys.WithClaims(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}

	return strings.TrimSpace(header[len(prefix):])
}
