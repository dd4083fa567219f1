package routes

import (
	"net/http"

	"github.com/sonderhq/account-api/internal/app"
	"github.com/sonderhq/account-api/internal/handler"
	"github.com/sonderhq/account-api/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	account := handler.NewAccountHandler(app.AuthService, app.UserService)

	mux := http.NewServeMux()

	// Credential endpoints (rate limited)
	rateLimiter := middleware.RateLimitAuth()
	mux.HandleFunc("POST /register", rateLimiter(account.Register))
	mux.HandleFunc("POST /login", rateLimiter(account.Login))

	// Token lifecycle
	mux.HandleFunc("POST /logout", account.Logout)
	mux.HandleFunc("POST /refresh", account.RefreshToken)

	// Profile
	mux.HandleFunc("GET /profile", account.Profile)
	mux.HandleFunc("PUT /profile", account.UpdateProfile)

	// Email verification
	mux.HandleFunc("GET /send-verify-mail/{email}", account.SendVerifyMail)
	mux.HandleFunc("GET /verify-mail/{token}", account.VerifyMail)

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.RequestLogging,
		middleware.Authenticate(app.AuthService, app.UserService),
	)
}
