package routes

import (
	"net/http"

	"github.com/regkit/regkit/internal/app"
	"github.com/regkit/regkit/internal/handler"
	"github.com/regkit/regkit/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	auth := handler.NewAuthHandler(app.AuthService)
	users := handler.NewUserHandler(app.AuthService, app.UserService)

	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Auth (rate limited)
	rateLimiter := middleware.RateLimitAuth()
	mux.HandleFunc("POST /api/v1/auth/token", rateLimiter(auth.Token))
	mux.HandleFunc("POST /api/v1/auth/logout", auth.Logout)
	mux.HandleFunc("GET /api/v1/auth/me", middleware.RequireAuth(auth.Me))

	// Registration and verification (rate limited)
	mux.HandleFunc("POST /api/v1/users/register", rateLimiter(users.Register))
	mux.HandleFunc("POST /api/v1/users/verify/{token}", rateLimiter(users.Verify))

	// Users
	mux.HandleFunc("GET /api/v1/users", users.List)
	mux.HandleFunc("GET /api/v1/users/{id}", users.Get)
	mux.HandleFunc("PUT /api/v1/users/{id}", users.Update)
	mux.HandleFunc("DELETE /api/v1/users/{id}", middleware.RequireVerified(users.Delete))

	return middleware.Chain(mux,
		middleware.RequestLogging,
		middleware.AuthMiddleware(app.AuthService),
	)
}
