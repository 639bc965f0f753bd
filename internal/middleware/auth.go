package middleware

import (
	"net/http"
	"strings"

	"github.com/regkit/regkit/internal/ctxkeys"
	"github.com/regkit/regkit/internal/httpx"
	"github.com/regkit/regkit/internal/service"
)

// AuthMiddleware resolves the login token from the Authorization header or the
// access_token cookie and, when valid, adds the user to the request context.
// Requests without a usable token continue unauthenticated.
func AuthMiddleware(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accessToken := bearerToken(r)
			if accessToken == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := authService.UserFromToken(accessToken)
			if err != nil {
				// Invalid token, clear cookie and continue unauthenticated
				authService.ClearAccessTokenCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			// Do not carry the password hash through the request context
			user.PasswordHash = ""

			ctx := ctxkeys.WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects unauthenticated requests.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := ctxkeys.User(r.Context())
		if user == nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			httpx.Error(w, http.StatusUnauthorized, "could not validate credentials")
			return
		}
		next.ServeHTTP(w, r)
	}
}

// RequireVerified rejects callers whose email is not verified yet.
func RequireVerified(next http.HandlerFunc) http.HandlerFunc {
	return RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		user := ctxkeys.User(r.Context())
		if !user.IsVerified {
			httpx.Error(w, http.StatusUnauthorized, "only verified users can perform this action")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken pulls the token from the Authorization header, falling back to
// the access_token cookie, which stores it with the same "Bearer " prefix.
func bearerToken(r *http.Request) string {
	authorization := r.Header.Get("Authorization")
	if authorization == "" {
		cookie, err := r.Cookie("access_token")
		if err != nil {
			return ""
		}
		authorization = cookie.Value
	}

	scheme, token, found := strings.Cut(authorization, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return token
}
