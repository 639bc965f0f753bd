package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/regkit/regkit/internal/ctxkeys"
	"github.com/regkit/regkit/internal/httpx"
	"github.com/regkit/regkit/internal/service"
	"github.com/regkit/regkit/internal/validation"
)

type authHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *authHandler {
	return &authHandler{authService: authService}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Token implements the OAuth2 password flow: the form's username field
// carries the email address. On success the token is returned in the body and
// also stored as an httponly cookie.
func (h *authHandler) Token(w http.ResponseWriter, r *http.Request) {
	err := r.ParseForm()
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid form body")
		return
	}

	email := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	if fieldErrs := validation.ValidateLogin(email, password); fieldErrs != nil {
		httpx.FieldErrors(w, fieldErrs)
		return
	}

	_, accessToken, err := h.authService.Login(email, password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrUserInactive) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			httpx.Error(w, http.StatusBadRequest, "incorrect email or password")
			return
		}
		slog.Error("login failed", "error", err, "email", email)
		httpx.Error(w, http.StatusInternalServerError, "login failed")
		return
	}

	h.authService.SetAccessTokenCookie(w, accessToken)
	httpx.JSON(w, http.StatusOK, tokenResponse{AccessToken: accessToken, TokenType: "bearer"})
}

// Me returns the authenticated caller.
func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	httpx.JSON(w, http.StatusOK, userView(user))
}

func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearAccessTokenCookie(w)
	httpx.JSON(w, http.StatusOK, map[string]string{"detail": "logged out"})
}
