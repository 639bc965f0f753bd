package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/regkit/regkit/internal/httpx"
	"github.com/regkit/regkit/internal/model"
	"github.com/regkit/regkit/internal/repository"
	"github.com/regkit/regkit/internal/service"
	"github.com/regkit/regkit/internal/token"
	"github.com/regkit/regkit/internal/validation"
	"github.com/regkit/regkit/internal/verify"
)

type userHandler struct {
	authService *service.AuthService
	userService *service.UserService
}

func NewUserHandler(authService *service.AuthService, userService *service.UserService) *userHandler {
	return &userHandler{
		authService: authService,
		userService: userService,
	}
}

type userResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	IsActive   bool   `json:"is_active"`
	IsVerified bool   `json:"is_verified"`
}

func userView(user *model.User) userResponse {
	return userResponse{
		ID:         user.ID,
		Email:      user.Email,
		IsActive:   user.IsActive,
		IsVerified: user.IsVerified,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *userHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	err := httpx.Decode(r, &req)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if fieldErrs := validation.ValidateRegistration(req.Email, req.Password); fieldErrs != nil {
		httpx.FieldErrors(w, fieldErrs)
		return
	}

	user, verifyToken, err := h.authService.Register(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailAlreadyExists) {
			httpx.Error(w, http.StatusConflict, "email already exists")
			return
		}
		slog.Error("registration failed", "error", err, "email", req.Email)
		httpx.Error(w, http.StatusInternalServerError, "registration failed")
		return
	}

	httpx.JSON(w, http.StatusCreated, struct {
		userResponse
		VerifyToken string `json:"verify_token"`
	}{userView(user), verifyToken})
}

type verifyRequest struct {
	Code string `json:"code"`
}

func (h *userHandler) Verify(w http.ResponseWriter, r *http.Request) {
	verifyToken := r.PathValue("token")

	var req verifyRequest
	err := httpx.Decode(r, &req)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authService.Verify(verifyToken, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, verify.ErrCodeMismatch):
			httpx.Error(w, http.StatusBadRequest, "wrong verification code")
		case errors.Is(err, token.ErrExpired),
			errors.Is(err, token.ErrInvalidSignature),
			errors.Is(err, token.ErrMalformed):
			// Deliberately vague: the caller learns the token is unusable,
			// not why
			httpx.Error(w, http.StatusBadRequest, "invalid or expired verification token")
		case errors.Is(err, repository.ErrUserNotFound):
			httpx.Error(w, http.StatusNotFound, "user not found")
		default:
			slog.Error("verification failed", "error", err)
			httpx.Error(w, http.StatusInternalServerError, "verification failed")
		}
		return
	}

	httpx.JSON(w, http.StatusOK, struct {
		userResponse
		Detail string `json:"detail"`
	}{userView(user), "code successfully verified"})
}

func (h *userHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	user, err := h.userService.ByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			httpx.Error(w, http.StatusNotFound, "user not found")
			return
		}
		slog.Error("failed to get user", "error", err, "user_id", id)
		httpx.Error(w, http.StatusInternalServerError, "failed to get user")
		return
	}

	httpx.JSON(w, http.StatusOK, userView(user))
}

func (h *userHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.All()
	if err != nil {
		slog.Error("failed to list users", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	if len(users) == 0 {
		httpx.Error(w, http.StatusNotFound, "no users found")
		return
	}

	views := make([]userResponse, 0, len(users))
	for i := range users {
		views = append(views, userView(&users[i]))
	}
	httpx.JSON(w, http.StatusOK, views)
}

type updateUserRequest struct {
	Password *string `json:"password,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

func (h *userHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateUserRequest
	err := httpx.Decode(r, &req)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Password != nil {
		if err := validation.ValidatePassword(*req.Password); err != nil {
			httpx.FieldErrors(w, []validation.FieldError{{Field: "password", Message: err.Error()}})
			return
		}
	}

	user, err := h.userService.Update(id, service.UpdateUserParams{
		Password: req.Password,
		IsActive: req.IsActive,
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			httpx.Error(w, http.StatusNotFound, "user not found")
			return
		}
		slog.Error("failed to update user", "error", err, "user_id", id)
		httpx.Error(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	httpx.JSON(w, http.StatusOK, userView(user))
}

func (h *userHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	err := h.userService.Delete(id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			httpx.Error(w, http.StatusNotFound, "user not found")
			return
		}
		slog.Error("failed to delete user", "error", err, "user_id", id)
		httpx.Error(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]string{"detail": "successfully deleted"})
}
