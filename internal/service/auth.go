package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/regkit/regkit/internal/model"
	"github.com/regkit/regkit/internal/repository"
	"github.com/regkit/regkit/internal/token"
	"github.com/regkit/regkit/internal/verify"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrUserInactive       = errors.New("user account is inactive")
)

// EmailSender is the delivery collaborator for verification mails.
type EmailSender interface {
	SendVerificationEmail(email, code, token string) error
	SendWelcomeEmail(email string) error
}

type AuthService struct {
	userRepository         repository.UserRepository
	verificationRepository repository.VerificationRepository
	workflow               *verify.Workflow
	codec                  *token.Codec
	emailSender            EmailSender
	accessTokenExpiry      time.Duration
	isProduction           bool
}

func NewAuthService(
	userRepository repository.UserRepository,
	verificationRepository repository.VerificationRepository,
	workflow *verify.Workflow,
	codec *token.Codec,
	emailSender EmailSender,
	accessTokenExpiry time.Duration,
	isProduction bool,
) *AuthService {
	return &AuthService{
		userRepository:         userRepository,
		verificationRepository: verificationRepository,
		workflow:               workflow,
		codec:                  codec,
		emailSender:            emailSender,
		accessTokenExpiry:      accessTokenExpiry,
		isProduction:           isProduction,
	}
}

// Register creates a user, generates a one-time code, persists its hash (one
// outstanding record per email, older ones replaced) and issues the signed
// verification token that carries email and code. The token is returned so
// the caller can hand it to the client; the code only travels by mail.
func (s *AuthService) Register(email, password string) (*model.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	existing, err := s.userRepository.ByEmail(email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, "", fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, "", ErrEmailAlreadyExists
	}

	passwordHash, err := s.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	err = s.userRepository.Create(user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", ErrEmailAlreadyExists
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	code, err := s.workflow.NewCode()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate verification code: %w", err)
	}

	codeHash, err := s.HashPassword(code)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash verification code: %w", err)
	}

	verifyToken, err := s.workflow.Start(email, code)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue verification token: %w", err)
	}

	verification := &model.Verification{
		Email:     email,
		CodeHash:  codeHash,
		ExpiresAt: time.Now().Add(s.workflow.Lifetime()),
	}
	err = s.verificationRepository.Replace(verification)
	if err != nil {
		return nil, "", fmt.Errorf("failed to save verification record: %w", err)
	}

	err = s.emailSender.SendVerificationEmail(email, code, verifyToken)
	if err != nil {
		slog.Error("failed to send verification email", "error", err, "email", email)
		return nil, "", fmt.Errorf("failed to send verification email: %w", err)
	}

	user.IsVerificationMailSent = true
	err = s.userRepository.Update(user)
	if err != nil {
		slog.Warn("failed to mark verification mail sent", "error", err, "user_id", user.ID)
	}

	slog.Info("user registered", "user_id", user.ID, "email", email)
	return user, verifyToken, nil
}

// Verify adjudicates a verification attempt. The signed token proves email
// and code were issued together; the persisted record, when present, must
// agree as well and is consumed on success. Token decode failures and code
// mismatches pass through unchanged so the handler can map them.
func (s *AuthService) Verify(verifyToken, submittedCode string) (*model.User, error) {
	email, err := s.workflow.Check(verifyToken, submittedCode)
	if err != nil {
		return nil, err
	}

	record, err := s.verificationRepository.ByEmail(email)
	if err != nil && !errors.Is(err, repository.ErrVerificationNotFound) {
		return nil, fmt.Errorf("failed to load verification record: %w", err)
	}
	if record != nil {
		if record.IsExpired() {
			return nil, token.ErrExpired
		}
		err = bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(submittedCode))
		if err != nil {
			return nil, verify.ErrCodeMismatch
		}
	}

	user, err := s.userRepository.ByEmail(email)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.IsVerified = true
	user.IsActive = true
	user.VerifiedAt = &now
	err = s.userRepository.Update(user)
	if err != nil {
		return nil, fmt.Errorf("failed to mark user verified: %w", err)
	}

	err = s.verificationRepository.Delete(email)
	if err != nil {
		slog.Warn("failed to delete verification record", "error", err, "email", email)
	}

	err = s.emailSender.SendWelcomeEmail(email)
	if err != nil {
		// Log error but don't fail verification
		slog.Warn("failed to send welcome email", "error", err, "email", email)
	}

	slog.Info("email verified", "user_id", user.ID, "email", email)
	return user, nil
}

// Login authenticates by email and password and issues a login token.
func (s *AuthService) Login(email, password string) (*model.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.userRepository.ByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}

	err = s.ComparePassword(password, user.PasswordHash)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, "", ErrUserInactive
	}

	accessToken, err := s.codec.Issue(user.Email, token.PurposeLogin, "", s.accessTokenExpiry)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue access token: %w", err)
	}

	slog.Info("user logged in", "user_id", user.ID, "email", email)
	return user, accessToken, nil
}

// UserFromToken resolves the user a login token asserts. Tokens with any
// other purpose are rejected even when signature and expiry are valid.
func (s *AuthService) UserFromToken(accessToken string) (*model.User, error) {
	claims, err := s.codec.Decode(accessToken)
	if err != nil {
		return nil, err
	}

	if claims.Purpose != token.PurposeLogin {
		return nil, token.ErrMalformed
	}

	return s.userRepository.ByEmail(claims.Subject)
}

func hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *AuthService) HashPassword(password string) (string, error) {
	return hashPassword(password)
}

func (s *AuthService) ComparePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// SetAccessTokenCookie stores the access token the way the API's cookie-based
// clients expect: "Bearer <token>", httponly.
func (s *AuthService) SetAccessTokenCookie(w http.ResponseWriter, accessToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    "Bearer " + accessToken,
		Expires:  time.Now().Add(s.accessTokenExpiry),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *AuthService) ClearAccessTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    "",
		Expires:  time.Unix(0, 0),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}
