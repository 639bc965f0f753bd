package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/regkit/regkit/internal/config"
	"github.com/regkit/regkit/internal/db"
	"github.com/regkit/regkit/internal/repository"
	"github.com/regkit/regkit/internal/service"
	"github.com/regkit/regkit/internal/token"
	"github.com/regkit/regkit/internal/verify"
)

type App struct {
	Cfg          *config.Config
	DB           *sqlx.DB
	AuthService  *service.AuthService
	UserService  *service.UserService
	EmailService *service.EmailService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Token codec and verification workflow. Refuses to start without a
	// configured secret and algorithm.
	codec, err := token.New(cfg.JWTSecret, cfg.JWTAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token codec: %v", err)
	}
	workflow := verify.New(codec, cfg.EmailTokenExpiry, cfg.VerificationCodeLength)

	// Repositories
	userRepository := repository.NewUserRepository(database)
	verificationRepository := repository.NewVerificationRepository(database)

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	authService := service.NewAuthService(
		userRepository,
		verificationRepository,
		workflow,
		codec,
		emailService,
		cfg.AccessTokenExpiry,
		cfg.IsProduction(),
	)
	userService := service.NewUserService(userRepository)

	return &App{
		Cfg:          cfg,
		DB:           database,
		AuthService:  authService,
		UserService:  userService,
		EmailService: emailService,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
