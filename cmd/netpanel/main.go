package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/netpanel/netpanel/internal/auth"
	"github.com/netpanel/netpanel/internal/config"
	httpserver "github.com/netpanel/netpanel/internal/http"
	"github.com/netpanel/netpanel/internal/notification"
	"github.com/netpanel/netpanel/internal/repository"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := repository.Migrate(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database ready")

	usersRepo := repository.NewUsersRepository(db)
	clientsRepo := repository.NewClientsRepository(db)

	// Startup policy: defaults with any env overrides applied.
	startupPolicy := auth.DefaultPolicy()
	if cfg.PasswordPolicy.MinLength > 0 {
		startupPolicy.MinLength = cfg.PasswordPolicy.MinLength
	}
	if cfg.PasswordPolicy.HistoryCount > 0 {
		startupPolicy.HistoryCount = cfg.PasswordPolicy.HistoryCount
	}
	if cfg.PasswordPolicy.MaxLoginAttempts > 0 {
		startupPolicy.MaxLoginAttempts = cfg.PasswordPolicy.MaxLoginAttempts
	}
	policyStore := auth.NewPolicyStore(startupPolicy)
	validator := auth.NewValidator(policyStore, usersRepo)

	accountService, err := auth.NewAccountService(usersRepo, validator, policyStore, cfg.ResetTokenTTL)
	if err != nil {
		logger.Error("failed to initialize account service", "error", err)
		os.Exit(1)
	}

	tokenService := auth.NewTokenService(auth.TokenConfig{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.AccessTokenTTL,
	})

	var emailService *notification.EmailService
	if cfg.HasSMTP() {
		emailService = notification.NewEmailService(notification.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		})
		logger.Info("email service enabled")
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:          logger,
		AccountService:  accountService,
		TokenService:    tokenService,
		PolicyStore:     policyStore,
		EmailService:    emailService,
		ClientsRepo:     clientsRepo,
		RateLimitConfig: cfg.RateLimit,
		SecurityHeaders: cfg.SecurityHeaders,
		MaxBodySize:     cfg.MaxRequestBodySize,
	})

	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
