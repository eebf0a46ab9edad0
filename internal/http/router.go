package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/netpanel/netpanel/internal/auth"
	"github.com/netpanel/netpanel/internal/config"
	"github.com/netpanel/netpanel/internal/http/features/account"
	"github.com/netpanel/netpanel/internal/http/features/clients"
	"github.com/netpanel/netpanel/internal/http/features/policy"
	"github.com/netpanel/netpanel/internal/http/middleware"
	"github.com/netpanel/netpanel/internal/httputil"
	"github.com/netpanel/netpanel/internal/notification"
	"github.com/netpanel/netpanel/internal/repository"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger          *slog.Logger
	AccountService  *auth.AccountService
	TokenService    *auth.TokenService
	PolicyStore     *auth.PolicyStore
	EmailService    *notification.EmailService
	ClientsRepo     *repository.ClientsRepository
	RateLimitConfig config.RateLimitConfig
	SecurityHeaders config.SecurityHeadersConfig
	MaxBodySize     int64
}

// NewRouter creates the HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.MaxBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)

	accountHandler := account.NewHandler(cfg.Logger, cfg.AccountService, cfg.TokenService, cfg.EmailService)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["auth"])
		r.Post("/register", accountHandler.Register)
		r.Post("/login", accountHandler.Login)
	})
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["reset"])
		r.Post("/request-reset", accountHandler.RequestReset)
		r.Post("/reset-password", accountHandler.ResetPassword)
	})
	r.With(middleware.Auth(cfg.TokenService)).Post("/change-password", accountHandler.ChangePassword)

	clientsHandler := clients.NewHandler(cfg.Logger, cfg.ClientsRepo)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.TokenService))
		r.Get("/clients", clientsHandler.List)
		r.Post("/clients", clientsHandler.Create)
		r.Delete("/clients/{id}", clientsHandler.Delete)
	})

	policyHandler := policy.NewHandler(cfg.Logger, cfg.PolicyStore)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.TokenService))
		r.Get("/admin/password-policy", policyHandler.Get)
		r.Put("/admin/password-policy", policyHandler.Update)
	})

	return r
}
