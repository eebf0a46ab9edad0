package account

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/netpanel/netpanel/internal/auth"
	"github.com/netpanel/netpanel/internal/domain"
	"github.com/netpanel/netpanel/internal/http/middleware"
	"github.com/netpanel/netpanel/internal/httputil"
	"github.com/netpanel/netpanel/internal/notification"
	"github.com/netpanel/netpanel/internal/validate"
)

// Handler handles registration, login, password change and the reset flow.
type Handler struct {
	logger   *slog.Logger
	accounts *auth.AccountService
	tokens   *auth.TokenService
	mailer   *notification.EmailService
}

// NewHandler creates a new account handler. mailer may be nil when SMTP is
// not configured; reset requests then fail with 503.
func NewHandler(logger *slog.Logger, accounts *auth.AccountService, tokens *auth.TokenService, mailer *notification.EmailService) *Handler {
	return &Handler{
		logger:   logger,
		accounts: accounts,
		tokens:   tokens,
		mailer:   mailer,
	}
}

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResetRequestRequest represents a password reset request.
type ResetRequestRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents a token redemption.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// ChangePasswordRequest represents an authenticated password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Register handles user registration.
// POST /register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var inputErrors []string
	firstName, err := validate.Name(req.FirstName, "First name", validate.MaxNameLen)
	if err != nil {
		inputErrors = append(inputErrors, err.Error())
	}
	lastName, err := validate.Name(req.LastName, "Last name", validate.MaxNameLen)
	if err != nil {
		inputErrors = append(inputErrors, err.Error())
	}
	email, err := validate.Email(req.Email)
	if err != nil {
		inputErrors = append(inputErrors, err.Error())
	}
	if len(inputErrors) > 0 {
		httputil.FailWithErrors(w, http.StatusBadRequest, "Invalid input data", inputErrors)
		return
	}

	user, err := h.accounts.Register(r.Context(), firstName, lastName, email, req.Password)
	if err != nil {
		var policyErr *auth.PolicyError
		switch {
		case errors.As(err, &policyErr):
			httputil.FailWithErrors(w, http.StatusBadRequest, "Password does not meet requirements", policyErr.Reasons)
		case errors.Is(err, domain.ErrUserAlreadyExists):
			httputil.Fail(w, http.StatusBadRequest, "An account with this email already exists")
		default:
			h.logger.Error("registration failed", "error", err)
			httputil.Fail(w, http.StatusInternalServerError, "Server error during registration")
		}
		return
	}

	httputil.JSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"userId":  user.ID,
	})
}

// Login handles user login and issues a bearer token.
// POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.Fail(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	email, err := validate.Email(req.Email)
	if err != nil {
		httputil.Fail(w, http.StatusBadRequest, "Invalid email format")
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			httputil.Fail(w, http.StatusUnauthorized, "Invalid credentials")
		case errors.Is(err, domain.ErrAccountLocked):
			httputil.Fail(w, http.StatusForbidden, "Account is locked. Please reset your password or contact support.")
		default:
			h.logger.Error("login failed", "error", err)
			httputil.Fail(w, http.StatusInternalServerError, "Server error during login")
		}
		return
	}

	token, err := h.tokens.IssueToken(user)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err, "user_id", user.ID)
		httputil.Fail(w, http.StatusInternalServerError, "Server error during login")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"userId":    user.ID,
		"email":     validate.EncodeForOutput(user.Email),
		"firstName": validate.EncodeForOutput(user.FirstName),
		"lastName":  validate.EncodeForOutput(user.LastName),
		"token":     token,
	})
}

// RequestReset issues a reset token and mails it out. The response never
// reveals whether the email exists.
// POST /request-reset
func (h *Handler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email, err := validate.Email(req.Email)
	if err != nil {
		httputil.Fail(w, http.StatusBadRequest, "Invalid email format")
		return
	}

	if h.mailer == nil {
		httputil.Fail(w, http.StatusServiceUnavailable, "email service not configured")
		return
	}

	const sentMessage = "If an account exists with that email, a password reset token has been sent"

	token, err := h.accounts.RequestReset(r.Context(), email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			httputil.JSON(w, http.StatusOK, map[string]any{"success": true, "message": sentMessage})
			return
		}
		h.logger.Error("failed to create reset token", "error", err)
		httputil.Fail(w, http.StatusInternalServerError, "Server error")
		return
	}

	if err := h.mailer.SendPasswordResetEmail(email, token); err != nil {
		h.logger.Error("failed to send reset email", "error", err)
		httputil.Fail(w, http.StatusInternalServerError, "Failed to send reset email")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{"success": true, "message": sentMessage})
}

// ResetPassword redeems a reset token.
// POST /reset-password
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" {
		httputil.Fail(w, http.StatusBadRequest, "Valid token is required")
		return
	}
	if req.NewPassword == "" {
		httputil.Fail(w, http.StatusBadRequest, "New password is required")
		return
	}

	err := h.accounts.RedeemReset(r.Context(), validate.SanitizeString(req.Token, 64), req.NewPassword)
	if err != nil {
		var policyErr *auth.PolicyError
		switch {
		case errors.Is(err, domain.ErrResetTokenInvalid):
			httputil.Fail(w, http.StatusBadRequest, "Invalid or expired token")
		case errors.As(err, &policyErr):
			httputil.FailWithErrors(w, http.StatusBadRequest, "Password does not meet requirements", policyErr.Reasons)
		default:
			h.logger.Error("password reset failed", "error", err)
			httputil.Fail(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password has been reset successfully",
	})
}

// ChangePassword changes the authenticated user's password.
// POST /change-password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Fail(w, http.StatusUnauthorized, "missing authorization")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CurrentPassword == "" {
		httputil.Fail(w, http.StatusBadRequest, "Current password is required")
		return
	}
	if req.NewPassword == "" {
		httputil.Fail(w, http.StatusBadRequest, "New password is required")
		return
	}

	err := h.accounts.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		var policyErr *auth.PolicyError
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			httputil.Fail(w, http.StatusBadRequest, "Current password is incorrect")
		case errors.As(err, &policyErr):
			httputil.FailWithErrors(w, http.StatusBadRequest, "Password does not meet requirements", policyErr.Reasons)
		default:
			h.logger.Error("password change failed", "error", err, "user_id", userID)
			httputil.Fail(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password changed successfully",
	})
}
