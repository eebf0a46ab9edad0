package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/netpanel/netpanel/internal/domain"
)

// AccountStore is the persistence contract for users and their password
// history. Multi-statement operations (create with initial history, password
// rotation) are atomic inside the implementation, and failed-login counting is
// serialized per user at the row level.
type AccountStore interface {
	HistorySource

	CreateUser(ctx context.Context, user *domain.User, initial *domain.PasswordHistoryEntry) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUserByResetToken(ctx context.Context, token string, now time.Time) (*domain.User, error)

	// RecordFailedLogin increments the failure counter and sets the locked
	// flag once the counter reaches maxAttempts, in a single atomic step.
	RecordFailedLogin(ctx context.Context, userID uuid.UUID, maxAttempts int) error
	ClearFailedLogins(ctx context.Context, userID uuid.UUID) error

	// SetResetToken stores token and expiry on the user row, replacing any
	// outstanding token.
	SetResetToken(ctx context.Context, userID uuid.UUID, token string, expiry time.Time) error

	// RotatePassword updates hash and salt and appends a history entry in one
	// transaction. When clearLock is set it also clears the reset token, the
	// failure counter and the locked flag.
	RotatePassword(ctx context.Context, userID uuid.UUID, hash, salt string, entry *domain.PasswordHistoryEntry, clearLock bool) error
}

// AccountService orchestrates registration, login, password change and the
// reset flow over an AccountStore.
type AccountService struct {
	store     AccountStore
	validator *Validator
	policies  *PolicyStore
	resetTTL  time.Duration

	// Decoy credentials verified when a login names an unknown email, so the
	// unknown-user path costs the same key derivation as a wrong password.
	decoyHash string
	decoySalt string
}

// NewAccountService creates an account service. resetTTL bounds how long an
// issued reset token stays redeemable.
func NewAccountService(store AccountStore, validator *Validator, policies *PolicyStore, resetTTL time.Duration) (*AccountService, error) {
	decoySalt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	decoyPassword, err := GenerateResetToken()
	if err != nil {
		return nil, err
	}
	return &AccountService{
		store:     store,
		validator: validator,
		policies:  policies,
		resetTTL:  resetTTL,
		decoyHash: HashPassword(decoyPassword, decoySalt),
		decoySalt: decoySalt,
	}, nil
}

// Register creates a new user. The password must pass the active policy (no
// history check yet, the user has none). The user row and the initial history
// entry persist atomically; a duplicate email surfaces as ErrUserAlreadyExists.
func (s *AccountService) Register(ctx context.Context, firstName, lastName, email, password string) (*domain.User, error) {
	reasons, err := s.validator.Validate(ctx, password, nil)
	if err != nil {
		return nil, err
	}
	if len(reasons) > 0 {
		return nil, &PolicyError{Reasons: reasons}
	}

	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	hash := HashPassword(password, salt)

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
		Salt:         salt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	initial := &domain.PasswordHistoryEntry{
		ID:           uuid.New(),
		UserID:       user.ID,
		PasswordHash: hash,
		Salt:         salt,
		CreatedAt:    now,
	}

	if err := s.store.CreateUser(ctx, user, initial); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies email and password. Unknown email and wrong password
// are indistinguishable to the caller: both burn a full key derivation and
// both return ErrInvalidCredentials. A locked account refuses login even with
// the correct password; the lock clears only through the reset flow.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			VerifyPassword(password, s.decoyHash, s.decoySalt)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if user.AccountLocked {
		return nil, domain.ErrAccountLocked
	}

	if !VerifyPassword(password, user.PasswordHash, user.Salt) {
		maxAttempts := s.policies.Current().MaxLoginAttempts
		if err := s.store.RecordFailedLogin(ctx, user.ID, maxAttempts); err != nil {
			return nil, fmt.Errorf("failed to record login attempt: %w", err)
		}
		return nil, domain.ErrInvalidCredentials
	}

	if user.FailedLoginAttempts > 0 {
		if err := s.store.ClearFailedLogins(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("failed to clear login attempts: %w", err)
		}
	}

	return user, nil
}

// ChangePassword rotates a user's password after verifying the current one.
// The new password runs the full policy including the history check for this
// user; on success the rotation and the history append are atomic.
func (s *AccountService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if !VerifyPassword(currentPassword, user.PasswordHash, user.Salt) {
		return domain.ErrInvalidCredentials
	}

	reasons, err := s.validator.Validate(ctx, newPassword, &userID)
	if err != nil {
		return err
	}
	if len(reasons) > 0 {
		return &PolicyError{Reasons: reasons}
	}

	return s.rotate(ctx, userID, newPassword, false)
}

// RequestReset issues a reset token for the account registered under email,
// overwriting any outstanding token so at most one is live per user. The raw
// token is returned for out-of-band delivery; unknown emails surface as
// ErrUserNotFound and the caller decides what to reveal.
func (s *AccountService) RequestReset(ctx context.Context, email string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	token, err := GenerateResetToken()
	if err != nil {
		return "", err
	}
	expiry := time.Now().Add(s.resetTTL)

	if err := s.store.SetResetToken(ctx, user.ID, token, expiry); err != nil {
		return "", err
	}
	return token, nil
}

// RedeemReset consumes a reset token and sets a new password. An unknown,
// expired or already-consumed token yields ErrResetTokenInvalid. On success
// the rotation also clears the token, the failure counter and the locked flag,
// all in one transaction.
func (s *AccountService) RedeemReset(ctx context.Context, token, newPassword string) error {
	user, err := s.store.GetUserByResetToken(ctx, token, time.Now())
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrResetTokenInvalid
		}
		return err
	}

	reasons, err := s.validator.Validate(ctx, newPassword, &user.ID)
	if err != nil {
		return err
	}
	if len(reasons) > 0 {
		return &PolicyError{Reasons: reasons}
	}

	return s.rotate(ctx, user.ID, newPassword, true)
}

func (s *AccountService) rotate(ctx context.Context, userID uuid.UUID, newPassword string, clearLock bool) error {
	salt, err := GenerateSalt()
	if err != nil {
		return err
	}
	hash := HashPassword(newPassword, salt)

	entry := &domain.PasswordHistoryEntry{
		ID:           uuid.New(),
		UserID:       userID,
		PasswordHash: hash,
		Salt:         salt,
		CreatedAt:    time.Now(),
	}
	return s.store.RotatePassword(ctx, userID, hash, salt, entry, clearLock)
}
