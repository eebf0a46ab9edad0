package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/netpanel/netpanel/internal/domain"
)

// fakeStore is an in-memory AccountStore mirroring the repository's
// semantics: atomic rotation, per-user failure counting, append-only history.
type fakeStore struct {
	users   map[uuid.UUID]*domain.User
	history map[uuid.UUID][]domain.PasswordHistoryEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[uuid.UUID]*domain.User),
		history: make(map[uuid.UUID][]domain.PasswordHistoryEntry),
	}
}

func (s *fakeStore) CreateUser(_ context.Context, user *domain.User, initial *domain.PasswordHistoryEntry) error {
	for _, u := range s.users {
		if u.Email == user.Email {
			return domain.ErrUserAlreadyExists
		}
	}
	copied := *user
	s.users[user.ID] = &copied
	s.history[user.ID] = append(s.history[user.ID], *initial)
	return nil
}

func (s *fakeStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *fakeStore) GetUserByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *fakeStore) GetUserByResetToken(_ context.Context, token string, now time.Time) (*domain.User, error) {
	for _, u := range s.users {
		if u.ResetToken != nil && *u.ResetToken == token &&
			u.ResetTokenExpiry != nil && u.ResetTokenExpiry.After(now) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *fakeStore) RecordFailedLogin(_ context.Context, userID uuid.UUID, maxAttempts int) error {
	u, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= maxAttempts {
		u.AccountLocked = true
	}
	return nil
}

func (s *fakeStore) ClearFailedLogins(_ context.Context, userID uuid.UUID) error {
	u, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.FailedLoginAttempts = 0
	return nil
}

func (s *fakeStore) SetResetToken(_ context.Context, userID uuid.UUID, token string, expiry time.Time) error {
	u, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.ResetToken = &token
	u.ResetTokenExpiry = &expiry
	return nil
}

func (s *fakeStore) RotatePassword(_ context.Context, userID uuid.UUID, hash, salt string, entry *domain.PasswordHistoryEntry, clearLock bool) error {
	u, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	u.Salt = salt
	if clearLock {
		u.ResetToken = nil
		u.ResetTokenExpiry = nil
		u.FailedLoginAttempts = 0
		u.AccountLocked = false
	}
	s.history[userID] = append(s.history[userID], *entry)
	return nil
}

func (s *fakeStore) RecentPasswordHistory(_ context.Context, userID uuid.UUID, limit int) ([]domain.PasswordHistoryEntry, error) {
	all := s.history[userID]
	var out []domain.PasswordHistoryEntry
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func newTestService(t *testing.T) (*AccountService, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	policies := NewPolicyStore(nil)
	validator := NewValidator(policies, store)
	svc, err := NewAccountService(store, validator, policies, time.Hour)
	if err != nil {
		t.Fatalf("NewAccountService() error = %v", err)
	}
	return svc, store
}

func mustRegister(t *testing.T, svc *AccountService, email, password string) *domain.User {
	t.Helper()
	user, err := svc.Register(context.Background(), "Ada", "Lovelace", email, password)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return user
}

func TestRegister(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	user := mustRegister(t, svc, "ada@example.com", "C0mplex!Passw0rd")

	if user.PasswordHash == "" || user.Salt == "" {
		t.Error("registered user has empty credentials")
	}
	if len(store.history[user.ID]) != 1 {
		t.Errorf("history entries = %d, want 1 initial entry", len(store.history[user.ID]))
	}

	// Weak password: every violated rule is reported.
	_, err := svc.Register(ctx, "Ada", "Lovelace", "other@example.com", "weak")
	var policyErr *PolicyError
	if !errors.As(err, &policyErr) {
		t.Fatalf("Register(weak) error = %v, want PolicyError", err)
	}
	if len(policyErr.Reasons) < 3 {
		t.Errorf("PolicyError reasons = %v, want all violations", policyErr.Reasons)
	}

	// Duplicate email.
	_, err = svc.Register(ctx, "Ada", "Lovelace", "ada@example.com", "C0mplex!Passw0rd")
	if !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Errorf("duplicate Register() error = %v, want ErrUserAlreadyExists", err)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustRegister(t, svc, "ada@example.com", "C0mplex!Passw0rd")

	user, err := svc.Authenticate(ctx, "ada@example.com", "C0mplex!Passw0rd")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("Email = %q", user.Email)
	}

	if _, err := svc.Authenticate(ctx, "ada@example.com", "Wrong!Passw0rd1"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}

	// Unknown email is indistinguishable from a wrong password.
	if _, err := svc.Authenticate(ctx, "nobody@example.com", "C0mplex!Passw0rd"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticate_LockoutAfterMaxAttempts(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	user := mustRegister(t, svc, "ada@example.com", "C0mplex!Passw0rd")

	// Default policy allows 3 attempts.
	for i := 0; i < 3; i++ {
		if _, err := svc.Authenticate(ctx, "ada@example.com", "Wrong!Passw0rd1"); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d error = %v, want ErrInvalidCredentials", i+1, err)
		}
	}

	if !store.users[user.ID].AccountLocked {
		t.Fatal("account not locked after max failed attempts")
	}

	// Correct password is refused while locked; the lock never self-clears.
	if _, err := svc.Authenticate(ctx, "ada@example.com", "C0mplex!Passw0rd"); !errors.Is(err, domain.ErrAccountLocked) {
		t.Errorf("locked login error = %v, want ErrAccountLocked", err)
	}
	if _, err := svc.Authenticate(ctx, "ada@example.com", "Wrong!Passw0rd1"); !errors.Is(err, domain.ErrAccountLocked) {
		t.Errorf("locked login error = %v, want ErrAccountLocked", err)
	}
}

func TestAuthenticate_SuccessResetsCounter(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	user := mustRegister(t, svc, "ada@example.com", "C0mplex!Passw0rd")

	for i := 0; i < 2; i++ {
		svc.Authenticate(ctx, "ada@example.com", "Wrong!Passw0rd1")
	}
	if store.users[user.ID].FailedLoginAttempts != 2 {
		t.Fatalf("counter = %d, want 2", store.users[user.ID].FailedLoginAttempts)
	}

	if _, err := svc.Authenticate(ctx, "ada@example.com", "C0mplex!Passw0rd"); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if store.users[user.ID].FailedLoginAttempts != 0 {
		t.Errorf("counter = %d after success, want 0", store.users[user.ID].FailedLoginAttempts)
	}
}

func TestChangePassword(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	user := mustRegister(t, svc, "ada@example.com", "C0mplex!Passw0rd")

	if err := svc.ChangePassword(ctx, user.ID, "Wrong!Passw0rd1", "An0ther!Passw0rd"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("wrong current password error = %v, want ErrInvalidCredentials", err)
	}

	if err := svc.ChangePassword(ctx, user.ID, "C0mplex!Passw0rd", "An0ther!Passw0rd"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if len(store.history[user.ID]) != 2 {
		t.Errorf("history entries = %d, want 2", len(store.history[user.ID]))
	}

	if _, err := svc.Authenticate(ctx, "ada@example.com", "An0ther!Passw0rd"); err != nil {
		t.Errorf("login with new password error = %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ada@example.com", "C0mplex!Passw0rd"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("login with old password error = %v, want ErrInvalidCredentials", err)
	}
}

func TestChangePassword_HistoryWindow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user := mustRegister(t, svc, "ada@example.com", "Hist0ric!Pass-A")

	if err := svc.ChangePassword(ctx, user.ID, "Hist0ric!Pass-A", "Hist0ric!Pass-B"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	// A is still within the 3-entry window.
	err := svc.ChangePassword(ctx, user.ID, "Hist0ric!Pass-B", "Hist0ric!Pass-A")
	var policyErr *PolicyError
	if !errors.As(err, &policyErr) {
		t.Fatalf("reuse within window error = %v, want PolicyError", err)
	}

	// Push A out of the window with three more distinct passwords.
	current := "Hist0ric!Pass-B"
	for i := 0; i < 3; i++ {
		next := fmt.Sprintf("Hist0ric!Pass-%d", i)
		if err := svc.ChangePassword(ctx, user.ID, current, next); err != nil {
			t.Fatalf("rotation %d error = %v", i, err)
		}
		current = next
	}

	if err := svc.ChangePassword(ctx, user.ID, current, "Hist0ric!Pass-A"); err != nil {
		t.Errorf("reuse outside window error = %v, want success", err)
	}
}

func TestResetFlow(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	user := mustRegister(t, svc, "ada@example.com", "C0mplex!Passw0rd")

	if _, err := svc.RequestReset(ctx, "nobody@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("unknown email error = %v, want ErrUserNotFound", err)
	}

	first, err := svc.RequestReset(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("RequestReset() error = %v", err)
	}

	// A second request replaces the first token: at most one live token.
	second, err := svc.RequestReset(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("RequestReset() error = %v", err)
	}
	if first == second {
		t.Fatal("two reset requests produced the same token")
	}
	if err := svc.RedeemReset(ctx, first, "An0ther!Passw0rd"); !errors.Is(err, domain.ErrResetTokenInvalid) {
		t.Errorf("overwritten token error = %v, want ErrResetTokenInvalid", err)
	}

	if err := svc.RedeemReset(ctx, second, "An0ther!Passw0rd"); err != nil {
		t.Fatalf("RedeemReset() error = %v", err)
	}
	if store.users[user.ID].ResetToken != nil {
		t.Error("token not cleared after redemption")
	}

	// Single-use: the same token fails the second time.
	if err := svc.RedeemReset(ctx, second, "Th1rd!Passw0rd-"); !errors.Is(err, domain.ErrResetTokenInvalid) {
		t.Errorf("second redemption error = %v, want ErrResetTokenInvalid", err)
	}

	if _, err := svc.Authenticate(ctx, "ada@example.com", "An0ther!Passw0rd"); err != nil {
		t.Errorf("login after reset error = %v", err)
	}
}

func TestRedeemReset_UnlocksAccount(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	user := mustRegister(t, svc, "ada@example.com", "C0mplex!Passw0rd")

	for i := 0; i < 3; i++ {
		svc.Authenticate(ctx, "ada@example.com", "Wrong!Passw0rd1")
	}
	if !store.users[user.ID].AccountLocked {
		t.Fatal("account not locked")
	}

	token, err := svc.RequestReset(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("RequestReset() error = %v", err)
	}
	if err := svc.RedeemReset(ctx, token, "An0ther!Passw0rd"); err != nil {
		t.Fatalf("RedeemReset() error = %v", err)
	}

	if store.users[user.ID].AccountLocked {
		t.Error("lock not cleared by reset")
	}
	if _, err := svc.Authenticate(ctx, "ada@example.com", "An0ther!Passw0rd"); err != nil {
		t.Errorf("login after unlock error = %v", err)
	}
}

func TestRedeemReset_ExpiredAndUnknown(t *testing.T) {
	store := newFakeStore()
	policies := NewPolicyStore(nil)
	validator := NewValidator(policies, store)
	// Tokens expire immediately.
	svc, err := NewAccountService(store, validator, policies, -time.Minute)
	if err != nil {
		t.Fatalf("NewAccountService() error = %v", err)
	}
	ctx := context.Background()

	mustRegister(t, svc, "ada@example.com", "C0mplex!Passw0rd")

	token, err := svc.RequestReset(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("RequestReset() error = %v", err)
	}
	if err := svc.RedeemReset(ctx, token, "An0ther!Passw0rd"); !errors.Is(err, domain.ErrResetTokenInvalid) {
		t.Errorf("expired token error = %v, want ErrResetTokenInvalid", err)
	}

	if err := svc.RedeemReset(ctx, "no-such-token", "An0ther!Passw0rd"); !errors.Is(err, domain.ErrResetTokenInvalid) {
		t.Errorf("unknown token error = %v, want ErrResetTokenInvalid", err)
	}
}

func TestRedeemReset_EnforcesPolicy(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustRegister(t, svc, "ada@example.com", "C0mplex!Passw0rd")

	token, err := svc.RequestReset(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("RequestReset() error = %v", err)
	}

	var policyErr *PolicyError
	if err := svc.RedeemReset(ctx, token, "weak"); !errors.As(err, &policyErr) {
		t.Fatalf("weak reset password error = %v, want PolicyError", err)
	}

	// Reusing the current password through the reset path is also refused.
	if err := svc.RedeemReset(ctx, token, "C0mplex!Passw0rd"); !errors.As(err, &policyErr) {
		t.Errorf("reused reset password error = %v, want PolicyError", err)
	}
}
