package auth

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/google/uuid"
	"github.com/netpanel/netpanel/internal/domain"
)

// Policy defines password acceptability rules. A Policy value is immutable
// once published through a PolicyStore; updates swap in a new snapshot.
type Policy struct {
	MinLength         int
	RequireUppercase  bool
	RequireLowercase  bool
	RequireNumber     bool
	RequireSpecial    bool
	DictionaryEnabled bool
	Dictionary        []string
	HistoryCount      int
	MaxLoginAttempts  int
}

// DefaultPolicy returns the policy the service ships with.
func DefaultPolicy() *Policy {
	return &Policy{
		MinLength:         10,
		RequireUppercase:  true,
		RequireLowercase:  true,
		RequireNumber:     true,
		RequireSpecial:    true,
		DictionaryEnabled: true,
		Dictionary: []string{
			"password", "admin", "123456", "qwerty", "welcome",
			"letmein", "monkey", "football", "baseball", "superman",
			"batman", "trustno1", "iloveyou", "starwars", "master",
			"access", "shadow", "dragon", "michael", "mustang",
			"jennifer", "thomas", "jordan", "hunter", "ranger",
			"buster", "soccer", "harley", "password123", "hockey",
		},
		HistoryCount:     3,
		MaxLoginAttempts: 3,
	}
}

// PolicyUpdate carries a partial policy change. Nil fields keep the current
// value, so a hot reload can never leave a field undefined.
type PolicyUpdate struct {
	MinLength         *int      `json:"minLength,omitempty"`
	RequireUppercase  *bool     `json:"requireUppercase,omitempty"`
	RequireLowercase  *bool     `json:"requireLowercase,omitempty"`
	RequireNumber     *bool     `json:"requireNumber,omitempty"`
	RequireSpecial    *bool     `json:"requireSpecial,omitempty"`
	DictionaryEnabled *bool     `json:"dictionaryEnabled,omitempty"`
	Dictionary        *[]string `json:"dictionary,omitempty"`
	HistoryCount      *int      `json:"historyCount,omitempty"`
	MaxLoginAttempts  *int      `json:"maxLoginAttempts,omitempty"`
}

// PolicyStore holds the current policy snapshot. Reads are lock-free;
// concurrent readers always observe a complete policy.
type PolicyStore struct {
	current atomic.Pointer[Policy]
}

// NewPolicyStore creates a store seeded with the given policy, or the default
// policy when nil.
func NewPolicyStore(p *Policy) *PolicyStore {
	s := &PolicyStore{}
	if p == nil {
		p = DefaultPolicy()
	}
	s.current.Store(p)
	return s
}

// Current returns the active policy snapshot. Callers must not mutate it.
func (s *PolicyStore) Current() *Policy {
	return s.current.Load()
}

// Update applies a partial update on top of the current snapshot and swaps the
// result in atomically.
func (s *PolicyStore) Update(u PolicyUpdate) *Policy {
	cur := s.current.Load()
	next := *cur
	next.Dictionary = append([]string(nil), cur.Dictionary...)

	if u.MinLength != nil {
		next.MinLength = *u.MinLength
	}
	if u.RequireUppercase != nil {
		next.RequireUppercase = *u.RequireUppercase
	}
	if u.RequireLowercase != nil {
		next.RequireLowercase = *u.RequireLowercase
	}
	if u.RequireNumber != nil {
		next.RequireNumber = *u.RequireNumber
	}
	if u.RequireSpecial != nil {
		next.RequireSpecial = *u.RequireSpecial
	}
	if u.DictionaryEnabled != nil {
		next.DictionaryEnabled = *u.DictionaryEnabled
	}
	if u.Dictionary != nil {
		next.Dictionary = append([]string(nil), (*u.Dictionary)...)
	}
	if u.HistoryCount != nil {
		next.HistoryCount = *u.HistoryCount
	}
	if u.MaxLoginAttempts != nil {
		next.MaxLoginAttempts = *u.MaxLoginAttempts
	}

	s.current.Store(&next)
	return &next
}

// HistorySource provides the most recent password history entries for a user,
// newest first.
type HistorySource interface {
	RecentPasswordHistory(ctx context.Context, userID uuid.UUID, limit int) ([]domain.PasswordHistoryEntry, error)
}

// PolicyError reports every rule a candidate password violated.
type PolicyError struct {
	Reasons []string
}

func (e *PolicyError) Error() string {
	return "password does not meet requirements: " + strings.Join(e.Reasons, "; ")
}

// Validator checks candidate passwords against the active policy.
type Validator struct {
	policies *PolicyStore
	history  HistorySource
}

// NewValidator creates a validator. history may be nil when no reuse checking
// is wanted (e.g. in tests of the rule set alone).
func NewValidator(policies *PolicyStore, history HistorySource) *Validator {
	return &Validator{policies: policies, history: history}
}

// Validate checks the candidate password and returns all violated rules, not
// just the first, so callers can report everything at once. When userID is
// given the candidate is also re-hashed under each of the most recent
// HistoryCount entries' salts and rejected on any match. An empty slice means
// the password is acceptable.
//
// The history check runs the full key derivation up to HistoryCount times;
// that cost is part of the slow path and accepted.
func (v *Validator) Validate(ctx context.Context, password string, userID *uuid.UUID) ([]string, error) {
	policy := v.policies.Current()
	var reasons []string

	if len(password) < policy.MinLength {
		reasons = append(reasons, fmt.Sprintf("Password must be at least %d characters long", policy.MinLength))
	}
	if policy.RequireUppercase && !containsClass(password, unicode.IsUpper) {
		reasons = append(reasons, "Password must contain at least one uppercase letter")
	}
	if policy.RequireLowercase && !containsClass(password, unicode.IsLower) {
		reasons = append(reasons, "Password must contain at least one lowercase letter")
	}
	if policy.RequireNumber && !containsClass(password, unicode.IsDigit) {
		reasons = append(reasons, "Password must contain at least one number")
	}
	if policy.RequireSpecial && !containsSpecial(password) {
		reasons = append(reasons, "Password must contain at least one special character")
	}
	if policy.DictionaryEnabled && containsDictionaryWord(password, policy.Dictionary) {
		reasons = append(reasons, "Password contains common words or patterns that are not allowed")
	}

	if userID != nil && v.history != nil && policy.HistoryCount > 0 {
		entries, err := v.history.RecentPasswordHistory(ctx, *userID, policy.HistoryCount)
		if err != nil {
			return nil, fmt.Errorf("failed to load password history: %w", err)
		}
		for _, entry := range entries {
			if VerifyPassword(password, entry.PasswordHash, entry.Salt) {
				reasons = append(reasons, fmt.Sprintf("Cannot reuse one of your last %d passwords", policy.HistoryCount))
				break
			}
		}
	}

	return reasons, nil
}

func containsClass(s string, is func(rune) bool) bool {
	for _, r := range s {
		if is(r) {
			return true
		}
	}
	return false
}

func containsSpecial(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// containsDictionaryWord does a case-insensitive substring match, not a
// whole-word match: "Password123!" is rejected for containing "password".
func containsDictionaryWord(password string, words []string) bool {
	lower := strings.ToLower(password)
	for _, w := range words {
		if w != "" && strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}
