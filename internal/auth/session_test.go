package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/netpanel/netpanel/internal/domain"
)

func testUser() *domain.User {
	return &domain.User{
		ID:        uuid.New(),
		Email:     "ada@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
	}
}

func TestIssueAndValidateToken(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: []byte("test-secret"), Issuer: "netpanel"})
	user := testUser()

	tokenString, err := svc.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	claims, err := svc.ValidateToken(tokenString)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Subject != user.ID.String() {
		t.Errorf("Subject = %q, want %q", claims.Subject, user.ID)
	}
	if claims.Email != user.Email || claims.FirstName != user.FirstName || claims.LastName != user.LastName {
		t.Errorf("claims = %+v, want user identity carried through", claims)
	}
	if claims.Issuer != "netpanel" {
		t.Errorf("Issuer = %q", claims.Issuer)
	}

	exp := claims.ExpiresAt.Time
	if until := time.Until(exp); until < 55*time.Minute || until > 65*time.Minute {
		t.Errorf("expiry %v from now, want about the default hour", until)
	}
}

func TestValidateToken_Rejections(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: []byte("test-secret")})
	other := NewTokenService(TokenConfig{Secret: []byte("other-secret")})
	user := testUser()

	good, err := svc.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"tampered", good + "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.ValidateToken(tt.token); !errors.Is(err, domain.ErrInvalidToken) {
				t.Errorf("ValidateToken(%q) error = %v, want ErrInvalidToken", tt.token, err)
			}
		})
	}

	// Signed with a different secret.
	if _, err := other.ValidateToken(good); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("wrong secret error = %v, want ErrInvalidToken", err)
	}
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: []byte("test-secret"), TTL: -time.Minute})

	tokenString, err := svc.IssueToken(testUser())
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	if _, err := svc.ValidateToken(tokenString); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expired token error = %v, want ErrInvalidToken", err)
	}
}

func TestUserIDFromToken(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: []byte("test-secret")})
	user := testUser()

	tokenString, err := svc.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	id, err := svc.UserIDFromToken(tokenString)
	if err != nil {
		t.Fatalf("UserIDFromToken() error = %v", err)
	}
	if id != user.ID {
		t.Errorf("id = %v, want %v", id, user.ID)
	}

	if _, err := svc.UserIDFromToken("bogus"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("bogus token error = %v, want ErrInvalidToken", err)
	}
}
