package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/netpanel/netpanel/internal/domain"
)

// DefaultAccessTokenTTL is used when the config leaves the TTL unset.
const DefaultAccessTokenTTL = time.Hour

// TokenConfig holds bearer token settings. The signing secret is process-wide
// state loaded once at startup.
type TokenConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// AccessTokenClaims are the claims carried by an access token. The subject is
// the user id.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// TokenService issues and validates signed bearer tokens.
type TokenService struct {
	config TokenConfig
}

// NewTokenService creates a token service.
func NewTokenService(config TokenConfig) *TokenService {
	if config.TTL == 0 {
		config.TTL = DefaultAccessTokenTTL
	}
	return &TokenService{config: config}
}

// IssueToken signs a time-limited bearer token for the user.
func (s *TokenService) IssueToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TTL)),
			Issuer:    s.config.Issuer,
		},
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.config.Secret)
}

// ValidateToken parses and verifies a bearer token and returns its claims.
func (s *TokenService) ValidateToken(tokenString string) (*AccessTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.config.Secret, nil
	})
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*AccessTokenClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

// UserIDFromToken extracts the subject user id from a bearer token.
func (s *TokenService) UserIDFromToken(tokenString string) (uuid.UUID, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(claims.Subject)
}
