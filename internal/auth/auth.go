package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Credential is an anonymous identity: a freshly minted user id and the
// bearer token proving it. The id stays stable for as long as the client
// holds the token.
type Credential struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

// Provider issues and validates anonymous credentials.
type Provider struct {
	secret []byte
	ttl    time.Duration
}

func NewProvider(secret string, ttl time.Duration) (*Provider, error) {
	if secret == "" {
		return nil, errors.New("auth secret is empty")
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Provider{secret: []byte(secret), ttl: ttl}, nil
}

// SignInAnonymously mints a new anonymous identity.
func (p *Provider) SignInAnonymously(ctx context.Context) (Credential, error) {
	userID := uuid.NewString()
	now := time.Now()

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return Credential{}, fmt.Errorf("sign credential: %w", err)
	}

	return Credential{UserID: userID, Token: token}, nil
}

// ValidateToken verifies a bearer token and returns the user id it carries.
func (p *Provider) ValidateToken(ctx context.Context, token string) (string, error) {
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
