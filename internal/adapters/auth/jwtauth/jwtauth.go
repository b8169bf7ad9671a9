// Package jwtauth firma y verifica las sesiones locales (HS256).
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pet-adoption/internal/domain/accounts"
	"pet-adoption/internal/ports/auth"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var (
	ErrMissingSecret = errors.New("jwt secret is empty")
	ErrTokenRevoked  = errors.New("token revoked")
	ErrInvalidToken  = errors.New("invalid token")
)

const DefaultTTL = 24 * time.Hour

// RevocationChecker consulta la denylist de sign-out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type sessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Service implementa accounts.TokenIssuer y auth.AuthVerifier.
type Service struct {
	secret  []byte
	issuer  string
	ttl     time.Duration
	revoked RevocationChecker
	now     func() time.Time
}

func New(cfg Config, revoked RevocationChecker) (*Service, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		secret:  []byte(secret),
		issuer:  strings.TrimSpace(cfg.Issuer),
		ttl:     ttl,
		revoked: revoked,
		now:     time.Now,
	}, nil
}

func (s *Service) Issue(u accounts.User) (accounts.Session, error) {
	now := s.now()
	exp := now.Add(s.ttl)

	claims := sessionClaims{
		Email: u.Email,
		Role:  string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return accounts.Session{}, fmt.Errorf("sign token: %w", err)
	}
	return accounts.Session{Token: signed, ExpiresAt: exp, User: u}, nil
}

func (s *Service) Verify(ctx context.Context, token string) (auth.Claims, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return auth.Claims{}, fmt.Errorf("%w: unexpected issuer", ErrInvalidToken)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return auth.Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	if s.revoked != nil && claims.ID != "" {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return auth.Claims{}, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return auth.Claims{}, ErrTokenRevoked
		}
	}

	out := auth.Claims{
		UserID:  claims.Subject,
		Email:   claims.Email,
		Role:    claims.Role,
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
