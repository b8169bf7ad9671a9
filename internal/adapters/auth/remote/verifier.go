// Package remote delega la verificación de tokens a un proveedor de identidad externo.
//
// El proveedor solo confirma quién es el usuario. El rol nunca se toma de su
// metadata (el cliente puede escribirla): lo resuelve el middleware contra users.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pet-adoption/internal/platform/httpclient"
	"pet-adoption/internal/ports/auth"
)

var (
	ErrNotConfigured = errors.New("identity provider not configured")
	ErrUnauthorized  = errors.New("identity provider rejected token")
	ErrUpstream      = errors.New("identity provider error")
)

const userPath = "/auth/v1/user"

type Config struct {
	BaseURL string
	APIKey  string

	// APIKeyHeader default "apikey".
	APIKeyHeader string
	Timeout      time.Duration
}

// Verifier implementa auth.AuthVerifier contra GET /auth/v1/user.
type Verifier struct {
	client *httpclient.Client
}

func NewVerifier(cfg Config) (*Verifier, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	c, err := httpclient.New(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	h := strings.TrimSpace(cfg.APIKeyHeader)
	if h == "" {
		h = "apikey"
	}
	c.Header.Set(h, strings.TrimSpace(cfg.APIKey))
	return &Verifier{client: c}, nil
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrUnauthorized
	}

	var out userResponse
	err := v.client.DoJSON(ctx, http.MethodGet, userPath, http.Header{
		"Authorization": []string{"Bearer " + token},
	}, nil, &out)
	if err != nil {
		switch httpclient.StatusOf(err) {
		case http.StatusUnauthorized, http.StatusForbidden:
			return auth.Claims{}, ErrUnauthorized
		default:
			return auth.Claims{}, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
	}

	id := strings.TrimSpace(out.ID)
	if id == "" {
		return auth.Claims{}, fmt.Errorf("%w: response missing user id", ErrUpstream)
	}
	return auth.Claims{
		UserID: id,
		Email:  strings.TrimSpace(out.Email),
	}, nil
}
