package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"pet-adoption/internal/apperr"
	"pet-adoption/internal/domain/access"
	"pet-adoption/internal/domain/accounts"
)

type userRepo struct {
	mu      sync.RWMutex
	byID    map[string]accounts.User
	byEmail map[string]string
}

func NewUserRepo() accounts.Repository {
	return &userRepo{
		byID:    make(map[string]accounts.User),
		byEmail: make(map[string]string),
	}
}

func (r *userRepo) Create(ctx context.Context, u accounts.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(u.ID) == "" {
		return errors.New("user id required")
	}
	email := strings.ToLower(u.Email)
	if _, taken := r.byEmail[email]; taken {
		return apperr.ErrConflict
	}
	r.byID[u.ID] = u
	r.byEmail[email] = u.ID
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (accounts.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return accounts.User{}, apperr.ErrNotFound
	}
	return u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (accounts.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return accounts.User{}, apperr.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *userRepo) UpdateRole(ctx context.Context, id string, role access.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	u.Role = role
	r.byID[id] = u
	return nil
}

// revokedTokens es la denylist de sign-out. Las entradas vencidas se limpian al revocar.
type revokedTokens struct {
	mu  sync.Mutex
	exp map[string]time.Time
	now func() time.Time
}

func NewRevokedTokens() accounts.RevocationStore {
	return &revokedTokens{exp: make(map[string]time.Time), now: time.Now}
}

func (r *revokedTokens) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, exp := range r.exp {
		if !exp.IsZero() && exp.Before(now) {
			delete(r.exp, id)
		}
	}
	r.exp[tokenID] = expiresAt
	return nil
}

func (r *revokedTokens) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.exp[tokenID]
	return ok, nil
}
