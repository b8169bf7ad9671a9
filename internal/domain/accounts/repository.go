package accounts

import (
	"context"
	"time"

	"pet-adoption/internal/domain/access"
)

// Repository es la tabla users. Create devuelve apperr.ErrConflict si el email ya existe.
type Repository interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	UpdateRole(ctx context.Context, id string, role access.Role) error
}

// RevocationStore es la denylist de tokens cerrados con sign-out.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// TokenIssuer firma la sesión de un usuario.
type TokenIssuer interface {
	Issue(u User) (Session, error)
}
