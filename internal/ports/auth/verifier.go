package auth

import "context"

// AuthVerifier verifica un token y devuelve claims o error.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// RoleResolver consulta el rol persistido de un usuario.
// Nunca se confía en un rol que el cliente pueda escribir.
type RoleResolver interface {
	RoleOf(ctx context.Context, userID string) (string, error)
}
