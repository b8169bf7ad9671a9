package auth

import "time"

// Claims representa la información extraída del token.
// Role puede venir vacío (proveedor externo); el middleware lo resuelve server-side.
type Claims struct {
	UserID    string
	Email     string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}
