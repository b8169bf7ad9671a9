package accounts

import (
	"time"

	"pet-adoption/internal/domain/access"
)

// User es una cuenta del marketplace. PasswordHash nunca sale del servicio.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         access.Role
	PasswordHash string
	CreatedAt    time.Time
}

// Session es lo que recibe el cliente al registrarse o entrar.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      User
}
