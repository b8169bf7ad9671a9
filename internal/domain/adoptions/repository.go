package adoptions

import (
	"context"
	"time"

	"pet-adoption/internal/domain/pets"
)

// Repository es el record store de adoption requests.
// Los listados ordenan por created_at DESC.
type Repository interface {
	Create(ctx context.Context, r Request) error
	GetByID(ctx context.Context, id string) (Request, error)
	Delete(ctx context.Context, id string) error

	ListByPet(ctx context.Context, petID string) ([]Request, error)
	ListByAdopter(ctx context.Context, adopterID string) ([]Request, error)
	ListByPetIDs(ctx context.Context, petIDs []string) ([]Request, error)

	// Transition cambia el status solo si el actual sigue siendo from.
	// Devuelve apperr.ErrConflict si otro caller ya lo movió, apperr.ErrNotFound si no existe.
	Transition(ctx context.Context, id string, from, to Status, at time.Time) (Request, error)

	CountForPet(ctx context.Context, petID string) (int, error)
	HasPending(ctx context.Context, petID, adopterID string) (bool, error)
}

// PetDirectory es lo que este módulo necesita de pets. *pets.Service lo implementa.
type PetDirectory interface {
	GetByID(ctx context.Context, id string) (pets.Pet, error)
	ListByOwner(ctx context.Context, shelterID string) ([]pets.Pet, error)
	MarkStatus(ctx context.Context, petID string, status pets.Status) error
}
