package pets

import (
	"context"
	"io"
	"time"
)

// Repository es el record store de pets. Los adapters devuelven apperr.ErrNotFound
// cuando la fila no existe.
type Repository interface {
	Create(ctx context.Context, p Pet) error
	// Update aplica solo los campos presentes del patch, en una sola escritura.
	Update(ctx context.Context, id string, patch Patch, updatedAt time.Time) (Pet, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Pet, error)

	// Ambos listados ordenan por created_at DESC.
	ListByOwner(ctx context.Context, shelterID string) ([]Pet, error)
	ListByStatus(ctx context.Context, status Status) ([]Pet, error)

	// SetPhotos reemplaza la lista; AppendPhotos concatena de forma atómica.
	SetPhotos(ctx context.Context, id string, urls []string, updatedAt time.Time) (Pet, error)
	AppendPhotos(ctx context.Context, id string, urls []string, updatedAt time.Time) (Pet, error)
	SetStatus(ctx context.Context, id string, status Status, updatedAt time.Time) error
}

// PhotoStore es el blob store donde viven las fotos.
type PhotoStore interface {
	Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

// RequestCounter evita importar adoptions (rompe ciclos).
type RequestCounter interface {
	CountForPet(ctx context.Context, petID string) (int, error)
}
