package pets

import (
	"context"

	"pet-adoption/internal/apperr"
)

// MarkStatus es el efecto lateral de una aprobación. No pasa por el gate:
// quien llama ya autorizó al shelter dueño.
func (s *Service) MarkStatus(ctx context.Context, petID string, status Status) error {
	if !status.Valid() {
		return apperr.Invalid("status", "unknown status")
	}
	if err := s.repo.SetStatus(ctx, petID, status, s.now()); err != nil {
		return apperr.Store("update pet status", err)
	}
	return nil
}
