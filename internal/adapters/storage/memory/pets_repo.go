package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"pet-adoption/internal/apperr"
	"pet-adoption/internal/domain/pets"
)

type petRepo struct {
	mu   sync.RWMutex
	byID map[string]pets.Pet
}

func NewPetRepo() pets.Repository {
	return &petRepo{
		byID: make(map[string]pets.Pet),
	}
}

func (r *petRepo) Create(ctx context.Context, p pets.Pet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(p.ID) == "" {
		return errors.New("pet id required")
	}
	if _, exists := r.byID[p.ID]; exists {
		return errors.New("pet already exists")
	}
	r.byID[p.ID] = clonePet(p)
	return nil
}

// Update aplica el patch sobre el valor actual bajo el write lock.
func (r *petRepo) Update(ctx context.Context, id string, patch pets.Patch, updatedAt time.Time) (pets.Pet, error) {
	return r.mutate(id, updatedAt, func(p *pets.Pet) {
		*p = patch.Apply(*p)
	})
}

func (r *petRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		return apperr.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *petRepo) GetByID(ctx context.Context, id string) (pets.Pet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return pets.Pet{}, apperr.ErrNotFound
	}
	return clonePet(p), nil
}

func (r *petRepo) ListByOwner(ctx context.Context, shelterID string) ([]pets.Pet, error) {
	return r.list(func(p pets.Pet) bool { return p.ShelterID == shelterID }), nil
}

func (r *petRepo) ListByStatus(ctx context.Context, status pets.Status) ([]pets.Pet, error) {
	return r.list(func(p pets.Pet) bool { return p.Status == status }), nil
}

func (r *petRepo) list(keep func(pets.Pet) bool) []pets.Pet {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]pets.Pet, 0)
	for _, p := range r.byID {
		if keep(p) {
			out = append(out, clonePet(p))
		}
	}

	// created_at DESC, id como desempate para que el orden sea estable
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *petRepo) SetPhotos(ctx context.Context, id string, urls []string, updatedAt time.Time) (pets.Pet, error) {
	return r.mutate(id, updatedAt, func(p *pets.Pet) {
		p.Photos = append([]string{}, urls...)
	})
}

// AppendPhotos concatena bajo el write lock: dos batches concurrentes nunca se pisan.
func (r *petRepo) AppendPhotos(ctx context.Context, id string, urls []string, updatedAt time.Time) (pets.Pet, error) {
	return r.mutate(id, updatedAt, func(p *pets.Pet) {
		p.Photos = append(append([]string{}, p.Photos...), urls...)
	})
}

func (r *petRepo) SetStatus(ctx context.Context, id string, status pets.Status, updatedAt time.Time) error {
	_, err := r.mutate(id, updatedAt, func(p *pets.Pet) { p.Status = status })
	return err
}

func (r *petRepo) mutate(id string, updatedAt time.Time, fn func(*pets.Pet)) (pets.Pet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return pets.Pet{}, apperr.ErrNotFound
	}
	fn(&p)
	p.UpdatedAt = updatedAt
	r.byID[id] = p
	return clonePet(p), nil
}

func clonePet(p pets.Pet) pets.Pet {
	p.Photos = append([]string{}, p.Photos...)
	return p
}
