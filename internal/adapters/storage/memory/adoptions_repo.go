package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"pet-adoption/internal/apperr"
	"pet-adoption/internal/domain/adoptions"
)

type adoptionRepo struct {
	mu   sync.RWMutex
	byID map[string]adoptions.Request
}

func NewAdoptionRepo() adoptions.Repository {
	return &adoptionRepo{
		byID: make(map[string]adoptions.Request),
	}
}

func (r *adoptionRepo) Create(ctx context.Context, req adoptions.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(req.ID) == "" {
		return errors.New("request id required")
	}
	if _, exists := r.byID[req.ID]; exists {
		return errors.New("request already exists")
	}
	// Un solo pending por (pet, adopter), chequeado bajo el mismo lock del insert.
	if req.Status == adoptions.StatusPending {
		for _, other := range r.byID {
			if other.Status == adoptions.StatusPending && other.PetID == req.PetID && other.AdopterID == req.AdopterID {
				return fmt.Errorf("%w: a pending request for this pet already exists", apperr.ErrConflict)
			}
		}
	}
	r.byID[req.ID] = req
	return nil
}

func (r *adoptionRepo) GetByID(ctx context.Context, id string) (adoptions.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.byID[id]
	if !ok {
		return adoptions.Request{}, apperr.ErrNotFound
	}
	return req, nil
}

func (r *adoptionRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *adoptionRepo) ListByPet(ctx context.Context, petID string) ([]adoptions.Request, error) {
	return r.list(func(req adoptions.Request) bool { return req.PetID == petID }), nil
}

func (r *adoptionRepo) ListByAdopter(ctx context.Context, adopterID string) ([]adoptions.Request, error) {
	return r.list(func(req adoptions.Request) bool { return req.AdopterID == adopterID }), nil
}

func (r *adoptionRepo) ListByPetIDs(ctx context.Context, petIDs []string) ([]adoptions.Request, error) {
	set := make(map[string]struct{}, len(petIDs))
	for _, id := range petIDs {
		set[id] = struct{}{}
	}
	return r.list(func(req adoptions.Request) bool {
		_, ok := set[req.PetID]
		return ok
	}), nil
}

// Transition es el compare-and-set bajo el write lock.
func (r *adoptionRepo) Transition(ctx context.Context, id string, from, to adoptions.Status, at time.Time) (adoptions.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.byID[id]
	if !ok {
		return adoptions.Request{}, apperr.ErrNotFound
	}
	if req.Status != from {
		return adoptions.Request{}, apperr.ErrConflict
	}
	req.Status = to
	req.UpdatedAt = at
	r.byID[id] = req
	return req, nil
}

func (r *adoptionRepo) CountForPet(ctx context.Context, petID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, req := range r.byID {
		if req.PetID == petID {
			n++
		}
	}
	return n, nil
}

func (r *adoptionRepo) HasPending(ctx context.Context, petID, adopterID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, req := range r.byID {
		if req.PetID == petID && req.AdopterID == adopterID && req.Status == adoptions.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *adoptionRepo) list(keep func(adoptions.Request) bool) []adoptions.Request {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]adoptions.Request, 0)
	for _, req := range r.byID {
		if keep(req) {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
