package adoptions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"pet-adoption/internal/apperr"
	"pet-adoption/internal/domain/access"
	"pet-adoption/internal/domain/pets"
	"pet-adoption/internal/platform/logger"

	"github.com/google/uuid"
)

const maxMessageLen = 2000

type Service struct {
	repo Repository
	pets PetDirectory
	log  logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, pets PetDirectory, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo: repo,
		pets: pets,
		log:  log.With(map[string]any{"component": "adoptions"}),
		now:  time.Now,
	}
}

// Create registra el interés del adopter. Solo pets available aceptan requests
// y hay a lo sumo un pending por (pet, adopter).
func (s *Service) Create(ctx context.Context, caller access.Caller, petID, message string) (Request, error) {
	if err := access.Authorize(access.OpCreateRequest, caller); err != nil {
		return Request{}, err
	}

	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) > maxMessageLen {
		return Request{}, apperr.Invalid("message", fmt.Sprintf("must be at most %d characters", maxMessageLen))
	}

	pet, err := s.pets.GetByID(ctx, petID)
	if err != nil {
		return Request{}, err
	}
	if pet.Status != pets.StatusAvailable {
		return Request{}, fmt.Errorf("%w: pet is %s", apperr.ErrConflict, pet.Status)
	}

	dup, err := s.repo.HasPending(ctx, pet.ID, caller.ID)
	if err != nil {
		return Request{}, apperr.Store("check pending requests", err)
	}
	if dup {
		return Request{}, fmt.Errorf("%w: a pending request for this pet already exists", apperr.ErrConflict)
	}

	now := s.now()
	req := Request{
		ID:        uuid.NewString(),
		PetID:     pet.ID,
		AdopterID: caller.ID,
		Status:    StatusPending,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return Request{}, apperr.Store("create request", err)
	}
	return req, nil
}

func (s *Service) Approve(ctx context.Context, caller access.Caller, id string) (Request, error) {
	return s.decide(ctx, caller, id, StatusApproved)
}

func (s *Service) Reject(ctx context.Context, caller access.Caller, id string) (Request, error) {
	return s.decide(ctx, caller, id, StatusRejected)
}

func (s *Service) decide(ctx context.Context, caller access.Caller, id string, to Status) (Request, error) {
	if err := access.Precheck(access.OpDecideRequest, caller); err != nil {
		return Request{}, err
	}

	// Un id inexistente responde igual que uno ajeno: Forbidden, sin revelar cuáles existen.
	req, err := s.get(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return Request{}, apperr.ErrForbidden
	}
	if err != nil {
		return Request{}, err
	}
	pet, err := s.pets.GetByID(ctx, req.PetID)
	if errors.Is(err, apperr.ErrNotFound) {
		return Request{}, apperr.ErrForbidden
	}
	if err != nil {
		return Request{}, err
	}
	if err := access.Authorize(access.OpDecideRequest, caller, pet.ShelterID); err != nil {
		return Request{}, err
	}

	if req.Status.Terminal() {
		return Request{}, fmt.Errorf("%w: request already %s", apperr.ErrConflict, req.Status)
	}

	// El UPDATE condicional resuelve la carrera entre dos decisiones concurrentes.
	updated, err := s.repo.Transition(ctx, req.ID, StatusPending, to, s.now())
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return Request{}, fmt.Errorf("%w: request already decided", apperr.ErrConflict)
		}
		return Request{}, apperr.Store("update request status", err)
	}

	if to == StatusApproved {
		s.afterApprove(ctx, updated)
	}
	return updated, nil
}

// afterApprove marca el pet como adopted y rechaza los otros pending del mismo pet.
// Las fallas se loguean: la aprobación ya quedó persistida.
func (s *Service) afterApprove(ctx context.Context, approved Request) {
	log := s.log.With(map[string]any{"request_id": approved.ID, "pet_id": approved.PetID})

	if err := s.pets.MarkStatus(ctx, approved.PetID, pets.StatusAdopted); err != nil {
		log.Error("mark pet adopted failed", map[string]any{"err": err})
	}

	siblings, err := s.repo.ListByPet(ctx, approved.PetID)
	if err != nil {
		log.Error("list sibling requests failed", map[string]any{"err": err})
		return
	}

	rejected := 0
	for _, r := range siblings {
		if r.ID == approved.ID || r.Status != StatusPending {
			continue
		}
		if _, err := s.repo.Transition(ctx, r.ID, StatusPending, StatusRejected, s.now()); err != nil {
			if errors.Is(err, apperr.ErrConflict) || errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			log.Error("reject sibling request failed", map[string]any{"sibling_id": r.ID, "err": err})
			continue
		}
		rejected++
	}
	log.Info("request approved", map[string]any{"siblings_rejected": rejected})
}

// Delete: lo puede borrar el adopter que lo creó o el shelter dueño del pet.
func (s *Service) Delete(ctx context.Context, caller access.Caller, id string) error {
	if err := access.Precheck(access.OpDeleteRequest, caller); err != nil {
		return err
	}

	req, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	owners := []string{req.AdopterID}
	if req.AdopterID != caller.ID {
		pet, err := s.pets.GetByID(ctx, req.PetID)
		switch {
		case err == nil:
			owners = append(owners, pet.ShelterID)
		case !errors.Is(err, apperr.ErrNotFound):
			return err
		}
	}
	if err := access.Authorize(access.OpDeleteRequest, caller, owners...); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, req.ID); err != nil {
		return apperr.Store("delete request", err)
	}
	return nil
}

// ListForPet: solo el shelter dueño ve los requests de su pet.
func (s *Service) ListForPet(ctx context.Context, caller access.Caller, petID string) ([]Request, error) {
	if err := access.Precheck(access.OpListPetRequests, caller); err != nil {
		return nil, err
	}
	pet, err := s.pets.GetByID(ctx, petID)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(access.OpListPetRequests, caller, pet.ShelterID); err != nil {
		return nil, err
	}

	items, err := s.repo.ListByPet(ctx, pet.ID)
	if err != nil {
		return nil, apperr.Store("list requests", err)
	}
	return items, nil
}

// ListForAdopter devuelve los requests del propio caller.
func (s *Service) ListForAdopter(ctx context.Context, caller access.Caller) ([]Request, error) {
	if !caller.Authenticated() {
		return nil, apperr.ErrUnauthenticated
	}
	items, err := s.repo.ListByAdopter(ctx, caller.ID)
	if err != nil {
		return nil, apperr.Store("list requests", err)
	}
	return items, nil
}

// ListForShelter resuelve en dos pasos: ids de los pets del shelter y luego
// los requests cuyo pet_id está en ese conjunto.
func (s *Service) ListForShelter(ctx context.Context, caller access.Caller, shelterID string) ([]Request, error) {
	if err := access.Authorize(access.OpViewDashboard, caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(shelterID) != caller.ID {
		return nil, apperr.ErrForbidden
	}

	owned, err := s.pets.ListByOwner(ctx, shelterID)
	if err != nil {
		return nil, err
	}
	if len(owned) == 0 {
		return []Request{}, nil
	}

	ids := make([]string, 0, len(owned))
	for _, p := range owned {
		ids = append(ids, p.ID)
	}
	items, err := s.repo.ListByPetIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Store("list requests", err)
	}
	return items, nil
}

func (s *Service) get(ctx context.Context, id string) (Request, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Request{}, apperr.ErrNotFound
	}
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Request{}, apperr.Store("get request", err)
	}
	return req, nil
}
