package pets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pet-adoption/internal/apperr"
	"pet-adoption/internal/domain/access"

	"github.com/google/uuid"
)

type Service struct {
	repo     Repository
	photos   PhotoStore
	requests RequestCounter
	now      func() time.Time
}

// NewService arma el manager. photos y requests pueden ser nil
// (sin blob store no hay upload; sin contador el delete no se bloquea).
func NewService(repo Repository, photos PhotoStore, requests RequestCounter) *Service {
	return &Service{
		repo:     repo,
		photos:   photos,
		requests: requests,
		now:      time.Now,
	}
}

type CreateInput struct {
	Name        string
	Species     Species
	Breed       string
	AgeMonths   int
	Size        Size
	Gender      Gender
	Color       string
	Description string
	Health      Health
	Location    string
	Photos      []string
}

// Patch: punteros para PATCH real, nil = no tocar.
type Patch struct {
	Name        *string
	Species     *Species
	Breed       *string
	AgeMonths   *int
	Size        *Size
	Gender      *Gender
	Color       *string
	Description *string
	Vaccinated  *bool
	Dewormed    *bool
	Sterilized  *bool
	Location    *string
	Status      *Status
	Photos      *[]string
}

func (s *Service) Create(ctx context.Context, caller access.Caller, in CreateInput) (Pet, error) {
	if err := access.Authorize(access.OpCreatePet, caller); err != nil {
		return Pet{}, err
	}
	if err := validateCreate(in); err != nil {
		return Pet{}, err
	}

	photos := cleanURLs(in.Photos)
	if photos == nil {
		photos = []string{}
	}

	now := s.now()
	p := Pet{
		ID:          uuid.NewString(),
		ShelterID:   caller.ID,
		Name:        strings.TrimSpace(in.Name),
		Species:     in.Species,
		Breed:       strings.TrimSpace(in.Breed),
		AgeMonths:   in.AgeMonths,
		Size:        in.Size,
		Gender:      in.Gender,
		Color:       strings.TrimSpace(in.Color),
		Description: strings.TrimSpace(in.Description),
		Health:      in.Health,
		Photos:      photos,
		Location:    strings.TrimSpace(in.Location),
		// Siempre available al crear, venga lo que venga del cliente.
		Status:    StatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return Pet{}, apperr.Store("create pet", err)
	}
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Pet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Pet{}, apperr.ErrNotFound
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Pet{}, apperr.Store("get pet", err)
	}
	return p, nil
}

func (s *Service) ListAvailable(ctx context.Context) ([]Pet, error) {
	items, err := s.repo.ListByStatus(ctx, StatusAvailable)
	if err != nil {
		return nil, apperr.Store("list pets", err)
	}
	return items, nil
}

func (s *Service) ListByOwner(ctx context.Context, shelterID string) ([]Pet, error) {
	shelterID = strings.TrimSpace(shelterID)
	if shelterID == "" {
		return nil, apperr.Invalid("shelter_id", "required")
	}
	items, err := s.repo.ListByOwner(ctx, shelterID)
	if err != nil {
		return nil, apperr.Store("list pets", err)
	}
	return items, nil
}

// Update escribe solo los campos que nombra el patch, así no pisa cambios
// concurrentes (status por aprobación, fotos agregadas).
func (s *Service) Update(ctx context.Context, caller access.Caller, id string, patch Patch) (Pet, error) {
	current, err := s.loadForMutation(ctx, caller, id)
	if err != nil {
		return Pet{}, err
	}

	clean, err := normalizePatch(patch)
	if err != nil {
		return Pet{}, err
	}
	if clean.Empty() {
		return current, nil
	}

	updated, err := s.repo.Update(ctx, current.ID, clean, s.now())
	if err != nil {
		return Pet{}, apperr.Store("update pet", err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, caller access.Caller, id string) error {
	current, err := s.loadForMutation(ctx, caller, id)
	if err != nil {
		return err
	}

	// Sin cascada: mientras existan requests apuntando al pet, el delete se bloquea.
	if s.requests != nil {
		n, err := s.requests.CountForPet(ctx, current.ID)
		if err != nil {
			return apperr.Store("count adoption requests", err)
		}
		if n > 0 {
			return fmt.Errorf("%w: pet has %d adoption request(s)", apperr.ErrConflict, n)
		}
	}

	if err := s.repo.Delete(ctx, current.ID); err != nil {
		return apperr.Store("delete pet", err)
	}
	return nil
}

// AttachPhotos guarda URLs ya subidas. PhotosReplace es el flujo de creación,
// PhotosAppend el de edición (nunca borra las existentes).
func (s *Service) AttachPhotos(ctx context.Context, caller access.Caller, id string, urls []string, mode PhotoMode) (Pet, error) {
	current, err := s.loadForMutation(ctx, caller, id)
	if err != nil {
		return Pet{}, err
	}
	return s.attach(ctx, current.ID, urls, mode)
}

func (s *Service) attach(ctx context.Context, id string, urls []string, mode PhotoMode) (Pet, error) {
	urls = cleanURLs(urls)
	now := s.now()

	switch mode {
	case PhotosReplace:
		if urls == nil {
			urls = []string{}
		}
		p, err := s.repo.SetPhotos(ctx, id, urls, now)
		if err != nil {
			return Pet{}, apperr.Store("attach photos", err)
		}
		return p, nil
	case PhotosAppend:
		p, err := s.repo.AppendPhotos(ctx, id, urls, now)
		if err != nil {
			return Pet{}, apperr.Store("attach photos", err)
		}
		return p, nil
	default:
		return Pet{}, apperr.Invalid("mode", "unknown photo mode")
	}
}

// loadForMutation aplica el gate en dos pasos: rol antes del lookup, dueño después.
func (s *Service) loadForMutation(ctx context.Context, caller access.Caller, id string) (Pet, error) {
	if err := access.Precheck(access.OpMutatePet, caller); err != nil {
		return Pet{}, err
	}
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return Pet{}, err
	}
	if err := access.Authorize(access.OpMutatePet, caller, p.ShelterID); err != nil {
		return Pet{}, err
	}
	return p, nil
}
