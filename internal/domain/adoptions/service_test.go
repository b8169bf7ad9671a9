package adoptions

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"pet-adoption/internal/apperr"
	"pet-adoption/internal/domain/access"
	"pet-adoption/internal/domain/pets"
)

// -------------------------
// Test repos (in-memory)
// -------------------------

type testRepo struct {
	byID map[string]Request
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Request{}}
}

func (r *testRepo) Create(ctx context.Context, req Request) error {
	if _, ok := r.byID[req.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.byID[req.ID] = req
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Request, error) {
	req, ok := r.byID[id]
	if !ok {
		return Request{}, apperr.ErrNotFound
	}
	return req, nil
}

func (r *testRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *testRepo) list(keep func(Request) bool) []Request {
	out := make([]Request, 0)
	for _, req := range r.byID {
		if keep(req) {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *testRepo) ListByPet(ctx context.Context, petID string) ([]Request, error) {
	return r.list(func(req Request) bool { return req.PetID == petID }), nil
}

func (r *testRepo) ListByAdopter(ctx context.Context, adopterID string) ([]Request, error) {
	return r.list(func(req Request) bool { return req.AdopterID == adopterID }), nil
}

func (r *testRepo) ListByPetIDs(ctx context.Context, petIDs []string) ([]Request, error) {
	set := map[string]bool{}
	for _, id := range petIDs {
		set[id] = true
	}
	return r.list(func(req Request) bool { return set[req.PetID] }), nil
}

func (r *testRepo) Transition(ctx context.Context, id string, from, to Status, at time.Time) (Request, error) {
	req, ok := r.byID[id]
	if !ok {
		return Request{}, apperr.ErrNotFound
	}
	if req.Status != from {
		return Request{}, apperr.ErrConflict
	}
	req.Status = to
	req.UpdatedAt = at
	r.byID[id] = req
	return req, nil
}

func (r *testRepo) CountForPet(ctx context.Context, petID string) (int, error) {
	return len(r.list(func(req Request) bool { return req.PetID == petID })), nil
}

func (r *testRepo) HasPending(ctx context.Context, petID, adopterID string) (bool, error) {
	n := r.list(func(req Request) bool {
		return req.PetID == petID && req.AdopterID == adopterID && req.Status == StatusPending
	})
	return len(n) > 0, nil
}

type testPets struct {
	byID    map[string]pets.Pet
	markErr error
}

func (p *testPets) GetByID(ctx context.Context, id string) (pets.Pet, error) {
	pet, ok := p.byID[id]
	if !ok {
		return pets.Pet{}, apperr.ErrNotFound
	}
	return pet, nil
}

func (p *testPets) ListByOwner(ctx context.Context, shelterID string) ([]pets.Pet, error) {
	out := make([]pets.Pet, 0)
	for _, pet := range p.byID {
		if pet.ShelterID == shelterID {
			out = append(out, pet)
		}
	}
	return out, nil
}

func (p *testPets) MarkStatus(ctx context.Context, petID string, status pets.Status) error {
	if p.markErr != nil {
		return p.markErr
	}
	pet := p.byID[petID]
	pet.Status = status
	p.byID[petID] = pet
	return nil
}

// -------------------------
// Helpers
// -------------------------

var (
	s1 = access.Caller{ID: "S1", Role: access.RoleShelter}
	s2 = access.Caller{ID: "S2", Role: access.RoleShelter}
	a1 = access.Caller{ID: "A1", Role: access.RoleAdopter}
	a2 = access.Caller{ID: "A2", Role: access.RoleAdopter}
)

func newTestService(t *testing.T) (*Service, *testRepo, *testPets) {
	t.Helper()
	repo := newTestRepo()
	directory := &testPets{byID: map[string]pets.Pet{
		"P1": {ID: "P1", ShelterID: "S1", Name: "Mia", Status: pets.StatusAvailable},
		"P2": {ID: "P2", ShelterID: "S1", Name: "Rex", Status: pets.StatusReserved},
		"P3": {ID: "P3", ShelterID: "S2", Name: "Tom", Status: pets.StatusAvailable},
	}}
	svc := NewService(repo, directory, nil)

	now := time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	return svc, repo, directory
}

func mustCreate(t *testing.T, svc *Service, caller access.Caller, petID string) Request {
	t.Helper()
	req, err := svc.Create(context.Background(), caller, petID, "I have a garden")
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	return req
}

// -------------------------
// Tests
// -------------------------

func TestService_Create_Pending(t *testing.T) {
	svc, _, _ := newTestService(t)

	req := mustCreate(t, svc, a1, "P1")
	if req.Status != StatusPending || req.AdopterID != "A1" || req.PetID != "P1" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.CreatedAt.IsZero() || !req.CreatedAt.Equal(req.UpdatedAt) {
		t.Fatalf("timestamps must be set at creation")
	}
}

func TestService_Create_Rules(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, access.Anonymous(), "P1", ""); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("anonymous: expected unauthenticated, got %v", err)
	}
	if _, err := svc.Create(ctx, s1, "P1", ""); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("shelter: expected forbidden, got %v", err)
	}
	if _, err := svc.Create(ctx, a1, "nope", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing pet: expected not found, got %v", err)
	}

	// Pet reserved: no acepta requests.
	if _, err := svc.Create(ctx, a1, "P2", ""); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("reserved pet: expected conflict, got %v", err)
	}

	mustCreate(t, svc, a1, "P1")
	if _, err := svc.Create(ctx, a1, "P1", ""); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("duplicate pending: expected conflict, got %v", err)
	}
	// Otro adopter sí puede.
	mustCreate(t, svc, a2, "P1")
}

func TestService_Approve_OnlyOwningShelter(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	r1 := mustCreate(t, svc, a1, "P1")

	if _, err := svc.Approve(ctx, s2, r1.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("S2 approve: expected forbidden, got %v", err)
	}
	if _, err := svc.Approve(ctx, a1, r1.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("adopter approve: expected forbidden, got %v", err)
	}
	if _, err := svc.Approve(ctx, access.Anonymous(), r1.ID); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("anonymous approve: expected unauthenticated, got %v", err)
	}
	if repo.byID[r1.ID].Status != StatusPending {
		t.Fatalf("denied calls must not change status")
	}

	got, err := svc.Approve(ctx, s1, r1.ID)
	if err != nil {
		t.Fatalf("S1 approve: %v", err)
	}
	if got.Status != StatusApproved {
		t.Fatalf("expected approved, got %q", got.Status)
	}
}

func TestService_Decide_UnknownIDLooksLikeForeign(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	r1 := mustCreate(t, svc, a1, "P1")

	_, foreign := svc.Approve(ctx, s2, r1.ID)
	_, unknown := svc.Approve(ctx, s2, "no-such-request")
	if !errors.Is(foreign, apperr.ErrForbidden) || !errors.Is(unknown, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden for both, got foreign=%v unknown=%v", foreign, unknown)
	}
	if _, err := svc.Reject(ctx, s1, "no-such-request"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("unknown id for owner shelter: expected forbidden, got %v", err)
	}
}

func TestService_Decide_Terminal(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	r1 := mustCreate(t, svc, a1, "P1")
	if _, err := svc.Approve(ctx, s1, r1.ID); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if _, err := svc.Approve(ctx, s1, r1.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("second approve: expected conflict, got %v", err)
	}
	if _, err := svc.Reject(ctx, s1, r1.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("reject after approve: expected conflict, got %v", err)
	}
	if repo.byID[r1.ID].Status != StatusApproved {
		t.Fatalf("status must stay approved, got %q", repo.byID[r1.ID].Status)
	}

	r3 := mustCreate(t, svc, a1, "P3")
	if _, err := svc.Reject(ctx, s2, r3.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := svc.Approve(ctx, s2, r3.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("approve after reject: expected conflict, got %v", err)
	}
}

func TestService_Decide_LostRace(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	r1 := mustCreate(t, svc, a1, "P1")

	// Otro caller decidió entre nuestra lectura y el UPDATE condicional.
	racing := &racingRepo{testRepo: repo}
	svc.repo = racing

	if _, err := svc.Approve(ctx, s1, r1.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict on lost race, got %v", err)
	}
	if repo.byID[r1.ID].Status != StatusRejected {
		t.Fatalf("winner's decision must stand, got %q", repo.byID[r1.ID].Status)
	}
}

type racingRepo struct {
	*testRepo
	fired bool
}

func (r *racingRepo) Transition(ctx context.Context, id string, from, to Status, at time.Time) (Request, error) {
	if !r.fired {
		r.fired = true
		if _, err := r.testRepo.Transition(ctx, id, StatusPending, StatusRejected, at); err != nil {
			return Request{}, err
		}
	}
	return r.testRepo.Transition(ctx, id, from, to, at)
}

func TestService_Approve_SideEffects(t *testing.T) {
	svc, repo, directory := newTestService(t)
	ctx := context.Background()

	r1 := mustCreate(t, svc, a1, "P1")
	r2 := mustCreate(t, svc, a2, "P1")
	other := mustCreate(t, svc, a1, "P3")

	if _, err := svc.Approve(ctx, s1, r1.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if directory.byID["P1"].Status != pets.StatusAdopted {
		t.Fatalf("pet must be adopted, got %q", directory.byID["P1"].Status)
	}
	if repo.byID[r2.ID].Status != StatusRejected {
		t.Fatalf("sibling must be rejected, got %q", repo.byID[r2.ID].Status)
	}
	if repo.byID[other.ID].Status != StatusPending {
		t.Fatalf("requests for other pets must not change")
	}

	// Pet ya no available: no entran requests nuevos.
	if _, err := svc.Create(ctx, a2, "P1", ""); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict on adopted pet, got %v", err)
	}
}

func TestService_Approve_SideEffectFailureKeepsApproval(t *testing.T) {
	svc, repo, directory := newTestService(t)
	ctx := context.Background()
	directory.markErr = errors.New("db down")

	r1 := mustCreate(t, svc, a1, "P1")
	got, err := svc.Approve(ctx, s1, r1.ID)
	if err != nil {
		t.Fatalf("approve must succeed even if side effect fails: %v", err)
	}
	if got.Status != StatusApproved || repo.byID[r1.ID].Status != StatusApproved {
		t.Fatalf("approval must stand")
	}
}

func TestService_Delete_AdopterOrShelter(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	r1 := mustCreate(t, svc, a1, "P1")
	r2 := mustCreate(t, svc, a2, "P1")

	if err := svc.Delete(ctx, a2, r1.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("other adopter: expected forbidden, got %v", err)
	}
	if err := svc.Delete(ctx, s2, r1.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("other shelter: expected forbidden, got %v", err)
	}
	if err := svc.Delete(ctx, access.Anonymous(), r1.ID); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("anonymous: expected unauthenticated, got %v", err)
	}

	if err := svc.Delete(ctx, a1, r1.ID); err != nil {
		t.Fatalf("adopter delete: %v", err)
	}
	if err := svc.Delete(ctx, s1, r2.ID); err != nil {
		t.Fatalf("shelter delete: %v", err)
	}
	if len(repo.byID) != 0 {
		t.Fatalf("expected no requests left, got %d", len(repo.byID))
	}
	if err := svc.Delete(ctx, a1, r1.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_Listings(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	r1 := mustCreate(t, svc, a1, "P1")
	r2 := mustCreate(t, svc, a2, "P1")
	r3 := mustCreate(t, svc, a1, "P3")

	forPet, err := svc.ListForPet(ctx, s1, "P1")
	if err != nil {
		t.Fatalf("list for pet: %v", err)
	}
	if len(forPet) != 2 || forPet[0].ID != r2.ID || forPet[1].ID != r1.ID {
		t.Fatalf("expected [r2, r1], got %#v", forPet)
	}
	if _, err := svc.ListForPet(ctx, s2, "P1"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("non-owner list: expected forbidden, got %v", err)
	}

	mine, err := svc.ListForAdopter(ctx, a1)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != r3.ID {
		t.Fatalf("expected 2 requests newest first, got %#v", mine)
	}
	if _, err := svc.ListForAdopter(ctx, access.Anonymous()); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("anonymous list: expected unauthenticated, got %v", err)
	}

	dash, err := svc.ListForShelter(ctx, s1, s1.ID)
	if err != nil {
		t.Fatalf("list for shelter: %v", err)
	}
	if len(dash) != 2 {
		t.Fatalf("S1 should see 2 requests (P1 only), got %d", len(dash))
	}
	if _, err := svc.ListForShelter(ctx, s1, s2.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("other shelter's dashboard: expected forbidden, got %v", err)
	}
	if _, err := svc.ListForShelter(ctx, a1, a1.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("adopter dashboard: expected forbidden, got %v", err)
	}

	empty, err := svc.ListForShelter(ctx, access.Caller{ID: "S9", Role: access.RoleShelter}, "S9")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("shelter without pets: expected empty list, got %#v %v", empty, err)
	}
}
