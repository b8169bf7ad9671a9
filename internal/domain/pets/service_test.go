package pets

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"pet-adoption/internal/apperr"
	"pet-adoption/internal/domain/access"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	byID map[string]Pet
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Pet{}}
}

func (r *testRepo) Create(ctx context.Context, p Pet) error {
	if _, ok := r.byID[p.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.byID[p.ID] = p
	return nil
}

func (r *testRepo) Update(ctx context.Context, id string, patch Patch, at time.Time) (Pet, error) {
	p, ok := r.byID[id]
	if !ok {
		return Pet{}, apperr.ErrNotFound
	}
	p = patch.Apply(p)
	p.UpdatedAt = at
	r.byID[id] = p
	return p, nil
}

func (r *testRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Pet, error) {
	p, ok := r.byID[id]
	if !ok {
		return Pet{}, apperr.ErrNotFound
	}
	return p, nil
}

func (r *testRepo) list(keep func(Pet) bool) []Pet {
	out := make([]Pet, 0)
	for _, p := range r.byID {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *testRepo) ListByOwner(ctx context.Context, shelterID string) ([]Pet, error) {
	return r.list(func(p Pet) bool { return p.ShelterID == shelterID }), nil
}

func (r *testRepo) ListByStatus(ctx context.Context, status Status) ([]Pet, error) {
	return r.list(func(p Pet) bool { return p.Status == status }), nil
}

func (r *testRepo) SetPhotos(ctx context.Context, id string, urls []string, at time.Time) (Pet, error) {
	p, ok := r.byID[id]
	if !ok {
		return Pet{}, apperr.ErrNotFound
	}
	p.Photos = append([]string{}, urls...)
	p.UpdatedAt = at
	r.byID[id] = p
	return p, nil
}

func (r *testRepo) AppendPhotos(ctx context.Context, id string, urls []string, at time.Time) (Pet, error) {
	p, ok := r.byID[id]
	if !ok {
		return Pet{}, apperr.ErrNotFound
	}
	p.Photos = append(append([]string{}, p.Photos...), urls...)
	p.UpdatedAt = at
	r.byID[id] = p
	return p, nil
}

func (r *testRepo) SetStatus(ctx context.Context, id string, status Status, at time.Time) error {
	p, ok := r.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = at
	r.byID[id] = p
	return nil
}

type testPhotos struct {
	mu   sync.Mutex
	keys []string
	fail string // nombre de archivo que falla
}

func (s *testPhotos) Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	if s.fail != "" && strings.HasSuffix(key, "_"+s.fail) {
		return "", errors.New("bucket unavailable")
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.keys = append(s.keys, key)
	s.mu.Unlock()
	return "https://cdn.test/" + key, nil
}

type testCounter map[string]int

func (c testCounter) CountForPet(ctx context.Context, petID string) (int, error) {
	return c[petID], nil
}

// -------------------------
// Helpers
// -------------------------

var (
	shelterA = access.Caller{ID: "shelter-a", Role: access.RoleShelter}
	shelterB = access.Caller{ID: "shelter-b", Role: access.RoleShelter}
	adopter  = access.Caller{ID: "adopter-1", Role: access.RoleAdopter}
)

func newTestService(t *testing.T) (*Service, *testRepo, *testPhotos, testCounter) {
	t.Helper()
	repo := newTestRepo()
	photos := &testPhotos{}
	counter := testCounter{}
	svc := NewService(repo, photos, counter)

	now := time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	return svc, repo, photos, counter
}

func miaInput() CreateInput {
	return CreateInput{
		Name:        "Mia",
		Species:     SpeciesCat,
		AgeMonths:   6,
		Size:        SizeSmall,
		Gender:      GenderFemale,
		Description: "friendly",
		Health:      Health{Vaccinated: true},
		Location:    "São Paulo, SP",
	}
}

func strPtr(s string) *string { return &s }

// -------------------------
// Tests
// -------------------------

func TestService_Create_ForcesAvailableAndOwner(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	p, err := svc.Create(context.Background(), shelterA, miaInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Status != StatusAvailable {
		t.Fatalf("expected available, got %q", p.Status)
	}
	if p.ShelterID != shelterA.ID {
		t.Fatalf("expected shelter %q, got %q", shelterA.ID, p.ShelterID)
	}
	if p.Photos == nil || len(p.Photos) != 0 {
		t.Fatalf("expected empty photo list, got %#v", p.Photos)
	}
	if !p.Health.Vaccinated || p.Health.Dewormed || p.Health.Sterilized {
		t.Fatalf("health flags mismatch: %+v", p.Health)
	}

	available, _ := svc.ListAvailable(context.Background())
	if len(available) != 1 || available[0].ID != p.ID {
		t.Fatalf("expected pet in available listing, got %#v", available)
	}
}

func TestService_Create_Gate(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	if _, err := svc.Create(context.Background(), access.Anonymous(), miaInput()); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	if _, err := svc.Create(context.Background(), adopter, miaInput()); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden for adopter, got %v", err)
	}
}

func TestService_Create_Validation(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	cases := map[string]func(*CreateInput){
		"name":        func(in *CreateInput) { in.Name = "  " },
		"species":     func(in *CreateInput) { in.Species = "parrot" },
		"age":         func(in *CreateInput) { in.AgeMonths = -1 },
		"size":        func(in *CreateInput) { in.Size = "huge" },
		"gender":      func(in *CreateInput) { in.Gender = "" },
		"description": func(in *CreateInput) { in.Description = "" },
		"location":    func(in *CreateInput) { in.Location = "" },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			in := miaInput()
			mutate(&in)
			_, err := svc.Create(context.Background(), shelterA, in)

			var ve *apperr.ValidationError
			if !errors.As(err, &ve) || ve.Field != field {
				t.Fatalf("expected validation error on %s, got %v", field, err)
			}
		})
	}
	if len(repo.byID) != 0 {
		t.Fatalf("invalid input must not reach the store")
	}
}

func TestService_Update_StatusHidesFromPublicListing(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	p, _ := svc.Create(ctx, shelterA, miaInput())

	reserved := StatusReserved
	updated, err := svc.Update(ctx, shelterA, p.ID, Patch{Status: &reserved})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != StatusReserved {
		t.Fatalf("expected reserved, got %q", updated.Status)
	}
	if !updated.UpdatedAt.After(p.UpdatedAt) {
		t.Fatalf("updated_at must move forward")
	}

	available, _ := svc.ListAvailable(ctx)
	if len(available) != 0 {
		t.Fatalf("reserved pet must not be listed, got %d", len(available))
	}

	// Detalle sigue siendo público.
	got, err := svc.GetByID(ctx, p.ID)
	if err != nil || got.Status != StatusReserved {
		t.Fatalf("get: %v %+v", err, got)
	}

	// Sin tabla de transiciones: adopted -> available es válido.
	adopted, available2 := StatusAdopted, StatusAvailable
	if _, err := svc.Update(ctx, shelterA, p.ID, Patch{Status: &adopted}); err != nil {
		t.Fatalf("to adopted: %v", err)
	}
	if _, err := svc.Update(ctx, shelterA, p.ID, Patch{Status: &available2}); err != nil {
		t.Fatalf("back to available: %v", err)
	}
}

func TestService_Update_InvalidFieldRejectedWithoutWrite(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	p, _ := svc.Create(ctx, shelterA, miaInput())

	bad := Status("sold")
	_, err := svc.Update(ctx, shelterA, p.ID, Patch{Name: strPtr("Luna"), Status: &bad})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.byID[p.ID].Name != "Mia" {
		t.Fatalf("rejected patch must not be partially applied")
	}
}

func TestService_Mutations_OwnerOnly(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	p, _ := svc.Create(ctx, shelterA, miaInput())

	if _, err := svc.Update(ctx, shelterB, p.ID, Patch{Name: strPtr("Other")}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden update, got %v", err)
	}
	if err := svc.Delete(ctx, shelterB, p.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden delete, got %v", err)
	}
	if _, err := svc.AttachPhotos(ctx, shelterB, p.ID, []string{"https://x/1.jpg"}, PhotosAppend); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden attach, got %v", err)
	}

	// Un adopter no llega al lookup: ni siquiera un id inexistente da 404.
	if _, err := svc.Update(ctx, adopter, "missing", Patch{}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden before lookup, got %v", err)
	}
	if _, err := svc.Update(ctx, shelterA, "missing", Patch{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_Delete_BlockedByRequests(t *testing.T) {
	svc, repo, _, counter := newTestService(t)
	ctx := context.Background()

	p, _ := svc.Create(ctx, shelterA, miaInput())
	counter[p.ID] = 2

	if err := svc.Delete(ctx, shelterA, p.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, ok := repo.byID[p.ID]; !ok {
		t.Fatalf("pet must still exist")
	}

	counter[p.ID] = 0
	if err := svc.Delete(ctx, shelterA, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetByID(ctx, p.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestService_AttachPhotos_ReplaceThenAppend(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	p, _ := svc.Create(ctx, shelterA, miaInput())

	got, err := svc.AttachPhotos(ctx, shelterA, p.ID, []string{"u1", " ", "u2"}, PhotosReplace)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if strings.Join(got.Photos, ",") != "u1,u2" {
		t.Fatalf("replace mismatch: %v", got.Photos)
	}

	got, err = svc.AttachPhotos(ctx, shelterA, p.ID, []string{"u3"}, PhotosAppend)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if strings.Join(got.Photos, ",") != "u1,u2,u3" {
		t.Fatalf("append must keep existing photos: %v", got.Photos)
	}

	got, _ = svc.AttachPhotos(ctx, shelterA, p.ID, nil, PhotosReplace)
	if len(got.Photos) != 0 {
		t.Fatalf("replace with empty list must clear photos: %v", got.Photos)
	}
}

func TestService_CreateWithPhotos_KeepsOrder(t *testing.T) {
	svc, _, photos, _ := newTestService(t)
	ctx := context.Background()

	files := []PhotoUpload{
		{FileName: "a.jpg", ContentType: "image/jpeg", Body: strings.NewReader("a")},
		{FileName: "b.jpg", ContentType: "image/jpeg", Body: strings.NewReader("b")},
		{FileName: "../c d.png", ContentType: "image/png", Body: strings.NewReader("c")},
	}
	p, err := svc.CreateWithPhotos(ctx, shelterA, miaInput(), files)
	if err != nil {
		t.Fatalf("create with photos: %v", err)
	}
	if len(p.Photos) != 3 {
		t.Fatalf("expected 3 photos, got %v", p.Photos)
	}
	for i, suffix := range []string{"_a.jpg", "_b.jpg", "_c_d.png"} {
		if !strings.HasSuffix(p.Photos[i], suffix) {
			t.Fatalf("photo %d = %q, want suffix %q", i, p.Photos[i], suffix)
		}
		if !strings.Contains(p.Photos[i], "pet_"+p.ID+"/") {
			t.Fatalf("photo key must be namespaced by pet: %q", p.Photos[i])
		}
	}
	if len(photos.keys) != 3 {
		t.Fatalf("expected 3 uploads, got %d", len(photos.keys))
	}
}

func TestService_CreateWithPhotos_PartialFailure(t *testing.T) {
	svc, repo, photos, _ := newTestService(t)
	ctx := context.Background()
	photos.fail = "b.jpg"

	files := []PhotoUpload{
		{FileName: "a.jpg", Body: strings.NewReader("a")},
		{FileName: "b.jpg", Body: strings.NewReader("b")},
	}
	p, err := svc.CreateWithPhotos(ctx, shelterA, miaInput(), files)

	var pf *apperr.PartialFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected partial failure, got %v", err)
	}
	if pf.Step != StepPhotoUpload || pf.ResourceID != p.ID {
		t.Fatalf("partial failure mismatch: %+v", pf)
	}
	if apperr.HTTPStatus(err) != 207 {
		t.Fatalf("expected 207, got %d", apperr.HTTPStatus(err))
	}

	stored, ok := repo.byID[p.ID]
	if !ok {
		t.Fatalf("pet must remain created after photo failure")
	}
	if len(stored.Photos) != 0 {
		t.Fatalf("photos must not be attached on failure: %v", stored.Photos)
	}
}

func TestService_UploadPhotos_WithoutStore(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	p, _ := svc.Create(ctx, shelterA, miaInput())
	_, err := svc.UploadPhotos(ctx, shelterA, p.ID, []PhotoUpload{{FileName: "a.jpg", Body: strings.NewReader("a")}}, PhotosAppend)
	if !errors.Is(err, ErrNoPhotoStore) {
		t.Fatalf("expected ErrNoPhotoStore, got %v", err)
	}
}

func TestService_ListByOwner_NewestFirst(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	first, _ := svc.Create(ctx, shelterA, miaInput())
	second, _ := svc.Create(ctx, shelterA, miaInput())
	_, _ = svc.Create(ctx, shelterB, miaInput())

	items, err := svc.ListByOwner(ctx, shelterA.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].ID != second.ID || items[1].ID != first.ID {
		t.Fatalf("expected [second, first], got %#v", items)
	}
}

func TestService_MarkStatus(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	p, _ := svc.Create(ctx, shelterA, miaInput())

	if err := svc.MarkStatus(ctx, p.ID, StatusAdopted); err != nil {
		t.Fatalf("mark: %v", err)
	}
	got, _ := svc.GetByID(ctx, p.ID)
	if got.Status != StatusAdopted {
		t.Fatalf("expected adopted, got %q", got.Status)
	}
	if err := svc.MarkStatus(ctx, p.ID, "gone"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

// interleavingRepo ejecuta afterGet justo después de la lectura de Update,
// simulando una aprobación o un upload que llegan en el medio.
type interleavingRepo struct {
	*testRepo
	afterGet func(id string)
}

func (r *interleavingRepo) GetByID(ctx context.Context, id string) (Pet, error) {
	p, err := r.testRepo.GetByID(ctx, id)
	if r.afterGet != nil {
		hook := r.afterGet
		r.afterGet = nil
		hook(id)
	}
	return p, err
}

func TestService_Update_KeepsConcurrentStatusAndPhotos(t *testing.T) {
	base := newTestRepo()
	repo := &interleavingRepo{testRepo: base}
	svc := NewService(repo, &testPhotos{}, testCounter{})
	ctx := context.Background()

	p, err := svc.Create(ctx, shelterA, miaInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	repo.afterGet = func(id string) {
		if err := svc.MarkStatus(ctx, id, StatusAdopted); err != nil {
			t.Fatalf("mark: %v", err)
		}
		if _, err := base.AppendPhotos(ctx, id, []string{"https://cdn/x.jpg"}, time.Now()); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	updated, err := svc.Update(ctx, shelterA, p.ID, Patch{Name: strPtr("Mia II")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Mia II" {
		t.Fatalf("expected new name, got %q", updated.Name)
	}
	if updated.Status != StatusAdopted {
		t.Fatalf("name-only patch must keep status adopted, got %q", updated.Status)
	}
	if len(updated.Photos) != 1 {
		t.Fatalf("name-only patch must keep appended photos, got %v", updated.Photos)
	}
	if list, _ := svc.ListAvailable(ctx); len(list) != 0 {
		t.Fatalf("adopted pet must stay off the public listing, got %d", len(list))
	}
}

func TestService_Update_EmptyPatchIsNoop(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	p, _ := svc.Create(ctx, shelterA, miaInput())
	got, err := svc.Update(ctx, shelterA, p.ID, Patch{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !got.UpdatedAt.Equal(p.UpdatedAt) || !repo.byID[p.ID].UpdatedAt.Equal(p.UpdatedAt) {
		t.Fatalf("empty patch must not write")
	}
}
