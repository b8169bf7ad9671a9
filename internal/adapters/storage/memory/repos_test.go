package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"pet-adoption/internal/apperr"
	"pet-adoption/internal/domain/adoptions"
	"pet-adoption/internal/domain/pets"
)

func TestPetRepo_ConcurrentAppendKeepsAll(t *testing.T) {
	repo := NewPetRepo()
	ctx := context.Background()
	now := time.Now()

	if err := repo.Create(ctx, pets.Pet{ID: "p1", Photos: []string{"cover"}, CreatedAt: now}); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = repo.AppendPhotos(ctx, "p1", []string{fmt.Sprintf("u%d-a", i), fmt.Sprintf("u%d-b", i)}, now)
		}(i)
	}
	wg.Wait()

	p, _ := repo.GetByID(ctx, "p1")
	if len(p.Photos) != 41 || p.Photos[0] != "cover" {
		t.Fatalf("expected cover + 40 photos, got %d", len(p.Photos))
	}
	// Dentro de un batch el orden se conserva.
	index := map[string]int{}
	for i, u := range p.Photos {
		index[u] = i
	}
	for i := 0; i < 20; i++ {
		if index[fmt.Sprintf("u%d-a", i)]+1 != index[fmt.Sprintf("u%d-b", i)] {
			t.Fatalf("batch %d interleaved", i)
		}
	}
}

func TestPetRepo_ListNewestFirstAndCopies(t *testing.T) {
	repo := NewPetRepo()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_ = repo.Create(ctx, pets.Pet{ID: "old", Status: pets.StatusAvailable, CreatedAt: base})
	_ = repo.Create(ctx, pets.Pet{ID: "new", Status: pets.StatusAvailable, CreatedAt: base.Add(time.Hour)})
	_ = repo.Create(ctx, pets.Pet{ID: "gone", Status: pets.StatusAdopted, CreatedAt: base.Add(2 * time.Hour)})

	items, _ := repo.ListByStatus(ctx, pets.StatusAvailable)
	if len(items) != 2 || items[0].ID != "new" || items[1].ID != "old" {
		t.Fatalf("unexpected listing: %#v", items)
	}

	items[0].Photos = append(items[0].Photos, "leak")
	p, _ := repo.GetByID(ctx, "new")
	if len(p.Photos) != 0 {
		t.Fatalf("callers must not mutate stored photos")
	}

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAdoptionRepo_TransitionIsCompareAndSet(t *testing.T) {
	repo := NewAdoptionRepo()
	ctx := context.Background()
	_ = repo.Create(ctx, adoptions.Request{ID: "r1", PetID: "p1", Status: adoptions.StatusPending})

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			to := adoptions.StatusApproved
			if i%2 == 1 {
				to = adoptions.StatusRejected
			}
			if _, err := repo.Transition(ctx, "r1", adoptions.StatusPending, to, time.Now()); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if !errors.Is(err, apperr.ErrConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("exactly one decision must win, got %d", wins)
	}
	if _, err := repo.Transition(ctx, "missing", adoptions.StatusPending, adoptions.StatusApproved, time.Now()); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAdoptionRepo_ListByPetIDsAndPending(t *testing.T) {
	repo := NewAdoptionRepo()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_ = repo.Create(ctx, adoptions.Request{ID: "r1", PetID: "p1", AdopterID: "a1", Status: adoptions.StatusPending, CreatedAt: base})
	_ = repo.Create(ctx, adoptions.Request{ID: "r2", PetID: "p2", AdopterID: "a1", Status: adoptions.StatusRejected, CreatedAt: base.Add(time.Minute)})
	_ = repo.Create(ctx, adoptions.Request{ID: "r3", PetID: "p3", AdopterID: "a2", Status: adoptions.StatusPending, CreatedAt: base.Add(2 * time.Minute)})

	items, _ := repo.ListByPetIDs(ctx, []string{"p1", "p2"})
	if len(items) != 2 || items[0].ID != "r2" {
		t.Fatalf("unexpected listing: %#v", items)
	}

	if ok, _ := repo.HasPending(ctx, "p1", "a1"); !ok {
		t.Fatalf("expected pending for (p1, a1)")
	}
	if ok, _ := repo.HasPending(ctx, "p2", "a1"); ok {
		t.Fatalf("rejected request is not pending")
	}
	if n, _ := repo.CountForPet(ctx, "p1"); n != 1 {
		t.Fatalf("expected 1 request for p1, got %d", n)
	}
}

func TestAdoptionRepo_ConcurrentPendingCreateHasOneWinner(t *testing.T) {
	repo := NewAdoptionRepo()
	ctx := context.Background()
	now := time.Now()

	const n = 10
	errs := make([]error, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = repo.Create(ctx, adoptions.Request{
				ID:        fmt.Sprintf("r%d", i),
				PetID:     "p1",
				AdopterID: "a1",
				Status:    adoptions.StatusPending,
				CreatedAt: now,
			})
		}(i)
	}
	close(start)
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, apperr.ErrConflict):
			t.Fatalf("expected conflict, got %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one pending request, got %d", ok)
	}

	// Otro adopter, o un request ya decidido, no chocan.
	if err := repo.Create(ctx, adoptions.Request{ID: "other", PetID: "p1", AdopterID: "a2", Status: adoptions.StatusPending, CreatedAt: now}); err != nil {
		t.Fatalf("other adopter: %v", err)
	}
	if err := repo.Create(ctx, adoptions.Request{ID: "old", PetID: "p1", AdopterID: "a1", Status: adoptions.StatusRejected, CreatedAt: now}); err != nil {
		t.Fatalf("decided request: %v", err)
	}
}

func TestPetRepo_UpdateKeepsFieldsOutsidePatch(t *testing.T) {
	repo := NewPetRepo()
	ctx := context.Background()
	now := time.Now()

	_ = repo.Create(ctx, pets.Pet{ID: "p1", Name: "Mia", Status: pets.StatusAvailable, Photos: []string{"a"}, CreatedAt: now})
	_ = repo.SetStatus(ctx, "p1", pets.StatusAdopted, now)
	_, _ = repo.AppendPhotos(ctx, "p1", []string{"b"}, now)

	name := "Mia II"
	got, err := repo.Update(ctx, "p1", pets.Patch{Name: &name}, now.Add(time.Second))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "Mia II" || got.Status != pets.StatusAdopted || len(got.Photos) != 2 {
		t.Fatalf("unexpected pet after patch %+v", got)
	}
	if _, err := repo.Update(ctx, "missing", pets.Patch{Name: &name}, now); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
