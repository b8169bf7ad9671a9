package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"pet-adoption/internal/apperr"
	"pet-adoption/internal/domain/pets"
)

type PetsRepo struct {
	db *sql.DB
}

func NewPetsRepo(db *sql.DB) *PetsRepo {
	return &PetsRepo{db: db}
}

const petColumns = `
	id, shelter_id,
	name, species, breed, age, size, gender, color,
	description, vaccinated, dewormed, sterilized,
	photos, location, status,
	created_at, updated_at`

func (r *PetsRepo) Create(ctx context.Context, p pets.Pet) error {
	photos := p.Photos
	if photos == nil {
		photos = []string{}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pets (`+petColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`,
		p.ID,
		p.ShelterID,
		p.Name,
		p.Species,
		p.Breed,
		p.AgeMonths,
		p.Size,
		p.Gender,
		p.Color,
		p.Description,
		p.Health.Vaccinated,
		p.Health.Dewormed,
		p.Health.Sterilized,
		photos,
		p.Location,
		p.Status,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return classify(err)
}

// Update arma el SET solo con los campos presentes: un PATCH de nombre no
// pisa un status o unas fotos escritos en paralelo.
func (r *PetsRepo) Update(ctx context.Context, id string, patch pets.Patch, updatedAt time.Time) (pets.Pet, error) {
	sets, args := patchAssignments(patch)
	args = append([]any{id}, args...)
	args = append(args, updatedAt)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	row := r.db.QueryRowContext(ctx, `
		UPDATE pets SET `+strings.Join(sets, ", ")+`
		WHERE id = $1
		RETURNING `+petColumns, args...)
	p, err := scanPet(row)
	if err != nil {
		return pets.Pet{}, classify(err)
	}
	return p, nil
}

// patchAssignments devuelve "col = $n" numerando desde $2 ($1 es el id).
func patchAssignments(patch pets.Patch) ([]string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)+1))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Species != nil {
		add("species", *patch.Species)
	}
	if patch.Breed != nil {
		add("breed", *patch.Breed)
	}
	if patch.AgeMonths != nil {
		add("age", *patch.AgeMonths)
	}
	if patch.Size != nil {
		add("size", *patch.Size)
	}
	if patch.Gender != nil {
		add("gender", *patch.Gender)
	}
	if patch.Color != nil {
		add("color", *patch.Color)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Vaccinated != nil {
		add("vaccinated", *patch.Vaccinated)
	}
	if patch.Dewormed != nil {
		add("dewormed", *patch.Dewormed)
	}
	if patch.Sterilized != nil {
		add("sterilized", *patch.Sterilized)
	}
	if patch.Location != nil {
		add("location", *patch.Location)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Photos != nil {
		photos := *patch.Photos
		if photos == nil {
			photos = []string{}
		}
		add("photos", photos)
	}
	return sets, args
}

// Delete falla con Conflict (FK) si quedan adoption requests del pet.
func (r *PetsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pets WHERE id = $1`, id)
	if err != nil {
		return classify(err)
	}
	return expectOne(res)
}

func (r *PetsRepo) GetByID(ctx context.Context, id string) (pets.Pet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return pets.Pet{}, apperr.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+petColumns+` FROM pets WHERE id = $1`, id)
	p, err := scanPet(row)
	if err != nil {
		return pets.Pet{}, classify(err)
	}
	return p, nil
}

func (r *PetsRepo) ListByOwner(ctx context.Context, shelterID string) ([]pets.Pet, error) {
	return r.query(ctx, `SELECT `+petColumns+` FROM pets WHERE shelter_id = $1 ORDER BY created_at DESC, id`, shelterID)
}

func (r *PetsRepo) ListByStatus(ctx context.Context, status pets.Status) ([]pets.Pet, error) {
	return r.query(ctx, `SELECT `+petColumns+` FROM pets WHERE status = $1 ORDER BY created_at DESC, id`, status)
}

func (r *PetsRepo) SetPhotos(ctx context.Context, id string, urls []string, updatedAt time.Time) (pets.Pet, error) {
	if urls == nil {
		urls = []string{}
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE pets SET photos = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+petColumns, id, urls, updatedAt)
	p, err := scanPet(row)
	if err != nil {
		return pets.Pet{}, classify(err)
	}
	return p, nil
}

// AppendPhotos concatena en el mismo UPDATE: no hay read-modify-write.
func (r *PetsRepo) AppendPhotos(ctx context.Context, id string, urls []string, updatedAt time.Time) (pets.Pet, error) {
	if urls == nil {
		urls = []string{}
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE pets SET photos = photos || $2::text[], updated_at = $3
		WHERE id = $1
		RETURNING `+petColumns, id, urls, updatedAt)
	p, err := scanPet(row)
	if err != nil {
		return pets.Pet{}, classify(err)
	}
	return p, nil
}

func (r *PetsRepo) SetStatus(ctx context.Context, id string, status pets.Status, updatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE pets SET status = $2, updated_at = $3 WHERE id = $1`, id, status, updatedAt)
	if err != nil {
		return classify(err)
	}
	return expectOne(res)
}

func (r *PetsRepo) query(ctx context.Context, q string, args ...any) ([]pets.Pet, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]pets.Pet, 0)
	for rows.Next() {
		p, err := scanPet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPet(s scanner) (pets.Pet, error) {
	var p pets.Pet
	if err := s.Scan(
		&p.ID,
		&p.ShelterID,
		&p.Name,
		&p.Species,
		&p.Breed,
		&p.AgeMonths,
		&p.Size,
		&p.Gender,
		&p.Color,
		&p.Description,
		&p.Health.Vaccinated,
		&p.Health.Dewormed,
		&p.Health.Sterilized,
		textArray(&p.Photos),
		&p.Location,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return pets.Pet{}, err
	}
	if p.Photos == nil {
		p.Photos = []string{}
	}
	return p, nil
}
