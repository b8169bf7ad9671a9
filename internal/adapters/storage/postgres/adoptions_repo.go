package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"pet-adoption/internal/apperr"
	"pet-adoption/internal/domain/adoptions"
)

type AdoptionsRepo struct {
	db *sql.DB
}

func NewAdoptionsRepo(db *sql.DB) *AdoptionsRepo {
	return &AdoptionsRepo{db: db}
}

const requestColumns = `id, pet_id, adopter_id, status, message, created_at, updated_at`

func (r *AdoptionsRepo) Create(ctx context.Context, req adoptions.Request) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO adoption_requests (`+requestColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, req.ID, req.PetID, req.AdopterID, req.Status, req.Message, req.CreatedAt, req.UpdatedAt)
	return classify(err)
}

func (r *AdoptionsRepo) GetByID(ctx context.Context, id string) (adoptions.Request, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return adoptions.Request{}, apperr.ErrNotFound
	}
	req, err := scanRequest(r.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM adoption_requests WHERE id = $1`, id))
	if err != nil {
		return adoptions.Request{}, classify(err)
	}
	return req, nil
}

func (r *AdoptionsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM adoption_requests WHERE id = $1`, id)
	if err != nil {
		return classify(err)
	}
	return expectOne(res)
}

func (r *AdoptionsRepo) ListByPet(ctx context.Context, petID string) ([]adoptions.Request, error) {
	return r.query(ctx, `SELECT `+requestColumns+` FROM adoption_requests WHERE pet_id = $1 ORDER BY created_at DESC, id`, petID)
}

func (r *AdoptionsRepo) ListByAdopter(ctx context.Context, adopterID string) ([]adoptions.Request, error) {
	return r.query(ctx, `SELECT `+requestColumns+` FROM adoption_requests WHERE adopter_id = $1 ORDER BY created_at DESC, id`, adopterID)
}

func (r *AdoptionsRepo) ListByPetIDs(ctx context.Context, petIDs []string) ([]adoptions.Request, error) {
	if len(petIDs) == 0 {
		return []adoptions.Request{}, nil
	}
	return r.query(ctx, `SELECT `+requestColumns+` FROM adoption_requests WHERE pet_id = ANY($1::text[]) ORDER BY created_at DESC, id`, petIDs)
}

// Transition: UPDATE condicional. Si no afecta filas, distingue NotFound de Conflict.
func (r *AdoptionsRepo) Transition(ctx context.Context, id string, from, to adoptions.Status, at time.Time) (adoptions.Request, error) {
	req, err := scanRequest(r.db.QueryRowContext(ctx, `
		UPDATE adoption_requests SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING `+requestColumns, id, from, to, at))
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return adoptions.Request{}, classify(err)
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM adoption_requests WHERE id = $1)`, id).Scan(&exists); err != nil {
		return adoptions.Request{}, err
	}
	if !exists {
		return adoptions.Request{}, apperr.ErrNotFound
	}
	return adoptions.Request{}, apperr.ErrConflict
}

func (r *AdoptionsRepo) CountForPet(ctx context.Context, petID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM adoption_requests WHERE pet_id = $1`, petID).Scan(&n)
	return n, err
}

func (r *AdoptionsRepo) HasPending(ctx context.Context, petID, adopterID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM adoption_requests
			WHERE pet_id = $1 AND adopter_id = $2 AND status = 'pending'
		)`, petID, adopterID).Scan(&ok)
	return ok, err
}

func (r *AdoptionsRepo) query(ctx context.Context, q string, args ...any) ([]adoptions.Request, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]adoptions.Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func scanRequest(s scanner) (adoptions.Request, error) {
	var req adoptions.Request
	err := s.Scan(&req.ID, &req.PetID, &req.AdopterID, &req.Status, &req.Message, &req.CreatedAt, &req.UpdatedAt)
	return req, err
}
