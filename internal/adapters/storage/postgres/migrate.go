package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// migration es un paso de schema. Se aplican en orden y cada versión una sola vez.
type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "initial schema",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id            TEXT PRIMARY KEY,
				email         TEXT NOT NULL UNIQUE,
				name          TEXT NOT NULL,
				role          TEXT NOT NULL CHECK (role IN ('adopter','shelter','admin')),
				password_hash TEXT NOT NULL,
				created_at    TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS pets (
				id          TEXT PRIMARY KEY,
				shelter_id  TEXT NOT NULL,
				name        TEXT NOT NULL,
				species     TEXT NOT NULL CHECK (species IN ('cat','dog','other')),
				breed       TEXT NOT NULL DEFAULT '',
				age         INTEGER NOT NULL CHECK (age >= 0),
				size        TEXT NOT NULL CHECK (size IN ('small','medium','large')),
				gender      TEXT NOT NULL CHECK (gender IN ('male','female')),
				color       TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL,
				vaccinated  BOOLEAN NOT NULL DEFAULT FALSE,
				dewormed    BOOLEAN NOT NULL DEFAULT FALSE,
				sterilized  BOOLEAN NOT NULL DEFAULT FALSE,
				photos      TEXT[] NOT NULL DEFAULT '{}',
				location    TEXT NOT NULL,
				status      TEXT NOT NULL CHECK (status IN ('available','reserved','adopted')),
				created_at  TIMESTAMPTZ NOT NULL,
				updated_at  TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_pets_status_created ON pets (status, created_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_pets_shelter_created ON pets (shelter_id, created_at DESC)`,
			`CREATE TABLE IF NOT EXISTS adoption_requests (
				id         TEXT PRIMARY KEY,
				pet_id     TEXT NOT NULL REFERENCES pets (id),
				adopter_id TEXT NOT NULL,
				status     TEXT NOT NULL CHECK (status IN ('pending','approved','rejected')),
				message    TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_requests_pet_created ON adoption_requests (pet_id, created_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_requests_adopter_created ON adoption_requests (adopter_id, created_at DESC)`,
			// Un solo pending por (pet, adopter).
			`CREATE UNIQUE INDEX IF NOT EXISTS uq_requests_pending ON adoption_requests (pet_id, adopter_id) WHERE status = 'pending'`,
			`CREATE TABLE IF NOT EXISTS revoked_tokens (
				jti        TEXT PRIMARY KEY,
				expires_at TIMESTAMPTZ NOT NULL
			)`,
		},
	},
}

// SchemaVersion es la última versión conocida.
func SchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// Migrate lleva el schema a SchemaVersion. Devuelve las versiones aplicadas.
func Migrate(ctx context.Context, db *sql.DB) ([]int, error) {
	if db == nil {
		return nil, fmt.Errorf("migrate: db is nil")
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return nil, fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return nil, fmt.Errorf("migrate: read current version: %w", err)
	}

	var applied []int
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return applied, err
		}
		applied = append(applied, m.version)
	}
	return applied, nil
}

func apply(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate %d: begin transaction: %w", m.version, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range m.stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %d (%s): %w", m.version, m.name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.version); err != nil {
		return fmt.Errorf("migrate %d: record version: %w", m.version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate %d: commit: %w", m.version, err)
	}
	return nil
}
