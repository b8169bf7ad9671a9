package postgres

import (
	"context"
	"database/sql"
	"time"

	"pet-adoption/internal/domain/access"
	"pet-adoption/internal/domain/accounts"
)

type UsersRepo struct {
	db *sql.DB
}

func NewUsersRepo(db *sql.DB) *UsersRepo {
	return &UsersRepo{db: db}
}

const userColumns = `id, email, name, role, password_hash, created_at`

func (r *UsersRepo) Create(ctx context.Context, u accounts.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`) VALUES ($1, lower($2), $3, $4, $5, $6)
	`, u.ID, u.Email, u.Name, u.Role, u.PasswordHash, u.CreatedAt)
	return classify(err)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (accounts.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (accounts.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE email = lower($1)`, email)
}

func (r *UsersRepo) UpdateRole(ctx context.Context, id string, role access.Role) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET role = $2 WHERE id = $1`, id, role)
	if err != nil {
		return classify(err)
	}
	return expectOne(res)
}

func (r *UsersRepo) get(ctx context.Context, q string, arg string) (accounts.User, error) {
	var u accounts.User
	err := r.db.QueryRowContext(ctx, q, arg).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return accounts.User{}, classify(err)
	}
	return u, nil
}

type RevokedTokensRepo struct {
	db *sql.DB
}

func NewRevokedTokensRepo(db *sql.DB) *RevokedTokensRepo {
	return &RevokedTokensRepo{db: db}
}

// Revoke también purga las entradas ya vencidas.
func (r *RevokedTokensRepo) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < now()`); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO revoked_tokens (jti, expires_at) VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, tokenID, expiresAt)
	return err
}

func (r *RevokedTokensRepo) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1)`, tokenID).Scan(&ok)
	return ok, err
}
