package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"pet-adoption/internal/apperr"
	"pet-adoption/internal/domain/access"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

var errBadCredentials = fmt.Errorf("%w: invalid email or password", apperr.ErrUnauthenticated)

// Options controla qué roles se asignan en el sign-up.
type Options struct {
	// AdminEmails reciben admin al registrarse. Nadie más puede auto-asignarse admin.
	AdminEmails []string
	// AllowShelterSignup permite pedir role=shelter en el registro.
	AllowShelterSignup bool
}

type Service struct {
	repo    Repository
	revoked RevocationStore
	issuer  TokenIssuer
	admins  map[string]bool
	shelter bool
	cost    int
	now     func() time.Time
}

func NewService(repo Repository, revoked RevocationStore, issuer TokenIssuer, opts Options) *Service {
	admins := make(map[string]bool, len(opts.AdminEmails))
	for _, e := range opts.AdminEmails {
		if e = normalizeEmail(e); e != "" {
			admins[e] = true
		}
	}
	return &Service{
		repo:    repo,
		revoked: revoked,
		issuer:  issuer,
		admins:  admins,
		shelter: opts.AllowShelterSignup,
		cost:    bcrypt.DefaultCost,
		now:     time.Now,
	}
}

type SignUpInput struct {
	Email    string
	Password string
	Name     string
	// Role es solo un pedido; el servidor decide.
	Role string
}

func (s *Service) SignUp(ctx context.Context, in SignUpInput) (Session, error) {
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return Session{}, apperr.Invalid("email", "invalid address")
	}
	if len(in.Password) < minPasswordLen {
		return Session{}, apperr.Invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Session{}, apperr.Invalid("name", "required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         s.signupRole(email, in.Role),
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return Session{}, fmt.Errorf("%w: email already registered", apperr.ErrConflict)
		}
		return Session{}, apperr.Store("create user", err)
	}
	return s.issue(u)
}

// signupRole nunca confía en el rol pedido para admin.
func (s *Service) signupRole(email, requested string) access.Role {
	if s.admins[email] {
		return access.RoleAdmin
	}
	if r, ok := access.ParseRole(requested); ok && r == access.RoleShelter && s.shelter {
		return access.RoleShelter
	}
	return access.RoleAdopter
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Session{}, errBadCredentials
		}
		return Session{}, apperr.Store("get user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return Session{}, errBadCredentials
	}
	return s.issue(u)
}

// SignOut agrega el token a la denylist hasta que expire solo.
func (s *Service) SignOut(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if strings.TrimSpace(tokenID) == "" || s.revoked == nil {
		return nil
	}
	if err := s.revoked.Revoke(ctx, tokenID, expiresAt); err != nil {
		return apperr.Store("revoke token", err)
	}
	return nil
}

func (s *Service) CurrentUser(ctx context.Context, userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, apperr.ErrUnauthenticated
	}
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return User{}, apperr.Store("get user", err)
	}
	return u, nil
}

// RoleOf implementa auth.RoleResolver: el rol vigente sale de users, no del token.
// Un usuario del proveedor externo sin fila en users es adopter.
func (s *Service) RoleOf(ctx context.Context, userID string) (string, error) {
	u, err := s.CurrentUser(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return string(access.RoleAdopter), nil
	}
	if err != nil {
		return "", err
	}
	return string(u.Role), nil
}

// AssignRole es la única forma de cambiar un rol después del sign-up.
func (s *Service) AssignRole(ctx context.Context, caller access.Caller, userID, role string) (User, error) {
	if err := access.Authorize(access.OpAssignRole, caller); err != nil {
		return User{}, err
	}
	r, ok := access.ParseRole(role)
	if !ok {
		return User{}, apperr.Invalid("role", "must be adopter, shelter or admin")
	}

	u, err := s.CurrentUser(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if err := s.repo.UpdateRole(ctx, u.ID, r); err != nil {
		return User{}, apperr.Store("update role", err)
	}
	u.Role = r
	return u, nil
}

func (s *Service) issue(u User) (Session, error) {
	sess, err := s.issuer.Issue(u)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	sess.User = u
	return sess, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
