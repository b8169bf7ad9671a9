package accounts

import (
	"encoding/json"
	"net/http"
	"time"

	"pet-adoption/internal/apperr"
	"pet-adoption/internal/middleware"
	"pet-adoption/internal/platform/respond"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/auth/me", meHandler(svc))
	r.Post("/admin/users/{userID}/role", assignRoleHandler(svc))
}

// RegisterSessionRoutes monta signup/signin/signout. No se usa cuando la
// identidad la maneja un proveedor externo.
func RegisterSessionRoutes(r chi.Router, svc *Service) {
	r.Post("/auth/signup", signUpHandler(svc))
	r.Post("/auth/signin", signInHandler(svc))
	r.Post("/auth/signout", signOutHandler(svc))
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	// Pedido de rol; admin nunca se concede por acá.
	Role string `json:"role" enums:"adopter,shelter"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type assignRoleRequest struct {
	Role string `json:"role" enums:"adopter,shelter,admin"`
}

// userResponse representa una cuenta (sin hash).
type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        userResponse `json:"user"`
}

// signUpHandler godoc
// @Summary Registrarse
// @Description Crea una cuenta y devuelve una sesión. El rol lo decide el servidor: `shelter` solo si el registro de shelters está habilitado; `admin` nunca desde este endpoint.
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body signUpRequest true "Datos de la cuenta"
// @Success 201 {object} sessionResponse
// @Failure 400 {object} respond.ErrorBody "validation error"
// @Failure 409 {object} respond.ErrorBody "email already registered"
// @Router /auth/signup [post]
func signUpHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signUpRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.Error(w, apperr.Invalid("body", "invalid json"))
			return
		}

		sess, err := svc.SignUp(r.Context(), SignUpInput{
			Email:    req.Email,
			Password: req.Password,
			Name:     req.Name,
			Role:     req.Role,
		})
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusCreated, toSessionResponse(sess))
	}
}

// signInHandler godoc
// @Summary Iniciar sesión
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body signInRequest true "Credenciales"
// @Success 200 {object} sessionResponse
// @Failure 401 {object} respond.ErrorBody "unauthorized"
// @Router /auth/signin [post]
func signInHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.Error(w, apperr.Invalid("body", "invalid json"))
			return
		}

		sess, err := svc.SignIn(r.Context(), req.Email, req.Password)
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, toSessionResponse(sess))
	}
}

// signOutHandler godoc
// @Summary Cerrar sesión
// @Description Revoca el token actual hasta su expiración.
// @Tags auth
// @Param Authorization header string true "Bearer token"
// @Success 204
// @Failure 401 {object} respond.ErrorBody "unauthorized"
// @Router /auth/signout [post]
func signOutHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok {
			respond.Error(w, apperr.ErrUnauthenticated)
			return
		}
		if err := svc.SignOut(r.Context(), claims.TokenID, claims.ExpiresAt); err != nil {
			respond.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// meHandler godoc
// @Summary Usuario actual
// @Tags auth
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {object} userResponse
// @Failure 401 {object} respond.ErrorBody "unauthorized"
// @Failure 404 {object} respond.ErrorBody "user not found"
// @Router /auth/me [get]
func meHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := svc.CurrentUser(r.Context(), middleware.GetCaller(r.Context()).ID)
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, toUserResponse(u))
	}
}

// assignRoleHandler godoc
// @Summary Asignar rol
// @Description Solo admins. Es la única vía para promover una cuenta a shelter o admin.
// @Tags admin
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param X-Debug-Role header string false "Solo en modo dev, rol (adopter|shelter|admin)"
// @Param Authorization header string false "Bearer token en producción"
// @Param userID path string true "ID de la cuenta"
// @Param payload body assignRoleRequest true "Nuevo rol"
// @Success 200 {object} userResponse
// @Failure 400 {object} respond.ErrorBody "validation error"
// @Failure 401 {object} respond.ErrorBody "unauthorized"
// @Failure 403 {object} respond.ErrorBody "forbidden"
// @Failure 404 {object} respond.ErrorBody "user not found"
// @Router /admin/users/{userID}/role [post]
func assignRoleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req assignRoleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.Error(w, apperr.Invalid("body", "invalid json"))
			return
		}

		u, err := svc.AssignRole(r.Context(), middleware.GetCaller(r.Context()), chi.URLParam(r, "userID"), req.Role)
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, toUserResponse(u))
	}
}

func toUserResponse(u User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

func toSessionResponse(s Session) sessionResponse {
	return sessionResponse{
		AccessToken: s.Token,
		TokenType:   "Bearer",
		ExpiresAt:   s.ExpiresAt,
		User:        toUserResponse(s.User),
	}
}
