package adoptions

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"pet-adoption/internal/apperr"
	"pet-adoption/internal/domain/access"
	"pet-adoption/internal/middleware"
	"pet-adoption/internal/platform/respond"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/pets/{petID}/adoption-requests", createRequestHandler(svc))
	r.Get("/pets/{petID}/adoption-requests", listForPetHandler(svc))

	r.Route("/adoption-requests/{requestID}", func(rr chi.Router) {
		rr.Post("/approve", decideHandler(svc.Approve))
		rr.Post("/reject", decideHandler(svc.Reject))
		rr.Delete("/", deleteRequestHandler(svc))
	})

	r.Get("/me/adoption-requests", listMineHandler(svc))
}

// RegisterDashboardRoutes se monta bajo /dashboard.
func RegisterDashboardRoutes(r chi.Router, svc *Service) {
	r.Get("/requests", listForShelterHandler(svc))
}

// createRequestBody es el cuerpo para pedir la adopción de un pet.
type createRequestBody struct {
	Message string `json:"message"` // opcional
}

// requestResponse representa un adoption request devuelto por la API.
type requestResponse struct {
	ID        string    `json:"id"`
	PetID     string    `json:"pet_id"`
	AdopterID string    `json:"adopter_id"`
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// createRequestHandler godoc
// @Summary Pedir adopción
// @Description Solo adopters. El pet tiene que estar `available` y el adopter no puede tener otro request pending para el mismo pet.
// @Tags adoption-requests
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param X-Debug-Role header string false "Solo en modo dev, rol (adopter|shelter|admin)"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID del pet"
// @Param payload body createRequestBody false "Mensaje opcional para el shelter"
// @Success 201 {object} requestResponse
// @Failure 400 {object} respond.ErrorBody "validation error"
// @Failure 401 {object} respond.ErrorBody "unauthorized"
// @Failure 403 {object} respond.ErrorBody "forbidden"
// @Failure 404 {object} respond.ErrorBody "pet not found"
// @Failure 409 {object} respond.ErrorBody "pet not available / duplicated request"
// @Router /pets/{petID}/adoption-requests [post]
func createRequestHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := middleware.GetCaller(r.Context())

		var body createRequestBody
		// Body vacío es válido: el mensaje es opcional.
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			respond.Error(w, apperr.Invalid("body", "invalid json"))
			return
		}

		req, err := svc.Create(r.Context(), caller, chi.URLParam(r, "petID"), body.Message)
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusCreated, toRequestResponse(req))
	}
}

// listForPetHandler godoc
// @Summary Requests de un pet
// @Description Solo el shelter dueño del pet.
// @Tags adoption-requests
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param X-Debug-Role header string false "Solo en modo dev, rol (adopter|shelter|admin)"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID del pet"
// @Success 200 {array} requestResponse
// @Failure 401 {object} respond.ErrorBody "unauthorized"
// @Failure 403 {object} respond.ErrorBody "forbidden"
// @Failure 404 {object} respond.ErrorBody "pet not found"
// @Router /pets/{petID}/adoption-requests [get]
func listForPetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListForPet(r.Context(), middleware.GetCaller(r.Context()), chi.URLParam(r, "petID"))
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, toRequestResponses(items))
	}
}

// decideHandler godoc
// @Summary Aprobar o rechazar un request
// @Description Solo el shelter dueño del pet. Solo requests `pending`: approved y rejected son terminales (409). Al aprobar, el pet pasa a `adopted` y los demás pending del pet se rechazan.
// @Tags adoption-requests
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param X-Debug-Role header string false "Solo en modo dev, rol (adopter|shelter|admin)"
// @Param Authorization header string false "Bearer token en producción"
// @Param requestID path string true "ID del request"
// @Success 200 {object} requestResponse
// @Failure 401 {object} respond.ErrorBody "unauthorized"
// @Failure 403 {object} respond.ErrorBody "forbidden (también para ids inexistentes)"
// @Failure 409 {object} respond.ErrorBody "already decided"
// @Router /adoption-requests/{requestID}/approve [post]
// @Router /adoption-requests/{requestID}/reject [post]
func decideHandler(decide func(ctx context.Context, caller access.Caller, id string) (Request, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decide(r.Context(), middleware.GetCaller(r.Context()), chi.URLParam(r, "requestID"))
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, toRequestResponse(req))
	}
}

// deleteRequestHandler godoc
// @Summary Borrar un request
// @Description El adopter que lo creó o el shelter dueño del pet.
// @Tags adoption-requests
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param X-Debug-Role header string false "Solo en modo dev, rol (adopter|shelter|admin)"
// @Param Authorization header string false "Bearer token en producción"
// @Param requestID path string true "ID del request"
// @Success 204
// @Failure 401 {object} respond.ErrorBody "unauthorized"
// @Failure 403 {object} respond.ErrorBody "forbidden"
// @Failure 404 {object} respond.ErrorBody "not found"
// @Router /adoption-requests/{requestID} [delete]
func deleteRequestHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), middleware.GetCaller(r.Context()), chi.URLParam(r, "requestID")); err != nil {
			respond.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// listMineHandler godoc
// @Summary Mis requests
// @Description Requests del caller autenticado, más recientes primero.
// @Tags adoption-requests
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param X-Debug-Role header string false "Solo en modo dev, rol (adopter|shelter|admin)"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} requestResponse
// @Failure 401 {object} respond.ErrorBody "unauthorized"
// @Router /me/adoption-requests [get]
func listMineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListForAdopter(r.Context(), middleware.GetCaller(r.Context()))
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, toRequestResponses(items))
	}
}

// listForShelterHandler godoc
// @Summary Requests recibidos (dashboard)
// @Description Requests de todos los pets del shelter autenticado.
// @Tags dashboard
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param X-Debug-Role header string false "Solo en modo dev, rol (adopter|shelter|admin)"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} requestResponse
// @Failure 401 {object} respond.ErrorBody "unauthorized"
// @Failure 403 {object} respond.ErrorBody "forbidden"
// @Router /dashboard/requests [get]
func listForShelterHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := middleware.GetCaller(r.Context())
		items, err := svc.ListForShelter(r.Context(), caller, caller.ID)
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, toRequestResponses(items))
	}
}

func toRequestResponse(r Request) requestResponse {
	return requestResponse{
		ID:        r.ID,
		PetID:     r.PetID,
		AdopterID: r.AdopterID,
		Status:    r.Status,
		Message:   r.Message,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toRequestResponses(items []Request) []requestResponse {
	out := make([]requestResponse, 0, len(items))
	for _, r := range items {
		out = append(out, toRequestResponse(r))
	}
	return out
}
