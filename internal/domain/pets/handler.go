package pets

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"pet-adoption/internal/apperr"
	"pet-adoption/internal/middleware"
	"pet-adoption/internal/platform/respond"

	"github.com/go-chi/chi/v5"
)

// maxUploadMemory: lo que excede va a archivos temporales.
const maxUploadMemory = 32 << 20

func RegisterRoutes(r chi.Router, svc *Service) {
	// Público
	r.Get("/pets", listAvailableHandler(svc))
	r.Get("/pets/{petID}", getPetHandler(svc))

	// Shelter dueño
	r.Post("/pets", createPetHandler(svc))
	r.Patch("/pets/{petID}", updatePetHandler(svc))
	r.Delete("/pets/{petID}", deletePetHandler(svc))
	r.Post("/pets/{petID}/photos", attachPhotosHandler(svc))
}

// RegisterDashboardRoutes se monta bajo /dashboard (ya protegido por el gate).
func RegisterDashboardRoutes(r chi.Router, svc *Service) {
	r.Get("/pets", listMyPetsHandler(svc))
}

// createPetRequest es el cuerpo para publicar un pet.
type createPetRequest struct {
	Name        string   `json:"name"`
	Species     Species  `json:"species" enums:"cat,dog,other"`
	Breed       string   `json:"breed"`
	Age         int      `json:"age"` // meses
	Size        Size     `json:"size" enums:"small,medium,large"`
	Gender      Gender   `json:"gender" enums:"male,female"`
	Color       string   `json:"color"`
	Description string   `json:"description"`
	Vaccinated  bool     `json:"vaccinated"`
	Dewormed    bool     `json:"dewormed"`
	Sterilized  bool     `json:"sterilized"`
	Location    string   `json:"location"`
	Photos      []string `json:"photos"`

	// Se acepta por compatibilidad con clientes viejos pero se ignora: todo pet nace available.
	Status string `json:"status,omitempty" swaggerignore:"true"`
}

// updatePetRequest: punteros para PATCH real, nil = no tocar.
type updatePetRequest struct {
	Name        *string   `json:"name"`
	Species     *Species  `json:"species"`
	Breed       *string   `json:"breed"`
	Age         *int      `json:"age"`
	Size        *Size     `json:"size"`
	Gender      *Gender   `json:"gender"`
	Color       *string   `json:"color"`
	Description *string   `json:"description"`
	Vaccinated  *bool     `json:"vaccinated"`
	Dewormed    *bool     `json:"dewormed"`
	Sterilized  *bool     `json:"sterilized"`
	Location    *string   `json:"location"`
	Status      *Status   `json:"status" enums:"available,reserved,adopted"`
	Photos      *[]string `json:"photos"`
}

type attachPhotosRequest struct {
	URLs []string `json:"urls"`
}

// petResponse representa un anuncio devuelto por la API.
type petResponse struct {
	ID          string    `json:"id"`
	ShelterID   string    `json:"shelter_id"`
	Name        string    `json:"name"`
	Species     Species   `json:"species"`
	Breed       string    `json:"breed"`
	Age         int       `json:"age"`
	Size        Size      `json:"size"`
	Gender      Gender    `json:"gender"`
	Color       string    `json:"color"`
	Description string    `json:"description"`
	Vaccinated  bool      `json:"vaccinated"`
	Dewormed    bool      `json:"dewormed"`
	Sterilized  bool      `json:"sterilized"`
	Photos      []string  `json:"photos"`
	Location    string    `json:"location"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// partialCreateResponse se devuelve con 207 cuando el pet se creó pero las fotos no.
type partialCreateResponse struct {
	Pet   petResponse `json:"pet"`
	Error string      `json:"error"`
	Step  string      `json:"step"`
}

// listAvailableHandler godoc
// @Summary Listar pets disponibles
// @Description Lista pública de pets con status `available`, más recientes primero.
// @Tags pets
// @Produce json
// @Success 200 {array} petResponse
// @Failure 502 {object} respond.ErrorBody "record store error"
// @Router /pets [get]
func listAvailableHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListAvailable(r.Context())
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, toPetResponses(items))
	}
}

// getPetHandler godoc
// @Summary Detalle de un pet
// @Description Público, sin importar el status.
// @Tags pets
// @Produce json
// @Param petID path string true "ID del pet"
// @Success 200 {object} petResponse
// @Failure 404 {object} respond.ErrorBody "not found"
// @Router /pets/{petID} [get]
func getPetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetByID(r.Context(), chi.URLParam(r, "petID"))
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, toPetResponse(p))
	}
}

// createPetHandler godoc
// @Summary Publicar un pet
// @Description Solo shelters. Acepta JSON o multipart (`data` = JSON del pet, `photos` = archivos). El status siempre arranca en `available`. Si el pet se crea pero falla el upload de fotos responde 207 con el pet y el paso fallido.
// @Tags pets
// @Accept json,mpfd
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param X-Debug-Role header string false "Solo en modo dev, rol (adopter|shelter|admin)"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body createPetRequest true "Datos del pet"
// @Success 201 {object} petResponse
// @Success 207 {object} partialCreateResponse
// @Failure 400 {object} respond.ErrorBody "validation error"
// @Failure 401 {object} respond.ErrorBody "unauthorized"
// @Failure 403 {object} respond.ErrorBody "forbidden"
// @Router /pets [post]
func createPetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := middleware.GetCaller(r.Context())

		var (
			req   createPetRequest
			files []PhotoUpload
		)

		if isMultipart(r) {
			if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
				respond.Error(w, apperr.Invalid("body", "invalid multipart form"))
				return
			}
			if err := json.Unmarshal([]byte(r.FormValue("data")), &req); err != nil {
				respond.Error(w, apperr.Invalid("data", "invalid json"))
				return
			}
			var closeAll func()
			var err error
			files, closeAll, err = formFiles(r.MultipartForm, "photos")
			if err != nil {
				respond.Error(w, err)
				return
			}
			defer closeAll()
		} else {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respond.Error(w, apperr.Invalid("body", "invalid json"))
				return
			}
		}

		p, err := svc.CreateWithPhotos(r.Context(), caller, req.toInput(), files)
		if err != nil {
			var pf *apperr.PartialFailure
			if errors.As(err, &pf) {
				respond.JSON(w, http.StatusMultiStatus, partialCreateResponse{
					Pet:   toPetResponse(p),
					Error: err.Error(),
					Step:  pf.Step,
				})
				return
			}
			respond.Error(w, err)
			return
		}

		respond.JSON(w, http.StatusCreated, toPetResponse(p))
	}
}

// updatePetHandler godoc
// @Summary Actualizar un pet
// @Description Solo el shelter dueño. PATCH parcial: cada campo presente se valida por separado. `status` acepta cualquier valor válido (sin tabla de transiciones).
// @Tags pets
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param X-Debug-Role header string false "Solo en modo dev, rol (adopter|shelter|admin)"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID del pet"
// @Param payload body updatePetRequest true "Campos a modificar"
// @Success 200 {object} petResponse
// @Failure 400 {object} respond.ErrorBody "validation error"
// @Failure 401 {object} respond.ErrorBody "unauthorized"
// @Failure 403 {object} respond.ErrorBody "forbidden"
// @Failure 404 {object} respond.ErrorBody "not found"
// @Router /pets/{petID} [patch]
func updatePetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := middleware.GetCaller(r.Context())

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req updatePetRequest
		if err := dec.Decode(&req); err != nil {
			respond.Error(w, apperr.Invalid("body", "invalid json"))
			return
		}

		updated, err := svc.Update(r.Context(), caller, chi.URLParam(r, "petID"), req.toPatch())
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, toPetResponse(updated))
	}
}

// deletePetHandler godoc
// @Summary Borrar un pet
// @Description Solo el shelter dueño. Se bloquea (409) mientras existan adoption requests para el pet.
// @Tags pets
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param X-Debug-Role header string false "Solo en modo dev, rol (adopter|shelter|admin)"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID del pet"
// @Success 204
// @Failure 401 {object} respond.ErrorBody "unauthorized"
// @Failure 403 {object} respond.ErrorBody "forbidden"
// @Failure 404 {object} respond.ErrorBody "not found"
// @Failure 409 {object} respond.ErrorBody "pet has adoption requests"
// @Router /pets/{petID} [delete]
func deletePetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := middleware.GetCaller(r.Context())
		if err := svc.Delete(r.Context(), caller, chi.URLParam(r, "petID")); err != nil {
			respond.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// attachPhotosHandler godoc
// @Summary Agregar fotos a un pet
// @Description Flujo de edición: agrega al final, nunca borra. Multipart (`photos` = archivos, se suben al blob store) o JSON `{"urls": [...]}` con URLs ya subidas.
// @Tags pets
// @Accept json,mpfd
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param X-Debug-Role header string false "Solo en modo dev, rol (adopter|shelter|admin)"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID del pet"
// @Param payload body attachPhotosRequest false "URLs a agregar (si no es multipart)"
// @Success 200 {object} petResponse
// @Failure 400 {object} respond.ErrorBody "validation error"
// @Failure 403 {object} respond.ErrorBody "forbidden"
// @Failure 404 {object} respond.ErrorBody "not found"
// @Failure 502 {object} respond.ErrorBody "blob store error"
// @Router /pets/{petID}/photos [post]
func attachPhotosHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := middleware.GetCaller(r.Context())
		petID := chi.URLParam(r, "petID")

		if isMultipart(r) {
			if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
				respond.Error(w, apperr.Invalid("body", "invalid multipart form"))
				return
			}
			files, closeAll, err := formFiles(r.MultipartForm, "photos")
			if err != nil {
				respond.Error(w, err)
				return
			}
			defer closeAll()

			p, err := svc.UploadPhotos(r.Context(), caller, petID, files, PhotosAppend)
			if err != nil {
				respond.Error(w, err)
				return
			}
			respond.JSON(w, http.StatusOK, toPetResponse(p))
			return
		}

		var req attachPhotosRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.Error(w, apperr.Invalid("body", "invalid json"))
			return
		}
		p, err := svc.AttachPhotos(r.Context(), caller, petID, req.URLs, PhotosAppend)
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, toPetResponse(p))
	}
}

// listMyPetsHandler godoc
// @Summary Mis pets (dashboard)
// @Description Pets del shelter autenticado, cualquier status, más recientes primero.
// @Tags dashboard
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param X-Debug-Role header string false "Solo en modo dev, rol (adopter|shelter|admin)"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} petResponse
// @Failure 401 {object} respond.ErrorBody "unauthorized"
// @Failure 403 {object} respond.ErrorBody "forbidden"
// @Router /dashboard/pets [get]
func listMyPetsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := middleware.GetCaller(r.Context())
		items, err := svc.ListByOwner(r.Context(), caller.ID)
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, toPetResponses(items))
	}
}

func (req createPetRequest) toInput() CreateInput {
	return CreateInput{
		Name:        req.Name,
		Species:     Species(normEnum(string(req.Species))),
		Breed:       req.Breed,
		AgeMonths:   req.Age,
		Size:        Size(normEnum(string(req.Size))),
		Gender:      Gender(normEnum(string(req.Gender))),
		Color:       req.Color,
		Description: req.Description,
		Health: Health{
			Vaccinated: req.Vaccinated,
			Dewormed:   req.Dewormed,
			Sterilized: req.Sterilized,
		},
		Location: req.Location,
		Photos:   req.Photos,
	}
}

func (req updatePetRequest) toPatch() Patch {
	return Patch{
		Name:        req.Name,
		Species:     normEnumPtr(req.Species),
		Breed:       req.Breed,
		AgeMonths:   req.Age,
		Size:        normEnumPtr(req.Size),
		Gender:      normEnumPtr(req.Gender),
		Color:       req.Color,
		Description: req.Description,
		Vaccinated:  req.Vaccinated,
		Dewormed:    req.Dewormed,
		Sterilized:  req.Sterilized,
		Location:    req.Location,
		Status:      normEnumPtr(req.Status),
		Photos:      req.Photos,
	}
}

// normEnum: create y patch aceptan los mismos valores ("Cat", " dog ").
func normEnum(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func normEnumPtr[T ~string](v *T) *T {
	if v == nil {
		return nil
	}
	out := T(normEnum(string(*v)))
	return &out
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data")
}

// formFiles abre los archivos del campo en orden. closeAll se debe llamar siempre.
func formFiles(form *multipart.Form, field string) ([]PhotoUpload, func(), error) {
	var closers []multipart.File
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}
	if form == nil {
		return nil, closeAll, nil
	}

	headers := form.File[field]
	out := make([]PhotoUpload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, apperr.Invalid(field, "cannot read "+fh.Filename)
		}
		closers = append(closers, f)
		out = append(out, PhotoUpload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		})
	}
	return out, closeAll, nil
}

func toPetResponse(p Pet) petResponse {
	photos := p.Photos
	if photos == nil {
		photos = []string{}
	}
	return petResponse{
		ID:          p.ID,
		ShelterID:   p.ShelterID,
		Name:        p.Name,
		Species:     p.Species,
		Breed:       p.Breed,
		Age:         p.AgeMonths,
		Size:        p.Size,
		Gender:      p.Gender,
		Color:       p.Color,
		Description: p.Description,
		Vaccinated:  p.Health.Vaccinated,
		Dewormed:    p.Health.Dewormed,
		Sterilized:  p.Health.Sterilized,
		Photos:      photos,
		Location:    p.Location,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toPetResponses(items []Pet) []petResponse {
	out := make([]petResponse, 0, len(items))
	for _, p := range items {
		out = append(out, toPetResponse(p))
	}
	return out
}
