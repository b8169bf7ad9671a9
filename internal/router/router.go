package router

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	_ "pet-adoption/docs"
	"pet-adoption/internal/adapters/auth/jwtauth"
	"pet-adoption/internal/adapters/auth/remote"
	blobmem "pet-adoption/internal/adapters/blob/memory"
	mem "pet-adoption/internal/adapters/storage/memory"
	pg "pet-adoption/internal/adapters/storage/postgres"
	"pet-adoption/internal/config"
	"pet-adoption/internal/domain/access"
	"pet-adoption/internal/domain/accounts"
	"pet-adoption/internal/domain/adoptions"
	"pet-adoption/internal/domain/pets"
	"pet-adoption/internal/middleware"
	"pet-adoption/internal/platform/logger"
	"pet-adoption/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

const mediaPrefix = "/media"

type Options struct {
	Log logger.Logger // nil => Nop

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	// Auth vacío equivale a modo dev (headers X-Debug-*).
	Auth config.AuthConfig

	// Photos nil => blob store en memoria servido en /media.
	Photos pets.PhotoStore
}

func NewRouter(opts Options) (http.Handler, error) {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}

	var (
		petRepo      pets.Repository
		adoptionRepo adoptions.Repository
		userRepo     accounts.Repository
		revoked      accounts.RevocationStore
	)
	if opts.DB != nil {
		petRepo = pg.NewPetsRepo(opts.DB)
		adoptionRepo = pg.NewAdoptionsRepo(opts.DB)
		userRepo = pg.NewUsersRepo(opts.DB)
		revoked = pg.NewRevokedTokensRepo(opts.DB)
	} else {
		petRepo = mem.NewPetRepo()
		adoptionRepo = mem.NewAdoptionRepo()
		userRepo = mem.NewUserRepo()
		revoked = mem.NewRevokedTokens()
	}

	var media *blobmem.Store
	photos := opts.Photos
	if photos == nil {
		media = blobmem.New(mediaPrefix)
		photos = media
	}

	mode := opts.Auth.Mode
	if mode == "" {
		mode = config.AuthModeDev
	}

	secret := opts.Auth.JWTSecret
	if secret == "" && mode != config.AuthModeJWT {
		// Solo dev/remote: los tokens locales no sobreviven un reinicio.
		secret = uuid.NewString()
	}
	tokens, err := jwtauth.New(jwtauth.Config{
		Secret: secret,
		Issuer: opts.Auth.Issuer,
		TTL:    opts.Auth.TokenTTL,
	}, revoked)
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}

	var verifier auth.AuthVerifier
	switch mode {
	case config.AuthModeDev:
		// sin verifier: headers de depuración
	case config.AuthModeJWT:
		verifier = tokens
	case config.AuthModeRemote:
		rv, err := remote.NewVerifier(remote.Config{
			BaseURL: opts.Auth.RemoteBaseURL,
			APIKey:  opts.Auth.RemoteAPIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("remote identity: %w", err)
		}
		verifier = rv
	default:
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}

	// Services por módulo. adoptionRepo también responde CountForPet para
	// bloquear el borrado de pets con solicitudes.
	petsSvc := pets.NewService(petRepo, photos, adoptionRepo)
	adoptionsSvc := adoptions.NewService(adoptionRepo, petsSvc, log)
	accountsSvc := accounts.NewService(userRepo, revoked, tokens, accounts.Options{
		AdminEmails:        opts.Auth.AdminEmails,
		AllowShelterSignup: opts.Auth.AllowShelterSignup,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewHTTPMetrics(reg)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(log))
	r.Use(chimw.Recoverer)
	r.Use(metrics.Handler)

	r.Use(middleware.AuthContext(verifier, accountsSvc, log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	if media != nil {
		r.Get(mediaPrefix+"/*", mediaHandler(media))
	}

	// Rutas por módulo
	accounts.RegisterRoutes(r, accountsSvc)
	if mode != config.AuthModeRemote {
		accounts.RegisterSessionRoutes(r, accountsSvc)
	}
	pets.RegisterRoutes(r, petsSvc)
	adoptions.RegisterRoutes(r, adoptionsSvc)

	r.Route("/dashboard", func(dr chi.Router) {
		dr.Use(middleware.Require(access.OpViewDashboard))
		pets.RegisterDashboardRoutes(dr, petsSvc)
		adoptions.RegisterDashboardRoutes(dr, adoptionsSvc)
	})

	log.Info("router ready", map[string]any{
		"auth_mode": mode,
		"store":     storeName(opts.DB),
		"media":     media != nil,
	})
	return r, nil
}

// mediaHandler sirve las fotos del blob store en memoria (solo dev).
func mediaHandler(store *blobmem.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		body, contentType, ok := store.Get(key)
		if !ok {
			http.NotFound(w, r)
			return
		}
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.Header().Set("Cache-Control", "public, max-age="+fmt.Sprint(int(time.Hour.Seconds())))
		_, _ = w.Write(body)
	}
}

func storeName(db *sql.DB) string {
	if db != nil {
		return "postgres"
	}
	return "memory"
}
