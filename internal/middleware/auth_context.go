package middleware

import (
	"context"
	"net/http"
	"strings"

	"pet-adoption/internal/domain/access"
	"pet-adoption/internal/platform/logger"
	"pet-adoption/internal/platform/respond"
	"pet-adoption/internal/ports/auth"
)

type ctxKey string

const (
	claimsKey ctxKey = "claims"
	callerKey ctxKey = "caller"
)

// AuthContext:
// - Si verifier != nil y viene Bearer token => intenta Verify() y setea claims + caller.
// - Si verifier == nil => modo dev: X-Debug-User-ID (+ X-Debug-Role, default adopter).
// - Si no hay claims, el request sigue como anónimo; el gate de cada operación decide 401/403.
//
// roles puede ser nil. Si está, el rol persistido gana sobre el del token.
func AuthContext(verifier auth.AuthVerifier, roles auth.RoleResolver, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Dev mode: permitir inyectar user sin verifier
			if verifier == nil {
				if uid := strings.TrimSpace(r.Header.Get("X-Debug-User-ID")); uid != "" {
					role := strings.TrimSpace(r.Header.Get("X-Debug-Role"))
					if role == "" {
						role = string(access.RoleAdopter)
					}
					claims := auth.Claims{UserID: uid, Role: role}
					next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
					return
				}

				next.ServeHTTP(w, r)
				return
			}

			// Verifier mode
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				// No cortamos aquí para no acoplar. El gate decide 401/403.
				if log != nil {
					log.Debug("token rejected", map[string]any{"err": err.Error()})
				}
				next.ServeHTTP(w, r)
				return
			}

			if roles != nil {
				role, err := roles.RoleOf(r.Context(), claims.UserID)
				if err != nil {
					if log != nil {
						log.Warn("role lookup failed", map[string]any{"user_id": claims.UserID, "err": err.Error()})
					}
					next.ServeHTTP(w, r)
					return
				}
				claims.Role = role
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// Require corta el request si el gate niega op para el caller actual.
// Se usa para grupos de rutas (p.ej. /dashboard) donde la regla no depende del recurso.
func Require(op access.Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := access.Authorize(op, GetCaller(r.Context())); err != nil {
				respond.Error(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withClaims(ctx context.Context, claims auth.Claims) context.Context {
	caller := access.Caller{ID: claims.UserID}
	if role, ok := access.ParseRole(claims.Role); ok {
		caller.Role = role
	}
	ctx = context.WithValue(ctx, claimsKey, claims)
	return context.WithValue(ctx, callerKey, caller)
}

func GetClaims(ctx context.Context) (auth.Claims, bool) {
	v := ctx.Value(claimsKey)
	if v == nil {
		return auth.Claims{}, false
	}
	c, ok := v.(auth.Claims)
	return c, ok
}

// GetCaller devuelve el caller del request; anónimo si no hubo auth.
func GetCaller(ctx context.Context) access.Caller {
	c, ok := ctx.Value(callerKey).(access.Caller)
	if !ok {
		return access.Anonymous()
	}
	return c
}

func bearerToken(authHeader string) string {
	if strings.TrimSpace(authHeader) == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
