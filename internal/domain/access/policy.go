// Package access es el gate de políticas: una función pura que decide allow/deny
// a partir de {caller, rol, dueño del recurso}. No hace I/O.
package access

import (
	"strings"

	"pet-adoption/internal/apperr"
)

type Role string

const (
	RoleAdopter Role = "adopter"
	RoleShelter Role = "shelter"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdopter, RoleShelter, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole normaliza y valida un rol. Vacío o desconocido => false.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Caller es la identidad explícita que recibe cada operación del core.
// El valor cero es un caller anónimo.
type Caller struct {
	ID   string
	Role Role
}

func Anonymous() Caller { return Caller{} }

func (c Caller) Authenticated() bool {
	return strings.TrimSpace(c.ID) != ""
}

type Operation string

const (
	OpCreatePet       Operation = "pet:create"
	OpMutatePet       Operation = "pet:mutate"
	OpViewPet         Operation = "pet:view"
	OpListAvailable   Operation = "pet:list_available"
	OpCreateRequest   Operation = "request:create"
	OpDecideRequest   Operation = "request:decide"
	OpListPetRequests Operation = "request:list_for_pet"
	OpDeleteRequest   Operation = "request:delete"
	OpViewDashboard   Operation = "dashboard:view"
	OpAssignRole      Operation = "user:assign_role"
)

// Authorize devuelve nil (allow), apperr.ErrUnauthenticated o apperr.ErrForbidden.
//
// resourceOwnerIDs son los ids que pueden actuar sobre el recurso: shelter_id del pet,
// o adopter_id + shelter_id para un request. Se ignoran en operaciones sin dueño.
func Authorize(op Operation, c Caller, resourceOwnerIDs ...string) error {
	switch op {
	case OpViewPet, OpListAvailable:
		return nil
	}

	if !c.Authenticated() {
		return apperr.ErrUnauthenticated
	}

	switch op {
	case OpCreatePet, OpViewDashboard:
		return requireRole(c, RoleShelter)

	case OpMutatePet, OpDecideRequest, OpListPetRequests:
		if err := requireRole(c, RoleShelter); err != nil {
			return err
		}
		return requireOwner(c, resourceOwnerIDs)

	case OpCreateRequest:
		return requireRole(c, RoleAdopter)

	case OpDeleteRequest:
		return requireOwner(c, resourceOwnerIDs)

	case OpAssignRole:
		return requireRole(c, RoleAdmin)
	}

	// Operación desconocida: deny.
	return apperr.ErrForbidden
}

// Precheck evalúa solo la parte de la regla que no depende del recurso (autenticación y rol).
// Los managers lo llaman antes de cualquier lookup para no filtrar existencia de recursos.
func Precheck(op Operation, c Caller) error {
	switch op {
	case OpMutatePet, OpDecideRequest, OpListPetRequests:
		if !c.Authenticated() {
			return apperr.ErrUnauthenticated
		}
		return requireRole(c, RoleShelter)
	case OpDeleteRequest:
		if !c.Authenticated() {
			return apperr.ErrUnauthenticated
		}
		return nil
	default:
		return Authorize(op, c)
	}
}

func requireRole(c Caller, role Role) error {
	if c.Role != role {
		return apperr.ErrForbidden
	}
	return nil
}

func requireOwner(c Caller, owners []string) error {
	for _, id := range owners {
		if strings.TrimSpace(id) != "" && id == c.ID {
			return nil
		}
	}
	return apperr.ErrForbidden
}
