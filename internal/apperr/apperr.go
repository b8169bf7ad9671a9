// Package apperr define la taxonomía de errores compartida por los módulos de dominio.
//
// Los handlers nunca comparan strings: usan errors.Is / errors.As y HTTPStatus.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("invalid state")
	ErrStore           = errors.New("store error")
)

// ValidationError indica un atributo inválido o faltante. Se rechaza antes de tocar el store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid es un atajo para construir un *ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StoreError envuelve una falla del record store o del blob store.
// El mensaje del colaborador se conserva tal cual para diagnóstico.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// Store clasifica un error devuelto por un repositorio.
// NotFound y Conflict pasan tal cual; el resto queda como *StoreError.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// PartialFailure: el recurso principal se creó pero un paso posterior falló.
// El caller reintenta solo Step, no la creación.
type PartialFailure struct {
	Step       string
	ResourceID string
	Err        error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Step, e.ResourceID, e.Err)
}

func (e *PartialFailure) Unwrap() error { return e.Err }

// Step devuelve el paso que falló si err es (o envuelve) un PartialFailure o StoreError.
func Step(err error) string {
	var pf *PartialFailure
	if errors.As(err, &pf) {
		return pf.Step
	}
	var se *StoreError
	if errors.As(err, &se) {
		return se.Op
	}
	return ""
}

// HTTPStatus mapea la taxonomía a códigos HTTP.
func HTTPStatus(err error) int {
	var pf *PartialFailure
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &pf):
		return http.StatusMultiStatus
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrStore):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
