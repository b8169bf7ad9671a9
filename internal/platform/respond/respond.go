// Package respond concentra la escritura de respuestas JSON.
package respond

import (
	"encoding/json"
	"net/http"

	"pet-adoption/internal/apperr"
)

// ErrorBody es el cuerpo de toda respuesta de error.
type ErrorBody struct {
	Error string `json:"error"`
	Step  string `json:"step,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error traduce err con apperr.HTTPStatus. Los 500 no exponen el detalle.
func Error(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		msg = "internal error"
	case http.StatusUnauthorized:
		msg = "unauthorized"
	case http.StatusForbidden:
		msg = "forbidden"
	}
	JSON(w, status, ErrorBody{Error: msg, Step: apperr.Step(err)})
}
