package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/fragsvc/fragments/pkg/fragments"
)

// errorBody is the error payload of the response envelope.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// errorEnvelope is the body of every failed response.
type errorEnvelope struct {
	Status string    `json:"status"`
	Error  errorBody `json:"error"`
}

// fragmentEnvelope wraps a single metadata record.
type fragmentEnvelope struct {
	Status   string              `json:"status"`
	Fragment *fragments.Fragment `json:"fragment"`
}

// listEnvelope wraps a fragment listing; Fragments holds either ids or
// full records depending on the expand parameter.
type listEnvelope struct {
	Status    string      `json:"status"`
	Fragments interface{} `json:"fragments"`
}

// statusEnvelope is the bare success body (delete, health).
type statusEnvelope struct {
	Status string `json:"status"`
}

func respondFragment(w http.ResponseWriter, r *http.Request, code int, fragment *fragments.Fragment) {
	render.Status(r, code)
	render.JSON(w, r, fragmentEnvelope{Status: "ok", Fragment: fragment})
}

func respondError(w http.ResponseWriter, r *http.Request, code int, message string) {
	render.Status(r, code)
	render.JSON(w, r, errorEnvelope{
		Status: "error",
		Error:  errorBody{Code: code, Message: message},
	})
}

// respondServiceError maps a service error to its transport status and a
// caller-safe message. The core never formats HTTP responses; this is the
// single place taxonomy kinds become status codes.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, fragments.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "Fragment not found")
	case errors.Is(err, fragments.ErrUnsupportedType):
		respondError(w, r, http.StatusUnsupportedMediaType, "Unsupported media type")
	case errors.Is(err, fragments.ErrUnsupportedConversion):
		respondError(w, r, http.StatusUnsupportedMediaType, "Fragment cannot be converted to the requested type")
	case errors.Is(err, fragments.ErrImageConversion):
		respondError(w, r, http.StatusUnsupportedMediaType, "Image conversion failed")
	case errors.Is(err, fragments.ErrTypeMismatch):
		respondError(w, r, http.StatusBadRequest, "Content-Type does not match fragment type")
	default:
		respondError(w, r, http.StatusInternalServerError, "Internal server error")
	}
}
