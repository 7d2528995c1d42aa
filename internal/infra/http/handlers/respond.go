package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xavierca1/hospital-leads/internal/usecase"
)

type errorResponse struct {
	Error string `json:"error"`
}

type dataResponse struct {
	Data any `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeUseCaseError maps the usecase error types onto HTTP statuses. Store
// failures carry the store's own message, whatever they wrap.
func writeUseCaseError(w http.ResponseWriter, err error) {
	var (
		validation usecase.ValidationError
		schema     *usecase.SchemaError
		store      *usecase.StoreError
	)
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &store) && store.Err != nil:
		writeError(w, http.StatusInternalServerError, store.Err.Error())
	case errors.As(err, &schema):
		writeError(w, http.StatusConflict, schema.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// Unavailable answers every request with 500 and cause, for routes whose
// backing store could not be created.
func Unavailable(cause error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusInternalServerError, cause.Error())
	}
}
