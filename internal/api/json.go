package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tablero/internal/apperr"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error   string            `json:"error" validate:"required"`
	Details map[string]string `json:"details,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps a service error onto a status code. Validation details
// are passed through to the client.
func writeError(w http.ResponseWriter, op string, err error) {
	var status int
	switch {
	case errors.Is(err, apperr.ErrInvalid):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrOutOfRange):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrNeedsRegrant),
		errors.Is(err, apperr.ErrPermissionDenied),
		errors.Is(err, apperr.ErrNoDirectory):
		status = http.StatusConflict
	case errors.Is(err, apperr.ErrUnavailable):
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, errorBody("storage unavailable"))
		return
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	body := errorBody(err.Error())
	body.Details = details(err)
	writeJSON(w, status, body)
}

func details(err error) map[string]string {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for field, ferr := range verrs {
		out[field] = ferr.Error()
	}
	return out
}

// decode reads a JSON body into v and runs its validation rules. It writes
// a 400 and returns false on failure.
func decode(w http.ResponseWriter, r *http.Request, v validation.Validatable) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if err := v.Validate(); err != nil {
		body := errorBody("invalid request")
		body.Details = details(err)
		writeJSON(w, http.StatusBadRequest, body)
		return false
	}
	return true
}

// indexParam parses a non-negative integer URL parameter.
func indexParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := chi.URLParam(r, name)
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeJSON(w, http.StatusBadRequest, errorBody(fmt.Sprintf("%s must be a non-negative integer", name)))
		return 0, false
	}
	return n, true
}
