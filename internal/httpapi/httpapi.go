// internal/httpapi/httpapi.go
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mmss/internal/exchange"
)

// ErrorBody is the JSON document written for every failed request.
type ErrorBody struct {
	Error   string `json:"error"`
	Entity  string `json:"entity,omitempty"`
	ID      string `json:"id,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// WriteJSON encodes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("encode response", "error", err)
	}
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, exchange.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, exchange.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, exchange.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, exchange.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as an ErrorBody. Internal errors are logged and their
// text is not returned to the caller.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	body := ErrorBody{Error: exchange.KindOf(err), Message: err.Error()}

	var typed *exchange.Error
	if errors.As(err, &typed) {
		body.Entity = typed.Entity
		body.ID = typed.ID
		body.Field = typed.Field
		body.Message = typed.Message
	}

	if status == http.StatusInternalServerError {
		slog.Default().ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		body.Message = http.StatusText(status)
	}
	WriteJSON(w, status, body)
}

// DecodeJSON reads the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return exchange.Validation("body", "%v", err)
	}
	return nil
}

// PathInt parses the named chi URL parameter as an integer id.
func PathInt(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, exchange.Validation(name, "%q is not an integer", raw)
	}
	return id, nil
}

// QueryDate parses a required YYYY-MM-DD query parameter.
func QueryDate(r *http.Request, name string) (exchange.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return exchange.Date{}, exchange.Validation(name, "is required")
	}
	d, err := exchange.ParseDate(raw)
	if err != nil {
		return exchange.Date{}, exchange.Validation(name, "%q is not a YYYY-MM-DD date", raw)
	}
	return d, nil
}

// QueryString returns a required query parameter.
func QueryString(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", exchange.Validation(name, "is required")
	}
	return v, nil
}

// NewRouter returns a chi router with the middleware every service mounts.
func NewRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}
