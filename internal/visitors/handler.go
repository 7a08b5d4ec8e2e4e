// internal/visitors/handler.go
package visitors

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mmss/internal/httpapi"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts under /visitors.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Post("/", h.handleRegister)
	r.Post("/authenticate", h.handleAuthenticate)
	r.Get("/{username}", h.handleGet)
	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListVisitors(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req Registration
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	visitor, err := h.service.RegisterVisitor(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, visitor)
}

func (h *Handler) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	// Token issuance belongs to the gateway's identity provider.
	visitor, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, visitor)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	visitor, err := h.service.GetVisitor(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, visitor)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrRateLimited):
		httpapi.WriteJSON(w, http.StatusTooManyRequests, httpapi.ErrorBody{Error: "rate_limited", Message: err.Error()})
	case errors.Is(err, ErrInvalidCredentials):
		httpapi.WriteJSON(w, http.StatusUnauthorized, httpapi.ErrorBody{Error: "unauthorized", Message: err.Error()})
	default:
		httpapi.WriteError(w, r, err)
	}
}
