// internal/collections/handler.go
package collections

import (
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

// Routes mounts under /artefacts.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Post("/", h.handleAdd)
	r.Get("/{id}", h.handleGet)
	r.Delete("/{id}", h.handleRemove)
	r.Patch("/{id}/loan", h.handleSetActiveLoan)
	r.Get("/{id}/history", h.handleHistory)
	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	artefacts, err := h.service.ListArtefacts(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, artefacts)
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req NewArtefact
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	artefact, err := h.service.AddArtefact(r.Context(), req)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, artefact)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathInt(r, "id")
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	artefact, err := h.service.GetArtefact(r.Context(), id)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, artefact)
}

func (h *Handler) handleSetActiveLoan(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathInt(r, "id")
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	var req struct {
		ActiveLoanID *int `json:"active_loan_id"`
	}
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	if err := h.service.SetActiveLoan(r.Context(), id, req.ActiveLoanID); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathInt(r, "id")
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	if err := h.service.RemoveArtefact(r.Context(), id); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathInt(r, "id")
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	events, err := h.service.History(r.Context(), id)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, events)
}
