// internal/loan/handler.go
package loan

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mmss/internal/exchange"
	"mmss/internal/httpapi"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts under /loans.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/status", h.handleListByStatus)
	r.Get("/due-date", h.handleListByDate(h.service.ListLoansByDueDate))
	r.Get("/submitted-date", h.handleListByDate(h.service.ListLoansBySubmittedDate))
	r.Get("/visitor", h.handleListByVisitor)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdateStatus)
	r.Delete("/{id}", h.handleDelete)
	r.Get("/{id}/history", h.handleHistory)
	return r
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ArtefactID      int    `json:"artefact_id"`
		VisitorUsername string `json:"visitor_username"`
	}
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	loan, err := h.service.CreateLoan(r.Context(), req.ArtefactID, req.VisitorUsername)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, loan)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathInt(r, "id")
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	loan, err := h.service.GetLoan(r.Context(), id)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, loan)
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathInt(r, "id")
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	status, err := exchange.ParseStatus(req.Status)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	loan, err := h.service.UpdateStatus(r.Context(), id, status)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, loan)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathInt(r, "id")
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	if err := h.service.DeleteLoan(r.Context(), id); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.ListLoans(r.Context())
	writeList(w, r, loans, err)
}

func (h *Handler) handleListByStatus(w http.ResponseWriter, r *http.Request) {
	raw, err := httpapi.QueryString(r, "status")
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	status, err := exchange.ParseStatus(raw)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	loans, err := h.service.ListLoansByStatus(r.Context(), status)
	writeList(w, r, loans, err)
}

func (h *Handler) handleListByDate(list func(ctx context.Context, date exchange.Date) ([]*Loan, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := httpapi.QueryDate(r, "date")
		if err != nil {
			httpapi.WriteError(w, r, err)
			return
		}

		loans, err := list(r.Context(), date)
		writeList(w, r, loans, err)
	}
}

func (h *Handler) handleListByVisitor(w http.ResponseWriter, r *http.Request) {
	username, err := httpapi.QueryString(r, "username")
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	loans, err := h.service.ListLoansByVisitor(r.Context(), username)
	writeList(w, r, loans, err)
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

func writeList(w http.ResponseWriter, r *http.Request, loans []*Loan, err error) {
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, loans)
}
