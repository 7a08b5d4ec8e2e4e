// internal/tour/handler.go
package tour

import (
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

// Routes mounts under /tours.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/visitor", h.handleListByVisitor)
	r.Get("/availability", h.handleAvailability)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
	r.Get("/{id}/history", h.handleHistory)
	return r
}

type bookingRequest struct {
	VisitorUsername      string        `json:"visitor_username"`
	Date                 exchange.Date `json:"date"`
	NumberOfParticipants int           `json:"number_of_participants"`
	ShiftTime            string        `json:"shift_time"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	tour, err := h.service.CreateTour(r.Context(), req.VisitorUsername, req.Date, req.NumberOfParticipants, ShiftTime(req.ShiftTime))
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, tour)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathInt(r, "id")
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	tour, err := h.service.GetTour(r.Context(), id)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, tour)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathInt(r, "id")
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	var req struct {
		Date                 exchange.Date `json:"date"`
		NumberOfParticipants int           `json:"number_of_participants"`
	}
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	tour, err := h.service.UpdateTour(r.Context(), id, req.Date, req.NumberOfParticipants)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, tour)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathInt(r, "id")
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	if err := h.service.DeleteTour(r.Context(), id); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	tours, err := h.service.ListTours(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, tours)
}

func (h *Handler) handleListByVisitor(w http.ResponseWriter, r *http.Request) {
	username, err := httpapi.QueryString(r, "username")
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	tours, err := h.service.ListToursByVisitor(r.Context(), username)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, tours)
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	date, err := httpapi.QueryDate(r, "date")
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	raw, err := httpapi.QueryString(r, "shift")
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	shift, err := ParseShift(raw)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	availability, err := h.service.Availability(r.Context(), date, shift)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, availability)
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
