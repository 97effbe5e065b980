package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/salonmonarch/booking/services/booking-service/internal/lifecycle"
	"github.com/salonmonarch/booking/services/booking-service/internal/model"
)

type AppointmentHandler struct {
	svc    *lifecycle.Service
	logger *slog.Logger
}

func NewAppointmentHandler(svc *lifecycle.Service, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, logger: logger}
}

// Submit is the public booking form. Any status in the body is ignored.
func (h *AppointmentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req lifecycle.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req lifecycle.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.svc.CreateAsAdmin(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *AppointmentHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req lifecycle.EditRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.svc.Edit(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *AppointmentHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.svc.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type deleteResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{ID: id, Message: "appointment removed"})
}

func (h *AppointmentHandler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.AvailableSlots(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *AppointmentHandler) SlotStatus(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.SlotStatusMap(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *AppointmentHandler) Services(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, model.Services)
}

type contactResponse struct {
	Message string `json:"message"`
}

// Contact answers 200 once the input is valid; delivery happens later.
func (h *AppointmentHandler) Contact(w http.ResponseWriter, r *http.Request) {
	var req lifecycle.ContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.Contact(r.Context(), req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, contactResponse{Message: "message received"})
}
