package handlers

import (
	"log/slog"
	"net/http"

	"github.com/salonmonarch/booking/libs/auth"
	"github.com/salonmonarch/booking/services/booking-service/internal/admins"
)

type AuthHandler struct {
	svc    *admins.Service
	logger *slog.Logger
}

func NewAuthHandler(svc *admins.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req admins.Credentials
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req admins.Credentials
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	p, err := h.svc.Profile(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
