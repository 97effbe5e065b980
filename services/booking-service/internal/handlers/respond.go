package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/salonmonarch/booking/libs/httpx"
	"github.com/salonmonarch/booking/services/booking-service/internal/admins"
	"github.com/salonmonarch/booking/services/booking-service/internal/model"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body", Code: "invalid_json"})
		return false
	}
	return true
}

// writeError maps domain errors onto HTTP. Anything unrecognised is logged
// and reported as a 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "validation_failed"})
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "appointment not found", Code: "not_found"})
	case errors.Is(err, model.ErrAdminNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "admin not found", Code: "not_found"})
	case errors.Is(err, model.ErrSlotConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "this time slot is already booked", Code: "slot_conflict"})
	case errors.Is(err, model.ErrAdminExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "admin already exists", Code: "admin_exists"})
	case errors.Is(err, admins.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error(), Code: "invalid_credentials"})
	case errors.Is(err, admins.ErrRegistrationClosed):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error(), Code: "registration_closed"})
	case errors.Is(err, model.ErrTransient):
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "storage temporarily unavailable", Code: "storage_unavailable"})
	default:
		logger.Error("request failed",
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"err", err,
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error", Code: "internal"})
	}
}
