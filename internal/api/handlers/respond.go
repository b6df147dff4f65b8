package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/skyserver1508/skyserver-hosting/internal/models"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message, code string) {
	respondJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// respondServiceError maps the service error taxonomy to HTTP statuses.
// Unknown errors are logged and hidden behind a generic 500.
func respondServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error(), "validation_failed")
	case errors.Is(err, models.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, err.Error(), "unauthorized")
	case errors.Is(err, models.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error(), "not_found")
	case errors.Is(err, models.ErrInvalidTransition):
		respondError(w, http.StatusConflict, err.Error(), "invalid_transition")
	case errors.Is(err, models.ErrCapacityExhausted):
		respondError(w, http.StatusConflict, err.Error(), "capacity_exhausted")
	case errors.Is(err, models.ErrConflict):
		respondError(w, http.StatusConflict, err.Error(), "conflict")
	case errors.Is(err, models.ErrMaintenance):
		respondError(w, http.StatusServiceUnavailable, err.Error(), "maintenance")
	case errors.Is(err, models.ErrStorageUnavailable):
		logger.ErrorContext(r.Context(), "Storage unavailable", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusServiceUnavailable, "storage unavailable, please try again", "storage_unavailable")
	default:
		logger.ErrorContext(r.Context(), "Unhandled service error", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error", "internal")
	}
}
