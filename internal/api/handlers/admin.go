package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/skyserver1508/skyserver-hosting/internal/models"
	"github.com/skyserver1508/skyserver-hosting/internal/service"
)

// AdminHandler handles the review workflow, capacity and settings management
// and user administration
type AdminHandler struct {
	lifecycle *service.LifecycleService
	capacity  *service.CapacityService
	auth      *service.AuthService
	logger    *slog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(
	lifecycle *service.LifecycleService,
	capacity *service.CapacityService,
	auth *service.AuthService,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		lifecycle: lifecycle,
		capacity:  capacity,
		auth:      auth,
		logger:    logger,
	}
}

// ListRequests handles GET /api/v1/admin/requests with optional status and
// q (search) query parameters
func (h *AdminHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	filter := models.RequestFilter{
		Search: r.URL.Query().Get("q"),
		Owner:  r.URL.Query().Get("owner"),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = models.RequestStatus(status)
		if !filter.Status.Valid() {
			respondError(w, http.StatusBadRequest, "unknown status filter", "validation_failed")
			return
		}
	}

	requests, err := h.lifecycle.List(r.Context(), filter)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, requests)
}

// GetRequest handles GET /api/v1/admin/requests/{id}
func (h *AdminHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.lifecycle.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

// Approve handles POST /api/v1/admin/requests/{id}/approve. The body may
// carry panel credentials; without them the configured provisioner must be
// able to generate some.
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var creds *models.Credentials
	var body models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
		creds = &body
	} else if !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body", "validation_failed")
		return
	}

	h.logger.InfoContext(r.Context(), "Approving request", "id", id, "admin", CurrentUser(r).Email)

	req, err := h.lifecycle.Approve(r.Context(), id, creds)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

// Reject handles POST /api/v1/admin/requests/{id}/reject
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	h.logger.InfoContext(r.Context(), "Rejecting request", "id", id, "admin", CurrentUser(r).Email)

	req, err := h.lifecycle.Reject(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

// Terminate handles DELETE /api/v1/admin/requests/{id}
func (h *AdminHandler) Terminate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	h.logger.InfoContext(r.Context(), "Terminating server", "id", id, "admin", CurrentUser(r).Email)

	if err := h.lifecycle.Terminate(r.Context(), id); err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/v1/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.lifecycle.Stats(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// GetCapacity handles GET /api/v1/admin/capacity
func (h *AdminHandler) GetCapacity(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.capacity.Snapshot(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// SetCapacity handles PUT /api/v1/admin/capacity
func (h *AdminHandler) SetCapacity(w http.ResponseWriter, r *http.Request) {
	var payload models.UpdateCapacityRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", "validation_failed")
		return
	}

	if err := h.capacity.SetTotal(r.Context(), payload.Game, payload.TotalSlots); err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	snapshot, err := h.capacity.Snapshot(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// UpdateSettings handles PUT /api/v1/admin/settings
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var payload models.UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", "validation_failed")
		return
	}

	if err := h.lifecycle.SetSystemStatus(r.Context(), payload.SystemStatus); err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	status, err := h.lifecycle.Status(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// ListUsers handles GET /api/v1/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// UpdateUser handles PUT /api/v1/admin/users/{id}
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var payload models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", "validation_failed")
		return
	}

	user, err := h.auth.UpdateUser(r.Context(), r.PathValue("id"), &payload)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /api/v1/admin/users/{id}. The account's
// requests go with it; active servers are terminated and their slots
// released.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	user, err := h.auth.GetUser(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Deleting user", "id", id, "email", user.Email, "admin", CurrentUser(r).Email)

	if err := h.lifecycle.PurgeOwner(r.Context(), user.Email); err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	if err := h.auth.DeleteUser(r.Context(), id); err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
