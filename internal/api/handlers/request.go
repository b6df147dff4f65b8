package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/skyserver1508/skyserver-hosting/internal/models"
	"github.com/skyserver1508/skyserver-hosting/internal/service"
)

// RequestHandler handles the public submission flow and the user dashboard
type RequestHandler struct {
	lifecycle *service.LifecycleService
	logger    *slog.Logger
}

// NewRequestHandler creates a new RequestHandler
func NewRequestHandler(lifecycle *service.LifecycleService, logger *slog.Logger) *RequestHandler {
	return &RequestHandler{
		lifecycle: lifecycle,
		logger:    logger,
	}
}

// Submit handles POST /api/v1/requests. Retries should carry the same
// Idempotency-Key header; a replay returns the original record instead of
// creating a duplicate.
func (h *RequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var payload models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.WarnContext(r.Context(), "Invalid request body for submission", "error", err)
		respondError(w, http.StatusBadRequest, "Invalid request body", "validation_failed")
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")

	req, err := h.lifecycle.Submit(r.Context(), &payload, idempotencyKey)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Request submitted", "id", req.ID, "owner", req.Owner, "game", req.Game)
	respondJSON(w, http.StatusCreated, scrubCredentials(req))
}

// Status handles GET /api/v1/status: the public system status and slot
// availability snapshot for the landing page
func (h *RequestHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.lifecycle.Status(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// Me handles GET /api/v1/me
func (h *RequestHandler) Me(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, CurrentUser(r))
}

// MyRequests handles GET /api/v1/me/requests: the dashboard view, newest
// first, credentials included once active
func (h *RequestHandler) MyRequests(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)

	requests, err := h.lifecycle.ListForOwner(r.Context(), user.Email)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, requests)
}

// scrubCredentials strips panel credentials from a request before it is
// returned on an unauthenticated path
func scrubCredentials(req *models.ServerRequest) *models.ServerRequest {
	if req.Credentials == nil {
		return req
	}
	clean := *req
	clean.Credentials = nil
	return &clean
}
