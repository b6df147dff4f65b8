package database

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/skyserver1508/skyserver-hosting/internal/models"
	"gorm.io/gorm"
)

// RequestRepository provides database operations for ServerRequest
type RequestRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *DB) *RequestRepository {
	return &RequestRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

// Create inserts a new request into the database. A unique-constraint hit
// (the partial current-owner index or the idempotency key) surfaces as
// ErrConflict so the caller can tell a lost race from a storage outage.
func (r *RequestRepository) Create(req *models.ServerRequest) error {
	result := r.db.Create(req)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: request already exists", models.ErrConflict)
		}
		r.logger.Error("Failed to create request in database", "error", result.Error)
		return wrapStorage("create request", result.Error)
	}
	r.logger.Debug("Request created in database", "id", req.ID, "owner", req.Owner)
	return nil
}

// FindByID retrieves a request by its ID
func (r *RequestRepository) FindByID(id string) (*models.ServerRequest, error) {
	var req models.ServerRequest
	result := r.db.First(&req, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("request %s: %w", id, models.ErrNotFound)
		}
		r.logger.Error("Failed to find request by ID", "id", id, "error", result.Error)
		return nil, wrapStorage("find request", result.Error)
	}
	return &req, nil
}

// FindByIdempotencyKey retrieves the request created under a given
// idempotency key, if any
func (r *RequestRepository) FindByIdempotencyKey(key string) (*models.ServerRequest, error) {
	var req models.ServerRequest
	result := r.db.First(&req, "idempotency_key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("idempotency key: %w", models.ErrNotFound)
		}
		r.logger.Error("Failed to find request by idempotency key", "error", result.Error)
		return nil, wrapStorage("find request", result.Error)
	}
	return &req, nil
}

// List retrieves requests matching the filter, newest first. The ordering
// (created_at descending, id as tiebreaker) is a stable contract the admin
// table and user dashboard rely on.
func (r *RequestRepository) List(filter models.RequestFilter) ([]*models.ServerRequest, error) {
	query := r.db.Model(&models.ServerRequest{})
	if filter.Owner != "" {
		query = query.Where("owner = ?", filter.Owner)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where(
			"name LIKE ? OR email LIKE ? OR server_name LIKE ? OR discord LIKE ?",
			like, like, like, like,
		)
	}

	var requests []*models.ServerRequest
	result := query.Order("created_at DESC, id DESC").Find(&requests)
	if result.Error != nil {
		r.logger.Error("Failed to list requests", "error", result.Error)
		return nil, wrapStorage("list requests", result.Error)
	}
	return requests, nil
}

// HasCurrent reports whether the owner already has a pending or active
// request. This is the server-side guard behind the one-request-per-owner
// rule; the landing page's own submitted flag is only a UX nicety.
func (r *RequestRepository) HasCurrent(owner string) (bool, error) {
	var count int64
	result := r.db.Model(&models.ServerRequest{}).
		Where("owner = ? AND status IN ?", owner, []models.RequestStatus{models.StatusPending, models.StatusActive}).
		Count(&count)
	if result.Error != nil {
		r.logger.Error("Failed to count current requests", "owner", owner, "error", result.Error)
		return false, wrapStorage("count requests", result.Error)
	}
	return count > 0, nil
}

// Transition persists a status change only while the stored status still
// matches from. Like CapacityRepository.TryClaim, the WHERE clause is the
// compare half of a compare-and-swap: a concurrent transition on the same
// request makes the loser's update affect zero rows instead of silently
// overwriting the winner's state.
func (r *RequestRepository) Transition(req *models.ServerRequest, from models.RequestStatus) error {
	updates := map[string]interface{}{
		"status":       req.Status,
		"container_id": req.ContainerID,
		"volume_id":    req.VolumeID,
	}
	if req.Credentials != nil {
		updates["credential_panel_url"] = req.Credentials.PanelURL
		updates["credential_username"] = req.Credentials.Username
		updates["credential_password"] = req.Credentials.Password
	}

	result := r.db.Model(&models.ServerRequest{}).
		Where("id = ? AND status = ?", req.ID, from).
		Updates(updates)
	if result.Error != nil {
		r.logger.Error("Failed to transition request", "id", req.ID, "error", result.Error)
		return wrapStorage("transition request", result.Error)
	}
	if result.RowsAffected == 0 {
		current, err := r.FindByID(req.ID)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: request is %s, not %s", models.ErrInvalidTransition, current.Status, from)
	}
	r.logger.Debug("Request transitioned", "id", req.ID, "from", from, "to", req.Status)
	return nil
}

// DeleteInStatus removes a request only while its stored status still
// matches status, the delete-shaped counterpart of Transition. An unknown id
// returns ErrNotFound so a stale admin view gets a refresh signal; a status
// moved by a concurrent transition returns ErrInvalidTransition.
func (r *RequestRepository) DeleteInStatus(id string, status models.RequestStatus) error {
	result := r.db.Delete(&models.ServerRequest{}, "id = ? AND status = ?", id, status)
	if result.Error != nil {
		r.logger.Error("Failed to delete request", "id", id, "error", result.Error)
		return wrapStorage("delete request", result.Error)
	}
	if result.RowsAffected == 0 {
		current, err := r.FindByID(id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: request is %s, not %s", models.ErrInvalidTransition, current.Status, status)
	}
	r.logger.Debug("Request deleted from database", "id", id)
	return nil
}

// DeleteByOwner removes every request belonging to an owner and returns the
// deleted records so the caller can reverse slot claims for active ones
func (r *RequestRepository) DeleteByOwner(owner string) ([]*models.ServerRequest, error) {
	requests, err := r.List(models.RequestFilter{Owner: owner})
	if err != nil {
		return nil, err
	}
	result := r.db.Delete(&models.ServerRequest{}, "owner = ?", owner)
	if result.Error != nil {
		r.logger.Error("Failed to delete requests by owner", "owner", owner, "error", result.Error)
		return nil, wrapStorage("delete requests", result.Error)
	}
	return requests, nil
}

// CountByStatus returns the number of requests per status
func (r *RequestRepository) CountByStatus() (map[models.RequestStatus]int64, error) {
	type row struct {
		Status models.RequestStatus
		N      int64
	}
	var rows []row
	result := r.db.Model(&models.ServerRequest{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows)
	if result.Error != nil {
		r.logger.Error("Failed to count requests by status", "error", result.Error)
		return nil, wrapStorage("count requests", result.Error)
	}
	counts := make(map[models.RequestStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.N
	}
	return counts, nil
}
