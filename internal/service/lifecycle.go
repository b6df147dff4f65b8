package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/skyserver1508/skyserver-hosting/internal/models"
)

// LifecycleService is the state machine tying the request store and the
// capacity ledger together:
//
//	pending --approve--> active    (claims a slot)
//	pending --reject---> rejected  (no slot effect)
//	active  --terminate-> deleted  (releases the slot)
//
// Slot policy is claim-at-approval: submission never touches the ledger and
// Approve is the only claimer. Every operation is all-or-nothing; a claim
// taken for a transition that later fails is released before returning.
type LifecycleService struct {
	requests    RequestStore
	capacity    *CapacityService
	settings    SettingsStore
	provisioner Provisioner
	events      *Hub
	logger      *slog.Logger
}

// NewLifecycleService creates a new lifecycle service
func NewLifecycleService(
	requests RequestStore,
	capacity *CapacityService,
	settings SettingsStore,
	provisioner Provisioner,
	events *Hub,
	logger *slog.Logger,
) *LifecycleService {
	return &LifecycleService{
		requests:    requests,
		capacity:    capacity,
		settings:    settings,
		provisioner: provisioner,
		events:      events,
		logger:      logger,
	}
}

// Submit validates and creates a pending hosting request. An optional
// idempotency key makes retries safe: a replay returns the record created by
// the first attempt instead of a duplicate.
func (s *LifecycleService) Submit(ctx context.Context, payload *models.SubmitRequest, idempotencyKey string) (*models.ServerRequest, error) {
	settings, err := s.settings.Get()
	if err != nil {
		return nil, err
	}
	if settings.SystemStatus == models.StatusMaintenance {
		return nil, fmt.Errorf("requests are temporarily disabled: %w", models.ErrMaintenance)
	}

	if err := payload.Validate(); err != nil {
		return nil, err
	}

	if idempotencyKey != "" {
		existing, err := s.requests.FindByIdempotencyKey(idempotencyKey)
		if err == nil {
			s.logger.InfoContext(ctx, "Idempotent resubmission, returning existing request",
				"id", existing.ID, "owner", existing.Owner)
			return existing, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
	}

	// Pre-check for a friendly message; the partial unique index on owner
	// is the authoritative guard and Create reports a lost race below.
	owner := strings.ToLower(strings.TrimSpace(payload.Email))
	hasCurrent, err := s.requests.HasCurrent(owner)
	if err != nil {
		return nil, err
	}
	if hasCurrent {
		return nil, fmt.Errorf("%w: a request for %s is already pending or active", models.ErrConflict, owner)
	}

	req := &models.ServerRequest{
		ID:         uuid.New().String(),
		Owner:      owner,
		Name:       strings.TrimSpace(payload.Name),
		Email:      strings.TrimSpace(payload.Email),
		Discord:    strings.TrimSpace(payload.Discord),
		Game:       payload.Game,
		ServerName: strings.TrimSpace(payload.ServerName),
		Message:    payload.Message,
		Status:     models.StatusPending,
	}
	if payload.Game == models.GameMinecraft {
		req.MinecraftType = payload.MinecraftType
		if req.MinecraftType == "" {
			req.MinecraftType = models.MinecraftVanilla
		}
		req.MinecraftVersion = strings.TrimSpace(payload.MinecraftVersion)
	}
	if idempotencyKey != "" {
		key := idempotencyKey
		req.IdempotencyKey = &key
	}

	if err := s.requests.Create(req); err != nil {
		if errors.Is(err, models.ErrConflict) {
			// Either a concurrent retry with the same idempotency key won
			// the insert, or a concurrent submission for the same owner
			// did. The former is a replay, the latter a conflict.
			if idempotencyKey != "" {
				if existing, ferr := s.requests.FindByIdempotencyKey(idempotencyKey); ferr == nil {
					s.logger.InfoContext(ctx, "Idempotent resubmission, returning existing request",
						"id", existing.ID, "owner", existing.Owner)
					return existing, nil
				}
			}
			return nil, fmt.Errorf("%w: a request for %s is already pending or active", models.ErrConflict, owner)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "Request submitted", "id", req.ID, "owner", req.Owner, "game", req.Game)
	s.events.Emit(EventRequestSubmitted, RequestEvent{ID: req.ID, Game: req.Game, Status: req.Status})
	return req, nil
}

// Approve moves a pending request to active, claiming a slot and attaching
// panel credentials. With the docker provisioner configured, a nil
// credentials argument provisions a server and generates them. Failure at
// any step leaves the request pending and the slot unclaimed. The final
// persist is a conditional update on status, so a concurrent approval of
// the same request activates it exactly once; the loser's claim is
// released.
func (s *LifecycleService) Approve(ctx context.Context, id string, creds *models.Credentials) (*models.ServerRequest, error) {
	req, err := s.requests.FindByID(id)
	if err != nil {
		return nil, err
	}
	if req.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: cannot approve a %s request", models.ErrInvalidTransition, req.Status)
	}
	if creds != nil {
		if strings.TrimSpace(creds.Password) == "" {
			return nil, models.NewValidationError("credentials password must not be empty")
		}
		if strings.TrimSpace(creds.Username) == "" {
			creds.Username = req.Owner
		}
	}

	if err := s.capacity.TryClaim(ctx, req.Game); err != nil {
		return nil, err
	}

	provisioned := false
	if creds == nil {
		creds, err = s.provisioner.Provision(ctx, req)
		if err != nil {
			s.releaseClaim(ctx, req.Game)
			return nil, fmt.Errorf("provisioning failed: %w", err)
		}
		provisioned = true
	}

	req.Status = models.StatusActive
	req.Credentials = creds
	if err := s.requests.Transition(req, models.StatusPending); err != nil {
		if provisioned {
			if derr := s.provisioner.Deprovision(ctx, req); derr != nil {
				s.logger.ErrorContext(ctx, "Failed to roll back provisioned server", "id", req.ID, "error", derr)
			}
		}
		s.releaseClaim(ctx, req.Game)
		return nil, err
	}

	s.logger.InfoContext(ctx, "Request approved", "id", req.ID, "owner", req.Owner, "game", req.Game)
	s.events.Emit(EventRequestActivated, RequestEvent{ID: req.ID, Game: req.Game, Status: req.Status})
	return req, nil
}

// Reject moves a pending request to rejected. The ledger is untouched.
func (s *LifecycleService) Reject(ctx context.Context, id string) (*models.ServerRequest, error) {
	req, err := s.requests.FindByID(id)
	if err != nil {
		return nil, err
	}
	if req.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: cannot reject a %s request", models.ErrInvalidTransition, req.Status)
	}

	req.Status = models.StatusRejected
	if err := s.requests.Transition(req, models.StatusPending); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Request rejected", "id", req.ID, "owner", req.Owner)
	s.events.Emit(EventRequestRejected, RequestEvent{ID: req.ID, Game: req.Game, Status: req.Status})
	return req, nil
}

// Terminate tears down an active server, deletes the request and releases
// its slot. The delete is conditional on the request still being active, so
// concurrent terminations of the same server release exactly one slot. If
// the release fails after the delete the slot stays claimed; the error is
// surfaced and the ledger errs on the side of over-claiming.
func (s *LifecycleService) Terminate(ctx context.Context, id string) error {
	req, err := s.requests.FindByID(id)
	if err != nil {
		return err
	}
	if req.Status != models.StatusActive {
		return fmt.Errorf("%w: cannot terminate a %s request", models.ErrInvalidTransition, req.Status)
	}

	if err := s.provisioner.Deprovision(ctx, req); err != nil {
		return fmt.Errorf("deprovisioning failed: %w", err)
	}

	if err := s.requests.DeleteInStatus(id, models.StatusActive); err != nil {
		return err
	}
	if err := s.capacity.Release(ctx, req.Game); err != nil {
		s.logger.ErrorContext(ctx, "Failed to release slot after delete",
			"id", id, "game", req.Game, "error", err)
		return err
	}

	s.logger.InfoContext(ctx, "Server terminated", "id", req.ID, "owner", req.Owner, "game", req.Game)
	s.events.Emit(EventRequestTerminated, RequestEvent{ID: req.ID, Game: req.Game})
	return nil
}

// Get returns one request by id
func (s *LifecycleService) Get(ctx context.Context, id string) (*models.ServerRequest, error) {
	return s.requests.FindByID(id)
}

// List returns requests matching the filter, newest first
func (s *LifecycleService) List(ctx context.Context, filter models.RequestFilter) ([]*models.ServerRequest, error) {
	return s.requests.List(filter)
}

// ListForOwner returns the owner's requests, newest first. The user
// dashboard reads these by owner key; users never carry request copies.
func (s *LifecycleService) ListForOwner(ctx context.Context, owner string) ([]*models.ServerRequest, error) {
	return s.requests.List(models.RequestFilter{Owner: strings.ToLower(strings.TrimSpace(owner))})
}

// PurgeOwner removes every request of an owner, deprovisioning and releasing
// slots for the active ones. Used when an account is deleted.
func (s *LifecycleService) PurgeOwner(ctx context.Context, owner string) error {
	deleted, err := s.requests.DeleteByOwner(strings.ToLower(strings.TrimSpace(owner)))
	if err != nil {
		return err
	}
	for _, req := range deleted {
		if req.Status != models.StatusActive {
			continue
		}
		if derr := s.provisioner.Deprovision(ctx, req); derr != nil {
			s.logger.ErrorContext(ctx, "Failed to deprovision during purge", "id", req.ID, "error", derr)
		}
		if rerr := s.capacity.Release(ctx, req.Game); rerr != nil {
			s.logger.ErrorContext(ctx, "Failed to release slot during purge", "id", req.ID, "error", rerr)
		}
		s.events.Emit(EventRequestTerminated, RequestEvent{ID: req.ID, Game: req.Game})
	}
	return nil
}

// Stats summarizes request counts and the slot ledger for the admin overview
func (s *LifecycleService) Stats(ctx context.Context) (*models.Stats, error) {
	counts, err := s.requests.CountByStatus()
	if err != nil {
		return nil, err
	}
	capacity, err := s.capacity.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	stats := &models.Stats{
		PendingRequests:  counts[models.StatusPending],
		ActiveServers:    counts[models.StatusActive],
		RejectedRequests: counts[models.StatusRejected],
		Capacity:         capacity,
	}
	for _, n := range counts {
		stats.TotalRequests += n
	}
	return stats, nil
}

// Status returns the public snapshot: system status plus slot availability
func (s *LifecycleService) Status(ctx context.Context) (*models.StatusResponse, error) {
	settings, err := s.settings.Get()
	if err != nil {
		return nil, err
	}
	capacity, err := s.capacity.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &models.StatusResponse{
		SystemStatus: settings.SystemStatus,
		Capacity:     capacity,
	}, nil
}

// SetSystemStatus flips the maintenance gate and announces the change
func (s *LifecycleService) SetSystemStatus(ctx context.Context, status models.SystemStatus) error {
	if err := s.settings.SetStatus(status); err != nil {
		return err
	}
	s.events.Emit(EventStatusChanged, map[string]models.SystemStatus{"system_status": status})
	return nil
}

func (s *LifecycleService) releaseClaim(ctx context.Context, game models.Game) {
	if err := s.capacity.Release(ctx, game); err != nil {
		s.logger.ErrorContext(ctx, "Failed to release slot after aborted approval", "game", game, "error", err)
	}
}
