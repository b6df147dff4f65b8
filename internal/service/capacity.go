package service

import (
	"context"
	"log/slog"

	"github.com/skyserver1508/skyserver-hosting/internal/models"
)

// CapacityService fronts the slot ledger and announces changes on the hub
type CapacityService struct {
	store  CapacityStore
	events *Hub
	logger *slog.Logger
}

// NewCapacityService creates a new capacity service
func NewCapacityService(store CapacityStore, events *Hub, logger *slog.Logger) *CapacityService {
	return &CapacityService{
		store:  store,
		events: events,
		logger: logger,
	}
}

// EnsureDefaults seeds capacity rows for every supported game. Existing rows
// keep their configured totals.
func (s *CapacityService) EnsureDefaults(ctx context.Context, slots map[models.Game]int) error {
	for _, game := range models.Games() {
		if err := s.store.Ensure(game, slots[game]); err != nil {
			return err
		}
	}
	return nil
}

// Available returns the number of unclaimed slots for a game
func (s *CapacityService) Available(ctx context.Context, game models.Game) (int, error) {
	row, err := s.store.Get(game)
	if err != nil {
		return 0, err
	}
	return row.Available(), nil
}

// Snapshot returns the full slot ledger
func (s *CapacityService) Snapshot(ctx context.Context) ([]models.GameCapacity, error) {
	return s.store.List()
}

// TryClaim takes one slot for the game, failing with ErrCapacityExhausted
// when none are free
func (s *CapacityService) TryClaim(ctx context.Context, game models.Game) error {
	if err := s.store.TryClaim(game); err != nil {
		return err
	}
	s.emitChanged(game)
	return nil
}

// Release returns one slot for the game
func (s *CapacityService) Release(ctx context.Context, game models.Game) error {
	if err := s.store.Release(game); err != nil {
		return err
	}
	s.emitChanged(game)
	return nil
}

// SetTotal resizes a game's slot inventory
func (s *CapacityService) SetTotal(ctx context.Context, game models.Game, totalSlots int) error {
	if !game.Valid() {
		return models.NewValidationError("unknown game: " + string(game))
	}
	if err := s.store.SetTotal(game, totalSlots); err != nil {
		return err
	}
	s.emitChanged(game)
	return nil
}

func (s *CapacityService) emitChanged(game models.Game) {
	row, err := s.store.Get(game)
	if err != nil {
		s.logger.Warn("Failed to read capacity for event payload", "game", game, "error", err)
		s.events.Emit(EventCapacityChanged, map[string]any{"game": game})
		return
	}
	s.events.Emit(EventCapacityChanged, row)
}
