package service

import "github.com/skyserver1508/skyserver-hosting/internal/models"

// Storage ports. The gorm repositories in internal/database are the
// production implementations; tests may substitute anything that honors the
// same error taxonomy. Services never reach around these interfaces, so no
// global store can leak into the lifecycle logic.

// RequestStore is durable CRUD for hosting requests. Transition and
// DeleteInStatus must be atomic check-and-mutate operations so concurrent
// lifecycle calls on the same request cannot both pass the status
// precondition.
type RequestStore interface {
	Create(req *models.ServerRequest) error
	FindByID(id string) (*models.ServerRequest, error)
	FindByIdempotencyKey(key string) (*models.ServerRequest, error)
	List(filter models.RequestFilter) ([]*models.ServerRequest, error)
	HasCurrent(owner string) (bool, error)
	Transition(req *models.ServerRequest, from models.RequestStatus) error
	DeleteInStatus(id string, status models.RequestStatus) error
	DeleteByOwner(owner string) ([]*models.ServerRequest, error)
	CountByStatus() (map[models.RequestStatus]int64, error)
}

// CapacityStore is the slot ledger. TryClaim and Release must be atomic
// check-and-mutate operations.
type CapacityStore interface {
	Ensure(game models.Game, totalSlots int) error
	Get(game models.Game) (*models.GameCapacity, error)
	List() ([]models.GameCapacity, error)
	TryClaim(game models.Game) error
	Release(game models.Game) error
	SetTotal(game models.Game, totalSlots int) error
}

// UserStore is durable CRUD for accounts
type UserStore interface {
	Create(user *models.User) error
	FindByID(id string) (*models.User, error)
	FindByEmail(email string) (*models.User, error)
	FindAll() ([]*models.User, error)
	Update(user *models.User) error
	Delete(id string) error
}

// SessionStore holds bearer sessions
type SessionStore interface {
	Create(session *models.Session) error
	FindByToken(token string) (*models.Session, error)
	Delete(token string) error
}

// SettingsStore holds the shared configuration record
type SettingsStore interface {
	Get() (*models.Settings, error)
	SetStatus(status models.SystemStatus) error
}
