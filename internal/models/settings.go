package models

import "time"

// SystemStatus gates public request submission
type SystemStatus string

const (
	StatusOperational SystemStatus = "operational"
	StatusMaintenance SystemStatus = "maintenance"
)

// Valid reports whether s is a known system status
func (s SystemStatus) Valid() bool {
	return s == StatusOperational || s == StatusMaintenance
}

// Settings is the single-row shared configuration record
type Settings struct {
	ID           uint         `json:"-" gorm:"primaryKey"`
	SystemStatus SystemStatus `json:"system_status" gorm:"type:varchar(20);not null;default:operational"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
}

// UpdateSettingsRequest is the admin request body for changing settings
type UpdateSettingsRequest struct {
	SystemStatus SystemStatus `json:"system_status"`
}

// StatusResponse is the public snapshot served to the landing page and
// pushed over the event stream
type StatusResponse struct {
	SystemStatus SystemStatus   `json:"system_status"`
	Capacity     []GameCapacity `json:"capacity"`
}

// Stats summarizes request counts for the admin dashboard
type Stats struct {
	TotalRequests    int64          `json:"total_requests"`
	PendingRequests  int64          `json:"pending_requests"`
	ActiveServers    int64          `json:"active_servers"`
	RejectedRequests int64          `json:"rejected_requests"`
	Capacity         []GameCapacity `json:"capacity"`
}

// UpdateCapacityRequest is the admin request body for resizing a game's slots
type UpdateCapacityRequest struct {
	Game       Game `json:"game"`
	TotalSlots int  `json:"total_slots"`
}
