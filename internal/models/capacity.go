package models

import "time"

// GameCapacity tracks the slot inventory for one game. ClaimedSlots is only
// ever moved by conditional updates so that 0 <= claimed <= total holds under
// concurrent approvals.
type GameCapacity struct {
	Game         Game      `json:"game" gorm:"primaryKey;type:varchar(20)"`
	TotalSlots   int       `json:"total_slots" gorm:"not null"`
	ClaimedSlots int       `json:"claimed_slots" gorm:"not null;default:0"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Available returns the number of unclaimed slots, never negative
func (c GameCapacity) Available() int {
	if n := c.TotalSlots - c.ClaimedSlots; n > 0 {
		return n
	}
	return 0
}
