package models

import (
	"strings"
	"time"
)

// Game identifies a supported game for hosting requests
type Game string

const (
	GameMinecraft    Game = "minecraft"
	GameSatisfactory Game = "satisfactory"
	GameTerraria     Game = "terraria"
)

// Games lists every supported game in display order
func Games() []Game {
	return []Game{GameMinecraft, GameSatisfactory, GameTerraria}
}

// Valid reports whether g is a known game
func (g Game) Valid() bool {
	switch g {
	case GameMinecraft, GameSatisfactory, GameTerraria:
		return true
	}
	return false
}

// MinecraftType identifies the server distribution for Minecraft requests
type MinecraftType string

const (
	MinecraftVanilla  MinecraftType = "vanilla"
	MinecraftPaper    MinecraftType = "paper"
	MinecraftFabric   MinecraftType = "fabric"
	MinecraftForge    MinecraftType = "forge"
	MinecraftNeoForge MinecraftType = "neoforge"
)

// Valid reports whether t is a known Minecraft server type
func (t MinecraftType) Valid() bool {
	switch t {
	case MinecraftVanilla, MinecraftPaper, MinecraftFabric, MinecraftForge, MinecraftNeoForge:
		return true
	}
	return false
}

// RequestStatus represents the lifecycle state of a hosting request
type RequestStatus string

const (
	StatusPending RequestStatus = "pending"
	// StatusApproved exists in stored data from earlier revisions but is
	// never produced; the lifecycle moves pending requests straight to
	// active or rejected.
	StatusApproved RequestStatus = "approved"
	StatusActive   RequestStatus = "active"
	StatusRejected RequestStatus = "rejected"
)

// Valid reports whether s is a known request status
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusActive, StatusRejected:
		return true
	}
	return false
}

// Credentials are the server panel credentials delivered to the owner once
// a request is active
type Credentials struct {
	PanelURL string `json:"panelUrl"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// ServerRequest represents a hosting request and, once active, its server
type ServerRequest struct {
	ID               string        `json:"id" gorm:"primaryKey"`
	// The partial unique index is the authoritative one-current-request-per-
	// owner guard; the service-level count is only a friendlier error.
	Owner            string        `json:"owner" gorm:"not null;index;index:idx_server_requests_current_owner,unique,where:status = 'pending' OR status = 'active'"`
	Name             string        `json:"name" gorm:"not null"`
	Email            string        `json:"email" gorm:"not null"`
	Discord          string        `json:"discord,omitempty"`
	Game             Game          `json:"game" gorm:"type:varchar(20);index;not null"`
	ServerName       string        `json:"server_name" gorm:"not null"`
	Message          string        `json:"message,omitempty"`
	MinecraftType    MinecraftType `json:"minecraft_type,omitempty" gorm:"type:varchar(20)"`
	MinecraftVersion string        `json:"minecraft_version,omitempty"`
	Status           RequestStatus `json:"status" gorm:"type:varchar(20);index"`
	Credentials      *Credentials  `json:"credentials,omitempty" gorm:"embedded;embeddedPrefix:credential_"`
	ContainerID      string        `json:"-" gorm:"index"`
	VolumeID         string        `json:"-"`
	IdempotencyKey   *string       `json:"-" gorm:"uniqueIndex"`
	CreatedAt        time.Time     `json:"created_date" gorm:"autoCreateTime"`
	UpdatedAt        time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// SubmitRequest represents the request body for submitting a hosting request
type SubmitRequest struct {
	Name             string        `json:"name"`
	Email            string        `json:"email"`
	Discord          string        `json:"discord,omitempty"`
	Game             Game          `json:"game"`
	ServerName       string        `json:"server_name"`
	Message          string        `json:"message,omitempty"`
	MinecraftType    MinecraftType `json:"minecraft_type,omitempty"`
	MinecraftVersion string        `json:"minecraft_version,omitempty"`
}

// Validate checks the required fields and the Minecraft-specific rules.
// Validation here is authoritative; client-side requiredness is a UX nicety.
func (p *SubmitRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(p.Email) == "" {
		missing = append(missing, "email")
	}
	if p.Game == "" {
		missing = append(missing, "game")
	}
	if strings.TrimSpace(p.ServerName) == "" {
		missing = append(missing, "server_name")
	}
	if len(missing) > 0 {
		return NewValidationError("missing required fields: " + strings.Join(missing, ", "))
	}
	if !p.Game.Valid() {
		return NewValidationError("unknown game: " + string(p.Game))
	}
	if p.Game == GameMinecraft {
		if strings.TrimSpace(p.MinecraftVersion) == "" {
			return NewValidationError("minecraft_version is required for minecraft requests")
		}
		if p.MinecraftType != "" && !p.MinecraftType.Valid() {
			return NewValidationError("unknown minecraft_type: " + string(p.MinecraftType))
		}
	}
	return nil
}

// RequestFilter narrows List results
type RequestFilter struct {
	Owner  string
	Status RequestStatus
	Search string
}
