package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/skyserver1508/skyserver-hosting/internal/models"
)

// Provisioner selection for approved requests
const (
	ProvisionerManual = "manual"
	ProvisionerDocker = "docker"
)

// Config holds the application configuration
type Config struct {
	Port         int
	DatabasePath string

	// Admin account seeded at startup; seeding is skipped when the
	// password is empty
	AdminEmail    string
	AdminPassword string

	// Panel URL handed out by the docker provisioner
	PanelBaseURL string

	// Provisioner is "manual" (admin supplies panel credentials) or
	// "docker" (a container is created and credentials are generated)
	Provisioner       string
	DockerNetwork     string
	MinecraftImage    string
	TerrariaImage     string
	SatisfactoryImage string

	// Initial slot inventory per game; applied only when a game has no
	// capacity row yet, so admin resizes survive restarts
	Slots map[models.Game]int
}

// Load reads configuration from the environment (and an optional .env file)
// with defaults
func Load() (*Config, error) {
	// .env is optional; real env vars win
	_ = godotenv.Load()

	cfg := &Config{
		Port:              envInt("API_PORT", 8080),
		DatabasePath:      envString("DATABASE_PATH", "./data/skyserver.db"),
		AdminEmail:        envString("ADMIN_EMAIL", "admin@skyserver1508.org"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		PanelBaseURL:      envString("PANEL_BASE_URL", "https://panel.skyserver1508.org"),
		Provisioner:       envString("PROVISIONER", ProvisionerManual),
		DockerNetwork:     envString("DOCKER_NETWORK", "skyserver-network"),
		MinecraftImage:    envString("MINECRAFT_IMAGE", "itzg/minecraft-server:latest"),
		TerrariaImage:     envString("TERRARIA_IMAGE", "ryshe/terraria:latest"),
		SatisfactoryImage: envString("SATISFACTORY_IMAGE", "wolveix/satisfactory-server:latest"),
		Slots: map[models.Game]int{
			models.GameMinecraft:    envInt("SLOTS_MINECRAFT", 5),
			models.GameTerraria:     envInt("SLOTS_TERRARIA", 5),
			models.GameSatisfactory: envInt("SLOTS_SATISFACTORY", 3),
		},
	}
	return cfg, nil
}

// GameImage returns the container image configured for a game
func (c *Config) GameImage(game models.Game) string {
	switch game {
	case models.GameTerraria:
		return c.TerrariaImage
	case models.GameSatisfactory:
		return c.SatisfactoryImage
	default:
		return c.MinecraftImage
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
