package commands

import (
	"context"
	"os"

	"github.com/skyserver1508/skyserver-hosting/internal/config"
	"github.com/skyserver1508/skyserver-hosting/internal/database"
	"github.com/skyserver1508/skyserver-hosting/internal/models"
	"github.com/skyserver1508/skyserver-hosting/internal/service"
)

// appServices bundles the wired service graph for commands
type appServices struct {
	db        *database.DB
	events    *service.Hub
	capacity  *service.CapacityService
	lifecycle *service.LifecycleService
	auth      *service.AuthService
}

// initializeServices wires the database, repositories and services, and
// seeds the capacity rows, settings and admin account
func initializeServices(ctx context.Context) (*appServices, func()) {
	db, err := database.New(cfg.DatabasePath, logger)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}

	requestRepo := database.NewRequestRepository(db)
	capacityRepo := database.NewCapacityRepository(db)
	userRepo := database.NewUserRepository(db)
	sessionRepo := database.NewSessionRepository(db)
	settingsRepo := database.NewSettingsRepository(db)

	events := service.NewHub(logger)
	capacity := service.NewCapacityService(capacityRepo, events, logger)
	auth := service.NewAuthService(userRepo, sessionRepo, logger)

	var cleanupDocker func()
	var provisioner service.Provisioner = service.ManualProvisioner{}
	if cfg.Provisioner == config.ProvisionerDocker {
		dockerService, err := service.NewDockerService(logger)
		if err != nil {
			db.Close()
			logger.Error("Failed to initialize Docker service", "error", err)
			os.Exit(1)
		}
		images := make(map[models.Game]string, len(models.Games()))
		for _, game := range models.Games() {
			images[game] = cfg.GameImage(game)
		}
		provisioner = service.NewDockerProvisioner(dockerService, service.DockerProvisionerConfig{
			PanelBaseURL: cfg.PanelBaseURL,
			Network:      cfg.DockerNetwork,
			Images:       images,
		}, logger)
		cleanupDocker = func() { dockerService.Close() }
		logger.Info("Docker provisioner initialized", "network", cfg.DockerNetwork)
	}

	lifecycle := service.NewLifecycleService(requestRepo, capacity, settingsRepo, provisioner, events, logger)

	if err := capacity.EnsureDefaults(ctx, cfg.Slots); err != nil {
		logger.Error("Failed to seed capacity rows", "error", err)
		os.Exit(1)
	}
	if _, err := settingsRepo.Get(); err != nil {
		logger.Error("Failed to seed settings", "error", err)
		os.Exit(1)
	}
	if err := auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.Error("Failed to seed admin account", "error", err)
		os.Exit(1)
	}

	cleanup := func() {
		if cleanupDocker != nil {
			cleanupDocker()
		}
		db.Close()
	}

	return &appServices{
		db:        db,
		events:    events,
		capacity:  capacity,
		lifecycle: lifecycle,
		auth:      auth,
	}, cleanup
}
