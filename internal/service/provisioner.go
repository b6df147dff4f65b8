package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/volume"
	"github.com/skyserver1508/skyserver-hosting/internal/models"
)

// Provisioner turns an approved request into a running server and panel
// credentials. The lifecycle calls Provision only when the admin supplied no
// credentials, and Deprovision on terminate.
type Provisioner interface {
	Provision(ctx context.Context, req *models.ServerRequest) (*models.Credentials, error)
	Deprovision(ctx context.Context, req *models.ServerRequest) error
}

// ManualProvisioner is the default: servers are set up by hand and the admin
// records the panel credentials during approval
type ManualProvisioner struct{}

// Provision always fails; the admin must supply credentials
func (ManualProvisioner) Provision(ctx context.Context, req *models.ServerRequest) (*models.Credentials, error) {
	return nil, models.NewValidationError("credentials are required, the manual provisioner cannot generate them")
}

// Deprovision is a no-op for manually managed servers
func (ManualProvisioner) Deprovision(ctx context.Context, req *models.ServerRequest) error {
	return nil
}

// DockerProvisionerConfig carries the settings the docker provisioner needs
type DockerProvisionerConfig struct {
	PanelBaseURL string
	Network      string
	Images       map[models.Game]string
}

// DockerProvisioner creates one container plus volume per approved request
// and derives panel credentials from the owner's email and a generated
// password
type DockerProvisioner struct {
	docker *DockerService
	cfg    DockerProvisionerConfig
	logger *slog.Logger
}

// NewDockerProvisioner creates a docker-backed provisioner
func NewDockerProvisioner(docker *DockerService, cfg DockerProvisionerConfig, logger *slog.Logger) *DockerProvisioner {
	return &DockerProvisioner{
		docker: docker,
		cfg:    cfg,
		logger: logger,
	}
}

// Provision creates the volume and container for the request, starts the
// container and returns generated credentials. Partially created resources
// are removed on failure.
func (p *DockerProvisioner) Provision(ctx context.Context, req *models.ServerRequest) (*models.Credentials, error) {
	imageName := p.cfg.Images[req.Game]
	if imageName == "" {
		return nil, models.NewValidationError("no image configured for game " + string(req.Game))
	}

	volumeName := fmt.Sprintf("svr-%s", req.ID)
	vol, err := p.docker.client.VolumeCreate(ctx, volume.CreateOptions{
		Name: volumeName,
		Labels: map[string]string{
			"skyserver-request-id": req.ID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create volume: %w", err)
	}

	if err := p.docker.PullImage(ctx, imageName); err != nil {
		p.docker.client.VolumeRemove(ctx, vol.Name, true)
		return nil, err
	}

	containerConfig := &container.Config{
		Image: imageName,
		Env:   p.containerEnv(req),
		Labels: map[string]string{
			"skyserver-request-id": req.ID,
			"skyserver-owner":      req.Owner,
			"skyserver-game":       string(req.Game),
		},
	}
	hostConfig := &container.HostConfig{
		Binds: []string{
			fmt.Sprintf("%s:/data", vol.Name),
		},
		NetworkMode: container.NetworkMode(p.cfg.Network),
		RestartPolicy: container.RestartPolicy{
			Name: "unless-stopped",
		},
	}

	resp, err := p.docker.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, volumeName)
	if err != nil {
		p.docker.client.VolumeRemove(ctx, vol.Name, true)
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	if err := p.docker.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		p.docker.client.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		p.docker.client.VolumeRemove(ctx, vol.Name, true)
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	req.ContainerID = resp.ID
	req.VolumeID = vol.Name

	password, err := generatePassword()
	if err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "Server provisioned",
		"request_id", req.ID, "container_id", resp.ID, "image", imageName)

	return &models.Credentials{
		PanelURL: p.cfg.PanelBaseURL,
		Username: req.Owner,
		Password: password,
	}, nil
}

// Deprovision stops and removes the request's container and volume.
// Requests provisioned outside Docker carry no container id and are left
// alone.
func (p *DockerProvisioner) Deprovision(ctx context.Context, req *models.ServerRequest) error {
	if req.ContainerID == "" {
		return nil
	}

	timeout := 30
	p.docker.client.ContainerStop(ctx, req.ContainerID, container.StopOptions{
		Timeout: &timeout,
	})

	if err := p.docker.client.ContainerRemove(ctx, req.ContainerID, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	if req.VolumeID != "" {
		if err := p.docker.client.VolumeRemove(ctx, req.VolumeID, true); err != nil {
			return fmt.Errorf("failed to remove volume: %w", err)
		}
	}

	p.logger.InfoContext(ctx, "Server deprovisioned", "request_id", req.ID, "container_id", req.ContainerID)
	return nil
}

func (p *DockerProvisioner) containerEnv(req *models.ServerRequest) []string {
	env := []string{
		fmt.Sprintf("SERVER_NAME=%s", req.ServerName),
	}
	if req.Game == models.GameMinecraft {
		env = append(env,
			"EULA=TRUE",
			fmt.Sprintf("TYPE=%s", strings.ToUpper(string(req.MinecraftType))),
			fmt.Sprintf("VERSION=%s", req.MinecraftVersion),
			fmt.Sprintf("MOTD=%s", req.ServerName),
		)
	}
	return env
}

// generatePassword returns a random 32-character hex string
func generatePassword() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
