package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// DockerService handles Docker operations for the docker provisioner
type DockerService struct {
	client *client.Client
	logger *slog.Logger
}

// NewDockerService creates a new Docker service
func NewDockerService(logger *slog.Logger) (*DockerService, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}

	return &DockerService{
		client: cli,
		logger: logger,
	}, nil
}

// Close closes the Docker client connection
func (s *DockerService) Close() error {
	return s.client.Close()
}

// Ping checks if the Docker daemon is accessible
func (s *DockerService) Ping(ctx context.Context) error {
	_, err := s.client.Ping(ctx)
	return err
}

// PullImage pulls a Docker image if it doesn't exist locally
func (s *DockerService) PullImage(ctx context.Context, imageName string) error {
	if _, _, err := s.client.ImageInspectWithRaw(ctx, imageName); err == nil {
		s.logger.InfoContext(ctx, "Image already exists locally", "image", imageName)
		return nil
	}

	s.logger.InfoContext(ctx, "Pulling Docker image", "image", imageName)
	reader, err := s.client.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to pull image", "image", imageName, "error", err)
		return fmt.Errorf("failed to pull image %s: %w", imageName, err)
	}
	defer reader.Close()

	// ImagePull is asynchronous; drain the output to wait for completion
	if _, err := io.Copy(io.Discard, reader); err != nil {
		s.logger.ErrorContext(ctx, "Error reading image pull output", "image", imageName, "error", err)
		return fmt.Errorf("error reading image pull output: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully pulled image", "image", imageName)
	return nil
}
