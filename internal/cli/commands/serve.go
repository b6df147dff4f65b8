package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/skyserver1508/skyserver-hosting/internal/api/routes"
	"github.com/skyserver1508/skyserver-hosting/internal/service"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [port]",
	Short: "Start the REST API server",
	Long: `Start the REST API server for the hosting request workflow.

The server provides a REST API with Swagger documentation at /swagger/ and a
WebSocket event stream at /api/v1/events.
If no port is specified, it uses the API_PORT environment variable or defaults to 8080.`,
	Example: `  # Start on default port (8080 or API_PORT)
  skyserver serve

  # Start on specific port
  skyserver serve 9000`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		port := cfg.Port
		if len(args) > 0 {
			parsedPort, err := strconv.Atoi(args[0])
			if err != nil {
				logger.Error("Invalid port number", "port", args[0], "error", err)
				os.Exit(1)
			}
			port = parsedPort
		}

		logger.Info("Starting SkyServer Hosting Manager API",
			"port", port,
			"provisioner", cfg.Provisioner,
			"database_path", cfg.DatabasePath,
		)

		ctx, stop := context.WithCancel(context.Background())
		defer stop()

		svcs, cleanup := initializeServices(ctx)
		defer cleanup()

		// Notification collaborator: logs activations and terminations
		service.StartLogNotifier(ctx, svcs.events, logger)

		router := routes.NewRouter(routes.Services{
			Lifecycle: svcs.lifecycle,
			Capacity:  svcs.capacity,
			Auth:      svcs.auth,
			Events:    svcs.events,
		}, logger)

		srv := &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("API server listening", "port", port, "address", srv.Addr)
			logger.Info("Swagger UI available", "url", fmt.Sprintf("http://localhost:%d/swagger/", port))
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			logger.Error("Error starting server", "error", err)
			os.Exit(1)

		case sig := <-shutdown:
			logger.Info("Received shutdown signal, starting graceful shutdown", "signal", sig.String())

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Error during shutdown", "error", err)
				if err := srv.Close(); err != nil {
					logger.Error("Could not stop server gracefully", "error", err)
					os.Exit(1)
				}
			}

			logger.Info("Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
