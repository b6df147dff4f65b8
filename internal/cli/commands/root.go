package commands

import (
	"log/slog"
	"os"

	"github.com/skyserver1508/skyserver-hosting/internal/config"
	"github.com/spf13/cobra"
)

var (
	logger *slog.Logger
	cfg    *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "skyserver",
	Short: "SkyServer Hosting Manager",
	Long: `The request and approval backend for the SkyServer free game-server hosting service.

Visitors submit hosting requests for Minecraft, Terraria or Satisfactory,
admins review them against the slot inventory, and approved users read their
panel credentials from a personal dashboard. This tool provides the REST API
server and CLI commands for the same workflow.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Initialize logger for all commands
		logger = config.SetupLogger()

		var err error
		cfg, err = config.Load()
		if err != nil {
			logger.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringP("log-format", "f", "", "Log format (json, text)")
}
