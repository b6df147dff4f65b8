package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/skyserver1508/skyserver-hosting/internal/models"
	"github.com/spf13/cobra"
)

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Manage hosting requests",
	Long:  `List, inspect, approve, reject, and terminate hosting requests.`,
}

var requestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List hosting requests",
	Long:  `List hosting requests, optionally filtered by status or owner.`,
	Example: `  skyserver request list
  skyserver request list --status pending
  skyserver request list --owner alex@example.com --output json`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		outputFormat, _ := cmd.Flags().GetString("output")
		status, _ := cmd.Flags().GetString("status")
		owner, _ := cmd.Flags().GetString("owner")

		svcs, cleanup := initializeServices(ctx)
		defer cleanup()

		filter := models.RequestFilter{Owner: owner}
		if status != "" {
			filter.Status = models.RequestStatus(status)
			if !filter.Status.Valid() {
				logger.Error("Invalid status filter", "status", status)
				os.Exit(1)
			}
		}

		requests, err := svcs.lifecycle.List(ctx, filter)
		if err != nil {
			logger.Error("Failed to list requests", "error", err)
			os.Exit(1)
		}

		if outputFormat == "json" {
			data, _ := json.MarshalIndent(requests, "", "  ")
			fmt.Println(string(data))
			return
		}

		if len(requests) == 0 {
			fmt.Println("No requests found.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tOWNER\tGAME\tSERVER NAME\tSTATUS\tCREATED")
		for _, req := range requests {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				req.ID[:8]+"...",
				req.Owner,
				req.Game,
				req.ServerName,
				req.Status,
				req.CreatedAt.Format("2006-01-02 15:04"),
			)
		}
		w.Flush()
	},
}

var requestInfoCmd = &cobra.Command{
	Use:   "info <request-id>",
	Short: "Show detailed information about a request",
	Long:  `Display detailed information about a specific hosting request.`,
	Example: `  skyserver request info abc123...
  skyserver request info abc123... --output json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requestID := args[0]
		ctx := context.Background()
		outputFormat, _ := cmd.Flags().GetString("output")

		svcs, cleanup := initializeServices(ctx)
		defer cleanup()

		req, err := svcs.lifecycle.Get(ctx, requestID)
		if err != nil {
			logger.Error("Failed to get request", "error", err)
			os.Exit(1)
		}

		if outputFormat == "json" {
			data, _ := json.MarshalIndent(req, "", "  ")
			fmt.Println(string(data))
			return
		}

		fmt.Printf("\nRequest Information:\n")
		fmt.Printf("===================\n\n")
		fmt.Printf("ID:          %s\n", req.ID)
		fmt.Printf("Owner:       %s\n", req.Owner)
		fmt.Printf("Name:        %s\n", req.Name)
		fmt.Printf("Discord:     %s\n", req.Discord)
		fmt.Printf("Game:        %s\n", req.Game)
		fmt.Printf("Server Name: %s\n", req.ServerName)
		if req.Game == models.GameMinecraft {
			fmt.Printf("MC Type:     %s\n", req.MinecraftType)
			fmt.Printf("MC Version:  %s\n", req.MinecraftVersion)
		}
		fmt.Printf("Status:      %s\n", req.Status)
		if req.Credentials != nil {
			fmt.Printf("Panel URL:   %s\n", req.Credentials.PanelURL)
			fmt.Printf("Username:    %s\n", req.Credentials.Username)
		}
		fmt.Printf("Created:     %s\n", req.CreatedAt.Format(time.RFC1123))
		fmt.Println()
	},
}

var requestApproveCmd = &cobra.Command{
	Use:   "approve <request-id>",
	Short: "Approve a pending request",
	Long: `Approve a pending hosting request, claiming a capacity slot for its game.

With the manual provisioner, panel credentials must be supplied via flags.
With the docker provisioner, omit the flags and a server is provisioned
automatically.`,
	Example: `  # Docker provisioner: credentials are generated
  skyserver request approve abc123...

  # Manual provisioner: supply panel credentials
  skyserver request approve abc123... --panel-url https://panel.example.org --username alex --password s3cret`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requestID := args[0]
		ctx := context.Background()

		panelURL, _ := cmd.Flags().GetString("panel-url")
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")

		var creds *models.Credentials
		if panelURL != "" || username != "" || password != "" {
			creds = &models.Credentials{
				PanelURL: panelURL,
				Username: username,
				Password: password,
			}
		}

		svcs, cleanup := initializeServices(ctx)
		defer cleanup()

		logger.Info("Approving request", "id", requestID)
		req, err := svcs.lifecycle.Approve(ctx, requestID, creds)
		if err != nil {
			logger.Error("Failed to approve request", "error", err)
			os.Exit(1)
		}

		logger.Info("Request approved", "id", req.ID, "game", req.Game)
		fmt.Printf("✓ Request %s approved, server is active!\n", req.ID)
		if req.Credentials != nil {
			fmt.Printf("\nPanel URL: %s\n", req.Credentials.PanelURL)
			fmt.Printf("Username:  %s\n", req.Credentials.Username)
			fmt.Printf("Password:  %s\n", req.Credentials.Password)
		}
	},
}

var requestRejectCmd = &cobra.Command{
	Use:     "reject <request-id>",
	Short:   "Reject a pending request",
	Long:    `Reject a pending hosting request. No capacity slot is consumed.`,
	Example: `  skyserver request reject abc123...`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requestID := args[0]
		ctx := context.Background()

		svcs, cleanup := initializeServices(ctx)
		defer cleanup()

		logger.Info("Rejecting request", "id", requestID)
		req, err := svcs.lifecycle.Reject(ctx, requestID)
		if err != nil {
			logger.Error("Failed to reject request", "error", err)
			os.Exit(1)
		}

		logger.Info("Request rejected", "id", req.ID)
		fmt.Printf("✓ Request %s rejected.\n", req.ID)
	},
}

var requestTerminateCmd = &cobra.Command{
	Use:   "terminate <request-id>",
	Short: "Terminate an active server",
	Long:  `Terminate an active server, releasing its capacity slot and deleting the request.`,
	Example: `  skyserver request terminate abc123...
  skyserver request terminate abc123... --force`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requestID := args[0]
		force, _ := cmd.Flags().GetBool("force")
		ctx := context.Background()

		if !force {
			fmt.Printf("⚠ Are you sure you want to terminate server %s? This will remove all data. [y/N]: ", requestID)
			var response string
			fmt.Scanln(&response)
			if response != "y" && response != "Y" {
				fmt.Println("Cancelled.")
				return
			}
		}

		svcs, cleanup := initializeServices(ctx)
		defer cleanup()

		logger.Info("Terminating server", "id", requestID)
		if err := svcs.lifecycle.Terminate(ctx, requestID); err != nil {
			logger.Error("Failed to terminate server", "error", err)
			os.Exit(1)
		}

		logger.Info("Server terminated", "id", requestID)
		fmt.Printf("✓ Server %s terminated, slot released.\n", requestID)
	},
}

func init() {
	rootCmd.AddCommand(requestCmd)

	requestCmd.AddCommand(requestListCmd)
	requestListCmd.Flags().StringP("output", "o", "table", "Output format (table, json)")
	requestListCmd.Flags().StringP("status", "s", "", "Filter by status (pending, active, rejected)")
	requestListCmd.Flags().String("owner", "", "Filter by owner email")

	requestCmd.AddCommand(requestInfoCmd)
	requestInfoCmd.Flags().StringP("output", "o", "table", "Output format (table, json)")

	requestCmd.AddCommand(requestApproveCmd)
	requestApproveCmd.Flags().String("panel-url", "", "Panel URL for manually provisioned servers")
	requestApproveCmd.Flags().StringP("username", "u", "", "Panel username")
	requestApproveCmd.Flags().StringP("password", "p", "", "Panel password")

	requestCmd.AddCommand(requestRejectCmd)

	requestCmd.AddCommand(requestTerminateCmd)
	requestTerminateCmd.Flags().BoolP("force", "f", false, "Skip confirmation prompt")
}
