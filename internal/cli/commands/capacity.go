package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/skyserver1508/skyserver-hosting/internal/models"
	"github.com/spf13/cobra"
)

var capacityCmd = &cobra.Command{
	Use:   "capacity",
	Short: "Manage the slot ledger",
	Long:  `Inspect and resize the per-game capacity slot ledger.`,
}

var capacityShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show slot usage per game",
	Example: `  skyserver capacity show
  skyserver capacity show --output json`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		outputFormat, _ := cmd.Flags().GetString("output")

		svcs, cleanup := initializeServices(ctx)
		defer cleanup()

		rows, err := svcs.capacity.Snapshot(ctx)
		if err != nil {
			logger.Error("Failed to read capacity", "error", err)
			os.Exit(1)
		}

		if outputFormat == "json" {
			data, _ := json.MarshalIndent(rows, "", "  ")
			fmt.Println(string(data))
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "GAME\tTOTAL\tCLAIMED\tAVAILABLE")
		for _, row := range rows {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\n",
				row.Game,
				row.TotalSlots,
				row.ClaimedSlots,
				row.Available(),
			)
		}
		w.Flush()
	},
}

var capacitySetCmd = &cobra.Command{
	Use:   "set <game> <total-slots>",
	Short: "Resize a game's slot inventory",
	Long: `Set the total number of slots for a game.

Shrinking below the number of currently claimed slots is refused.`,
	Example: `  skyserver capacity set minecraft 10
  skyserver capacity set terraria 3`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		game := models.Game(args[0])
		total, err := strconv.Atoi(args[1])
		if err != nil {
			logger.Error("Invalid slot count", "value", args[1], "error", err)
			os.Exit(1)
		}
		ctx := context.Background()

		svcs, cleanup := initializeServices(ctx)
		defer cleanup()

		if err := svcs.capacity.SetTotal(ctx, game, total); err != nil {
			logger.Error("Failed to set capacity", "game", game, "error", err)
			os.Exit(1)
		}

		logger.Info("Capacity updated", "game", game, "total_slots", total)
		fmt.Printf("✓ Capacity for %s set to %d slots.\n", game, total)
	},
}

func init() {
	rootCmd.AddCommand(capacityCmd)

	capacityCmd.AddCommand(capacityShowCmd)
	capacityShowCmd.Flags().StringP("output", "o", "table", "Output format (table, json)")

	capacityCmd.AddCommand(capacitySetCmd)
}
