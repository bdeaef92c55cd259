package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"facility-access-control/internal/appointments"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the appointment sweep once and exit",
	Long:  `Completes checked-in appointments past their window and marks stale scheduled ones missed. The server also runs this on a timer; the command exists for cron setups and manual catch-up.`,
	Run: func(cmd *cobra.Command, args []string) {
		lifecycle := appointments.New(provider)
		stats, err := lifecycle.Sweep(context.Background(), time.Now().UTC())
		if err != nil {
			slog.Error("Sweep failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Sweep done: %d completed, %d missed\n", stats.Completed, stats.Missed)
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
