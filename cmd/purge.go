package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"facility-access-control/internal/ledger"
)

var purgeYes bool

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every access event from the ledger",
	Long:  `Administrative bulk purge. The ledger is otherwise append-only; this clears it completely and cannot be undone.`,
	Run: func(cmd *cobra.Command, args []string) {
		if !purgeYes {
			fmt.Fprintln(os.Stderr, "Refusing to purge without --yes")
			os.Exit(1)
		}
		n, err := ledger.New(provider).Purge(context.Background())
		if err != nil {
			slog.Error("Purge failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Deleted %d access events\n", n)
	},
}

func init() {
	purgeCmd.Flags().BoolVar(&purgeYes, "yes", false, "confirm the purge")
	rootCmd.AddCommand(purgeCmd)
}
