package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and print the schema version",
	Run: func(cmd *cobra.Command, args []string) {
		// Migrations already ran when the provider was initialized in
		// PersistentPreRun; this just reports where we landed.
		version, err := provider.SchemaVersion(context.Background())
		if err != nil {
			slog.Error("Failed to read schema version", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Schema version: %d\n", version)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
