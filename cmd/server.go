package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"facility-access-control/internal/appointments"
	"facility-access-control/internal/config"
	"facility-access-control/internal/directory"
	"facility-access-control/internal/email"
	"facility-access-control/internal/ledger"
	"facility-access-control/internal/loans"
	"facility-access-control/internal/notify"
	"facility-access-control/internal/readers"
	"facility-access-control/internal/reminder"
	"facility-access-control/internal/routes"
	"facility-access-control/internal/storage"
	"facility-access-control/internal/tap"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the facility access control server",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Starting facility access control server...")
		ServerMain(cfg, provider)
	},
}

func ServerMain(cfg *config.Config, storageProvider storage.Provider) {
	if cfg == nil {
		panic("Config not initialized.")
	}
	if storageProvider == nil {
		slog.Error("Storage provider is nil")
		os.Exit(1)
	}

	broadcaster := notify.NewBroadcaster()
	lifecycle := appointments.New(storageProvider)
	guard := loans.NewGuard(storageProvider, int(cfg.LoanDays))

	dispatcher := tap.NewDispatcher(
		directory.New(storageProvider),
		ledger.New(storageProvider),
		guard,
		tap.WithNotifier(broadcaster),
		tap.WithCheckInHook(lifecycle),
		tap.WithBorrowerWindow(time.Duration(cfg.BorrowerWindow)*time.Second),
	)

	app := &routes.App{
		Cfg:         cfg,
		Storage:     storageProvider,
		Dispatcher:  dispatcher,
		Ledger:      ledger.New(storageProvider),
		Guard:       guard,
		Lifecycle:   lifecycle,
		Broadcaster: broadcaster,
		Tokens:      readers.NewTokenService(cfg.Secret, time.Duration(cfg.ReaderTokenTTL)*time.Minute),
	}

	// Background jobs: appointment sweep and due-loan reminders.
	go lifecycle.RunSweeper(time.Duration(cfg.SweepInterval) * time.Minute)
	defer lifecycle.Close()

	mailer := reminder.NewJob(storageProvider, email.NewClient(cfg.Email))
	go mailer.RunPeriodic(time.Duration(cfg.ReminderInterval) * time.Minute)
	defer mailer.Close()

	server := gin.Default()
	routes.RegisterRoutes(server, app)

	if err := server.Run(cfg.ListenAddr); err != nil {
		slog.Error("HTTP server exited", "error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
