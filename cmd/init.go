package cmd

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/wrenflow/ticketeer/ticketeer"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the database and data directory",
	Run: func(cmd *cobra.Command, args []string) {
		if cfg.DatabaseType == "" {
			log.Fatal("database_type not set (must be one of: sqlite, postgres)")
		}
		if cfg.Database == "" {
			log.Fatal(
				"database not set (must be a valid database connection " +
					"string or sqlite file path)",
			)
		}

		logger := slog.New(
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{}),
		)

		if _, err := ticketeer.CreateDB(
			cfg.DatabaseType,
			cfg.Database,
			cfg.DatabaseSlowThreshold,
			logger.Handler(),
		); err != nil {
			log.Fatalf("Error creating database: %v", err)
		}

		store, err := ticketeer.NewStore(cfg.DataDir, logger)
		if err != nil {
			log.Fatalf("Error creating data directory: %v", err)
		}
		if _, err = ticketeer.NewTicketRegistry(store, logger); err != nil {
			log.Fatalf("Error initializing ticket registry: %v", err)
		}
		if _, err = ticketeer.NewReactionRoleRegistry(store, logger); err != nil {
			log.Fatalf("Error initializing reaction role registry: %v", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(
			out,
			"Initialization complete. You can now start the bot with the 'run' subcommand.",
		)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
