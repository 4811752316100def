package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/wrenflow/ticketeer/ticketeer"
)

var runCmd = &cobra.Command{
	Use:   "run [flags]",
	Short: "Starts the Ticketeer bot and (optionally) the status API",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		bot, err := ticketeer.New(cfg)
		if err != nil {
			log.Fatalf("error creating ticketeer: %s", err.Error())
		}

		if err = bot.Run(ctx); err != nil {
			log.Fatalf("error running ticketeer: %s", err.Error())
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
