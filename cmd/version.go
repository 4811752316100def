package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wrenflow/ticketeer/ticketeer"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of the application",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf(
			"version=%s commit=%s built: %s",
			ticketeer.Version,
			ticketeer.CommitSHA,
			ticketeer.BuildTime,
		)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
