package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lead-intake-go/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the mailbox intake and admin API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return app.Run(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
