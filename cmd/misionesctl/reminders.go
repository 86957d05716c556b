package main

import (
	"github.com/spf13/cobra"

	"misiones/internal/app"
	"misiones/internal/platform/config"
)

func (c *cli) remindersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Document reminder sweeps",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the document reminder sweep once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withServices(cmd.Context(), func(cfg config.Config, stores *app.Stores, _ *app.Services) error {
				sweeper, err := app.NewSweeper(cfg.Reminders, stores, c.logger)
				if err != nil {
					return err
				}
				n, err := sweeper.Run(cmd.Context())
				if err != nil {
					return err
				}
				return c.printJSON(map[string]int{"enqueued": n})
			})
		},
	})
	return cmd
}
