package main

import (
	"errors"

	"github.com/spf13/cobra"

	"misiones/internal/app"
	"misiones/internal/platform/config"
	id "misiones/pkg/domain"
	audit "misiones/pkg/platform/audit"
)

func (c *cli) auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Read the registration audit trail",
	}
	cmd.AddCommand(c.auditEventsCmd(), c.auditRecentCmd())
	return cmd
}

func (c *cli) auditEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events <registration-id>",
		Short: "List a registration's events in the order they happened",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			regID, err := id.ParseRegistrationID(args[0])
			if err != nil {
				return err
			}
			return c.withServices(cmd.Context(), func(_ config.Config, _ *app.Stores, svc *app.Services) error {
				events, err := svc.Audit.List(cmd.Context(), regID)
				if err != nil {
					return err
				}
				return c.printJSON(map[string]any{"events": orEmpty(events)})
			})
		},
	}
}

func (c *cli) auditRecentCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the newest events across all sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 || limit > 1000 {
				return errors.New("--limit must be between 1 and 1000")
			}
			return c.withServices(cmd.Context(), func(_ config.Config, _ *app.Stores, svc *app.Services) error {
				events, err := svc.Audit.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return c.printJSON(map[string]any{"events": orEmpty(events)})
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of events")
	return cmd
}

func orEmpty(events []audit.Event) []audit.Event {
	if events == nil {
		return []audit.Event{}
	}
	return events
}
