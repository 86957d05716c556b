package main

import (
	"github.com/spf13/cobra"

	"misiones/internal/app"
	"misiones/internal/platform/config"
	id "misiones/pkg/domain"
)

func (c *cli) occupancyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "occupancy [site-id]",
		Short: "Show confirmed counts and free slots",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withServices(cmd.Context(), func(_ config.Config, _ *app.Stores, svc *app.Services) error {
				if len(args) == 0 {
					occ, err := svc.Sites.Occupancy(cmd.Context())
					if err != nil {
						return err
					}
					return c.printJSON(occ)
				}
				siteID, err := id.ParseSiteID(args[0])
				if err != nil {
					return err
				}
				occ, err := svc.Sites.SiteOccupancy(cmd.Context(), siteID)
				if err != nil {
					return err
				}
				return c.printJSON(occ)
			})
		},
	}
}

func (c *cli) promoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <site-id>",
		Short: "Promote the waitlist head if the site has a free slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := id.ParseSiteID(args[0])
			if err != nil {
				return err
			}
			return c.withServices(cmd.Context(), func(_ config.Config, _ *app.Stores, svc *app.Services) error {
				promoted, err := svc.Registrations.PromoteNext(cmd.Context(), siteID)
				if err != nil {
					return err
				}
				return c.printJSON(map[string]any{"promoted": promoted})
			})
		},
	}
}
