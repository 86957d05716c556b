package main

import (
	"errors"

	"github.com/spf13/cobra"

	"misiones/internal/app"
	"misiones/internal/platform/config"
	"misiones/internal/site/seed"
)

func (c *cli) sitesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "Manage pueblo sites",
	}

	var file string
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the sites listed in a YAML seed file",
		Long: `Create the sites listed in a YAML seed file. Sites whose name already
exists are left untouched, so the command is safe to repeat.

Example file:
  sites:
    - name: San Javier
      capacity: 25
    - name: Pozo Azul
      capacity: 18
      active: false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				return errors.New("--file is required")
			}
			reqs, err := seed.LoadFile(file)
			if err != nil {
				return err
			}
			return c.withServices(cmd.Context(), func(_ config.Config, _ *app.Stores, svc *app.Services) error {
				res, err := seed.Apply(cmd.Context(), svc.Sites, reqs, c.logger)
				if err != nil {
					return err
				}
				return c.printJSON(map[string]int{"created": res.Created, "existing": res.Existing})
			})
		},
	}
	seedCmd.Flags().StringVarP(&file, "file", "f", "", "path to the seed YAML file")

	list := &cobra.Command{
		Use:   "list",
		Short: "List all sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withServices(cmd.Context(), func(_ config.Config, _ *app.Stores, svc *app.Services) error {
				sites, err := svc.Sites.ListSites(cmd.Context())
				if err != nil {
					return err
				}
				return c.printJSON(sites)
			})
		},
	}

	cmd.AddCommand(seedCmd, list)
	return cmd
}
