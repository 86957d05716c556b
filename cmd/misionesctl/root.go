package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"misiones/internal/app"
	"misiones/internal/platform/config"
	"misiones/internal/platform/logger"
)

type cli struct {
	out        io.Writer
	logger     *slog.Logger
	loadConfig func() (config.Config, error)
	// openStores overrides app.OpenStores; tests share one in-memory set.
	openStores func(ctx context.Context, cfg config.Config) (*app.Stores, error)
}

func defaultCLI() *cli {
	return &cli{
		out:        os.Stdout,
		logger:     logger.NewWithWriter(os.Stderr, "info", "text"),
		loadConfig: config.Load,
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "misionesctl",
		Short:         "Operate the misiones registration service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.out)
	root.AddCommand(
		c.migrateCmd(),
		c.sitesCmd(),
		c.occupancyCmd(),
		c.promoteCmd(),
		c.remindersCmd(),
		c.tokenCmd(),
		c.auditCmd(),
	)
	return root
}

// withServices opens stores without migrating and wires the services.
func (c *cli) withServices(ctx context.Context, fn func(cfg config.Config, stores *app.Stores, svc *app.Services) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	open := c.openStores
	if open == nil {
		open = func(ctx context.Context, cfg config.Config) (*app.Stores, error) {
			return app.OpenStores(ctx, cfg, c.logger, false)
		}
	}
	stores, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()
	svc, err := app.NewServices(cfg, stores, c.logger, nil)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(cfg, stores, svc)
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
