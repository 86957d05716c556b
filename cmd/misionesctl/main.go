// Command misionesctl is the operator CLI: migrations, site seeding,
// occupancy, manual promotion, reminder sweeps and admin tokens.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(defaultCLI()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "misionesctl:", err)
		os.Exit(1)
	}
}
