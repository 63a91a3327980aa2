// Package main is the entry point for the recall API server, which keeps
// users' memory items on review curves and reminds them when reviews fall due.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. It is a function so tests get a fresh
// tree with fresh flags.
func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "recall-api",
		Short:         "Spaced repetition API with review reminders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"path to a config file (defaults to ./config.yaml when present)")

	root.AddCommand(
		newServeCmd(&configFile),
		newMigrateCmd(&configFile),
		newHashPasswordCmd(),
	)
	return root
}
