package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/stager/internal/service/stager"
)

// cleanCmd removes extracted sources and published headers without restaging.
var cleanCmd = &cobra.Command{
	Use:   "clean [component...]",
	Short: "Remove extracted sources and published headers",
	RunE: func(_ *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		return stager.RunClean(ctx, &stager.Options{
			ConfigPath:  configPath,
			IncludeRoot: includeRoot,
			Components:  args,
		})
	},
}
