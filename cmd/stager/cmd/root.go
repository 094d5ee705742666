package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/stager/internal/config"
	"github.com/oshokin/stager/internal/logger"
	"github.com/oshokin/stager/internal/service/stager"
	"github.com/oshokin/stager/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// includeRoot overrides the include root from the configuration file.
	includeRoot string
	// logLevel is the minimum level of printed log lines.
	logLevel string

	// rootCmd stages the configured components.
	rootCmd = &cobra.Command{
		Use:   "stager [component...]",
		Short: "Stage third-party headers into the shared include directory",
		Long: "Removes stale extracted sources and published headers, decompresses each " +
			"<name>-<version>.zip archive and copies its header tree into the include root.",
		SilenceUsage:      true,
		PersistentPreRunE: applyLogLevel,
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return stager.Run(ctx, &stager.Options{
				ConfigPath:  configPath,
				IncludeRoot: includeRoot,
				Components:  args,
			})
		},
	}
)

// Execute runs the stager CLI and exits with non-zero status on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// applyLogLevel configures the global logger from the --log-level flag.
func applyLogLevel(_ *cobra.Command, _ []string) error {
	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", logLevel)
	}

	logger.SetLevel(level)

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVarP(&includeRoot, "include-root", "i", "", "shared include root (overrides the configuration file)")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	rootCmd.AddCommand(cleanCmd, initCmd)
	version.AttachCobraVersionCommand(rootCmd)
}
