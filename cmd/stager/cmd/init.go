package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/oshokin/stager/internal/config"
	"github.com/oshokin/stager/internal/service/stager"
)

var (
	errIncludeRootFlag = errors.New("--include-root is required")

	// extractorName is the decompression backend written by init.
	extractorName string
	// force lets init overwrite an existing settings file.
	force bool

	// initCmd writes a settings file for the bundled dlib release.
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a settings file for the default component",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if includeRoot == "" {
				return errIncludeRootFlag
			}

			return stager.Init(context.Background(), &stager.InitOptions{
				ConfigPath:  configPath,
				IncludeRoot: includeRoot,
				Extractor:   extractorName,
				Force:       force,
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	initCmd.Flags().StringVar(&extractorName, "extractor", string(config.ExtractorUnzip), "decompression backend: unzip or native")
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing settings file")
}
