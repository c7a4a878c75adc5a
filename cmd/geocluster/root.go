package main

import (
	"github.com/spf13/cobra"

	"geocluster/internal/pipeline"
)

func newRootCommand(runnerOpts ...pipeline.Option) *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag, runnerOpts)

	rootCmd := &cobra.Command{
		Use:           "geocluster",
		Short:         "Group photos into folders by where they were taken",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newOrganizeCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
