package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"geocluster/internal/config"
	"geocluster/internal/logging"
	"geocluster/internal/pipeline"
	"geocluster/internal/services"
)

type organizeFlags struct {
	input          string
	output         string
	threshold      float64
	relocate       bool
	window         int64
	humanReadable  bool
	apiKey         string
	merge          string
	mergeThreshold float64
	verbose        bool
	dryRun         bool
}

func newOrganizeCommand(ctx *commandContext) *cobra.Command {
	var flags organizeFlags

	cmd := &cobra.Command{
		Use:   "organize",
		Short: "Copy photos from an input folder into one folder per location",
		Example: "  geocluster organize --input ~/Pictures/trip --output ~/Pictures/sorted --threshold 500\n" +
			"  geocluster organize -i in -o out --relocate --time 3600 --human-readable --api-key KEY",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := applyOrganizeFlags(cmd, base, flags)
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg, flags.verbose)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			logger = logging.NewComponentLogger(logger, "cli")
			if ctx.configPath != "" {
				logger.Debug("configuration loaded", logging.String("path", ctx.configPath))
			}

			runner := pipeline.NewRunner(cfg, logger, ctx.runnerOpts...)
			res, runErr := runner.Run(cmd.Context(), pipeline.Request{
				Input:  flags.input,
				Output: flags.output,
				DryRun: flags.dryRun,
			})

			colorize := shouldColorize(cmd.OutOrStdout())
			if runErr != nil {
				if errors.Is(runErr, services.ErrPrecondition) && res != nil && len(res.Preflight) > 0 {
					renderPreflight(cmd.ErrOrStderr(), res.Preflight, shouldColorize(cmd.ErrOrStderr()))
				}
				return runErr
			}

			renderSummary(cmd.OutOrStdout(), res, colorize)
			if n := len(res.Report.Failures); n > 0 {
				return services.Wrap(services.ErrMaterialize, pipeline.StageMaterialize, "copy",
					fmt.Sprintf("%d of %d photos could not be copied", n, res.Set.ItemCount()), nil)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.input, "input", "i", "", "Folder to read photos from")
	f.StringVarP(&flags.output, "output", "o", "", "Empty folder to write clusters into")
	f.Float64VarP(&flags.threshold, "threshold", "t", 0, "Cluster radius in meters (default from config)")
	f.BoolVar(&flags.relocate, "relocate", false, "Move photos without GPS into the cluster closest in capture time")
	f.Int64Var(&flags.window, "time", 0, "Relocation window in seconds")
	f.BoolVar(&flags.humanReadable, "human-readable", false, "Name folders after places via reverse geocoding")
	f.StringVar(&flags.apiKey, "api-key", "", "Reverse geocoding API key")
	f.StringVar(&flags.merge, "merge", "", "Merge strategy after clustering: none or proximity")
	f.Float64Var(&flags.mergeThreshold, "merge-threshold", 0, "Anchor distance in meters under which proximity merges clusters")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "Log at debug level")
	f.BoolVar(&flags.dryRun, "dry-run", false, "Print the plan without creating folders or copying")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// applyOrganizeFlags returns a validated copy of base with every explicitly
// set flag applied.
func applyOrganizeFlags(cmd *cobra.Command, base *config.Config, flags organizeFlags) (*config.Config, error) {
	changed := cmd.Flags().Changed
	cfg := *base
	cfg.Ingest.Extensions = append([]string(nil), base.Ingest.Extensions...)

	if strings.TrimSpace(flags.input) == "" || strings.TrimSpace(flags.output) == "" {
		return nil, flagError("--input and --output must not be empty")
	}
	if changed("threshold") {
		cfg.Clustering.ThresholdMeters = flags.threshold
	}
	if changed("merge") {
		cfg.Clustering.Merge = strings.ToLower(strings.TrimSpace(flags.merge))
	}
	if changed("merge-threshold") {
		cfg.Clustering.MergeThresholdMeters = flags.mergeThreshold
	}

	if flags.relocate && !changed("time") {
		return nil, flagError("--relocate requires --time")
	}
	if changed("time") {
		if flags.window < 0 {
			return nil, flagError(fmt.Sprintf("--time must be zero or more seconds, got %d", flags.window))
		}
		cfg.Relocation.WindowSeconds = flags.window
	}
	if flags.relocate {
		cfg.Relocation.Enabled = true
	}

	if changed("api-key") {
		cfg.Geocoding.APIKey = strings.TrimSpace(flags.apiKey)
	}
	if flags.humanReadable {
		if cfg.Geocoding.APIKey == "" {
			return nil, flagError("--human-readable requires an API key (pass --api-key or set GEOCLUSTER_API_KEY)")
		}
		cfg.Geocoding.Enabled = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func flagError(msg string) error {
	return services.Wrap(services.ErrConfiguration, "flags", "", msg, nil)
}
