package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"geocluster/internal/cluster"
	"geocluster/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigValidateCommand(ctx), newConfigInitCommand())
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := sampleTarget(targetPath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set geocoding.api_key (or export GEOCLUSTER_API_KEY) to name folders after places.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func sampleTarget(flagValue string) (string, error) {
	if target := strings.TrimSpace(flagValue); target != "" {
		expanded, err := config.ExpandPath(target)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return expanded, nil
	}
	target, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("determine default config path: %w", err)
	}
	return target, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file and show the effective settings",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.flagPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, renderTable([]string{"Setting", "Value"}, settingsRows(cfg), nil, nil))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

// settingsRows describes the effective configuration as organize would apply
// it before any flag overrides.
func settingsRows(cfg *config.Config) [][]string {
	merge := cfg.Clustering.Merge
	if merge == cluster.MergeProximity {
		merge = fmt.Sprintf("proximity, anchors within %s", formatMeters(cfg.Clustering.MergeRadius()))
	}

	relocation := "off"
	if cfg.Relocation.Enabled {
		relocation = "on"
	}
	relocation = fmt.Sprintf("%s, window %s", relocation, cfg.Relocation.Window())

	geocoding := "off"
	if cfg.Geocoding.Enabled {
		geocoding = fmt.Sprintf("%s (%s), %d concurrent, %d retries",
			cfg.Geocoding.BaseURL, cfg.Geocoding.Language, cfg.Geocoding.Concurrency, cfg.Geocoding.RetryAttempts)
	}

	logDir := cfg.Paths.LogDir
	if logDir == "" {
		logDir = "(stderr only)"
	}

	return [][]string{
		{"Cluster radius", formatMeters(cfg.Clustering.ThresholdMeters)},
		{"Merge", merge},
		{"Relocation", relocation},
		{"Geocoding", geocoding},
		{"Ingest", fmt.Sprintf("%d workers, %d extensions", cfg.Ingest.Workers, len(cfg.Ingest.Extensions))},
		{"Verify copies", yesNo(cfg.Output.VerifyCopies)},
		{"Log", fmt.Sprintf("%s %s, %s", cfg.Logging.Level, cfg.Logging.Format, logDir)},
	}
}
