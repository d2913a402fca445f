package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	api "github.com/felixgeelhaar/cacheflow/interfaces/api"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	configPath string
	strict     bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate an engine configuration file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Required fields (name, version)
  - Field types and constraints
  - Co-access prefetch targets
  - Environment variable references (in strict mode)

Examples:
  # Validate a configuration file
  cacheflow validate -c config.yaml

  # Strict validation (fail on missing env vars)
  cacheflow validate -c config.yaml --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validateConfig(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")

	return cmd
}

// validateConfig validates the configuration file.
func (a *App) validateConfig(opts *validateOptions) error {
	if opts.configPath == "" {
		return fmt.Errorf("configuration file path is required (-c flag)")
	}

	config, err := api.LoadConfig(opts.configPath, opts.strict)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(a.stdout, "✓ Configuration is valid\n")
	fmt.Fprintf(a.stdout, "  Name: %s\n", config.Name)
	fmt.Fprintf(a.stdout, "  Version: %s\n", config.Version)
	if config.Description != "" {
		fmt.Fprintf(a.stdout, "  Description: %s\n", config.Description)
	}

	// Summary
	fmt.Fprintf(a.stdout, "\nConfiguration summary:\n")
	fmt.Fprintf(a.stdout, "  L1: capacity=%d shards=%d\n", config.L1.Capacity, config.L1.Shards)
	if config.L2.Enabled {
		fmt.Fprintf(a.stdout, "  L2: %s (db=%d)\n", config.L2.Address, config.L2.DB)
	} else {
		fmt.Fprintf(a.stdout, "  L2: disabled (local-only)\n")
	}
	fmt.Fprintf(a.stdout, "  TTL: short=%s medium=%s long=%s stale-window=%s\n",
		config.TTL.Short.Duration(), config.TTL.Medium.Duration(),
		config.TTL.Long.Duration(), config.TTL.StaleWindow.Duration())
	if len(config.TTL.Categories) > 0 {
		fmt.Fprintf(a.stdout, "  TTL categories: %d namespaces\n", len(config.TTL.Categories))
	}
	fmt.Fprintf(a.stdout, "  Compression: threshold=%dB min-savings=%.0f%%\n",
		config.Compression.ThresholdBytes, config.Compression.MinSavingsRatio*100)

	if config.Prefetch.Enabled {
		fmt.Fprintf(a.stdout, "  Prefetch: window=%s trigger=%d workers=%d\n",
			config.Prefetch.Window.Duration(), config.Prefetch.TriggerCount, config.Prefetch.Workers)
		if len(config.Prefetch.CoAccess) > 0 {
			fmt.Fprintf(a.stdout, "  Co-access rules: %d namespaces\n", len(config.Prefetch.CoAccess))
			for ns, targets := range config.Prefetch.CoAccess {
				fmt.Fprintf(a.stdout, "    - %s -> %d targets\n", ns, len(targets))
			}
		}
	} else {
		fmt.Fprintf(a.stdout, "  Prefetch: disabled\n")
	}

	fmt.Fprintf(a.stdout, "  Breaker: threshold=%d open-timeout=%s probes=%d\n",
		config.Breaker.FailureThreshold, config.Breaker.OpenTimeout.Duration(), config.Breaker.MaxProbes)
	fmt.Fprintf(a.stdout, "  Fetch timeout: %s\n", config.Fetch.Timeout.Duration())

	return nil
}
