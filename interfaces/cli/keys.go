package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	api "github.com/felixgeelhaar/cacheflow/interfaces/api"
)

// keysOptions holds options for the keys command.
type keysOptions struct {
	configPath string
	limit      int
}

// newKeysCmd creates the keys command.
func (a *App) newKeysCmd() *cobra.Command {
	opts := &keysOptions{}

	cmd := &cobra.Command{
		Use:   "keys [pattern]",
		Short: "List local cache keys matching a pattern",
		Long: `Scan the in-process cache layer for keys matching a prefix pattern and
print them, one per line. Without a pattern, every local key is listed.

The scan walks the whole local store, so this is a maintenance tool, not
something to run in a hot loop.

Examples:
  # Every key cached for tenant org:42
  cacheflow keys "org:42:*" -c config.yaml

  # First 20 risk keys
  cacheflow keys "org:42:risk:*" -c config.yaml --limit 20`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := "*"
			if len(args) == 1 {
				pattern = args[0]
			}
			return a.listKeys(cmd, opts, pattern)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Maximum number of keys to print (0 = all)")

	return cmd
}

func (a *App) listKeys(cmd *cobra.Command, opts *keysOptions, pattern string) error {
	if opts.configPath == "" {
		return fmt.Errorf("configuration file path is required (-c flag)")
	}

	config, err := api.LoadConfig(opts.configPath, false)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	engine, err := api.NewEngine(config)
	if err != nil {
		return fmt.Errorf("assembling engine: %w", err)
	}
	defer func() { _ = engine.Close() }()

	keys, err := engine.Orchestrator.LocalKeys(cmd.Context(), pattern, opts.limit)
	if err != nil {
		return fmt.Errorf("scanning keys: %w", err)
	}

	for _, key := range keys {
		fmt.Fprintln(a.stdout, key)
	}
	fmt.Fprintf(a.stdout, "%d key(s) matching %q\n", len(keys), pattern)
	return nil
}
