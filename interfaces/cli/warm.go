package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/cacheflow/infrastructure/origin"
	api "github.com/felixgeelhaar/cacheflow/interfaces/api"
)

// warmOptions holds options for the warm command.
type warmOptions struct {
	configPath string
	keysFile   string
	dsn        string
	queries    map[string]string
}

// newWarmCmd creates the warm command.
func (a *App) newWarmCmd() *cobra.Command {
	opts := &warmOptions{
		queries: make(map[string]string),
	}

	cmd := &cobra.Command{
		Use:   "warm [key...]",
		Short: "Pre-populate the cache through the origin datastore",
		Long: `Fetch the given keys from the origin database and write them through the
cache layers, so the first user request after a deploy or flush hits warm
data.

Keys are full cache keys (kind:tenant:namespace:id) given as arguments or
one per line in a file. Each namespace needs a registered query taking the
tenant ID and entity ID as its two parameters.

Examples:
  # Warm two keys
  cacheflow warm org:42:risk:7 org:42:dashboard:main \
    -c config.yaml --dsn postgres://app@db/cacheflow \
    --query 'risk=SELECT payload FROM risks WHERE org_id=$1 AND id=$2' \
    --query 'dashboard=SELECT payload FROM dashboards WHERE org_id=$1 AND name=$2'

  # Warm a key list exported from access logs
  cacheflow warm -c config.yaml --keys-file hot-keys.txt --dsn $DATABASE_URL \
    --query 'risk=SELECT payload FROM risks WHERE org_id=$1 AND id=$2'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.warm(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&opts.keysFile, "keys-file", "", "File with one cache key per line")
	cmd.Flags().StringVar(&opts.dsn, "dsn", "", "Origin database connection string")
	cmd.Flags().StringToStringVar(&opts.queries, "query", nil, "Per-namespace origin query (namespace=SQL)")

	return cmd
}

func (a *App) warm(cmd *cobra.Command, opts *warmOptions, args []string) error {
	if opts.configPath == "" {
		return fmt.Errorf("configuration file path is required (-c flag)")
	}
	if opts.dsn == "" {
		return fmt.Errorf("origin connection string is required (--dsn flag)")
	}
	if len(opts.queries) == 0 {
		return fmt.Errorf("at least one --query namespace=SQL mapping is required")
	}

	keys, err := collectKeys(args, opts.keysFile)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("no keys to warm")
	}

	config, err := api.LoadConfig(opts.configPath, false)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx := cmd.Context()
	pool, err := pgxpool.New(ctx, opts.dsn)
	if err != nil {
		return fmt.Errorf("connecting to origin: %w", err)
	}
	defer pool.Close()

	fetcher := origin.NewFetcher(pool)
	for namespace, query := range opts.queries {
		fetcher.Register(namespace, query)
	}

	engine, err := api.NewEngine(config, api.WithOrigin(fetcher))
	if err != nil {
		return fmt.Errorf("assembling engine: %w", err)
	}
	defer func() { _ = engine.Close() }()

	warmed := 0
	for _, key := range keys {
		if err := engine.Orchestrator.Warm(ctx, key); err != nil {
			fmt.Fprintf(a.stderr, "  ✗ %s: %v\n", key, err)
			continue
		}
		warmed++
		fmt.Fprintf(a.stdout, "  ✓ %s\n", key)
	}

	fmt.Fprintf(a.stdout, "Warmed %d/%d keys\n", warmed, len(keys))
	if warmed < len(keys) {
		return fmt.Errorf("%d keys failed to warm", len(keys)-warmed)
	}
	return nil
}

// collectKeys merges argument keys with the optional keys file, skipping
// blank lines and #-comments.
func collectKeys(args []string, path string) ([]string, error) {
	keys := append([]string{}, args...)
	if path == "" {
		return keys, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading keys file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys = append(keys, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading keys file: %w", err)
	}
	return keys, nil
}
