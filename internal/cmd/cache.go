package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/namelens/domainsearch/internal/config"
	"github.com/namelens/domainsearch/internal/core/store"
	"github.com/namelens/domainsearch/internal/output"
)

var (
	cachePurgeAll        bool
	cachePurgeKey        string
	cachePurgePrefix     string
	cachePurgeOnly       []string
	cachePurgeExpired    bool
	cachePurgeYes        bool
	cachePurgeOutputFlag string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the demand, domain info and rate limit caches",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete cached rows",
	Long: `Delete cached demand estimates, domain registration data and rate limit
windows. Select rows with --all, --key (exact keyword, domain or endpoint) or
--prefix, and narrow the caches with --only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format, err := output.ParseFormat(cachePurgeOutputFlag)
		if err != nil {
			return err
		}

		opts, err := purgeOptions()
		if err != nil {
			return err
		}
		if opts.Query.All && !opts.ExpiredOnly && !cachePurgeYes {
			return errors.New("--all requires --yes (or use --expired)")
		}

		cfg, err := config.Load(ctx)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		opts.DemandMaxAge = cfg.Domain.Demand.CacheTTL

		db, err := openStoreWith(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		result, err := db.Purge(ctx, opts)
		if err != nil {
			return err
		}
		return writePurgeResult(format, cmd.OutOrStdout(), result)
	},
}

func purgeOptions() (store.PurgeOptions, error) {
	opts := store.PurgeOptions{
		Query: store.Query{
			All:    cachePurgeAll,
			Key:    strings.TrimSpace(cachePurgeKey),
			Prefix: strings.TrimSpace(cachePurgePrefix),
		},
		ExpiredOnly: cachePurgeExpired,
	}
	if err := opts.Query.Validate(); err != nil {
		return opts, err
	}

	if len(cachePurgeOnly) == 0 {
		opts.Demand, opts.DomainInfo, opts.RateLimits = true, true, true
		return opts, nil
	}
	for _, name := range cachePurgeOnly {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "demand":
			opts.Demand = true
		case "domain-info", "domain_info", "info":
			opts.DomainInfo = true
		case "rate-limits", "rate_limits", "ratelimits":
			opts.RateLimits = true
		default:
			return opts, fmt.Errorf("unknown cache %q (expected demand, domain-info or rate-limits)", name)
		}
	}
	return opts, nil
}

func writePurgeResult(format output.Format, w io.Writer, result store.PurgeResult) error {
	if format == output.FormatJSON {
		return writeJSONTo(w, result)
	}
	_, err := fmt.Fprintf(w, "Purged %d row(s): demand=%d domain_info=%d rate_limits=%d\n",
		result.Total(), result.Demand, result.DomainInfo, result.RateLimits)
	return err
}

func init() {
	cachePurgeCmd.Flags().BoolVar(&cachePurgeAll, "all", false, "Select every row")
	cachePurgeCmd.Flags().StringVar(&cachePurgeKey, "key", "", "Select an exact keyword, domain or endpoint")
	cachePurgeCmd.Flags().StringVar(&cachePurgePrefix, "prefix", "", "Select keys with matching prefix")
	cachePurgeCmd.Flags().StringSliceVar(&cachePurgeOnly, "only", nil, "Caches to purge: demand,domain-info,rate-limits (default all)")
	cachePurgeCmd.Flags().BoolVar(&cachePurgeExpired, "expired", false, "Only purge stale rows")
	cachePurgeCmd.Flags().BoolVar(&cachePurgeYes, "yes", false, "Confirm destructive purge")
	cachePurgeCmd.Flags().StringVar(&cachePurgeOutputFlag, "output-format", string(output.FormatTable), "Output format: table|json")

	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
