package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/namelens/domainsearch/internal/config"
	"github.com/namelens/domainsearch/internal/registrar"
)

// selfCheck is one startup prerequisite verified by "health".
type selfCheck struct {
	name string
	code foundry.ExitCode
	run  func(ctx context.Context, cfg *config.Config) (string, error)
}

var selfChecks = []selfCheck{
	{
		name: "version",
		code: foundry.ExitConfigInvalid,
		run: func(context.Context, *config.Config) (string, error) {
			if versionInfo.Version == "" {
				return "", errors.New("version information missing")
			}
			return versionInfo.Version, nil
		},
	},
	{
		name: "price table",
		code: foundry.ExitFileNotFound,
		run: func(_ context.Context, cfg *config.Config) (string, error) {
			table, err := registrar.LoadPriceTable(cfg.Prices.Path)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s, updated %s", cfg.Prices.Path, table.LastUpdated()), nil
		},
	},
	{
		name: "cache store",
		code: foundry.ExitConfigInvalid,
		run: func(ctx context.Context, cfg *config.Config) (string, error) {
			db, err := openStoreWith(ctx, cfg.Store)
			if err != nil {
				return "", err
			}
			defer db.Close() // nolint:errcheck // best-effort cleanup
			if err := db.DB.PingContext(ctx); err != nil {
				return "", err
			}
			return db.Driver(), nil
		},
	},
}

// runSelfChecks reports each check on w and returns the first failure with
// the exit code it maps to.
func runSelfChecks(ctx context.Context, cfg *config.Config, checks []selfCheck, w io.Writer) (foundry.ExitCode, error) {
	for _, check := range checks {
		detail, err := check.run(ctx, cfg)
		if err != nil {
			_, _ = fmt.Fprintf(w, "FAIL %s: %v\n", check.name, err)
			return check.code, fmt.Errorf("%s: %w", check.name, err)
		}
		_, _ = fmt.Fprintf(w, "ok   %s (%s)\n", check.name, detail)
	}
	_, _ = fmt.Fprintln(w, "All health checks passed")
	return 0, nil
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Verify configuration, price table and cache store",
	Long:  "Run the startup prerequisites of serve and search without contacting any registry or registrar.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cmd.Context())
		if err != nil {
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "Configuration failed to load", err)
			return
		}
		if code, err := runSelfChecks(cmd.Context(), cfg, selfChecks, cmd.OutOrStdout()); err != nil {
			ExitWithCodeStderr(code, "Health check failed", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
