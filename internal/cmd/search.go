package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/namelens/domainsearch/internal/config"
	"github.com/namelens/domainsearch/internal/core"
	"github.com/namelens/domainsearch/internal/core/engine"
	"github.com/namelens/domainsearch/internal/core/suggest"
	"github.com/namelens/domainsearch/internal/metrics"
	"github.com/namelens/domainsearch/internal/observability"
	"github.com/namelens/domainsearch/internal/output"
)

var searchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "Search a name across TLDs",
	Long: `Search a base name across the supported TLDs.

Each candidate is checked for availability; available candidates are scored
for brandability, value and search demand, and taken ones are enriched with
registration data.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		cfg, err := config.Load(ctx, searchOverrides(cmd))
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		svc, closeServices, err := buildServices(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeServices()

		query := strings.Join(args, " ")
		sink, err := openOutput(cmd, "search."+sanitizeFilename(query), format)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		var progress io.Writer
		quiet, _ := cmd.Flags().GetBool("quiet")
		if !quiet {
			progress = cmd.ErrOrStderr()
		}

		return runSearch(ctx, svc.newSearcher(), query, output.NewFormatter(format), sink.writer, progress)
	},
}

// runSearch drives one search to completion, echoing progress lines for
// every snapshot that changes the counts.
func runSearch(ctx context.Context, searcher *engine.Searcher, query string, formatter output.Formatter, w io.Writer, progress io.Writer) error {
	if progress != nil {
		last := ""
		searcher.OnSnapshot = func(snap *core.SearchSnapshot) {
			line := output.ProgressLine(snap)
			if line == last {
				return
			}
			last = line
			_, _ = fmt.Fprintln(progress, line)
		}
	}

	started := time.Now()
	snap, err := searcher.Run(ctx, query)
	if err != nil {
		if errors.Is(err, suggest.ErrEmptyName) {
			return fmt.Errorf("%q has no usable characters for a domain name", query)
		}
		metrics.RecordOperationError("search", "incomplete")
		if snap == nil {
			return err
		}
		// Interrupted searches still print what they have.
		observability.Logger().Warn("Search did not complete",
			zap.String("query", query),
			zap.Error(err))
	}
	metrics.RecordOperation("search", err == nil)

	observability.Logger().Debug("Search finished",
		zap.String("query", query),
		zap.Int("candidates", len(snap.Candidates)),
		zap.Int("available", snap.AvailableCount()),
		zap.Duration("elapsed", time.Since(started)))

	rendered, ferr := formatter.FormatSearch(snap)
	if ferr != nil {
		return ferr
	}
	if _, werr := fmt.Fprintln(w, rendered); werr != nil {
		return werr
	}
	return err
}

func searchOverrides(cmd *cobra.Command) map[string]any {
	search := map[string]any{}
	if cmd.Flags().Changed("tlds") {
		tlds, _ := cmd.Flags().GetStringSlice("tlds")
		search["tlds"] = tlds
	}
	if cmd.Flags().Changed("timeout") {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		search["timeout"] = timeout.String()
	}
	if cmd.Flags().Changed("prices") {
		prices, _ := cmd.Flags().GetBool("prices")
		search["include_prices"] = prices
	}
	if len(search) == 0 {
		return nil
	}
	return map[string]any{"search": search}
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json|markdown")
	searchCmd.Flags().String("out", "", "Write output to a file (default stdout)")
	searchCmd.Flags().String("out-dir", "", "Write output to a directory")
	searchCmd.Flags().StringSlice("tlds", nil, "TLDs to search (default: configured list)")
	searchCmd.Flags().Duration("timeout", 0, "Bound the whole search (default: configured timeout)")
	searchCmd.Flags().Bool("prices", true, "Attach registrar prices to available candidates")
	searchCmd.Flags().BoolP("quiet", "q", false, "Suppress live progress on stderr")
}
