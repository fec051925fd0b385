package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/namelens/domainsearch/internal/core/store"
	"github.com/namelens/domainsearch/internal/output"
)

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear persisted request windows so lookups resume immediately",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		if err := requireFormat(format, output.FormatTable, output.FormatJSON); err != nil {
			return err
		}

		flags := cmd.Flags()
		all, _ := flags.GetBool("all")
		endpoint, _ := flags.GetString("endpoint")
		prefix, _ := flags.GetString("prefix")
		yes, _ := flags.GetBool("yes")
		dryRun, _ := flags.GetBool("dry-run")

		query := store.Query{All: all, Key: strings.TrimSpace(endpoint), Prefix: strings.TrimSpace(prefix)}
		if err := query.Validate(); err != nil {
			return err
		}
		if query.All && !yes && !dryRun {
			return errors.New("--all requires --yes (or use --dry-run)")
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		entries, err := db.ListRateLimits(cmd.Context(), query)
		if err != nil {
			return err
		}

		sink, err := openOutput(cmd, "rate-limits.reset", format)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		var deleted int64
		if !dryRun {
			if deleted, err = db.ResetRateLimits(cmd.Context(), query); err != nil {
				return err
			}
		}
		return writeRateLimitResetResult(format, sink.writer, len(entries), deleted, dryRun)
	},
}

func writeRateLimitResetResult(format output.Format, w io.Writer, matched int, deleted int64, dryRun bool) error {
	if format == output.FormatJSON {
		return writeJSONTo(w, map[string]any{
			"matched": matched,
			"deleted": deleted,
			"dry_run": dryRun,
		})
	}
	if dryRun {
		_, err := fmt.Fprintf(w, "Would reset %d endpoint window(s)\n", matched)
		return err
	}
	_, err := fmt.Fprintf(w, "Reset %d of %d endpoint window(s)\n", deleted, matched)
	return err
}

func init() {
	rateLimitResetCmd.Flags().Bool("all", false, "Reset every endpoint")
	rateLimitResetCmd.Flags().String("endpoint", "", "Reset one endpoint (exact match, e.g. trends.google.com)")
	rateLimitResetCmd.Flags().String("prefix", "", "Reset endpoints with this prefix")
	rateLimitResetCmd.Flags().Bool("yes", false, "Confirm resetting every endpoint")
	rateLimitResetCmd.Flags().Bool("dry-run", false, "Report matches without deleting")
	rateLimitResetCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json")
	rateLimitResetCmd.Flags().String("out", "", "Write output to a file (default stdout)")
	rateLimitResetCmd.Flags().String("out-dir", "", "Write output to a directory")
}
