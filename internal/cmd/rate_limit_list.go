package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/namelens/domainsearch/internal/core/store"
	"github.com/namelens/domainsearch/internal/output"
)

var rateLimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted request windows for trends, RDAP and registrar endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		if err := requireFormat(format, output.FormatTable, output.FormatJSON); err != nil {
			return err
		}

		prefix, _ := cmd.Flags().GetString("prefix")
		query := store.Query{Prefix: strings.TrimSpace(prefix)}
		query.All = query.Prefix == ""

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		entries, err := db.ListRateLimits(cmd.Context(), query)
		if err != nil {
			return err
		}

		sink, err := openOutput(cmd, "rate-limits.list", format)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		return writeRateLimitList(format, sink.writer, entries, time.Now())
	},
}

type rateLimitRow struct {
	Endpoint     string     `json:"endpoint"`
	RequestCount int        `json:"request_count"`
	WindowStart  *time.Time `json:"window_start,omitempty"`
	BackoffUntil *time.Time `json:"backoff_until,omitempty"`
	Last429At    *time.Time `json:"last_429_at,omitempty"`
	BackingOff   bool       `json:"backing_off"`
}

func writeRateLimitList(format output.Format, w io.Writer, entries []store.RateLimitEntry, now time.Time) error {
	rows := make([]rateLimitRow, 0, len(entries))
	for _, entry := range entries {
		row := rateLimitRow{
			Endpoint:     entry.Endpoint,
			RequestCount: entry.State.RequestCount,
			BackoffUntil: entry.State.BackoffUntil,
			Last429At:    entry.State.Last429At,
			BackingOff:   entry.State.BackoffUntil != nil && now.Before(*entry.State.BackoffUntil),
		}
		if !entry.State.WindowStart.IsZero() {
			start := entry.State.WindowStart
			row.WindowStart = &start
		}
		rows = append(rows, row)
	}

	if format == output.FormatJSON {
		return writeJSONTo(w, rows)
	}

	lines := []string{"Rate limits (trends, rdap, registrar endpoints)", ""}
	if len(rows) == 0 {
		lines = append(lines, "(no stored rate limit state)")
	}
	for _, row := range rows {
		state := "ok"
		if row.BackingOff {
			state = "backoff until " + row.BackoffUntil.UTC().Format(time.RFC3339)
		}
		lines = append(lines, fmt.Sprintf("%s: %d request(s) since %s, %s",
			row.Endpoint, row.RequestCount, formatInstant(row.WindowStart), state))
	}
	_, err := fmt.Fprint(w, ascii.DrawBox(strings.Join(lines, "\n"), 0))
	return err
}

func formatInstant(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func init() {
	rateLimitListCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json")
	rateLimitListCmd.Flags().String("out", "", "Write output to a file (default stdout)")
	rateLimitListCmd.Flags().String("out-dir", "", "Write output to a directory")
	rateLimitListCmd.Flags().String("prefix", "", "Only endpoints with this prefix (e.g. rdap:)")
}
