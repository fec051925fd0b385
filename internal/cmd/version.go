package cmd

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"

	"github.com/namelens/domainsearch/internal/appid"
	"github.com/namelens/domainsearch/internal/config"
	"github.com/namelens/domainsearch/internal/core"
	"github.com/namelens/domainsearch/internal/registrar"
)

var extended bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended to include the price table stamp, search TLDs and library versions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		name := appid.DefaultBinaryName
		if identity := GetAppIdentity(); identity != nil && identity.BinaryName != "" {
			name = identity.BinaryName
		}
		w := cmd.OutOrStdout()

		_, _ = fmt.Fprintf(w, "%s %s\n", name, versionInfo.Version)
		if !extended {
			return nil
		}

		_, _ = fmt.Fprintf(w, "Commit: %s\n", versionInfo.Commit)
		_, _ = fmt.Fprintf(w, "Built: %s\n", versionInfo.BuildDate)
		_, _ = fmt.Fprintf(w, "Go: %s\n\n", runtime.Version())

		writeDataVersions(w)

		version := crucible.GetVersion()
		_, _ = fmt.Fprintf(w, "\nGofulmen: %s\n", version.Gofulmen)
		_, _ = fmt.Fprintf(w, "Crucible: %s\n", version.Crucible)
		return nil
	},
}

// writeDataVersions reports the price table in use; the embedded seed is
// reported when no refreshed table exists.
func writeDataVersions(w io.Writer) {
	path := config.DefaultPricesPath()
	if cfg := config.GetConfig(); cfg != nil && cfg.Prices.Path != "" {
		path = cfg.Prices.Path
	}

	stamp := "unavailable"
	if table, err := registrar.LoadPriceTable(path); err == nil {
		stamp = table.LastUpdated()
	}
	_, _ = fmt.Fprintf(w, "Prices: %s (%s)\n", stamp, path)
	_, _ = fmt.Fprintf(w, "TLDs: %s\n", strings.Join(core.SupportedTLDs, ", "))
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
}
