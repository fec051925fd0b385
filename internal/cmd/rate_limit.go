package cmd

import "github.com/spf13/cobra"

// rateLimitCmd groups the persisted limiter windows for the trends, RDAP,
// registrar and scrape endpoints under "cache".
var rateLimitCmd = &cobra.Command{
	Use:     "rate-limits",
	Aliases: []string{"rate-limit"},
	Short:   "Inspect or reset persisted rate limit windows",
}

func init() {
	rateLimitCmd.AddCommand(rateLimitListCmd)
	rateLimitCmd.AddCommand(rateLimitResetCmd)
	cacheCmd.AddCommand(rateLimitCmd)
}
