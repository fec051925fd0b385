package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/namelens/domainsearch/internal/observability"
	"github.com/namelens/domainsearch/internal/output"
	"github.com/namelens/domainsearch/internal/registrar"
	"github.com/namelens/domainsearch/internal/server/handlers"
)

var pricesUpdateMode string

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Registrar price table and live quotes",
}

var pricesShowCmd = &cobra.Command{
	Use:   "show <domain>",
	Short: "Show static registrar prices for a domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, svc *services, format output.Format, w io.Writer) error {
			return runPrices(ctx, svc, args[0], false, format, w)
		})
	},
}

var pricesQuoteCmd = &cobra.Command{
	Use:   "quote <domain>",
	Short: "Ask configured registrars for live prices",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, svc *services, format output.Format, w io.Writer) error {
			return runPrices(ctx, svc, args[0], true, format, w)
		})
	},
}

var pricesUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Scrape registrar pages and rewrite the price table",
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := registrar.ParseRefreshMode(pricesUpdateMode)
		if err != nil {
			return err
		}
		return withServices(cmd, func(ctx context.Context, svc *services, _ output.Format, w io.Writer) error {
			return runPricesUpdate(ctx, svc, mode, w)
		})
	},
}

func runPrices(ctx context.Context, svc *services, raw string, live bool, format output.Format, w io.Writer) error {
	domain, err := handlers.NormalizeDomain(raw)
	if err != nil {
		return fmt.Errorf("invalid domain %q: %w", raw, err)
	}

	view := &output.PriceView{Domain: domain}
	if svc.prices != nil {
		view.Rows = svc.prices.Rows(domain)
		view.LastUpdated = svc.prices.LastUpdated()
	}
	if live {
		view.Quotes = svc.quotes.Quote(ctx, domain)
		if len(view.Quotes) == 0 {
			observability.Logger().Info("No registrar credentials configured; showing static prices only")
		}
	}

	rendered, err := output.NewFormatter(format).FormatPrices(view)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, rendered)
	return err
}

func runPricesUpdate(ctx context.Context, svc *services, mode registrar.RefreshMode, w io.Writer) error {
	if svc.refresher == nil {
		return fmt.Errorf("price refresher is not configured")
	}

	observability.Logger().Info("Refreshing registrar prices",
		zap.String("mode", string(mode)),
		zap.String("path", svc.refresher.Path))

	result, err := svc.refresher.Run(ctx, mode)
	if err != nil {
		return fmt.Errorf("refresh prices: %w", err)
	}

	_, err = fmt.Fprintf(w, "Updated %d of %d prices (%s mode, %s)\n", result.Updated, result.Attempted, result.Mode, result.LastUpdated)
	return err
}

func init() {
	pricesShowCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json|markdown")
	pricesQuoteCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json|markdown")
	pricesUpdateCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table")
	pricesUpdateCmd.Flags().StringVar(&pricesUpdateMode, "mode", string(registrar.RefreshFull), "Refresh mode: full|cron")

	pricesCmd.AddCommand(pricesShowCmd)
	pricesCmd.AddCommand(pricesQuoteCmd)
	pricesCmd.AddCommand(pricesUpdateCmd)
	rootCmd.AddCommand(pricesCmd)
}
