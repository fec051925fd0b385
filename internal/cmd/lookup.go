package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/namelens/domainsearch/internal/config"
	"github.com/namelens/domainsearch/internal/core/checker"
	apperrors "github.com/namelens/domainsearch/internal/errors"
	"github.com/namelens/domainsearch/internal/output"
	"github.com/namelens/domainsearch/internal/server/handlers"
)

var checkCmd = &cobra.Command{
	Use:   "check <domain>",
	Short: "Check whether a domain appears to be available",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, svc *services, format output.Format, w io.Writer) error {
			return runCheck(ctx, svc, args[0], format, w)
		})
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <domain>",
	Short: "Show registration data for a taken domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, svc *services, format output.Format, w io.Writer) error {
			return runInfo(ctx, svc, args[0], format, w)
		})
	},
}

var demandCmd = &cobra.Command{
	Use:   "demand <keyword>",
	Short: "Estimate search demand for a keyword",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, svc *services, format output.Format, w io.Writer) error {
			return runDemand(ctx, svc, strings.Join(args, " "), format, w)
		})
	},
}

// withServices loads config, wires the lookups and hands fn a stdout sink.
func withServices(cmd *cobra.Command, fn func(ctx context.Context, svc *services, format output.Format, w io.Writer) error) error {
	ctx := cmd.Context()
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, closeServices, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeServices()

	return fn(ctx, svc, format, cmd.OutOrStdout())
}

func runCheck(ctx context.Context, svc *services, raw string, format output.Format, w io.Writer) error {
	domain, err := handlers.NormalizeDomain(raw)
	if err != nil {
		return fmt.Errorf("invalid domain %q: %w", raw, err)
	}

	result := svc.availability.Resolve(ctx, domain)
	if format == output.FormatJSON {
		return writeJSONTo(w, handlers.CheckResponse{
			Domain:    result.Domain,
			Available: result.Available,
			Message:   result.Message,
		})
	}

	verdict := "taken"
	if result.Available {
		verdict = "available"
	}
	_, err = fmt.Fprintf(w, "%s: %s (%s)\n", result.Domain, verdict, result.Message)
	return err
}

func runInfo(ctx context.Context, svc *services, raw string, format output.Format, w io.Writer) error {
	domain, err := handlers.NormalizeDomain(raw)
	if err != nil {
		return fmt.Errorf("invalid domain %q: %w", raw, err)
	}

	info, err := svc.info.Lookup(ctx, domain)
	if err != nil {
		if errors.Is(err, checker.ErrNoRDAPData) {
			return fmt.Errorf("%s: %w", domain, err)
		}
		return apperrors.FromLookupError(ctx, fmt.Errorf("lookup %s: %w", domain, err), "Domain information lookup failed")
	}
	info.Domain = domain

	if format == output.FormatJSON {
		return writeJSONTo(w, info)
	}

	registered := "unknown"
	if info.RegistrationDate != nil {
		registered = *info.RegistrationDate
	}
	lines := []string{
		fmt.Sprintf("Domain:      %s", domain),
		fmt.Sprintf("Registered:  %s", registered),
	}
	if info.Age != nil {
		lines = append(lines, fmt.Sprintf("Age:         %d years", *info.Age))
	}
	if info.Registrar != "" {
		lines = append(lines, fmt.Sprintf("Registrar:   %s", info.Registrar))
	}
	lines = append(lines, fmt.Sprintf("Auto-renew:  %t", info.HasAutoRenewal))
	if info.DaysUntilExpiration != nil {
		lines = append(lines, fmt.Sprintf("Expires in:  %d days", *info.DaysUntilExpiration))
	}
	_, err = fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func runDemand(ctx context.Context, svc *services, keyword string, format output.Format, w io.Writer) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return errors.New("keyword is required")
	}

	demand := svc.demand.Estimate(ctx, keyword)
	if format == output.FormatJSON {
		return writeJSONTo(w, demand)
	}

	source := string(demand.Source)
	if demand.FromCache {
		source += ", cached"
	}
	_, err := fmt.Fprintf(w, "%s: %s (score %.0f, %s)\n", keyword, demand.Label, demand.Score, source)
	return err
}

func writeJSONTo(w io.Writer, value any) error {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(payload))
	return err
}

func init() {
	for _, c := range []*cobra.Command{checkCmd, infoCmd, demandCmd} {
		c.Flags().String("output-format", string(output.FormatTable), "Output format: table|json")
		rootCmd.AddCommand(c)
	}
}
