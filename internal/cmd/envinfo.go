package cmd

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/namelens/domainsearch/internal/config"
	"github.com/namelens/domainsearch/internal/observability"
)

type envRow struct {
	label string
	value string
}

type envSection struct {
	title string
	rows  []envRow
}

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display build, runtime, configuration and registrar credential state.",
	RunE: func(cmd *cobra.Command, args []string) error {
		sections := []envSection{buildSection(), runtimeSection()}

		cfg, err := config.Load(cmd.Context())
		if err != nil {
			observability.CLILogger.Warn("Config load failed", zap.Error(err))
		} else {
			sections = append(sections, configSections(cfg)...)
		}
		return writeEnvInfo(cmd.OutOrStdout(), sections)
	},
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}

func buildSection() envSection {
	name := ""
	if identity := GetAppIdentity(); identity != nil {
		name = identity.BinaryName
	}
	ssot := crucible.GetVersion()
	return envSection{title: "Application", rows: []envRow{
		{"Name", orUnset(name)},
		{"Version", orUnset(versionInfo.Version)},
		{"Commit", orUnset(versionInfo.Commit)},
		{"Built", orUnset(versionInfo.BuildDate)},
		{"Gofulmen", ssot.Gofulmen},
		{"Crucible", ssot.Crucible},
	}}
}

func runtimeSection() envSection {
	return envSection{title: "Runtime", rows: []envRow{
		{"Go", runtime.Version()},
		{"Platform", runtime.GOOS + "/" + runtime.GOARCH},
		{"CPUs", fmt.Sprint(runtime.NumCPU())},
	}}
}

func configSections(cfg *config.Config) []envSection {
	store := envRow{"DB Path", cfg.Store.Path}
	if strings.TrimSpace(cfg.Store.URL) != "" {
		store = envRow{"DB URL", cfg.Store.URL}
	}
	avail := cfg.Domain.Availability
	regs := cfg.Registrars

	return []envSection{
		{title: "Configuration", rows: []envRow{
			{"Server", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)},
			{"Logging", cfg.Logging.Level + " (" + cfg.Logging.Profile + ")"},
			{"DB Driver", cfg.Store.Driver},
			store,
			{"Metrics Port", fmt.Sprint(cfg.Metrics.Port)},
			{"Config File", config.DefaultConfigPath()},
		}},
		{title: "Domain Lookups", rows: []envRow{
			{"DNS Timeout", avail.Timeout.String()},
			{"Nameserver", orUnset(avail.Nameserver)},
			{"Parking IPs", fmt.Sprint(len(avail.Denylist))},
			{"Trends", fmt.Sprint(cfg.Domain.Demand.TrendsEnabled)},
			{"RDAP Server", orUnset(cfg.Domain.Info.Server)},
		}},
		{title: "Search", rows: []envRow{
			{"TLDs", orUnset(strings.Join(cfg.Search.TLDs, ","))},
			{"Timeout", cfg.Search.Timeout.String()},
			{"Price Table", cfg.Prices.Path},
		}},
		{title: "Registrars", rows: []envRow{
			{"Namecheap", credentialState(regs.Namecheap.APIUser, regs.Namecheap.APIKey, regs.Namecheap.ClientIP)},
			{"GoDaddy", credentialState(regs.GoDaddy.APIKey, regs.GoDaddy.APISecret)},
			{"Porkbun", credentialState(regs.Porkbun.APIKey, regs.Porkbun.SecretKey)},
			{"Loopia", credentialState(regs.Loopia.Username, regs.Loopia.Password)},
			{"Cron Secret", credentialState(cfg.Cron.Secret)},
		}},
	}
}

func writeEnvInfo(w io.Writer, sections []envSection) error {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	for i, section := range sections {
		if i > 0 {
			t.AppendSeparator()
		}
		t.AppendRow(table.Row{strings.ToUpper(section.title), ""})
		for _, row := range section.rows {
			t.AppendRow(table.Row{"  " + row.label, row.value})
		}
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func orUnset(value string) string {
	if strings.TrimSpace(value) == "" {
		return "(unset)"
	}
	return value
}

func credentialState(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return "(not set)"
		}
	}
	return "(set)"
}
