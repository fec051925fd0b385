package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/namelens/domainsearch/internal/appid"
	"github.com/namelens/domainsearch/internal/config"
	"github.com/namelens/domainsearch/internal/observability"
)

var (
	cfgFile string
	envFile string
	verbose bool

	appIdentity *appidentity.Identity

	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo records build metadata injected by main.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// GetAppIdentity returns the embedded identity once the root command has
// initialized.
func GetAppIdentity() *appidentity.Identity {
	return appIdentity
}

var rootCmd = &cobra.Command{
	Use:   filepath.Base(os.Args[0]),
	Short: "Domain name search with availability, brandability and registrar pricing",
	Long: `Search domain names across TLDs, score available candidates and compare registrar prices.

Use the subcommands to perform specific operations.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Config loading must not emit metrics to stdout; serve installs the real system.
	if sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false}); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	if identity, err := appid.Get(context.Background()); err == nil {
		applyIdentity(identity)
	}

	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (optional; defaults to app identity config path)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file with registrar credentials (ignored when missing)")
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
}

// applyIdentity rewrites the help surfaces from the embedded identity.
func applyIdentity(identity *appidentity.Identity) {
	if identity == nil {
		return
	}
	appIdentity = identity
	if identity.BinaryName != "" {
		rootCmd.Use = identity.BinaryName
	}
	if identity.Description != "" {
		rootCmd.Short = identity.Description
		rootCmd.Long = fmt.Sprintf("%s - %s\n\nUse the subcommands to perform specific operations.",
			identity.BinaryName, identity.Description)
	}
	if f := rootCmd.PersistentFlags().Lookup("config"); f != nil && identity.ConfigName != "" {
		f.Usage = fmt.Sprintf("config file (default is $XDG_CONFIG_HOME/%s/config.yaml)", identity.ConfigName)
	}
}

func initConfig() {
	identity, err := appid.Get(context.Background())
	if err != nil {
		ExitWithCodeStderr(foundry.ExitFileNotFound, "Failed to load app identity", err)
	}
	applyIdentity(identity)

	observability.InitCLILogger(appIdentity.BinaryName, verbose)
	loadEnvFile(envFile)

	config.SetConfigFile(cfgFile)
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		addConfigSearchPaths(appIdentity)
	}

	viper.SetEnvPrefix(appIdentity.EnvPrefix)
	viper.AutomaticEnv()
	readConfigFile()
	setDefaults()
}

// addConfigSearchPaths registers the XDG directory (or ~/.<name> when XDG is
// unavailable), the legacy binary-named directory and ./config.
func addConfigSearchPaths(identity *appidentity.Identity) {
	dir := gfconfig.GetAppConfigDir(identity.ConfigName)
	if dir == "" {
		home, err := homedir.Dir()
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitFileNotFound, "Could not find home directory", err)
		}
		observability.CLILogger.Debug("XDG config directory unavailable, using home", zap.String("home", home))
		viper.AddConfigPath(home)
		viper.SetConfigName("." + identity.ConfigName)
	} else {
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		if identity.BinaryName != "" && identity.BinaryName != identity.ConfigName {
			if legacy := gfconfig.GetAppConfigDir(identity.BinaryName); legacy != "" {
				viper.AddConfigPath(legacy)
			}
		}
	}
	viper.AddConfigPath("./config")
	viper.SetConfigType("yaml")
}

// readConfigFile loads the resolved config file. A missing file is fine.
func readConfigFile() {
	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		observability.CLILogger.Debug("Using config file", zap.String("path", viper.ConfigFileUsed()))
	case errors.As(err, &notFound):
		observability.CLILogger.Debug("No config file found, using defaults and environment variables")
	default:
		observability.CLILogger.Warn("Error reading config file", zap.Error(err))
	}
}

// loadEnvFile exports variables from a dotenv file without overriding the
// process environment.
func loadEnvFile(path string) {
	if path == "" {
		return
	}
	if err := godotenv.Load(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			observability.CLILogger.Warn("Failed to load env file", zap.String("path", path), zap.Error(err))
		}
		return
	}
	observability.CLILogger.Debug("Loaded env file", zap.String("path", path))
}

func setDefaults() {
	defaults := map[string]any{
		"server.host":             "localhost",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "60s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "10s",
		"logging.level":           "info",
		"logging.profile":         "structured",
		"store.driver":            "libsql",
		"store.path":              config.DefaultStorePath(),
		"prices.path":             config.DefaultPricesPath(),
		"metrics.enabled":         true,
		"metrics.port":            observability.DefaultMetricsPort,
		"health.enabled":          true,
	}
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
}
