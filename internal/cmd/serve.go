package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/namelens/domainsearch/internal/config"
	errwrap "github.com/namelens/domainsearch/internal/errors"
	"github.com/namelens/domainsearch/internal/metrics"
	"github.com/namelens/domainsearch/internal/observability"
	"github.com/namelens/domainsearch/internal/registrar"
	"github.com/namelens/domainsearch/internal/server"
	"github.com/namelens/domainsearch/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the domain search HTTP API with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload the registrar price table

On shutdown the HTTP server drains, logs are flushed and the cache store is closed.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	identity := GetAppIdentity()
	namespace := identity.TelemetryNamespace()

	cfg, err := config.Load(ctx, serveOverrides(cmd))
	if err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "failed to load configuration")
	}

	observability.InitServerLogger(identity.BinaryName, cfg.Logging.Level, namespace)
	log := observability.ServerLogger

	metricsPort := cfg.Metrics.Port
	if metricsPort == 0 {
		metricsPort = observability.DefaultMetricsPort
	}
	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(identity.BinaryName, metricsPort, namespace); err != nil {
			log.Error("Failed to initialize metrics", zap.Error(err))
			return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
		}
	}

	log.Info("Initializing server",
		zap.String("service", identity.BinaryName),
		zap.String("namespace", namespace),
		zap.String("version", versionInfo.Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Int("metrics_port", metricsPort))

	svc, closeServices, err := buildServices(ctx, cfg)
	if err != nil {
		return errwrap.WrapInternal(ctx, err, "failed to initialize services")
	}

	handlers.InitHealthManager(versionInfo.Version)
	registerHealthChecks(handlers.GetHealthManager(), svc, identity, cfg.Metrics.Enabled)

	srv := server.New(cfg.Server, handlers.NewDomainAPI(svc.dependencies()))
	handlers.SetAppIdentity(identity)
	handlers.SetPricesStamp(svc.prices.LastUpdated)

	startedAt := time.Now()
	metrics.SetServerStartTime(startedAt.Unix())
	uptimeCtx, stopUptime := context.WithCancel(ctx)
	defer stopUptime()
	go reportUptime(uptimeCtx, startedAt)

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 10 * time.Second
	}
	registerShutdown(srv, shutdownTimeout, closeServices)
	signals.OnReload(func(ctx context.Context) error {
		return reloadPriceTable(ctx, cmd, svc)
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		log.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server...",
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	go func() {
		if err := signals.Listen(ctx); err != nil {
			log.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	if err := <-errChan; err != nil {
		return errwrap.WrapInternal(ctx, err, "server error")
	}
	return nil
}

// registerHealthChecks installs the readiness dependencies of the API.
func registerHealthChecks(hm *handlers.HealthManager, svc *services, identity *appidentity.Identity, metricsEnabled bool) {
	hm.RegisterChecker("price_table", handlers.CheckFunc(func(context.Context) error {
		if svc == nil || svc.prices == nil {
			return errwrap.NewInternalError("price table not loaded")
		}
		return nil
	}))
	if metricsEnabled {
		hm.RegisterChecker("telemetry", handlers.CheckFunc(func(context.Context) error {
			if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
				return errwrap.NewInternalError("telemetry system not initialized")
			}
			return nil
		}))
	}
	hm.RegisterChecker("app_identity", handlers.CheckFunc(func(context.Context) error {
		return validateIdentity(identity)
	}))
	if svc != nil && svc.db != nil {
		hm.RegisterChecker("store", handlers.PingChecker{Target: svc.db.DB})
	}
}

func validateIdentity(identity *appidentity.Identity) error {
	switch {
	case identity == nil:
		return errwrap.NewConfigInvalidError("app identity not loaded")
	case identity.BinaryName == "":
		return errwrap.NewConfigInvalidError("app identity missing binary name")
	case identity.EnvPrefix == "":
		return errwrap.NewConfigInvalidError("app identity missing env prefix")
	case identity.ConfigName == "":
		return errwrap.NewConfigInvalidError("app identity missing config name")
	}
	return nil
}

// registerShutdown queues the shutdown hooks. signals runs them in reverse
// registration order: drain HTTP, flush logs, then close the store.
func registerShutdown(srv *server.Server, timeout time.Duration, closeServices func()) {
	log := observability.ServerLogger

	signals.OnShutdown(func(context.Context) error {
		closeServices()
		if err := observability.StopMetrics(); err != nil {
			log.Warn("Metrics exporter stop failed", zap.Error(err))
		}
		return nil
	})
	signals.OnShutdown(func(context.Context) error {
		if err := log.Sync(); err != nil {
			// stdout and stderr are often already closed here
			log.Warn("Logger sync returned error", zap.Error(err))
		}
		return nil
	})
	signals.OnShutdown(func(ctx context.Context) error {
		log.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}
		log.Info("HTTP server stopped gracefully")
		return nil
	})
}

// reloadPriceTable swaps in the price table from disk. Listeners and lookup
// settings keep their startup values.
func reloadPriceTable(ctx context.Context, cmd *cobra.Command, svc *services) error {
	log := observability.ServerLogger
	log.Info("Received SIGHUP: reloading price table")

	reloaded, err := config.Load(ctx, serveOverrides(cmd))
	if err != nil {
		log.Error("Failed to reload config", zap.Error(err))
		return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
	}

	table, err := registrar.LoadPriceTable(reloaded.Prices.Path)
	if err != nil {
		log.Warn("Price table reload failed", zap.Error(err))
		return nil
	}
	svc.prices.Replace(table)
	log.Info("Price table reloaded", zap.String("prices_path", reloaded.Prices.Path))
	return nil
}

// serveOverrides maps explicitly set flags onto config keys.
func serveOverrides(cmd *cobra.Command) map[string]any {
	server := map[string]any{}
	if cmd.Flags().Changed("host") {
		server["host"] = serverHost
	}
	if cmd.Flags().Changed("port") {
		server["port"] = serverPort
	}
	if len(server) == 0 {
		return nil
	}
	return map[string]any{"server": server}
}

func reportUptime(ctx context.Context, startedAt time.Time) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			metrics.SetServerUptime(int64(now.Sub(startedAt).Seconds()))
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
