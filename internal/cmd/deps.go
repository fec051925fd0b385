package cmd

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/namelens/domainsearch/internal/config"
	"github.com/namelens/domainsearch/internal/core/checker"
	"github.com/namelens/domainsearch/internal/core/engine"
	"github.com/namelens/domainsearch/internal/core/store"
	"github.com/namelens/domainsearch/internal/observability"
	"github.com/namelens/domainsearch/internal/registrar"
	"github.com/namelens/domainsearch/internal/server/handlers"
)

// services holds the collaborators shared by the CLI commands and the server.
type services struct {
	cfg          *config.Config
	db           *store.Store
	limiter      *engine.RateLimiter
	availability engine.AvailabilityChecker
	demand       engine.DemandLookup
	info         engine.InfoLookup
	prices       *registrar.PriceTable
	quotes       *registrar.QuoteService
	refresher    *registrar.Refresher
}

// buildServices wires every lookup from configuration. The returned close
// function releases the cache store.
func buildServices(ctx context.Context, cfg *config.Config) (*services, func(), error) {
	db := openCacheStore(ctx, cfg.Store)
	closer := func() {
		if db != nil {
			_ = db.Close()
		}
	}

	table, err := registrar.LoadPriceTable(cfg.Prices.Path)
	if err != nil {
		closer()
		return nil, nil, err
	}

	limiter := buildRateLimiter(cfg, db)
	s := &services{
		cfg:     cfg,
		db:      db,
		limiter: limiter,
		prices:  table,
	}

	availCfg := cfg.Domain.Availability
	s.availability = &checker.AvailabilityResolver{
		Resolver:     checker.NewResolver(availCfg.Nameserver, availCfg.Timeout),
		Nameserver:   availCfg.Nameserver,
		Timeout:      availCfg.Timeout,
		Denylist:     availCfg.Denylist,
		MinRandomRun: availCfg.MinRandomRun,
		ToolVersion:  versionInfo.Version,
	}

	demandCfg := cfg.Domain.Demand
	demand := &checker.DemandEstimator{
		MaxAge:  demandCfg.CacheTTL,
		Timeout: demandCfg.Timeout,
	}
	if db != nil {
		demand.Cache = db
	} else {
		demand.Cache = checker.NewMemoryDemandCache()
	}
	if demandCfg.TrendsEnabled {
		demand.Trends = &checker.TrendsClient{
			Client:    checker.NewRetryClient(demandCfg.Timeout, 1),
			BaseURL:   demandCfg.TrendsURL,
			TimeRange: demandCfg.TimeRange,
			Limiter:   limiter,
		}
	}
	s.demand = demand

	infoCfg := cfg.Domain.Info
	info := &checker.DomainInfoEnricher{
		Server:   infoCfg.Server,
		Timeout:  infoCfg.Timeout,
		CacheTTL: infoCfg.CacheTTL,
		Limiter:  limiter,
	}
	if db != nil {
		info.Store = db
	}
	s.info = info

	s.quotes = registrar.NewQuoteService(cfg.Registrars, nil, limiter, table)
	s.refresher = &registrar.Refresher{
		Table: table,
		Path:  cfg.Prices.Path,
		Scraper: &registrar.PageScraper{
			UserAgent: cfg.Prices.UserAgent,
			Timeout:   cfg.Prices.ScrapeTimeout,
		},
		Delay: cfg.Prices.ScrapeDelay,
	}

	observability.Logger().Debug("Services initialized",
		zap.Bool("store", db != nil),
		zap.String("prices_path", cfg.Prices.Path),
		zap.Bool("trends", demandCfg.TrendsEnabled))

	return s, closer, nil
}

// newSearcher returns a searcher wired to the shared lookups.
func (s *services) newSearcher() *engine.Searcher {
	searcher := &engine.Searcher{
		Availability: s.availability,
		Demand:       s.demand,
		Info:         s.info,
		TLDs:         s.cfg.Search.TLDs,
		Timeout:      s.cfg.Search.Timeout,
	}
	if s.cfg.Search.IncludePrices && s.prices != nil {
		searcher.Prices = s.prices
	}
	return searcher
}

func (s *services) dependencies() handlers.Dependencies {
	mode, err := registrar.ParseRefreshMode(s.cfg.Cron.Mode)
	if err != nil {
		observability.Logger().Warn("Invalid cron refresh mode, using cron",
			zap.String("mode", s.cfg.Cron.Mode))
		mode = registrar.RefreshCron
	}
	if mode == registrar.RefreshFull {
		observability.Logger().Warn("Full refresh is CLI only, cron endpoint will use cron mode")
		mode = registrar.RefreshCron
	}
	return handlers.Dependencies{
		Availability: s.availability,
		Demand:       s.demand,
		Info:         s.info,
		Prices:       s.prices,
		Quotes:       s.quotes,
		Refresher:    s.refresher,
		NewSearcher:  s.newSearcher,
		CronSecret:   s.cfg.Cron.Secret,
		CronMode:     mode,
		Clock:        time.Now,
	}
}
