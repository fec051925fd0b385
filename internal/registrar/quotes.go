package registrar

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/namelens/domainsearch/internal/config"
	"github.com/namelens/domainsearch/internal/core"
	"github.com/namelens/domainsearch/internal/core/engine"
	"github.com/namelens/domainsearch/internal/metrics"
	"github.com/namelens/domainsearch/internal/observability"
)

// QuoteService fans a domain out to every registrar quoter.
type QuoteService struct {
	Quoters []Quoter
}

// NewQuoteService wires all four registrar quoters from configuration.
// Unconfigured registrars stay in the list and report ErrNotConfigured.
func NewQuoteService(cfg config.RegistrarsConfig, client *http.Client, limiter *engine.RateLimiter, table *PriceTable) *QuoteService {
	api := apiClient{HTTP: client, Limiter: limiter, Timeout: cfg.Timeout}
	return &QuoteService{Quoters: []Quoter{
		&NamecheapQuoter{apiClient: api, Config: cfg.Namecheap, Table: table},
		&GoDaddyQuoter{apiClient: api, Config: cfg.GoDaddy},
		&PorkbunQuoter{apiClient: api, Config: cfg.Porkbun},
		&LoopiaQuoter{Config: cfg.Loopia, Table: table},
	}}
}

// Quote asks all registrars concurrently. Registrars that are unconfigured
// or fail are absent from the result.
func (s *QuoteService) Quote(ctx context.Context, domain string) map[string]core.PriceQuote {
	quotes := make(map[string]core.PriceQuote)
	if s == nil {
		return quotes
	}

	var (
		mu sync.Mutex
		wg conc.WaitGroup
	)
	for _, quoter := range s.Quoters {
		wg.Go(func() {
			start := time.Now()
			quote, err := quoter.Quote(ctx, domain)
			switch {
			case errors.Is(err, ErrNotConfigured):
				metrics.RecordRegistrarQuote(quoter.Name(), "unconfigured")
				return
			case err != nil:
				metrics.RecordRegistrarQuote(quoter.Name(), "error")
				observability.Logger().Warn("registrar quote failed",
					zap.String("registrar", quoter.Name()),
					zap.String("domain", domain),
					zap.Duration("duration", time.Since(start)),
					zap.Error(err))
				return
			}

			metrics.RecordRegistrarQuote(quoter.Name(), "success")
			mu.Lock()
			quotes[quoter.Name()] = quote
			mu.Unlock()
		})
	}
	if recovered := wg.WaitAndRecover(); recovered != nil {
		observability.Logger().Error("registrar quote panicked",
			zap.String("domain", domain),
			zap.String("panic", recovered.String()))
	}

	return quotes
}
