package registrar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/namelens/domainsearch/internal/core"
	"github.com/namelens/domainsearch/internal/metrics"
	"github.com/namelens/domainsearch/internal/observability"
)

// RefreshMode selects how much of the table a refresh touches.
type RefreshMode string

const (
	// RefreshFull scrapes every table registrar for every supported TLD.
	RefreshFull RefreshMode = "full"
	// RefreshCron scrapes Namecheap for the key TLDs only.
	RefreshCron RefreshMode = "cron"

	lastUpdatedLayout  = "2006-01-02T15:04:05.000Z"
	defaultScrapeDelay = 15 * time.Second
	sampleLabel        = "example"
)

var cronTLDs = []string{"com", "io", "app", "ai"}

// ParseRefreshMode accepts "full" or "cron"; empty means cron.
func ParseRefreshMode(value string) (RefreshMode, error) {
	switch RefreshMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", RefreshCron:
		return RefreshCron, nil
	case RefreshFull:
		return RefreshFull, nil
	default:
		return "", fmt.Errorf("unknown refresh mode %q (want full or cron)", value)
	}
}

// RefreshResult summarises one refresh run.
type RefreshResult struct {
	Mode        RefreshMode `json:"mode"`
	Attempted   int         `json:"attempted"`
	Updated     int         `json:"updated"`
	LastUpdated string      `json:"lastUpdated"`
}

// Refresher scrapes registrar pages into the price table and persists it.
type Refresher struct {
	Table   *PriceTable
	Path    string
	Scraper PriceScraper
	// Delay paces consecutive scrapes.
	Delay time.Duration
	Clock func() time.Time
}

// Run refreshes the table in mode and writes it to Path. Individual scrape
// failures keep the existing price; the file is written even when nothing
// changed so lastUpdated reflects the attempt.
func (r *Refresher) Run(ctx context.Context, mode RefreshMode) (RefreshResult, error) {
	result := RefreshResult{Mode: mode}
	if r.Table == nil || r.Scraper == nil {
		return result, fmt.Errorf("refresher is not configured")
	}

	delay := r.Delay
	if delay <= 0 {
		delay = defaultScrapeDelay
	}
	pacer := rate.NewLimiter(rate.Every(delay), 1)
	logger := observability.Logger()

	for _, job := range refreshJobs(mode) {
		if err := pacer.Wait(ctx); err != nil {
			metrics.RecordPriceRefresh(string(mode), false)
			return result, fmt.Errorf("price refresh interrupted: %w", err)
		}

		result.Attempted++
		domain := sampleLabel + "." + job.tld
		price, err := r.Scraper.ScrapePrice(ctx, job.registrar, domain)
		if err != nil {
			logger.Warn("price scrape failed",
				zap.String("registrar", job.registrar),
				zap.String("tld", job.tld),
				zap.Error(err))
			continue
		}

		renewal := DefaultRenewal(job.registrar)
		if existing, ok := r.Table.Get(job.registrar, job.tld); ok && existing.Renewal != "" {
			renewal = existing.Renewal
		}
		r.Table.Set(job.registrar, job.tld, TLDPrice{Initial: price, Renewal: renewal})
		result.Updated++
		logger.Info("price updated",
			zap.String("registrar", job.registrar),
			zap.String("tld", job.tld),
			zap.String("initial", price))
	}

	result.LastUpdated = r.now().UTC().Format(lastUpdatedLayout)
	r.Table.SetLastUpdated(result.LastUpdated)

	if err := r.Table.Save(r.Path); err != nil {
		metrics.RecordPriceRefresh(string(mode), false)
		return result, err
	}

	metrics.RecordPriceRefresh(string(mode), true)
	return result, nil
}

type refreshJob struct {
	registrar string
	tld       string
}

func refreshJobs(mode RefreshMode) []refreshJob {
	if mode == RefreshFull {
		jobs := make([]refreshJob, 0, len(core.SupportedTLDs)*len(tableRows))
		for _, tld := range core.SupportedTLDs {
			for _, row := range tableRows {
				jobs = append(jobs, refreshJob{registrar: row.registrar, tld: tld})
			}
		}
		return jobs
	}

	jobs := make([]refreshJob, 0, len(cronTLDs))
	for _, tld := range cronTLDs {
		jobs = append(jobs, refreshJob{registrar: Namecheap, tld: tld})
	}
	return jobs
}

func (r *Refresher) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now()
}
