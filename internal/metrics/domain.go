package metrics

import (
	"time"

	"github.com/namelens/domainsearch/internal/observability"
)

// Domain pipeline metric names.
const (
	AvailabilityChecksTotal = "availability_checks_total"
	DemandLookupsTotal      = "demand_lookups_total"
	DomainInfoLookupsTotal  = "domain_info_lookups_total"
	RegistrarQuotesTotal    = "registrar_quotes_total"
	PriceRefreshTotal       = "price_refresh_total"
	SearchSessionsTotal     = "search_sessions_total"
	SearchDurationMs        = "search_duration_ms"
)

// RecordAvailabilityCheck counts a resolver verdict by outcome branch.
func RecordAvailabilityCheck(outcome string, available bool) {
	result := "taken"
	if available {
		result = "available"
	}
	counter(AvailabilityChecksTotal, map[string]string{
		"outcome": outcome,
		"result":  result,
	})
}

// RecordDemandLookup counts demand estimates by source (trends, heuristic, cache).
func RecordDemandLookup(source string) {
	counter(DemandLookupsTotal, map[string]string{"source": source})
}

// RecordDomainInfoLookup counts RDAP enrichment attempts.
func RecordDomainInfoLookup(status string) {
	counter(DomainInfoLookupsTotal, map[string]string{"status": status})
}

// RecordRegistrarQuote counts live registrar quote attempts.
func RecordRegistrarQuote(registrar, status string) {
	counter(RegistrarQuotesTotal, map[string]string{
		"registrar": registrar,
		"status":    status,
	})
}

// RecordPriceRefresh counts price table refresh runs.
func RecordPriceRefresh(mode string, success bool) {
	counter(PriceRefreshTotal, map[string]string{
		"mode":   mode,
		"status": statusLabel(success),
	})
}

// RecordSearchSession counts search sessions and their wall time.
func RecordSearchSession(status string, duration time.Duration) {
	counter(SearchSessionsTotal, map[string]string{"status": status})
	if observability.TelemetrySystem != nil && duration > 0 {
		_ = observability.TelemetrySystem.Histogram(SearchDurationMs, duration, map[string]string{"status": status})
	}
}

func counter(name string, tags map[string]string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(name, 1, tags)
	}
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
