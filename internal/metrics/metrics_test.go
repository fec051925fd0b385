package metrics

import (
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/domainsearch/internal/observability"
)

func withCollector(t *testing.T) *telemetrytesting.FakeCollector {
	t.Helper()

	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)

	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = original })
	return collector
}

func TestDomainPipelineCounters(t *testing.T) {
	collector := withCollector(t)

	RecordAvailabilityCheck("nxdomain", true)
	RecordAvailabilityCheck("resolved", false)
	RecordDemandLookup("heuristic")
	RecordDomainInfoLookup("found")
	RecordRegistrarQuote("namecheap", "success")
	RecordPriceRefresh("cron", true)
	RecordSearchSession("complete", 40*time.Millisecond)

	assert.Greater(t, collector.CountMetricsByName(AvailabilityChecksTotal), 0)
	assert.Greater(t, collector.CountMetricsByName(DemandLookupsTotal), 0)
	assert.Greater(t, collector.CountMetricsByName(DomainInfoLookupsTotal), 0)
	assert.Greater(t, collector.CountMetricsByName(RegistrarQuotesTotal), 0)
	assert.Greater(t, collector.CountMetricsByName(PriceRefreshTotal), 0)
	assert.Greater(t, collector.CountMetricsByName(SearchSessionsTotal), 0)
	assert.Greater(t, collector.CountMetricsByName(SearchDurationMs), 0)
}

func TestServiceCounters(t *testing.T) {
	collector := withCollector(t)

	RecordOperation("search", true)
	RecordOperationError("search", "timeout")
	RecordHealthCheck("price_table", true, time.Millisecond)
	RecordError("NOT_FOUND", 404)
	RecordErrorByEndpoint("/api/*", "NOT_FOUND")
	RecordPanic()
	SetServerStartTime(time.Now().Unix())
	SetServerUptime(15)

	for _, name := range []string{
		OperationsTotal, OperationsErrorsTotal, HealthCheckTotal, HealthCheckDuration,
		ErrorsTotalName, ErrorsByEndpointName, PanicsTotalName, ServerStartTime, ServerUptime,
	} {
		assert.Greater(t, collector.CountMetricsByName(name), 0, name)
	}
}

func TestRecordersAreNoopsWithoutTelemetry(t *testing.T) {
	original := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() { observability.TelemetrySystem = original })

	assert.NotPanics(t, func() {
		RecordOperation("check", false)
		RecordSearchSession("cancelled", time.Second)
		SetServerUptime(1)
	})
}
