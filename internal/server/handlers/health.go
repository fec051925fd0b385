package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/namelens/domainsearch/internal/metrics"
)

// Check results reported per dependency.
const (
	checkHealthy   = "healthy"
	checkUnhealthy = "unhealthy"
	checkTimeout   = "timeout"
	checkDegraded  = "degraded"
)

// HealthResponse is the aggregate /health body.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProbeResponse is the body of the live, ready and startup probes.
type ProbeResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthChecker is implemented by dependencies the server needs to answer
// searches: the price table, the cache store, telemetry.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// CheckFunc adapts a function to HealthChecker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) CheckHealth(ctx context.Context) error {
	return f(ctx)
}

// probe names a health endpoint and how long its checks may take.
type probe struct {
	name    string
	failure string
	timeout time.Duration
}

var (
	aggregateProbe = probe{name: "aggregate", failure: "aggregate health check failed", timeout: 5 * time.Second}
	liveProbe      = probe{name: "live", failure: "liveness probe failed", timeout: 2 * time.Second}
	readyProbe     = probe{name: "ready", failure: "readiness probe failed", timeout: 5 * time.Second}
	startupProbe   = probe{name: "startup", failure: "startup probe failed", timeout: 3 * time.Second}
)

// HealthManager runs registered checkers for the health endpoints.
type HealthManager struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	version  string
}

// NewHealthManager creates a manager reporting version.
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{checkers: make(map[string]HealthChecker), version: version}
}

// RegisterChecker adds or replaces the checker called name.
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checkers[name] = checker
}

// runHealthChecks calls every checker in name order. Checks not reached
// before ctx expires are reported as timed out.
func (hm *HealthManager) runHealthChecks(ctx context.Context) map[string]string {
	hm.mu.RLock()
	names := make([]string, 0, len(hm.checkers))
	for name := range hm.checkers {
		names = append(names, name)
	}
	checkers := make(map[string]HealthChecker, len(hm.checkers))
	for name, checker := range hm.checkers {
		checkers[name] = checker
	}
	hm.mu.RUnlock()
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			checks[name] = checkTimeout
			continue
		}
		started := time.Now()
		err := checkers[name].CheckHealth(ctx)
		metrics.RecordHealthCheck(name, err == nil, time.Since(started))
		if err != nil {
			checks[name] = checkUnhealthy
		} else {
			checks[name] = checkHealthy
		}
	}
	return checks
}

// determineOverallStatus folds per-check results: any failure is unhealthy,
// any timeout or degraded check makes the whole degraded.
func (hm *HealthManager) determineOverallStatus(checks map[string]string) string {
	status := checkHealthy
	for _, result := range checks {
		switch result {
		case checkUnhealthy:
			return checkUnhealthy
		case checkDegraded, checkTimeout:
			status = checkDegraded
		}
	}
	return status
}

func (hm *HealthManager) serveProbe(w http.ResponseWriter, r *http.Request, p probe) {
	ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
	defer cancel()

	checks := hm.runHealthChecks(ctx)
	status := hm.determineOverallStatus(checks)
	if status == checkUnhealthy {
		respondWithError(w, r, healthEnvelope(p, p.failure, status, checks))
		return
	}

	if p == aggregateProbe {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:    status,
			Version:   hm.version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    checks,
		})
		return
	}
	writeJSON(w, http.StatusOK, ProbeResponse{Status: status, Timestamp: time.Now().UTC()})
}

// HealthHandler serves /health with per-check results.
func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(w, r, aggregateProbe)
}

// LivenessHandler serves /health/live.
func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(w, r, liveProbe)
}

// ReadinessHandler serves /health/ready.
func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(w, r, readyProbe)
}

// StartupHandler serves /health/startup.
func (hm *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(w, r, startupProbe)
}

func healthEnvelope(p probe, message, status string, checks map[string]string) *errors.ErrorEnvelope {
	details := map[string]interface{}{"status": status, "probe": p.name}
	if len(checks) > 0 {
		details["checks"] = checks
	}
	envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", message).WithDetails(details)

	var failing []string
	for name, result := range checks {
		if result != checkHealthy {
			failing = append(failing, name)
		}
	}
	sort.Strings(failing)

	contextData := map[string]interface{}{"status": status, "probe": p.name}
	if len(failing) > 0 {
		contextData["unhealthy_checks"] = failing
	}
	if withContext, err := envelope.WithContext(contextData); err == nil {
		envelope = withContext
	}
	return envelope
}

var globalHealthManager *HealthManager

// InitHealthManager installs the process-wide manager used by the package
// level handlers.
func InitHealthManager(version string) {
	globalHealthManager = NewHealthManager(version)
}

// GetHealthManager returns the process-wide manager, or nil before init.
func GetHealthManager() *HealthManager {
	return globalHealthManager
}

func serveGlobal(w http.ResponseWriter, r *http.Request, p probe) {
	if globalHealthManager == nil {
		respondWithError(w, r, healthEnvelope(p, "health manager not initialized", "unknown", nil))
		return
	}
	globalHealthManager.serveProbe(w, r, p)
}

// HealthHandler serves /health from the process-wide manager.
func HealthHandler(w http.ResponseWriter, r *http.Request) { serveGlobal(w, r, aggregateProbe) }

// LivenessHandler serves /health/live from the process-wide manager.
func LivenessHandler(w http.ResponseWriter, r *http.Request) { serveGlobal(w, r, liveProbe) }

// ReadinessHandler serves /health/ready from the process-wide manager.
func ReadinessHandler(w http.ResponseWriter, r *http.Request) { serveGlobal(w, r, readyProbe) }

// StartupHandler serves /health/startup from the process-wide manager.
func StartupHandler(w http.ResponseWriter, r *http.Request) { serveGlobal(w, r, startupProbe) }

// PingChecker reports a dependency healthy when it answers a ping.
type PingChecker struct {
	Target interface {
		PingContext(ctx context.Context) error
	}
}

func (p PingChecker) CheckHealth(ctx context.Context) error {
	if p.Target == nil {
		return errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "no ping target")
	}
	return p.Target.PingContext(ctx)
}
