package checker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openrdap/rdap"
	"go.uber.org/zap"

	"github.com/namelens/domainsearch/internal/core"
	"github.com/namelens/domainsearch/internal/core/engine"
	"github.com/namelens/domainsearch/internal/metrics"
	"github.com/namelens/domainsearch/internal/observability"
)

// DefaultRDAPServer redirects to the authoritative RDAP service for a TLD.
const DefaultRDAPServer = "https://rdap.org"

const (
	defaultInfoTimeout  = 10 * time.Second
	defaultInfoCacheTTL = 6 * time.Hour
	day                 = 24 * time.Hour
	year                = 365 * day
)

var (
	// ErrNoRDAPData is returned when RDAP has no usable record for a domain.
	ErrNoRDAPData = errors.New("domain information not available")
	// ErrRateLimited is returned when the local rate limiter refuses a request.
	ErrRateLimited = errors.New("rate limited")
	// ErrUpstream is returned when the RDAP service fails for any other reason.
	ErrUpstream = errors.New("rdap service unavailable")
)

// autoRenewIndicators are RDAP status fragments that imply the registrar
// renews the domain without owner action.
var autoRenewIndicators = []string{
	"auto renew period",
	"autorenew",
	"auto-renew",
	"auto renew",
	"renewal grace period",
	"redemption period",
}

// RegistrationStore caches RDAP records.
type RegistrationStore interface {
	GetRegistration(ctx context.Context, domain string) (*core.RegistrationRecord, error)
	SetRegistration(ctx context.Context, record *core.RegistrationRecord, ttl time.Duration) error
}

// DomainInfoEnricher looks up registration metadata for taken domains.
type DomainInfoEnricher struct {
	Store      RegistrationStore
	Client     *rdap.Client
	HTTPClient *http.Client
	Server     string
	Timeout    time.Duration
	CacheTTL   time.Duration
	Limiter    *engine.RateLimiter
	Clock      func() time.Time
}

// Lookup returns registration details for domain.
func (e *DomainInfoEnricher) Lookup(ctx context.Context, domain string) (*core.DomainInfo, error) {
	record, err := e.Record(ctx, domain)
	if err != nil {
		return nil, err
	}
	return BuildDomainInfo(record, e.now()), nil
}

// Record returns the raw RDAP registration record, from cache when fresh.
func (e *DomainInfoEnricher) Record(ctx context.Context, domain string) (*core.RegistrationRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil, core.ErrInvalidDomain
	}

	if e.Store != nil {
		if cached, err := e.Store.GetRegistration(ctx, domain); err == nil && cached != nil {
			metrics.RecordDomainInfoLookup("cache")
			return cached, nil
		}
	}

	serverURL, err := url.Parse(e.server())
	if err != nil {
		return nil, fmt.Errorf("invalid rdap server url: %w", err)
	}
	endpoint := serverURL.Hostname()

	wait, err := e.Limiter.Acquire(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if wait > 0 {
		metrics.RecordDomainInfoLookup("rate_limited")
		return nil, fmt.Errorf("%w: retry in %s", ErrRateLimited, wait.Round(time.Second))
	}

	timeout := e.timeout()
	lookupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := rdap.NewDomainRequest(domain).WithServer(serverURL)
	req.Timeout = timeout
	req = req.WithContext(lookupCtx)

	resp, err := e.client().Do(req)
	statusCode, server := responseStatus(resp, rdapDomainURL(serverURL, domain))
	if err != nil {
		if statusCode == http.StatusTooManyRequests && e.Limiter != nil && endpoint != "" {
			if wait := retryAfter(resp); wait > 0 {
				_ = e.Limiter.Record429(ctx, endpoint, wait)
			}
		}
		metrics.RecordDomainInfoLookup("error")
		observability.Logger().Debug("RDAP lookup failed",
			zap.String("domain", domain),
			zap.Int("status", statusCode),
			zap.Error(err))
		if isNotFound(err) || statusCode == http.StatusNotFound {
			return nil, ErrNoRDAPData
		}
		return nil, fmt.Errorf("%w: rdap lookup for %s: %w", ErrUpstream, domain, err)
	}

	rdapDomain, ok := resp.Object.(*rdap.Domain)
	if !ok {
		metrics.RecordDomainInfoLookup("error")
		return nil, ErrNoRDAPData
	}

	record := &core.RegistrationRecord{
		Domain:     domain,
		Registered: findEventDate(rdapDomain.Events, "registration"),
		Expires:    findEventDate(rdapDomain.Events, "expiration"),
		Statuses:   rdapDomain.Status,
		Registrar:  findRegistrar(rdapDomain),
		Server:     server,
		FetchedAt:  e.now(),
	}
	metrics.RecordDomainInfoLookup("success")

	if e.Store != nil {
		if err := e.Store.SetRegistration(ctx, record, e.cacheTTL()); err != nil {
			observability.Logger().Warn("Failed to cache RDAP record",
				zap.String("domain", domain),
				zap.Error(err))
		}
	}
	return record, nil
}

// BuildDomainInfo derives age, auto-renewal, and expiry countdown from a
// registration record as of now.
func BuildDomainInfo(record *core.RegistrationRecord, now time.Time) *core.DomainInfo {
	if record == nil {
		return nil
	}
	info := &core.DomainInfo{
		Domain:         record.Domain,
		HasAutoRenewal: HasAutoRenewal(record.Statuses),
		Registrar:      record.Registrar,
	}

	if record.Registered != "" {
		registered := record.Registered
		info.RegistrationDate = &registered
		if at, err := parseEventDate(registered); err == nil {
			age := int(math.Floor(float64(now.Sub(at)) / float64(year)))
			info.Age = &age
		}
	}

	if !info.HasAutoRenewal && record.Expires != "" {
		if at, err := parseEventDate(record.Expires); err == nil {
			days := int(math.Ceil(float64(at.Sub(now)) / float64(day)))
			info.DaysUntilExpiration = &days
		}
	}
	return info
}

// HasAutoRenewal reports whether any RDAP status implies automatic renewal.
func HasAutoRenewal(statuses []string) bool {
	for _, status := range statuses {
		lower := strings.ToLower(status)
		for _, indicator := range autoRenewIndicators {
			if strings.Contains(lower, indicator) {
				return true
			}
		}
	}
	return false
}

func parseEventDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if at, err := time.Parse(layout, value); err == nil {
			return at, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized event date %q", value)
}

func (e *DomainInfoEnricher) client() *rdap.Client {
	if e.Client != nil {
		return e.Client
	}
	httpClient := e.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: e.timeout()}
	}
	return &rdap.Client{HTTP: httpClient, UserAgent: "domainsearch/1.0"}
}

func (e *DomainInfoEnricher) server() string {
	if e != nil && strings.TrimSpace(e.Server) != "" {
		return strings.TrimSpace(e.Server)
	}
	return DefaultRDAPServer
}

func (e *DomainInfoEnricher) timeout() time.Duration {
	if e != nil && e.Timeout > 0 {
		return e.Timeout
	}
	return defaultInfoTimeout
}

func (e *DomainInfoEnricher) cacheTTL() time.Duration {
	if e != nil && e.CacheTTL > 0 {
		return e.CacheTTL
	}
	return defaultInfoCacheTTL
}

func (e *DomainInfoEnricher) now() time.Time {
	if e != nil && e.Clock != nil {
		return e.Clock()
	}
	return time.Now().UTC()
}

func rdapDomainURL(server *url.URL, domain string) string {
	if server == nil {
		return ""
	}

	temp := *server
	temp.RawQuery = ""
	temp.Fragment = ""
	base := temp.String()
	if base == "" {
		return ""
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + "domain/" + strings.TrimSpace(domain)
}

func responseStatus(resp *rdap.Response, fallbackURL string) (int, string) {
	if resp == nil || len(resp.HTTP) == 0 || resp.HTTP[0] == nil || resp.HTTP[0].Response == nil {
		return 0, strings.TrimSpace(fallbackURL)
	}

	server := strings.TrimSpace(resp.HTTP[0].URL)
	if server == "" {
		server = strings.TrimSpace(fallbackURL)
	}
	return resp.HTTP[0].Response.StatusCode, server
}

func retryAfter(resp *rdap.Response) time.Duration {
	if resp == nil || len(resp.HTTP) == 0 || resp.HTTP[0] == nil {
		return 0
	}
	wait := RetryAfter(resp.HTTP[0].Response)
	return wait
}

func findRegistrar(domain *rdap.Domain) string {
	for _, entity := range domain.Entities {
		for _, role := range entity.Roles {
			if role == "registrar" && entity.VCard != nil {
				return entity.VCard.Name()
			}
		}
	}
	return ""
}

func findEventDate(events []rdap.Event, action string) string {
	for _, event := range events {
		if event.Action == action {
			return event.Date
		}
	}
	return ""
}

func isNotFound(err error) bool {
	var clientErr *rdap.ClientError
	if !errors.As(err, &clientErr) {
		return false
	}
	return clientErr.Type == rdap.ObjectDoesNotExist
}
