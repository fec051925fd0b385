package checker

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/namelens/domainsearch/internal/core"
	"github.com/namelens/domainsearch/internal/metrics"
	"github.com/namelens/domainsearch/internal/observability"
)

const dnsSource = "dns"

// Resolver messages returned to API clients.
const (
	MessageParked        = "Domain appears to be available (parking IP detected)"
	MessageParkedBrand   = "Domain is already registered (parking IP on a brand-like name)"
	MessageResolved      = "Domain is already registered (has A records)"
	MessageNotFound      = "Domain appears to be available (no DNS records found)"
	MessageNoData        = "Domain is already registered (has DNS records but no A records)"
	MessageTimeout       = "Domain appears to be registered (DNS lookup timed out)"
	MessageLookupFailure = "Domain appears to be registered (DNS lookup failed)"
)

// DefaultParkingAddresses are sinkhole addresses that registrars park
// unregistered names behind.
var DefaultParkingAddresses = []string{"143.244.220.150", "0.0.0.0", "127.0.0.1"}

const (
	defaultDNSTimeout   = 5 * time.Second
	defaultMinRandomRun = 6
)

// AvailabilityResolver classifies domains as available or taken from DNS
// behaviour alone. The verdict is a best-effort inference: only a name the
// resolver reports as nonexistent reads as available, and a name parked
// behind a denylisted address is only trusted when it looks generated.
type AvailabilityResolver struct {
	Resolver     Resolver
	Nameserver   string
	Timeout      time.Duration
	Denylist     []string
	MinRandomRun int
	ToolVersion  string
	Clock        func() time.Time
}

// NewResolver returns a net.Resolver that dials nameserver directly, or the
// system resolver when nameserver is empty.
func NewResolver(nameserver string, timeout time.Duration) *net.Resolver {
	nameserver = strings.TrimSpace(nameserver)
	if nameserver == "" {
		return net.DefaultResolver
	}
	if _, _, err := net.SplitHostPort(nameserver); err != nil {
		nameserver = net.JoinHostPort(nameserver, "53")
	}
	if timeout <= 0 {
		timeout = defaultDNSTimeout
	}
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			d := net.Dialer{Timeout: timeout}
			return d.DialContext(ctx, network, nameserver)
		},
	}
}

// Resolve performs an A-record lookup for domain and classifies the answer.
func (a *AvailabilityResolver) Resolve(ctx context.Context, domain string) core.AvailabilityResult {
	if ctx == nil {
		ctx = context.Background()
	}
	domain = strings.ToLower(strings.TrimSpace(domain))
	requestedAt := a.now()

	lookupCtx, cancel := context.WithTimeout(ctx, a.timeout())
	defer cancel()

	ips, err := a.resolver().LookupIP(lookupCtx, "ip4", domain)
	if err != nil {
		if isNoSuchHost(err) {
			return a.confirmMissing(lookupCtx, domain, requestedAt)
		}
		return a.classifyError(lookupCtx, domain, err, requestedAt)
	}

	addresses := make([]string, 0, len(ips))
	for _, ip := range ips {
		addresses = append(addresses, ip.String())
	}

	if len(addresses) > 0 && a.allDenylisted(addresses) {
		if LooksRandom(core.SecondLevelName(domain), a.minRandomRun()) {
			return a.result(domain, true, core.OutcomeParked, MessageParked, addresses, requestedAt)
		}
		return a.result(domain, false, core.OutcomeParkedBrand, MessageParkedBrand, addresses, requestedAt)
	}

	return a.result(domain, false, core.OutcomeResolved, MessageResolved, addresses, requestedAt)
}

// confirmMissing follows up an A lookup the resolver answered with "not
// found". Go reports NXDOMAIN and NOERROR/NODATA the same way, so the name is
// only available when it has no NS records either.
func (a *AvailabilityResolver) confirmMissing(ctx context.Context, domain string, requestedAt time.Time) core.AvailabilityResult {
	ns, err := a.resolver().LookupNS(ctx, domain)
	switch {
	case err == nil && len(ns) > 0:
		return a.result(domain, false, core.OutcomeNoData, MessageNoData, nil, requestedAt)
	case err == nil, isNoSuchHost(err):
		return a.result(domain, true, core.OutcomeNotFound, MessageNotFound, nil, requestedAt)
	default:
		return a.classifyError(ctx, domain, err, requestedAt)
	}
}

func isNoSuchHost(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}

func (a *AvailabilityResolver) classifyError(ctx context.Context, domain string, err error, requestedAt time.Time) core.AvailabilityResult {
	if isTimeout(ctx, err) {
		return a.result(domain, false, core.OutcomeTimeout, MessageTimeout, nil, requestedAt)
	}
	observability.Logger().Debug("DNS lookup failed",
		zap.String("domain", domain),
		zap.Error(err))
	return a.result(domain, false, core.OutcomeError, MessageLookupFailure, nil, requestedAt)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsTimeout {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// LooksRandom reports whether name is made only of letters and is at least
// minRun long, the shape of generated placeholder names.
func LooksRandom(name string, minRun int) bool {
	if minRun <= 0 {
		minRun = defaultMinRandomRun
	}
	run, longest := 0, 0
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			run++
			if run > longest {
				longest = run
			}
		case c >= '0' && c <= '9', c == '-':
			return false
		default:
			run = 0
		}
	}
	return longest >= minRun
}

func (a *AvailabilityResolver) allDenylisted(addresses []string) bool {
	denylist := a.Denylist
	if len(denylist) == 0 {
		denylist = DefaultParkingAddresses
	}
	for _, addr := range addresses {
		found := false
		for _, blocked := range denylist {
			if addr == strings.TrimSpace(blocked) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (a *AvailabilityResolver) result(domain string, available bool, outcome core.Outcome, message string, addresses []string, requestedAt time.Time) core.AvailabilityResult {
	metrics.RecordAvailabilityCheck(string(outcome), available)
	observability.Logger().Debug("Availability resolved",
		zap.String("domain", domain),
		zap.String("outcome", string(outcome)),
		zap.Bool("available", available))

	return core.AvailabilityResult{
		Domain:    domain,
		TLD:       core.TLDOf(domain),
		Available: available,
		Outcome:   outcome,
		Message:   message,
		Addresses: addresses,
		Provenance: core.Provenance{
			CheckID:     uuid.New().String(),
			RequestedAt: requestedAt,
			ResolvedAt:  a.now(),
			Source:      dnsSource,
			Server:      strings.TrimSpace(a.Nameserver),
			ToolVersion: a.ToolVersion,
		},
	}
}

func (a *AvailabilityResolver) resolver() Resolver {
	if a != nil && a.Resolver != nil {
		return a.Resolver
	}
	if a != nil && a.Nameserver != "" {
		return NewResolver(a.Nameserver, a.timeout())
	}
	return net.DefaultResolver
}

func (a *AvailabilityResolver) timeout() time.Duration {
	if a != nil && a.Timeout > 0 {
		return a.Timeout
	}
	return defaultDNSTimeout
}

func (a *AvailabilityResolver) minRandomRun() int {
	if a != nil && a.MinRandomRun > 0 {
		return a.MinRandomRun
	}
	return defaultMinRandomRun
}

func (a *AvailabilityResolver) now() time.Time {
	if a != nil && a.Clock != nil {
		return a.Clock()
	}
	return time.Now().UTC()
}
