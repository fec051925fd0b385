package checker

import (
	"context"
	"net"

	"github.com/namelens/domainsearch/internal/core/engine"
)

// Resolver is the subset of *net.Resolver used for availability lookups.
// LookupNS confirms a missing A record is a missing name and not NODATA.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
}

var (
	_ engine.AvailabilityChecker = (*AvailabilityResolver)(nil)
	_ engine.DemandLookup        = (*DemandEstimator)(nil)
	_ engine.InfoLookup          = (*DomainInfoEnricher)(nil)
	_ Resolver                   = (*net.Resolver)(nil)
)
