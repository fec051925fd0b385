// Package engine coordinates a domain search: it fans candidates out to the
// lookup collaborators and folds their results into sorted snapshots.
package engine

import (
	"context"

	"github.com/namelens/domainsearch/internal/core"
)

// AvailabilityChecker infers whether a domain is unregistered.
type AvailabilityChecker interface {
	Resolve(ctx context.Context, domain string) core.AvailabilityResult
}

// DemandLookup estimates search demand for a keyword. It never fails.
type DemandLookup interface {
	Estimate(ctx context.Context, keyword string) core.Demand
}

// InfoLookup fetches registration details for a taken domain.
type InfoLookup interface {
	Lookup(ctx context.Context, domain string) (*core.DomainInfo, error)
}

// PriceLookup returns registrar offers for an available domain.
type PriceLookup interface {
	Rows(domain string) []core.RegistrarPriceRow
}
