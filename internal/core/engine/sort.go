package engine

import (
	"sort"

	"github.com/namelens/domainsearch/internal/core"
)

func availabilityRank(a core.Availability) int {
	switch a {
	case core.AvailabilityAvailable:
		return 0
	case core.AvailabilityLoading:
		return 1
	default:
		return 2
	}
}

// CompareCandidates orders available before loading before taken, then by
// brandability (higher first), TLD priority and finally the domain itself.
// It returns a negative number when a sorts before b.
func CompareCandidates(a, b core.Candidate) int {
	if ra, rb := availabilityRank(a.Availability), availabilityRank(b.Availability); ra != rb {
		return ra - rb
	}
	if a.BrandabilityScore != b.BrandabilityScore {
		return b.BrandabilityScore - a.BrandabilityScore
	}
	if pa, pb := core.TLDPriority(a.TLD), core.TLDPriority(b.TLD); pa != pb {
		return pa - pb
	}
	switch {
	case a.Domain < b.Domain:
		return -1
	case a.Domain > b.Domain:
		return 1
	default:
		return 0
	}
}

// SortCandidates sorts candidates in place.
func SortCandidates(candidates []core.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return CompareCandidates(candidates[i], candidates[j]) < 0
	})
}
