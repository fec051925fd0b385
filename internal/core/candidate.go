package core

import "time"

// Candidate is one generated domain and everything learned about it so far.
//
// Score, value and demand carry data only once the candidate is available;
// loading and taken candidates always report 0, N/A and N/A.
type Candidate struct {
	Domain            string              `json:"domain"`
	TLD               string              `json:"tld"`
	Availability      Availability        `json:"availability"`
	BrandabilityScore int                 `json:"brandabilityScore"`
	EstimatedValue    Value               `json:"estimatedValue"`
	SearchDemand      DemandLabel         `json:"searchDemand"`
	DomainInfo        *DomainInfo         `json:"domainInfo,omitempty"`
	Message           string              `json:"message,omitempty"`
	Prices            []RegistrarPriceRow `json:"prices,omitempty"`
}

// NewCandidate returns a candidate in the loading state.
func NewCandidate(domain, tld string) Candidate {
	return Candidate{
		Domain:         domain,
		TLD:            tld,
		Availability:   AvailabilityLoading,
		EstimatedValue: NotApplicable,
		SearchDemand:   DemandNotApplicable,
	}
}

// Available returns a copy of c marked available with its scores populated.
func (c Candidate) Available(score int, value Value, demand DemandLabel, message string) Candidate {
	c.Availability = AvailabilityAvailable
	c.BrandabilityScore = score
	c.EstimatedValue = value
	c.SearchDemand = demand
	c.DomainInfo = nil
	c.Message = message
	return c
}

// Taken returns a copy of c marked taken; info may be nil.
func (c Candidate) Taken(info *DomainInfo, message string) Candidate {
	c.Availability = AvailabilityTaken
	c.BrandabilityScore = 0
	c.EstimatedValue = NotApplicable
	c.SearchDemand = DemandNotApplicable
	c.DomainInfo = info
	c.Message = message
	c.Prices = nil
	return c
}

// SearchSnapshot is an immutable view of a search's candidate list.
type SearchSnapshot struct {
	ID         string      `json:"id"`
	Query      string      `json:"query"`
	Base       string      `json:"base"`
	Generation uint64      `json:"generation"`
	Candidates []Candidate `json:"candidates"`
	Complete   bool        `json:"complete"`
	StartedAt  time.Time   `json:"startedAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// Pending counts candidates still loading.
func (s *SearchSnapshot) Pending() int {
	if s == nil {
		return 0
	}
	pending := 0
	for _, c := range s.Candidates {
		if !c.Availability.Terminal() {
			pending++
		}
	}
	return pending
}

// AvailableCount counts candidates resolved as available.
func (s *SearchSnapshot) AvailableCount() int {
	if s == nil {
		return 0
	}
	count := 0
	for _, c := range s.Candidates {
		if c.Availability == AvailabilityAvailable {
			count++
		}
	}
	return count
}
