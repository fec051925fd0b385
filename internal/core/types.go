package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Availability is the lifecycle state of a candidate domain.
type Availability string

const (
	AvailabilityLoading   Availability = "loading"
	AvailabilityAvailable Availability = "available"
	AvailabilityTaken     Availability = "taken"
)

// Terminal reports whether the state can no longer change within a search.
func (a Availability) Terminal() bool {
	return a == AvailabilityAvailable || a == AvailabilityTaken
}

// Outcome records which resolver branch produced a verdict.
type Outcome string

const (
	OutcomeResolved    Outcome = "resolved"
	OutcomeParked      Outcome = "parked"
	OutcomeParkedBrand Outcome = "parked_brand"
	OutcomeNotFound    Outcome = "nxdomain"
	OutcomeNoData      Outcome = "nodata"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeError       Outcome = "error"
)

// Provenance captures metadata about how a lookup was resolved.
type Provenance struct {
	CheckID     string    `json:"check_id"`
	RequestedAt time.Time `json:"requested_at"`
	ResolvedAt  time.Time `json:"resolved_at"`
	Source      string    `json:"source"`
	Server      string    `json:"server,omitempty"`
	FromCache   bool      `json:"from_cache"`
	ToolVersion string    `json:"tool_version,omitempty"`
}

// AvailabilityResult is the verdict of the availability resolver.
//
// Verdicts are a best-effort inference from DNS behaviour, not a registry answer.
type AvailabilityResult struct {
	Domain     string     `json:"domain"`
	TLD        string     `json:"tld"`
	Available  bool       `json:"available"`
	Outcome    Outcome    `json:"outcome"`
	Message    string     `json:"message"`
	Addresses  []string   `json:"addresses,omitempty"`
	Provenance Provenance `json:"provenance"`
}

// DemandLabel buckets a search-demand score.
type DemandLabel string

const (
	DemandHigh          DemandLabel = "High"
	DemandMedium        DemandLabel = "Medium"
	DemandLow           DemandLabel = "Low"
	DemandNotApplicable DemandLabel = "N/A"
)

// LabelForScore maps a 0-100 demand score onto a label.
func LabelForScore(score float64) DemandLabel {
	switch {
	case score >= 70:
		return DemandHigh
	case score >= 30:
		return DemandMedium
	default:
		return DemandLow
	}
}

// DemandSource identifies where a demand score came from.
type DemandSource string

const (
	DemandSourceTrends    DemandSource = "trends"
	DemandSourceHeuristic DemandSource = "heuristic"
)

// Demand is the search-demand estimate for a keyword.
type Demand struct {
	Keyword   string       `json:"keyword"`
	Score     float64      `json:"score"`
	Label     DemandLabel  `json:"label"`
	Source    DemandSource `json:"source"`
	FromCache bool         `json:"from_cache"`
}

// DemandCacheEntry is a cached demand estimate keyed by lowercased keyword.
type DemandCacheEntry struct {
	Label     DemandLabel  `json:"label"`
	Score     float64      `json:"score"`
	Source    DemandSource `json:"source,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Fresh reports whether the entry is younger than maxAge at now.
func (e DemandCacheEntry) Fresh(now time.Time, maxAge time.Duration) bool {
	if e.Timestamp.IsZero() {
		return false
	}
	return now.Sub(e.Timestamp) < maxAge
}

// DomainInfo is registration metadata for a taken domain.
type DomainInfo struct {
	Domain              string  `json:"domain"`
	RegistrationDate    *string `json:"registrationDate"`
	Age                 *int    `json:"age"`
	HasAutoRenewal      bool    `json:"hasAutoRenewal"`
	DaysUntilExpiration *int    `json:"daysUntilExpiration,omitempty"`
	Registrar           string  `json:"registrar,omitempty"`
}

// Value is an estimated resale value in whole dollars, or not applicable.
type Value struct {
	Amount int
	Known  bool
}

// NotApplicable is the value sentinel for candidates that are not available.
var NotApplicable = Value{}

// Dollars builds a known value.
func Dollars(amount int) Value {
	return Value{Amount: amount, Known: true}
}

func (v Value) String() string {
	if !v.Known {
		return string(DemandNotApplicable)
	}
	return "$" + groupThousands(v.Amount)
}

// MarshalJSON renders known values as numbers and the sentinel as "N/A".
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Known {
		return json.Marshal(string(DemandNotApplicable))
	}
	return []byte(strconv.Itoa(v.Amount)), nil
}

// UnmarshalJSON accepts either a number or the "N/A" sentinel.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if raw == string(DemandNotApplicable) || raw == "" {
			*v = NotApplicable
			return nil
		}
		return fmt.Errorf("invalid value %q", raw)
	}
	var amount int
	if err := json.Unmarshal(data, &amount); err != nil {
		return err
	}
	*v = Dollars(amount)
	return nil
}

func groupThousands(n int) string {
	digits := strconv.Itoa(n)
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	if len(digits) <= 3 {
		return sign + digits
	}
	var sb strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		sb.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(digits[i : i+3])
	}
	return sign + sb.String()
}

// RegistrarPriceRow is one registrar offer from the static price table.
type RegistrarPriceRow struct {
	Registrar    string `json:"registrar"`
	Initial      string `json:"initial"`
	Renewal      string `json:"renewal"`
	Priority     string `json:"priority"`
	AffiliateURL string `json:"affiliateUrl,omitempty"`
}

// PriceQuote is a live registrar answer for one domain.
type PriceQuote struct {
	Initial   string `json:"initial"`
	Renewal   string `json:"renewal"`
	Available bool   `json:"available"`
}

// RateLimitState captures per-endpoint rate limiting state.
type RateLimitState struct {
	RequestCount int
	WindowStart  time.Time
	BackoffUntil *time.Time
	Last429At    *time.Time
}

// RegistrationRecord is the raw RDAP data a DomainInfo is derived from.
type RegistrationRecord struct {
	Domain     string    `json:"domain"`
	Registered string    `json:"registered,omitempty"`
	Expires    string    `json:"expires,omitempty"`
	Statuses   []string  `json:"statuses,omitempty"`
	Registrar  string    `json:"registrar,omitempty"`
	Server     string    `json:"server,omitempty"`
	FetchedAt  time.Time `json:"fetched_at"`
}
