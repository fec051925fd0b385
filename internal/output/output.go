package output

import (
	"fmt"
	"strings"

	"github.com/namelens/domainsearch/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders search snapshots and price views.
type Formatter interface {
	FormatSearch(snapshot *core.SearchSnapshot) (string, error)
	FormatPrices(view *PriceView) (string, error)
}

// PriceView is the static table and any live quotes for one domain.
type PriceView struct {
	Domain      string                     `json:"domain"`
	Rows        []core.RegistrarPriceRow   `json:"prices,omitempty"`
	Quotes      map[string]core.PriceQuote `json:"quotes,omitempty"`
	LastUpdated string                     `json:"lastUpdated,omitempty"`
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// ProgressLine summarises a snapshot in one line for live CLI output.
func ProgressLine(snapshot *core.SearchSnapshot) string {
	if snapshot == nil {
		return ""
	}
	total := len(snapshot.Candidates)
	resolved := total - snapshot.Pending()
	return fmt.Sprintf("%s: %d/%d checked, %d available", snapshot.Base, resolved, total, snapshot.AvailableCount())
}

func availabilityLabel(c core.Candidate) string {
	switch c.Availability {
	case core.AvailabilityAvailable:
		return "available"
	case core.AvailabilityTaken:
		return "taken"
	default:
		return "checking..."
	}
}

func scoreCell(c core.Candidate) string {
	if c.Availability != core.AvailabilityAvailable {
		return "-"
	}
	return fmt.Sprintf("%d/10", c.BrandabilityScore)
}

// candidateNotes describes registration details for taken domains and the
// cheapest first-year offer for available ones.
func candidateNotes(c core.Candidate) string {
	var notes []string
	if info := c.DomainInfo; info != nil {
		if info.Age != nil {
			notes = append(notes, fmt.Sprintf("registered %d yrs", *info.Age))
		}
		if info.HasAutoRenewal {
			notes = append(notes, "auto-renews")
		} else if info.DaysUntilExpiration != nil {
			notes = append(notes, fmt.Sprintf("expires in %d days", *info.DaysUntilExpiration))
		}
	}
	if c.Availability == core.AvailabilityAvailable && len(c.Prices) > 0 {
		best := c.Prices[0]
		notes = append(notes, fmt.Sprintf("from %s at %s", best.Initial, best.Registrar))
	}
	return strings.Join(notes, ", ")
}

func quoteStatus(q core.PriceQuote) string {
	if q.Available {
		return "available"
	}
	return "taken"
}
