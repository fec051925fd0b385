package output

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/namelens/domainsearch/internal/core"
	"github.com/namelens/domainsearch/internal/registrar"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatSearch renders the candidate list as a table.
func (f *TableFormatter) FormatSearch(snapshot *core.SearchSnapshot) (string, error) {
	if snapshot == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Domain", "Status", "Score", "Value", "Demand", "Notes"})

	for _, c := range snapshot.Candidates {
		t.AppendRow(table.Row{
			c.Domain,
			availabilityLabel(c),
			scoreCell(c),
			c.EstimatedValue.String(),
			string(c.SearchDemand),
			candidateNotes(c),
		})
	}

	summary := fmt.Sprintf("%d/%d available", snapshot.AvailableCount(), len(snapshot.Candidates))
	if pending := snapshot.Pending(); pending > 0 {
		summary += fmt.Sprintf(", %d checking", pending)
	}
	t.AppendFooter(table.Row{"", summary, "", "", "", ""})

	return t.Render(), nil
}

// FormatPrices renders table offers and live quotes.
func (f *TableFormatter) FormatPrices(view *PriceView) (string, error) {
	if view == nil {
		return "", nil
	}

	var rendered string
	if len(view.Rows) > 0 {
		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetTitle(view.Domain)
		t.AppendHeader(table.Row{"Registrar", "First Year", "Renewal", "Tag", "Link"})
		for _, row := range view.Rows {
			t.AppendRow(table.Row{row.Registrar, row.Initial, row.Renewal, row.Priority, row.AffiliateURL})
		}
		if view.LastUpdated != "" {
			t.AppendFooter(table.Row{"", "", "", "updated", view.LastUpdated})
		}
		rendered = t.Render()
	}

	if len(view.Quotes) > 0 {
		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetTitle("Live quotes")
		t.AppendHeader(table.Row{"Registrar", "Status", "First Year", "Renewal"})
		for _, name := range sortedKeys(view.Quotes) {
			quote := view.Quotes[name]
			t.AppendRow(table.Row{registrar.DisplayName(name), quoteStatus(quote), quote.Initial, quote.Renewal})
		}
		if rendered != "" {
			rendered += "\n"
		}
		rendered += t.Render()
	}

	if rendered == "" {
		rendered = fmt.Sprintf("No prices for %s", view.Domain)
	}
	return rendered, nil
}

func sortedKeys(quotes map[string]core.PriceQuote) []string {
	keys := make([]string, 0, len(quotes))
	for key := range quotes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
