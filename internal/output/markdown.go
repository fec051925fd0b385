package output

import (
	"fmt"
	"strings"

	"github.com/namelens/domainsearch/internal/core"
	"github.com/namelens/domainsearch/internal/registrar"
)

// MarkdownFormatter renders results as a markdown table.
type MarkdownFormatter struct{}

// FormatSearch renders a snapshot as Markdown.
func (f *MarkdownFormatter) FormatSearch(snapshot *core.SearchSnapshot) (string, error) {
	if snapshot == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s domains\n\n", escapeMarkdownCell(snapshot.Base)))
	sb.WriteString("| Domain | Status | Score | Value | Demand | Notes |\n")
	sb.WriteString("|--------|--------|-------|-------|--------|-------|\n")

	for _, c := range snapshot.Candidates {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
			escapeMarkdownCell(c.Domain),
			escapeMarkdownCell(availabilityLabel(c)),
			escapeMarkdownCell(scoreCell(c)),
			escapeMarkdownCell(c.EstimatedValue.String()),
			escapeMarkdownCell(string(c.SearchDemand)),
			escapeMarkdownCell(candidateNotes(c)),
		))
	}

	sb.WriteString(fmt.Sprintf("\n**Available**: %d/%d\n", snapshot.AvailableCount(), len(snapshot.Candidates)))
	return sb.String(), nil
}

// FormatPrices renders a price view as Markdown with affiliate links.
func (f *MarkdownFormatter) FormatPrices(view *PriceView) (string, error) {
	if view == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s prices\n\n", escapeMarkdownCell(view.Domain)))

	if len(view.Rows) > 0 {
		sb.WriteString("| Registrar | First Year | Renewal | Tag |\n")
		sb.WriteString("|-----------|------------|---------|-----|\n")
		for _, row := range view.Rows {
			name := escapeMarkdownCell(row.Registrar)
			if row.AffiliateURL != "" {
				name = fmt.Sprintf("[%s](%s)", name, row.AffiliateURL)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				name,
				escapeMarkdownCell(row.Initial),
				escapeMarkdownCell(row.Renewal),
				escapeMarkdownCell(row.Priority),
			))
		}
		if view.LastUpdated != "" {
			sb.WriteString(fmt.Sprintf("\n_Prices updated %s_\n", view.LastUpdated))
		}
	}

	if len(view.Quotes) > 0 {
		sb.WriteString("\n### Live quotes\n\n")
		sb.WriteString("| Registrar | Status | First Year | Renewal |\n")
		sb.WriteString("|-----------|--------|------------|---------|\n")
		for _, name := range sortedKeys(view.Quotes) {
			quote := view.Quotes[name]
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				escapeMarkdownCell(registrar.DisplayName(name)),
				quoteStatus(quote),
				escapeMarkdownCell(quote.Initial),
				escapeMarkdownCell(quote.Renewal),
			))
		}
	}

	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
