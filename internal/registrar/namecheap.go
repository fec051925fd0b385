package registrar

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/namelens/domainsearch/internal/config"
	"github.com/namelens/domainsearch/internal/core"
)

// DefaultNamecheapEndpoint is the sandbox XML API.
const DefaultNamecheapEndpoint = "https://api.sandbox.namecheap.com/xml.response"

// NamecheapQuoter checks availability with namecheap.domains.check. Standard
// registrations are priced from the table; premium names use the API price.
type NamecheapQuoter struct {
	apiClient
	Config config.NamecheapConfig
	Table  *PriceTable
}

type namecheapResponse struct {
	XMLName xml.Name `xml:"ApiResponse"`
	Status  string   `xml:"Status,attr"`
	Errors  []struct {
		Number  string `xml:"Number,attr"`
		Message string `xml:",chardata"`
	} `xml:"Errors>Error"`
	Results []namecheapCheckResult `xml:"CommandResponse>DomainCheckResult"`
}

type namecheapCheckResult struct {
	Domain                   string `xml:"Domain,attr"`
	Available                string `xml:"Available,attr"`
	IsPremiumName            string `xml:"IsPremiumName,attr"`
	PremiumRegistrationPrice string `xml:"PremiumRegistrationPrice,attr"`
	PremiumRenewalPrice      string `xml:"PremiumRenewalPrice,attr"`
}

func (q *NamecheapQuoter) Name() string { return Namecheap }

func (q *NamecheapQuoter) configured() bool {
	return q.Config.APIUser != "" && q.Config.APIKey != "" && q.Config.ClientIP != ""
}

func (q *NamecheapQuoter) Quote(ctx context.Context, domain string) (core.PriceQuote, error) {
	if !q.configured() {
		return core.PriceQuote{}, ErrNotConfigured
	}

	endpoint := strings.TrimSpace(q.Config.Endpoint)
	if endpoint == "" {
		endpoint = DefaultNamecheapEndpoint
	}
	userName := q.Config.UserName
	if userName == "" {
		userName = q.Config.APIUser
	}

	params := url.Values{}
	params.Set("ApiUser", q.Config.APIUser)
	params.Set("ApiKey", q.Config.APIKey)
	params.Set("UserName", userName)
	params.Set("Command", "namecheap.domains.check")
	params.Set("ClientIp", q.Config.ClientIP)
	params.Set("DomainList", domain)

	ctx, cancel := q.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return core.PriceQuote{}, err
	}

	status, body, err := q.do(ctx, req)
	if err != nil {
		return core.PriceQuote{}, fmt.Errorf("namecheap request failed: %w", err)
	}
	if status != http.StatusOK {
		return core.PriceQuote{}, fmt.Errorf("namecheap returned status %d", status)
	}

	var parsed namecheapResponse
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return core.PriceQuote{}, fmt.Errorf("decode namecheap response: %w", err)
	}
	if !strings.EqualFold(parsed.Status, "OK") {
		message := "unknown error"
		if len(parsed.Errors) > 0 {
			message = strings.TrimSpace(parsed.Errors[0].Message)
		}
		return core.PriceQuote{}, fmt.Errorf("namecheap error: %s", message)
	}

	for _, result := range parsed.Results {
		if !strings.EqualFold(result.Domain, domain) {
			continue
		}
		return q.quoteFromResult(domain, result), nil
	}
	return core.PriceQuote{}, fmt.Errorf("namecheap response has no result for %s", domain)
}

func (q *NamecheapQuoter) quoteFromResult(domain string, result namecheapCheckResult) core.PriceQuote {
	available, _ := strconv.ParseBool(result.Available)
	premium, _ := strconv.ParseBool(result.IsPremiumName)

	if premium {
		if initial, ok := dollars(result.PremiumRegistrationPrice); ok {
			renewal, ok := dollars(result.PremiumRenewalPrice)
			if !ok {
				renewal = DefaultRenewal(Namecheap)
			}
			return core.PriceQuote{Initial: initial, Renewal: renewal, Available: available}
		}
	}

	price := tablePrice(q.Table, Namecheap, domain)
	return core.PriceQuote{Initial: price.Initial, Renewal: price.Renewal, Available: available}
}

// tablePrice looks a registrar up in the table, using the fixed fallback row
// when the TLD is missing.
func tablePrice(table *PriceTable, registrar, domain string) TLDPrice {
	if table == nil {
		table = SeedPriceTable()
	}
	for _, row := range table.Rows(domain) {
		if row.Registrar == DisplayName(registrar) {
			return TLDPrice{Initial: row.Initial, Renewal: row.Renewal}
		}
	}
	if price, ok := table.Get(registrar, core.TLDOf(domain)); ok {
		return price
	}
	return TLDPrice{}
}

// dollars formats a positive decimal amount as "$N.NN".
func dollars(raw string) (string, bool) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || value <= 0 {
		return "", false
	}
	return fmt.Sprintf("$%.2f", value), true
}
