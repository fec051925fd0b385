package registrar

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/namelens/domainsearch/internal/config"
	"github.com/namelens/domainsearch/internal/core"
)

const (
	// DefaultGoDaddyEndpoint is the production domains API.
	DefaultGoDaddyEndpoint = "https://api.godaddy.com"

	goDaddyDefaultPrice = "$19.99"
	goDaddyPriceMicros  = 1_000_000
)

// GoDaddyQuoter checks availability with /v1/domains/available.
type GoDaddyQuoter struct {
	apiClient
	Config config.GoDaddyConfig
}

func (q *GoDaddyQuoter) Name() string { return GoDaddy }

func (q *GoDaddyQuoter) Quote(ctx context.Context, domain string) (core.PriceQuote, error) {
	if q.Config.APIKey == "" || q.Config.APISecret == "" {
		return core.PriceQuote{}, ErrNotConfigured
	}

	endpoint := strings.TrimRight(strings.TrimSpace(q.Config.Endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultGoDaddyEndpoint
	}

	ctx, cancel := q.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/v1/domains/available?domain="+url.QueryEscape(domain), nil)
	if err != nil {
		return core.PriceQuote{}, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("sso-key %s:%s", q.Config.APIKey, q.Config.APISecret))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	status, body, err := q.do(ctx, req)
	if err != nil {
		return core.PriceQuote{}, fmt.Errorf("godaddy request failed: %w", err)
	}
	if status != http.StatusOK {
		return core.PriceQuote{}, fmt.Errorf("godaddy returned status %d", status)
	}
	if !gjson.ValidBytes(body) {
		return core.PriceQuote{}, fmt.Errorf("godaddy returned malformed json")
	}

	if !gjson.GetBytes(body, "available").Bool() {
		return core.PriceQuote{Initial: "$0", Renewal: "$0", Available: false}, nil
	}

	price := goDaddyDefaultPrice
	if micros := gjson.GetBytes(body, "price"); micros.Exists() && micros.Int() > 0 &&
		strings.EqualFold(gjson.GetBytes(body, "currency").String(), "USD") {
		price = fmt.Sprintf("$%.2f", float64(micros.Int())/goDaddyPriceMicros)
	}
	return core.PriceQuote{Initial: price, Renewal: price, Available: true}, nil
}
