package registrar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/namelens/domainsearch/internal/config"
	"github.com/namelens/domainsearch/internal/core"
)

const (
	// DefaultPorkbunEndpoint is the v3 JSON API root.
	DefaultPorkbunEndpoint = "https://porkbun.com/api/json/v3"

	porkbunDefaultPrice = "$8.56"
)

// PorkbunQuoter checks availability through the Porkbun JSON API.
type PorkbunQuoter struct {
	apiClient
	Config config.PorkbunConfig
}

func (q *PorkbunQuoter) Name() string { return Porkbun }

func (q *PorkbunQuoter) Quote(ctx context.Context, domain string) (core.PriceQuote, error) {
	if q.Config.APIKey == "" || q.Config.SecretKey == "" {
		return core.PriceQuote{}, ErrNotConfigured
	}

	endpoint := strings.TrimRight(strings.TrimSpace(q.Config.Endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultPorkbunEndpoint
	}

	payload, err := json.Marshal(map[string]string{
		"domain":       domain,
		"apikey":       q.Config.APIKey,
		"secretapikey": q.Config.SecretKey,
	})
	if err != nil {
		return core.PriceQuote{}, err
	}

	ctx, cancel := q.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/domain/available", bytes.NewReader(payload))
	if err != nil {
		return core.PriceQuote{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	status, body, err := q.do(ctx, req)
	if err != nil {
		return core.PriceQuote{}, fmt.Errorf("porkbun request failed: %w", err)
	}
	if status != http.StatusOK {
		return core.PriceQuote{}, fmt.Errorf("porkbun returned status %d", status)
	}
	if !gjson.ValidBytes(body) {
		return core.PriceQuote{}, fmt.Errorf("porkbun returned malformed json")
	}

	result := gjson.ParseBytes(body)
	available := result.Get("available").Bool() || strings.EqualFold(result.Get("response.avail").String(), "yes")
	if result.Get("status").String() != "SUCCESS" || !available {
		return core.PriceQuote{Initial: "$0", Renewal: "$0", Available: false}, nil
	}

	initial, renewal := porkbunDefaultPrice, porkbunDefaultPrice
	if price, ok := dollars(result.Get("response.price").String()); ok {
		initial = price
	}
	if price, ok := dollars(result.Get("response.additional.renewal.price").String()); ok {
		renewal = price
	}
	return core.PriceQuote{Initial: initial, Renewal: renewal, Available: true}, nil
}
