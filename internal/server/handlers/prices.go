package handlers

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/namelens/domainsearch/internal/core"
	apperrors "github.com/namelens/domainsearch/internal/errors"
	"github.com/namelens/domainsearch/internal/observability"
	"github.com/namelens/domainsearch/internal/registrar"
)

// DomainPricesResponse is the body of GET /domain-prices.
type DomainPricesResponse struct {
	Domain    string                     `json:"domain"`
	Prices    map[string]core.PriceQuote `json:"prices"`
	Timestamp string                     `json:"timestamp"`
}

// DomainPrices asks every configured registrar for a live quote.
func (a *DomainAPI) DomainPrices(w http.ResponseWriter, r *http.Request) {
	domain, err := domainParam(r, "domain")
	if err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Domain parameter is required"))
		return
	}

	writeJSON(w, http.StatusOK, DomainPricesResponse{
		Domain:    domain,
		Prices:    a.deps.Quotes.Quote(r.Context(), domain),
		Timestamp: a.timestamp(),
	})
}

// PriceTableResponse is the body of GET /prices.
type PriceTableResponse struct {
	Domain      string                   `json:"domain"`
	TLD         string                   `json:"tld"`
	Prices      []core.RegistrarPriceRow `json:"prices"`
	LastUpdated string                   `json:"lastUpdated"`
}

// Prices returns the static price table rows with affiliate links.
func (a *DomainAPI) Prices(w http.ResponseWriter, r *http.Request) {
	domain, err := domainParam(r, "domain")
	if err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Domain parameter is required"))
		return
	}

	table := a.deps.Prices
	if table == nil {
		table = registrar.SeedPriceTable()
	}
	writeJSON(w, http.StatusOK, PriceTableResponse{
		Domain:      domain,
		TLD:         core.TLDOf(domain),
		Prices:      table.Rows(domain),
		LastUpdated: table.LastUpdated(),
	})
}

// UpdatePricesResponse is the body of the cron refresh endpoint.
type UpdatePricesResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Updated   int    `json:"updated"`
}

// UpdatePrices runs the price refresh job. Callers must present the cron
// secret as a bearer token; with no secret configured every call is refused.
// Only the cron mode runs over HTTP; a full refresh outlasts the server's
// write timeout and belongs to `prices update`.
func (a *DomainAPI) UpdatePrices(w http.ResponseWriter, r *http.Request) {
	if !a.authorizedCron(r) {
		respondWithError(w, r, apperrors.NewUnauthorizedError("Unauthorized"))
		return
	}
	if a.deps.Refresher == nil {
		respondWithError(w, r, apperrors.NewInternalError("Price refresh is not configured"))
		return
	}

	mode := a.deps.CronMode
	if raw := r.URL.Query().Get("mode"); raw != "" {
		parsed, err := registrar.ParseRefreshMode(raw)
		if err != nil {
			respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Invalid refresh mode"))
			return
		}
		mode = parsed
	}
	if mode == "" {
		mode = registrar.RefreshCron
	}
	if mode == registrar.RefreshFull {
		respondWithError(w, r, apperrors.NewInvalidInputError("Full refresh is only available from the CLI (prices update --mode full)"))
		return
	}

	result, err := a.deps.Refresher.Run(detach(r.Context()), mode)
	if err != nil {
		observability.Logger().Error("price refresh failed",
			zap.String("mode", string(mode)),
			zap.Error(err))
		respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "Failed to update prices"))
		return
	}

	writeJSON(w, http.StatusOK, UpdatePricesResponse{
		Success:   true,
		Message:   fmt.Sprintf("Updated %d of %d prices", result.Updated, result.Attempted),
		Timestamp: result.LastUpdated,
		Updated:   result.Updated,
	})
}

func (a *DomainAPI) authorizedCron(r *http.Request) bool {
	secret := strings.TrimSpace(a.deps.CronSecret)
	if secret == "" {
		return false
	}
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(secret)) == 1
}
