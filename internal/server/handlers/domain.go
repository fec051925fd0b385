package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/net/idna"

	"github.com/namelens/domainsearch/internal/core"
	"github.com/namelens/domainsearch/internal/core/checker"
	"github.com/namelens/domainsearch/internal/core/engine"
	apperrors "github.com/namelens/domainsearch/internal/errors"
	"github.com/namelens/domainsearch/internal/observability"
	"github.com/namelens/domainsearch/internal/registrar"
)

// timestampLayout matches the millisecond UTC stamps of the price file.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Dependencies are the collaborators behind the domain API.
type Dependencies struct {
	Availability engine.AvailabilityChecker
	Demand       engine.DemandLookup
	Info         engine.InfoLookup
	Prices       *registrar.PriceTable
	Quotes       *registrar.QuoteService
	Refresher    *registrar.Refresher

	// NewSearcher builds a searcher per request so concurrent searches never
	// supersede each other.
	NewSearcher func() *engine.Searcher

	CronSecret string
	CronMode   registrar.RefreshMode
	Clock      func() time.Time
}

// DomainAPI serves the domain search endpoints.
type DomainAPI struct {
	deps Dependencies
}

// NewDomainAPI wires the domain endpoints to deps.
func NewDomainAPI(deps Dependencies) *DomainAPI {
	return &DomainAPI{deps: deps}
}

// Mount registers the domain endpoints on r.
func (a *DomainAPI) Mount(r chi.Router) {
	r.Get("/check", a.Check)
	r.Get("/domainInfo", a.DomainInfo)
	r.Get("/searchDemand", a.SearchDemand)
	r.Get("/domain-prices", a.DomainPrices)
	r.Get("/prices", a.Prices)
	r.Get("/search", a.Search)
	r.Get("/search/stream", a.SearchStream)
	r.Get("/cron/update-prices", a.UpdatePrices)
	r.Post("/cron/update-prices", a.UpdatePrices)
}

// CheckResponse is the body of GET /check.
type CheckResponse struct {
	Domain    string `json:"domain"`
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// Check runs the DNS availability heuristic for one domain.
func (a *DomainAPI) Check(w http.ResponseWriter, r *http.Request) {
	domain, err := domainParam(r, "domain")
	if err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Domain parameter is required"))
		return
	}
	if a.deps.Availability == nil {
		respondWithError(w, r, apperrors.NewInternalError("availability checker not configured"))
		return
	}

	result := a.deps.Availability.Resolve(r.Context(), domain)
	writeJSON(w, http.StatusOK, CheckResponse{
		Domain:    domain,
		Available: result.Available,
		Message:   result.Message,
	})
}

// DomainInfo returns registration details from RDAP.
func (a *DomainAPI) DomainInfo(w http.ResponseWriter, r *http.Request) {
	domain, err := domainParam(r, "domain")
	if err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Domain parameter is required"))
		return
	}
	if a.deps.Info == nil {
		respondWithError(w, r, apperrors.NewNotFoundError("Domain information not available"))
		return
	}

	info, err := a.deps.Info.Lookup(r.Context(), domain)
	if err != nil {
		if !errors.Is(err, checker.ErrNoRDAPData) {
			observability.Logger().Warn("domain info lookup failed",
				zap.String("domain", domain),
				zap.Error(err))
		}
		respondWithError(w, r, apperrors.WrapNotFound(r.Context(), err, "Domain information not available"))
		return
	}
	info.Domain = domain
	writeJSON(w, http.StatusOK, info)
}

// DemandResponse is the body of GET /searchDemand.
type DemandResponse struct {
	Score float64          `json:"score"`
	Label core.DemandLabel `json:"label"`
}

// SearchDemand estimates keyword search demand.
func (a *DomainAPI) SearchDemand(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	if keyword == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError("Keyword parameter is required"))
		return
	}
	if a.deps.Demand == nil {
		writeJSON(w, http.StatusOK, DemandResponse{Label: core.DemandLow})
		return
	}

	demand := a.deps.Demand.Estimate(r.Context(), keyword)
	writeJSON(w, http.StatusOK, DemandResponse{Score: demand.Score, Label: demand.Label})
}

// domainParam reads and validates a domain query parameter. Unicode names are
// converted to their ASCII form.
func domainParam(r *http.Request, name string) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return "", errors.New("missing " + name)
	}
	return NormalizeDomain(raw)
}

// NormalizeDomain lowercases domain, converts IDNs to punycode and rejects
// names that are not valid hostnames with a suffix.
func NormalizeDomain(raw string) (string, error) {
	value := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), ".")
	if value == "" {
		return "", core.ErrInvalidDomain
	}
	ascii, err := idna.Lookup.ToASCII(value)
	if err != nil {
		return "", err
	}
	if _, _, err := core.SplitDomain(ascii); err != nil {
		return "", err
	}
	return ascii, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (a *DomainAPI) now() time.Time {
	if a.deps.Clock != nil {
		return a.deps.Clock()
	}
	return time.Now()
}

func (a *DomainAPI) timestamp() string {
	return a.now().UTC().Format(timestampLayout)
}

// detach keeps request-scoped values but drops cancellation, for work that
// should finish even if the caller goes away.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
