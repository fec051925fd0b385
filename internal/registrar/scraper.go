package registrar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/namelens/domainsearch/internal/core/checker"
)

const (
	minDomainPrice = 5.0
	maxDomainPrice = 200.0

	// DefaultScrapeUserAgent is sent to registrar search pages.
	DefaultScrapeUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// ErrNoPrice means a page had no plausible domain price on it.
var ErrNoPrice = errors.New("no domain price found")

// SearchPageTemplates are the registrar result pages scraped for prices.
var SearchPageTemplates = map[string]string{
	Namecheap: "https://www.namecheap.com/domains/registration/results/?domain={{domain}}",
	GoDaddy:   "https://www.godaddy.com/domains/search?domainToCheck={{domain}}",
	Porkbun:   "https://porkbun.com/domain/{{domain}}",
}

var pricePattern = regexp.MustCompile(`\$(\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?)`)

// PriceScraper finds the advertised registration price for domain.
type PriceScraper interface {
	ScrapePrice(ctx context.Context, registrar, domain string) (string, error)
}

// PageScraper reads registrar search result pages with goquery.
type PageScraper struct {
	HTTP      *http.Client
	UserAgent string
	Timeout   time.Duration
	// Templates overrides SearchPageTemplates.
	Templates map[string]string
}

// ScrapePrice fetches the search page and picks the median plausible price.
// Elements whose class mentions "price" are preferred over the whole page.
func (s *PageScraper) ScrapePrice(ctx context.Context, registrar, domain string) (string, error) {
	template, ok := s.templates()[normalizeKey(registrar)]
	if !ok {
		return "", fmt.Errorf("no search page for registrar %q", registrar)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, render(template, domain), nil)
	if err != nil {
		return "", err
	}
	userAgent := s.UserAgent
	if userAgent == "" {
		userAgent = DefaultScrapeUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s search page: %w", registrar, err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s search page returned status %d", registrar, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse %s search page: %w", registrar, err)
	}
	doc.Find("script, style, noscript").Remove()

	var scoped []string
	doc.Find(`[class*="price"], [class*="Price"], [data-testid*="price"]`).Each(func(_ int, sel *goquery.Selection) {
		scoped = append(scoped, sel.Text())
	})

	if price, ok := MedianPrice(strings.Join(scoped, " ")); ok {
		return price, nil
	}
	if price, ok := MedianPrice(doc.Find("body").Text()); ok {
		return price, nil
	}
	return "", ErrNoPrice
}

// MedianPrice extracts "$N.NN" amounts from text, keeps those within the
// plausible domain price range and returns the middle one (upper median).
func MedianPrice(text string) (string, bool) {
	matches := pricePattern.FindAllStringSubmatch(text, -1)
	values := make([]float64, 0, len(matches))
	for _, match := range matches {
		value, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", ""), 64)
		if err != nil {
			continue
		}
		if value < minDomainPrice || value > maxDomainPrice {
			continue
		}
		values = append(values, value)
	}
	if len(values) == 0 {
		return "", false
	}
	sort.Float64s(values)
	return fmt.Sprintf("$%.2f", values[len(values)/2]), true
}

func (s *PageScraper) templates() map[string]string {
	if len(s.Templates) > 0 {
		return s.Templates
	}
	return SearchPageTemplates
}

func (s *PageScraper) client() *http.Client {
	if s.HTTP != nil {
		return s.HTTP
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return checker.NewRetryClient(timeout, 1)
}
