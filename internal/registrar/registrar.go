// Package registrar covers registrar pricing: the static price table with
// affiliate links, live availability quotes and the scheduled price refresh.
package registrar

import (
	"context"
	"errors"
	"strings"

	"github.com/namelens/domainsearch/internal/core"
)

// Registrar keys used in the price file and quote responses.
const (
	Namecheap = "namecheap"
	GoDaddy   = "godaddy"
	Porkbun   = "porkbun"
	Loopia    = "loopia"
)

// ErrNotConfigured marks a registrar without credentials. Callers treat it as
// "no quote" rather than a failure.
var ErrNotConfigured = errors.New("registrar credentials not configured")

var displayNames = map[string]string{
	Namecheap: "Namecheap",
	GoDaddy:   "GoDaddy",
	Porkbun:   "Porkbun",
	Loopia:    "Loopia",
}

// DisplayName returns the user-facing registrar name.
func DisplayName(key string) string {
	key = normalizeKey(key)
	if name, ok := displayNames[key]; ok {
		return name
	}
	return key
}

// Quoter asks one registrar about one domain.
type Quoter interface {
	Name() string
	Quote(ctx context.Context, domain string) (core.PriceQuote, error)
}

func normalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
