// Package suggest turns a raw search keyword into candidate domains.
package suggest

import (
	"errors"
	"strings"
	"unicode"

	"github.com/namelens/domainsearch/internal/core"
)

// ErrEmptyName is returned when normalization leaves nothing to search for.
var ErrEmptyName = errors.New("name is empty after normalization")

// Normalize lowercases raw input, drops whitespace, keeps the text before the
// first dot, and strips everything outside [a-z0-9-].
func Normalize(raw string) string {
	value := strings.ToLower(raw)
	value = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, value)

	if idx := strings.Index(value, "."); idx >= 0 {
		value = value[:idx]
	}

	var sb strings.Builder
	sb.Grow(len(value))
	for _, r := range value {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Generate returns one "<base>.<tld>" candidate per supported TLD, in order.
func Generate(raw string) ([]string, error) {
	base := Normalize(raw)
	if base == "" {
		return nil, ErrEmptyName
	}
	return ForTLDs(base, core.SupportedTLDs), nil
}

// ForTLDs pairs an already normalized base with each TLD.
func ForTLDs(base string, tlds []string) []string {
	out := make([]string, 0, len(tlds))
	for _, tld := range tlds {
		tld = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(tld)), ".")
		if tld == "" {
			continue
		}
		out = append(out, base+"."+tld)
	}
	return out
}
