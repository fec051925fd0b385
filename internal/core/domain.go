package core

import (
	"errors"
	"strings"

	"github.com/weppos/publicsuffix-go/publicsuffix"
)

// ErrInvalidDomain is returned when a domain has no registrable label.
var ErrInvalidDomain = errors.New("domain must include a name and a tld")

// SplitDomain splits a domain into its second-level label and public suffix.
//
// Suffixes come from the public suffix list so "shop.co.uk" yields ("shop",
// "co.uk"). Unknown suffixes fall back to splitting on the last dot.
func SplitDomain(domain string) (string, string, error) {
	value := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if value == "" || !strings.Contains(value, ".") {
		return "", "", ErrInvalidDomain
	}

	if parsed, err := publicsuffix.Parse(value); err == nil && parsed.SLD != "" && parsed.TLD != "" {
		return parsed.SLD, parsed.TLD, nil
	}

	idx := strings.LastIndex(value, ".")
	name, tld := value[:idx], value[idx+1:]
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || tld == "" {
		return "", "", ErrInvalidDomain
	}
	return name, tld, nil
}

// SecondLevelName returns the label left of the suffix, or the input's first
// label when the domain cannot be split.
func SecondLevelName(domain string) string {
	if name, _, err := SplitDomain(domain); err == nil {
		return name
	}
	value := strings.ToLower(strings.TrimSpace(domain))
	if idx := strings.Index(value, "."); idx >= 0 {
		return value[:idx]
	}
	return value
}

// TLDOf returns the public suffix of a domain, or "" when it has none.
func TLDOf(domain string) string {
	if _, tld, err := SplitDomain(domain); err == nil {
		return tld
	}
	return ""
}
