// Package scoring holds the pure brandability and valuation heuristics.
package scoring

import (
	"math"
	"strings"

	"github.com/namelens/domainsearch/internal/core"
)

const (
	maxBrandability = 10
	consonants      = "bcdfghjklmnpqrstvwxyz"
	vowels          = "aeiou"
)

// Brandability scores how brandable a domain's second-level name is, 0-10.
func Brandability(domain string) int {
	name, tld := parts(domain)

	score := 0
	switch n := len(name); {
	case n == 0:
	case n <= 4:
		score += 3
	case n <= 6:
		score += 2
	case n <= 8:
		score++
	}

	if name != "" && strings.IndexByte(consonants, name[len(name)-1]) >= 0 {
		score += 2
	}

	if ratio := VowelRatio(name); ratio >= 0.3 && ratio <= 0.6 {
		score += 2
	}

	if tld == "com" {
		score++
	}

	if score > maxBrandability {
		score = maxBrandability
	}
	return score
}

// VowelRatio returns the share of aeiou characters in name.
func VowelRatio(name string) float64 {
	if name == "" {
		return 0
	}
	count := 0
	for i := 0; i < len(name); i++ {
		if strings.IndexByte(vowels, name[i]) >= 0 {
			count++
		}
	}
	return float64(count) / float64(len(name))
}

// tldMultipliers scale the base value by extension.
var tldMultipliers = map[string]float64{
	"com":  1.0,
	"io":   0.9,
	"net":  0.8,
	"org":  0.7,
	"app":  0.6,
	"dev":  0.5,
	"tech": 0.5,
}

const (
	defaultMultiplier = 0.4
	baseValue         = 100
	shortNameBonus    = 5
	keywordBonus      = 25
	keyword           = "quote"
)

// Multiplier returns the valuation multiplier for a TLD.
func Multiplier(tld string) float64 {
	if m, ok := tldMultipliers[strings.ToLower(tld)]; ok {
		return m
	}
	return defaultMultiplier
}

// EstimateValue returns the heuristic resale value of a domain in dollars.
func EstimateValue(domain string) int {
	name, tld := parts(domain)

	value := float64(baseValue)
	if n := len(name); n < 10 {
		value += float64((10 - n) * shortNameBonus)
	}
	if strings.Contains(name, keyword) {
		value += keywordBonus
	}
	return int(math.Round(value * Multiplier(tld)))
}

// EstimatedValue wraps EstimateValue as a known core.Value.
func EstimatedValue(domain string) core.Value {
	return core.Dollars(EstimateValue(domain))
}

func parts(domain string) (string, string) {
	if name, tld, err := core.SplitDomain(domain); err == nil {
		return name, tld
	}
	return core.SecondLevelName(domain), ""
}
