package checker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	commonWords  = []string{"the", "and", "for", "with", "from", "this", "that", "have", "will", "your"}
	techKeywords = []string{"app", "tech", "dev", "io", "ai", "api", "web", "cloud", "data", "code"}
	cvcPattern   = regexp.MustCompile(`(?i)^[bcdfghjklmnpqrstvwxyz][aeiou][bcdfghjklmnpqrstvwxyz]$`)
)

// HeuristicDemand scores a keyword 0-100 from its shape when trend data is
// unavailable.
func HeuristicDemand(keyword string) float64 {
	lower := strings.ToLower(keyword)
	score := 0

	switch n := utf8.RuneCountInString(keyword); {
	case n <= 4:
		score += 40
	case n <= 6:
		score += 30
	case n <= 8:
		score += 20
	case n <= 10:
		score += 10
	}

	for _, word := range commonWords {
		if lower == word {
			score += 30
			break
		}
	}

	if cvcPattern.MatchString(keyword) {
		score += 25
	}

	for _, tech := range techKeywords {
		if strings.Contains(lower, tech) {
			score += 20
			break
		}
	}

	if strings.Contains(lower, "get") || strings.Contains(lower, "go") {
		score += 15
	}
	if strings.Contains(lower, "my") || strings.Contains(lower, "me") {
		score += 15
	}

	if score > 100 {
		score = 100
	}
	return float64(score)
}
