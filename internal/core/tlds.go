package core

import "strings"

// SupportedTLDs lists the TLDs a search fans out to, in generation order.
var SupportedTLDs = []string{"com", "io", "app", "ai", "co", "dev", "tech", "net", "xyz"}

// otherTLDPriority ranks TLDs outside SupportedTLDs after every supported one.
const otherTLDPriority = 10

// TLDPriority returns the display rank of a TLD; com ranks first.
func TLDPriority(tld string) int {
	needle := normalizeTLD(tld)
	for i, candidate := range SupportedTLDs {
		if candidate == needle {
			return i + 1
		}
	}
	return otherTLDPriority
}

// IsSupportedTLD reports whether tld is part of the search fan-out.
func IsSupportedTLD(tld string) bool {
	return TLDPriority(tld) != otherTLDPriority
}

func normalizeTLD(tld string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(tld)), ".")
}
