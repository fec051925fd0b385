package registrar

import (
	"net/url"

	"github.com/projectdiscovery/fasttemplate"
)

const (
	placeholderOpen  = "{{"
	placeholderClose = "}}"
)

// AffiliateTemplates are outbound search links per registrar.
var AffiliateTemplates = map[string]string{
	Namecheap: "https://www.namecheap.com/domains/registration/results/?domain={{domain}}&utm_source=domainnamesearch&utm_medium=affiliate",
	GoDaddy:   "https://www.godaddy.com/domainsearch/find?domainToCheck={{domain}}&utm_source=domainnamesearch&utm_medium=affiliate",
	Porkbun:   "https://porkbun.com/checkout/search?q={{domain}}&utm_source=domainnamesearch&utm_medium=affiliate",
	Loopia:    "https://www.loopia.com/domainnames/?domain={{domain}}&utm_source=domainnamesearch&utm_medium=affiliate",
}

// AffiliateURL renders the outbound link for registrar and domain, or "" for
// an unknown registrar.
func AffiliateURL(registrar, domain string) string {
	template, ok := AffiliateTemplates[normalizeKey(registrar)]
	if !ok {
		return ""
	}
	return render(template, domain)
}

func render(template, domain string) string {
	return fasttemplate.ExecuteStringStd(template, placeholderOpen, placeholderClose, map[string]interface{}{
		"domain": url.QueryEscape(domain),
	})
}
