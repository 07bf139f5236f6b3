// Package trust answers whether a source domain is on the trusted-auction
// allowlist. High-value sale prices from these houses are accepted without
// research; everything else above the threshold gets queued.
package trust

import "strings"

// Default allowlist: the auction houses whose published hammer prices are
// taken at face value.
var defaultTrusted = []string{
	"bringatrailer.com",
	"barrett-jackson.com",
	"mecum.com",
	"rmsothebys.com",
	"goodingco.com",
	"bonhams.com",
}

type Checker struct {
	domains map[string]struct{}
}

// NewChecker builds a checker from the given domains, falling back to the
// default allowlist when none are supplied.
func NewChecker(domains []string) *Checker {
	if len(domains) == 0 {
		domains = defaultTrusted
	}
	m := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		d = normalize(d)
		if d != "" {
			m[d] = struct{}{}
		}
	}
	return &Checker{domains: m}
}

// Trusted reports whether the domain, or any parent domain, is on the
// allowlist. Subdomains of a trusted auction house are trusted.
func (c *Checker) Trusted(domain string) bool {
	d := normalize(domain)
	for d != "" {
		if _, ok := c.domains[d]; ok {
			return true
		}
		i := strings.Index(d, ".")
		if i < 0 {
			return false
		}
		d = d[i+1:]
	}
	return false
}

func normalize(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	d = strings.TrimPrefix(d, "www.")
	return strings.TrimSuffix(d, ".")
}
