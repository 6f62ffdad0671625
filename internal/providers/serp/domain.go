package serp

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// RegistrableHost returns the registrable domain of rawURL ("blog.example.co.uk"
// gives "example.co.uk"). A leading "www." is dropped first. Hosts without a
// known public suffix, such as IPs or localhost, are returned as-is.
func RegistrableHost(rawURL string) string {
	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return ""
	}
	if net.ParseIP(host) != nil {
		return host
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// MatchesDomain reports whether link belongs to the same registrable domain as
// target.
func MatchesDomain(target, link string) bool {
	want := RegistrableHost(target)
	return want != "" && want == RegistrableHost(link)
}

// InTop10 reports whether any of the first ten links is on target's domain.
func InTop10(target string, links []string) bool {
	if len(links) > 10 {
		links = links[:10]
	}
	for _, link := range links {
		if MatchesDomain(target, link) {
			return true
		}
	}
	return false
}
