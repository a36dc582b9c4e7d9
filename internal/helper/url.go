package helper

import (
	"net/url"
	"sort"
	"strings"
)

// NormalizeURL reduces a URL to its dedup key: scheme + host + cleaned
// path + sorted query keys. Two URLs that differ only in query values,
// key order or fragment normalize to the same string, so equivalent
// pages are tested once.
func NormalizeURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	parsed.Fragment = ""
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Scheme = strings.ToLower(parsed.Scheme)

	keys := make([]string, 0, len(parsed.Query()))
	for key := range parsed.Query() {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parsed.RawQuery = strings.Join(keys, "&")

	return parsed.String(), nil
}

// SameHost reports whether candidate points at the same host as base.
// A host-less (relative) candidate counts as same-host.
func SameHost(base *url.URL, candidate *url.URL) bool {
	if candidate.Host == "" {
		return true
	}
	return strings.EqualFold(base.Host, candidate.Host)
}

// IsWebURL accepts only absolute http/https URLs with a host.
func IsWebURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
