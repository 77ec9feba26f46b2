package scraper

import (
	"net/url"
	"strings"
)

// ValidURL reports whether raw is an absolute http(s) URL with a host.
// It is the only gate in front of browser allocation, so file:, javascript:,
// data: and relative inputs never reach a browser.
func ValidURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != "" && u.Hostname() != ""
}
