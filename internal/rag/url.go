package rag

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL standardizes a URL so the frontier can deduplicate reliably.
// It lowercases the scheme and host, removes default ports, strips the
// fragment, and sorts query parameters.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" && strings.HasSuffix(u.Host, ":80") {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" && strings.HasSuffix(u.Host, ":443") {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""

	// Encode sorts query keys, giving a canonical ordering.
	q := u.Query()
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Domain extracts the lowercased hostname from a URL. It is the identity
// of a crawl job and of the knowledge-base collection derived from it.
func Domain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	return host, nil
}

// SameHost reports whether rawURL points at host, ignoring the port.
// Cross-domain links are out of scope for a crawl job.
func SameHost(rawURL, host string) bool {
	d, err := Domain(rawURL)
	if err != nil {
		return false
	}
	return d == strings.ToLower(host)
}
