package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL standardizes an absolute URL to avoid duplicates.
// It lowercases the scheme and host, removes default ports, drops the
// fragment, sorts query parameters and trims a trailing slash from the path.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, rawURL)
	}
	return normalize(u), nil
}

func normalize(u *url.URL) string {
	cp := *u
	cp.Scheme = strings.ToLower(cp.Scheme)
	cp.Host = strings.ToLower(cp.Host)

	if cp.Scheme == "http" {
		cp.Host = strings.TrimSuffix(cp.Host, ":80")
	}
	if cp.Scheme == "https" {
		cp.Host = strings.TrimSuffix(cp.Host, ":443")
	}

	cp.Fragment = ""
	cp.RawFragment = ""
	cp.User = nil

	if cp.RawQuery != "" {
		cp.RawQuery = cp.Query().Encode()
	}
	cp.ForceQuery = false

	cp.Path = strings.TrimRight(cp.Path, "/")
	cp.RawPath = ""
	return cp.String()
}

// ResolveURL resolves href against base and returns the normalized absolute
// form. Only http and https targets are accepted.
func ResolveURL(base *url.URL, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("%w: empty href", ErrInvalidURL)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href: %w", err)
	}
	abs := base.ResolveReference(ref)
	scheme := strings.ToLower(abs.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, abs.Scheme)
	}
	if abs.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return normalize(abs), nil
}

// ValidateTargetURL checks a client supplied URL and returns its parsed form.
func ValidateTargetURL(rawURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidURL)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: host is required", ErrInvalidURL)
	}
	return u, nil
}

// SiteKey reduces a host to the form used for same-site comparisons.
func SiteKey(host string) string {
	host = strings.ToLower(host)
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	return strings.TrimPrefix(host, "www.")
}

// SameSite reports whether two absolute URLs share a host, ignoring "www.".
func SameSite(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ua.Hostname() != "" && SiteKey(ua.Hostname()) == SiteKey(ub.Hostname())
}
