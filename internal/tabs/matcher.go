package tabs

import (
	"net/url"
	"strings"
)

// SiteMatcher decides whether a tab URL belongs to the target site. Patterns
// use the browser match-pattern shape: scheme://host/path with * wildcards,
// e.g. "https://*.crunchyroll.com/*".
type SiteMatcher struct {
	patterns []matchPattern
}

type matchPattern struct {
	scheme string
	host   string
	path   string
}

// NewSiteMatcher compiles the given patterns, skipping malformed entries.
func NewSiteMatcher(patterns []string) *SiteMatcher {
	matcher := &SiteMatcher{}
	for _, raw := range patterns {
		scheme, rest, ok := strings.Cut(raw, "://")
		if !ok {
			continue
		}
		host, path, _ := strings.Cut(rest, "/")
		if host == "" {
			continue
		}
		matcher.patterns = append(matcher.patterns, matchPattern{
			scheme: strings.ToLower(scheme),
			host:   strings.ToLower(host),
			path:   "/" + path,
		})
	}
	return matcher
}

// Matches reports whether rawURL belongs to the target site.
func (m *SiteMatcher) Matches(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	host := strings.ToLower(parsed.Hostname())
	path := parsed.Path
	if path == "" {
		path = "/"
	}
	for _, pattern := range m.patterns {
		if pattern.matches(scheme, host, path) {
			return true
		}
	}
	return false
}

func (p matchPattern) matches(scheme, host, path string) bool {
	if p.scheme != "*" && p.scheme != scheme {
		return false
	}
	if !hostMatches(p.host, host) {
		return false
	}
	return pathMatches(p.path, path)
}

func hostMatches(pattern, host string) bool {
	if pattern == "*" || pattern == host {
		return true
	}
	if suffix, ok := strings.CutPrefix(pattern, "*."); ok {
		return host == suffix || strings.HasSuffix(host, "."+suffix)
	}
	return false
}

func pathMatches(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(path, prefix)
	}
	return pattern == path
}
