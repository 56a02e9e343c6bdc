package rewriter

import (
	"fmt"
	"net/url"
	"strings"
)

// Resolve implements spec.md §4.4's resolve(candidate, base): standard
// RFC 3986 resolution when base is supplied, otherwise the standalone
// heuristic below. Both paths require a non-empty resulting hostname.
func Resolve(candidate string, base *url.URL) (string, error) {
	if base != nil {
		ref, err := url.Parse(candidate)
		if err != nil {
			return "", fmt.Errorf("resolve: parse candidate: %w", err)
		}
		resolved := base.ResolveReference(ref)
		if resolved.Hostname() == "" {
			return "", fmt.Errorf("resolve: %q resolved against %q has no hostname", candidate, base)
		}
		return resolved.String(), nil
	}
	return resolveStandalone(candidate)
}

// resolveStandalone implements the standalone algorithm of spec.md §4.4,
// used when no base URL is available. Go's regexp (RE2) cannot express the
// spec's lookahead ((?=[/?]|$)), so the match is performed by hand instead
// of transliterating the regex; the observable behavior — including
// rejecting "http:/notenoughslashes" and "http://:1/" — is preserved.
func resolveStandalone(candidate string) (string, error) {
	lower := strings.ToLower(candidate)

	scheme := ""
	rest := candidate
	switch {
	case strings.HasPrefix(candidate, "//"):
		rest = candidate[2:]
	case strings.HasPrefix(lower, "http://"):
		scheme = "http:"
		rest = candidate[len("http://"):]
	case strings.HasPrefix(lower, "https://"):
		scheme = "https:"
		rest = candidate[len("https://"):]
	default:
		// No "//" prefix at all: if the string still starts with a bare
		// "http:" or "https:" scheme (no slashes), it is malformed.
		if strings.HasPrefix(lower, "http:") || strings.HasPrefix(lower, "https:") {
			return "", fmt.Errorf("resolve: malformed url %q", candidate)
		}
	}

	var authority, pathAndQuery string
	if idx := strings.IndexAny(rest, "/?"); idx == -1 {
		authority = rest
	} else {
		authority = rest[:idx]
		pathAndQuery = rest[idx:]
	}
	if authority == "" {
		return "", fmt.Errorf("resolve: %q has no authority", candidate)
	}

	host, port := authority, ""
	if ci := strings.LastIndex(authority, ":"); ci != -1 {
		maybePort := authority[ci+1:]
		if isDigits(maybePort) && len(maybePort) <= 5 {
			host, port = authority[:ci], maybePort
		}
	}
	if host == "" {
		return "", fmt.Errorf("resolve: %q has no hostname", candidate)
	}

	if scheme == "" {
		if port == "443" {
			scheme = "https:"
		} else {
			scheme = "http:"
		}
	}

	hostport := host
	if port != "" {
		hostport = host + ":" + port
	}

	u, err := url.Parse(scheme + "//" + hostport + pathAndQuery)
	if err != nil {
		return "", fmt.Errorf("resolve: %w", err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("resolve: %q has no hostname", candidate)
	}
	return u.String(), nil
}

func isDigits(s string) bool {
	if s == "" {
		return true // spec's \d{0,5} permits an empty port capture
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
