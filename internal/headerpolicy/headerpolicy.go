// Package headerpolicy implements the outbound header construction and
// scrubbing rules of spec.md §4.1: it is the smallest of the five core
// components, a pair of pure, total functions with no shared state.
package headerpolicy

import (
	"strings"

	"github.com/sofatutor/hlsproxy/internal/config"
)

// Headers is a header set keyed by the header's name as supplied, compared
// case-insensitively throughout this package. It is the same shape as the
// client-supplied header JSON object embedded into rewritten proxy URLs
// (spec.md §4.4 RewriteContext).
type Headers map[string]string

// escapeHatch maps a lower-cased inbound "X-*" client header to the
// canonical outbound header it should be translated to. The table is
// exhaustive and fixed by spec.md §4.1.
var escapeHatch = map[string]string{
	"x-cookie":     "Cookie",
	"x-referer":    "Referer",
	"x-origin":     "Origin",
	"x-user-agent": "User-Agent",
	"x-x-real-ip":  "X-Real-Ip",
}

// blacklist is the fixed, case-insensitive set of transport/forwarding
// headers that never leave the proxy outbound, plus every inbound
// escape-hatch name (so a client's raw X-Cookie, say, is never forwarded
// verbatim alongside its translated Cookie).
var blacklist = map[string]struct{}{
	"cf-connecting-ip":  {},
	"cf-worker":         {},
	"cf-ray":            {},
	"cf-visitor":        {},
	"cf-ew-via":         {},
	"cdn-loop":          {},
	"x-amzn-trace-id":   {},
	"cf-ipcountry":      {},
	"x-forwarded-for":   {},
	"x-forwarded-host":  {},
	"x-forwarded-proto": {},
	"forwarded":         {},
	"x-real-ip":         {},
	"content-length":    {},
}

func init() {
	for k := range escapeHatch {
		blacklist[k] = struct{}{}
	}
}

// lookup performs a case-insensitive get against a Headers map.
func lookup(h Headers, name string) (string, bool) {
	lname := strings.ToLower(name)
	for k, v := range h {
		if strings.ToLower(k) == lname {
			return v, true
		}
	}
	return "", false
}

// BuildOutboundHeaders produces a canonical outbound header set from the
// client's inbound headers: a default User-Agent (overridable via the
// X-User-Agent escape hatch) plus whatever escape-hatch headers the client
// supplied, translated to their outbound name. defaultUserAgent falls back
// to the bit-exact spec default when empty.
func BuildOutboundHeaders(clientHeaders Headers, defaultUserAgent string) Headers {
	if defaultUserAgent == "" {
		defaultUserAgent = config.DefaultUserAgent
	}
	out := Headers{"User-Agent": defaultUserAgent}

	for inbound, outbound := range escapeHatch {
		if v, ok := lookup(clientHeaders, inbound); ok {
			out[outbound] = v
		}
	}
	return out
}

// Scrub returns a copy of headers with every blacklisted name removed, and
// with the zstd token stripped out of Accept-Encoding if present.
func Scrub(headers Headers) Headers {
	out := make(Headers, len(headers))
	for name, value := range headers {
		if _, blocked := blacklist[strings.ToLower(name)]; blocked {
			continue
		}
		if strings.ToLower(name) == "accept-encoding" {
			value = stripZstd(value)
			if value == "" {
				continue
			}
		}
		out[name] = value
	}
	return out
}

// stripZstd removes the "zstd" token (and its surrounding comma/whitespace)
// from an Accept-Encoding value, preserving the order of the other tokens.
func stripZstd(v string) string {
	parts := strings.Split(v, ",")
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.EqualFold(strings.TrimSpace(p), "zstd") {
			continue
		}
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, ", ")
}
