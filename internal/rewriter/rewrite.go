// Package rewriter implements the Manifest Rewriter of spec.md §4.4: it
// classifies a fetched M3U8 manifest as master or media, rewrites every
// playlist/segment/key reference into a proxy URL, and collects the
// absolute segment URLs a media playlist exposes so the Prefetch
// Orchestrator (internal/prefetch) can warm them.
//
// Grounded on the line-oriented rewrite loop of other_examples'
// datarhei-core hlsrewrite.go (bufio.Scanner, blank/"#"-prefixed lines pass
// through, everything else is rewritten) generalized to the directive-aware
// dispatch spec.md §4.4 requires.
package rewriter

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/sofatutor/hlsproxy/internal/headerpolicy"
)

// urlInDirective locates the first absolute URL embedded in a directive
// line, e.g. the URI="..." attribute of #EXT-X-KEY or #EXT-X-MEDIA. The
// heuristic (first https?://[^"\s]+ match) is spec.md §4.4's and §9's: it
// will miss protocol-relative or quoted-with-whitespace URIs by design.
var urlInDirective = regexp.MustCompile(`https?://[^"\s]+`)

// Classify reports whether manifest is a master playlist: spec.md §4.4
// treats the literal substring "RESOLUTION=" anywhere in the text as
// sufficient.
func Classify(manifest string) (isMaster bool) {
	return strings.Contains(manifest, "RESOLUTION=")
}

// Result is the output of Rewrite: the rewritten manifest text and the
// absolute URLs (if any) that should be prefetched.
type Result struct {
	Manifest string
	Segments []string
}

// Rewrite implements spec.md §4.4's line processing for both master and
// media playlists. manifestURL is the already-parsed fetch URL U, used as
// the base for resolving relative references; proxyBase is P, without a
// trailing slash; clientHeaders is the decoded header JSON object H.
func Rewrite(manifest string, manifestURL *url.URL, clientHeaders headerpolicy.Headers, proxyBase string) (*Result, error) {
	encodedHeaders, err := EncodeHeaders(clientHeaders)
	if err != nil {
		return nil, err
	}

	master := Classify(manifest)
	lines := strings.Split(manifest, "\n")
	out := make([]string, len(lines))
	var segments []string

	for i, line := range lines {
		switch {
		case strings.TrimSpace(line) == "":
			out[i] = line

		case strings.HasPrefix(line, "#EXT-X-KEY"):
			match := urlInDirective.FindString(line)
			if match == "" {
				out[i] = line
				break
			}
			out[i] = strings.Replace(line, match, tsProxyURL(proxyBase, match, encodedHeaders), 1)
			if !master {
				segments = append(segments, match)
			}

		case master && strings.HasPrefix(line, "#EXT-X-MEDIA"):
			match := urlInDirective.FindString(line)
			if match == "" {
				out[i] = line
				break
			}
			out[i] = strings.Replace(line, match, m3u8ProxyURL(proxyBase, match, encodedHeaders), 1)

		case strings.HasPrefix(line, "#"):
			out[i] = line

		default:
			resolved, rerr := Resolve(line, manifestURL)
			if rerr != nil {
				out[i] = line
				break
			}
			if master {
				out[i] = m3u8ProxyURL(proxyBase, resolved, encodedHeaders)
			} else {
				segments = append(segments, resolved)
				out[i] = tsProxyURL(proxyBase, resolved, encodedHeaders)
			}
		}
	}

	return &Result{Manifest: strings.Join(out, "\n"), Segments: segments}, nil
}

func m3u8ProxyURL(proxyBase, target, encodedHeaders string) string {
	return fmt.Sprintf("%s/m3u8-proxy?url=%s&headers=%s", proxyBase, enc(target), encodedHeaders)
}

func tsProxyURL(proxyBase, target, encodedHeaders string) string {
	return fmt.Sprintf("%s/ts-proxy?url=%s&headers=%s", proxyBase, enc(target), encodedHeaders)
}

// ResponseHeaders are the fixed headers spec.md §4.4 requires on every
// rewritten-manifest response.
func ResponseHeaders() map[string]string {
	return map[string]string{
		"Content-Type":                 "application/vnd.apple.mpegurl",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "*",
		"Access-Control-Allow-Methods": "*",
		"Cache-Control":                "no-cache, no-store, must-revalidate",
	}
}

// CheckUpstreamStatus converts a non-2xx origin response into an
// UpstreamError carrying the status code and text, per spec.md §4.4/§7.
func CheckUpstreamStatus(statusCode int) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	return &UpstreamError{StatusCode: statusCode, StatusText: http.StatusText(statusCode)}
}

// RequireURL validates the mandatory url= query parameter, per spec.md §4.4.
func RequireURL(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", badRequest("missing required query parameter: url")
	}
	return raw, nil
}
