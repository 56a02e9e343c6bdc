package rewriter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sofatutor/hlsproxy/internal/headerpolicy"
)

// enc implements spec.md §4.4's enc(x): strict percent-encoding of the full
// URI component, escaping every byte outside RFC 3986's unreserved set
// (ALPHA / DIGIT / "-" / "." / "_" / "~"). Unlike net/url.QueryEscape, which
// writes a space as the form-encoding '+', a space becomes "%20" here.
func enc(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreservedByte(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func isUnreservedByte(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '.' || c == '_' || c == '~':
		return true
	default:
		return false
	}
}

// ParseHeaders decodes the headers= query parameter's JSON string into a
// Headers map. An empty string is treated as an empty object, matching
// clients that omit the parameter entirely.
func ParseHeaders(headersJSON string) (headerpolicy.Headers, error) {
	if strings.TrimSpace(headersJSON) == "" {
		return headerpolicy.Headers{}, nil
	}
	var h headerpolicy.Headers
	if err := json.Unmarshal([]byte(headersJSON), &h); err != nil {
		return nil, badRequest("invalid headers json: %v", err)
	}
	return h, nil
}

// EncodeHeaders serializes headers back to the compact JSON string embedded
// as the headers= query value, then percent-encodes it with enc.
func EncodeHeaders(h headerpolicy.Headers) (string, error) {
	raw, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("rewriter: marshal headers: %w", err)
	}
	return enc(string(raw)), nil
}
