package rewriter

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// Decompress inflates body according to contentEncoding before the manifest
// text is split into lines. Grounded on the teacher's
// internal/eventtransformer.DecompressAndDecode decode-before-decide
// approach, narrowed here to the two encodings an HLS origin plausibly uses.
func Decompress(contentEncoding string, body []byte) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "br":
		out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("rewriter: brotli decompress: %w", err)
		}
		return out, nil
	case "gzip":
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("rewriter: gzip reader: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("rewriter: gzip decompress: %w", err)
		}
		return out, nil
	default:
		return body, nil
	}
}
