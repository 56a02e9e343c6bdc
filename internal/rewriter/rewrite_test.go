package rewriter

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/sofatutor/hlsproxy/internal/headerpolicy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

// TestS1_MasterRewrite exercises spec.md §8 scenario S1.
func TestS1_MasterRewrite(t *testing.T) {
	manifest := "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1,RESOLUTION=1280x720\nvariant.m3u8\n"
	u := mustParse(t, "https://o.test/a/b.m3u8")

	res, err := Rewrite(manifest, u, headerpolicy.Headers{}, "https://px")
	require.NoError(t, err)

	assert.Empty(t, res.Segments)
	assert.Contains(t, res.Manifest,
		"https://px/m3u8-proxy?url=https%3A%2F%2Fo.test%2Fa%2Fvariant.m3u8&headers=%7B%7D")
}

// TestS2_MediaRewriteAndPrefetchSet exercises spec.md §8 scenario S2.
func TestS2_MediaRewriteAndPrefetchSet(t *testing.T) {
	manifest := "#EXTM3U\n#EXTINF:10,\nseg1.ts\n#EXTINF:10,\nhttps://cdn.test/seg2.ts\n"
	u := mustParse(t, "https://o.test/a/b.m3u8")

	res, err := Rewrite(manifest, u, headerpolicy.Headers{}, "https://px")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://o.test/a/seg1.ts", "https://cdn.test/seg2.ts"}, res.Segments)
	assert.Contains(t, res.Manifest, "https://px/ts-proxy?url=https%3A%2F%2Fo.test%2Fa%2Fseg1.ts")
	assert.Contains(t, res.Manifest, "https://px/ts-proxy?url=https%3A%2F%2Fcdn.test%2Fseg2.ts")
}

// TestS3_KeyRewrite exercises spec.md §8 scenario S3.
func TestS3_KeyRewrite(t *testing.T) {
	manifest := "#EXTM3U\n#EXT-X-KEY:METHOD=AES-128,URI=\"https://o.test/key.bin\",IV=0x0\nseg1.ts\n"
	u := mustParse(t, "https://o.test/a/b.m3u8")

	res, err := Rewrite(manifest, u, headerpolicy.Headers{}, "https://px")
	require.NoError(t, err)

	assert.Contains(t, res.Segments, "https://o.test/key.bin")
	assert.Contains(t, res.Manifest, "https://px/ts-proxy?url=https%3A%2F%2Fo.test%2Fkey.bin")
	assert.NotContains(t, res.Manifest, `URI="https://o.test/key.bin"`)
}

func TestClassify(t *testing.T) {
	assert.True(t, Classify("#EXT-X-STREAM-INF:BANDWIDTH=1,RESOLUTION=1280x720\n"))
	assert.False(t, Classify("#EXTINF:10,\nseg.ts\n"))
}

// TestRoundTrip_LineCountAndDecodePreserved exercises spec.md §8 invariant 6.
func TestRoundTrip_LineCountAndDecodePreserved(t *testing.T) {
	manifest := "#EXTM3U\n#EXT-X-VERSION:3\n\nseg1.ts\nseg2.ts\n"
	u := mustParse(t, "https://o.test/a/b.m3u8")

	res, err := Rewrite(manifest, u, headerpolicy.Headers{}, "https://px")
	require.NoError(t, err)

	inLines := len(splitLines(manifest))
	outLines := len(splitLines(res.Manifest))
	assert.Equal(t, inLines, outLines)

	for i, line := range splitLines(res.Manifest) {
		if i < 3 || line == "" {
			continue // directive/blank lines pass through unchanged
		}
		decoded := extractQueryParam(t, line, "url")
		assert.Contains(t, decoded, "o.test/a/seg")
	}
}

func TestMediaLine_UnresolvableURIPassesThroughUnchanged(t *testing.T) {
	manifest := "http:/notenoughslashes\n"
	u := mustParse(t, "https://o.test/a/b.m3u8")
	// A base is supplied, so RFC 3986 resolution is used, not the standalone
	// algorithm; net/url parses this as an absolute "http:" reference with no
	// host, so the resolved URL has no hostname, Resolve fails, and the line
	// is emitted as-is.
	res, err := Rewrite(manifest, u, headerpolicy.Headers{}, "https://px")
	require.NoError(t, err)
	assert.Equal(t, manifest, res.Manifest)
}

func TestCheckUpstreamStatus(t *testing.T) {
	assert.NoError(t, CheckUpstreamStatus(http.StatusOK))
	err := CheckUpstreamStatus(http.StatusBadGateway)
	require.Error(t, err)
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusBadGateway, upstream.StatusCode)
}

func TestRequireURL(t *testing.T) {
	_, err := RequireURL("")
	require.Error(t, err)
	var bad *BadRequestError
	assert.ErrorAs(t, err, &bad)

	v, err := RequireURL("https://o.test/x")
	require.NoError(t, err)
	assert.Equal(t, "https://o.test/x", v)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}

func extractQueryParam(t *testing.T, line, name string) string {
	t.Helper()
	u, err := url.Parse(line)
	require.NoError(t, err)
	return u.Query().Get(name)
}
