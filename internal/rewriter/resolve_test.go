package rewriter

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResolve_Invariant5 exercises spec.md §8 invariant 5.
func TestResolve_Invariant5(t *testing.T) {
	t.Run("idempotent on absolute well-formed url", func(t *testing.T) {
		got, err := Resolve("https://o.test/a/variant.m3u8", nil)
		require.NoError(t, err)
		assert.Equal(t, "https://o.test/a/variant.m3u8", got)
	})

	t.Run("rejects not enough slashes", func(t *testing.T) {
		_, err := Resolve("http:/notenoughslashes", nil)
		assert.Error(t, err)
	})

	t.Run("rejects empty host with port", func(t *testing.T) {
		_, err := Resolve("http://:1/", nil)
		assert.Error(t, err)
	})

	t.Run("bare host defaults to http scheme", func(t *testing.T) {
		got, err := Resolve("example.com/path", nil)
		require.NoError(t, err)
		assert.Equal(t, "http://example.com/path", got)
	})

	t.Run("port 443 without scheme defaults to https", func(t *testing.T) {
		got, err := Resolve("example.com:443/path", nil)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com:443/path", got)
	})

	t.Run("protocol-relative keeps inferred scheme", func(t *testing.T) {
		got, err := Resolve("//example.com/path", nil)
		require.NoError(t, err)
		assert.Equal(t, "http://example.com/path", got)
	})
}

func TestResolve_WithBase(t *testing.T) {
	base, err := url.Parse("https://o.test/a/b.m3u8")
	require.NoError(t, err)

	got, err := Resolve("seg1.ts", base)
	require.NoError(t, err)
	assert.Equal(t, "https://o.test/a/seg1.ts", got)

	got, err = Resolve("https://cdn.test/seg2.ts", base)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/seg2.ts", got)
}

func TestIsDigits(t *testing.T) {
	assert.True(t, isDigits(""))
	assert.True(t, isDigits("443"))
	assert.False(t, isDigits("44a"))
}
