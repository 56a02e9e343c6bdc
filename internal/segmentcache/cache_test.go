package segmentcache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notDisabled() bool { return false }

func TestSet_GetRoundTrip(t *testing.T) {
	c := New(DefaultConfig(), nil, notDisabled)
	c.Set("k1", 200, []byte("hello"), map[string]string{"Content-Type": "video/mp2t"})

	e, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), e.Bytes)
	assert.Equal(t, "video/mp2t", e.Header["Content-Type"])
	assert.Equal(t, 5, e.SizeBytes)
	assert.Equal(t, 200, e.StatusCode)
}

func TestSet_ZeroStatusCodeDefaultsTo200(t *testing.T) {
	c := New(DefaultConfig(), nil, notDisabled)
	c.Set("k", 0, []byte("v"), nil)
	e, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 200, e.StatusCode)
}

func TestGet_Miss(t *testing.T) {
	c := New(DefaultConfig(), nil, notDisabled)
	_, ok := c.Get("missing")
	assert.False(t, ok)
}

// TestS4_LRUEviction exercises spec.md §8 scenario S4.
func TestS4_LRUEviction(t *testing.T) {
	c := New(Config{MaxEntries: 3, MaxMemoryBytes: 1e9, Expiry: time.Hour}, nil, notDisabled)

	c.Set("A", 200, []byte("a"), nil)
	c.Set("B", 200, []byte("b"), nil)
	c.Set("C", 200, []byte("c"), nil)
	_, _ = c.Get("A") // promote A

	c.Set("D", 200, []byte("d"), nil)

	_, okB := c.Get("B")
	assert.False(t, okB, "B should have been evicted")

	for _, k := range []string{"A", "C", "D"} {
		_, ok := c.Get(k)
		assert.True(t, ok, "%s should still be present", k)
	}
}

// TestS5_ByteBudgetEviction exercises spec.md §8 scenario S5.
func TestS5_ByteBudgetEviction(t *testing.T) {
	c := New(Config{MaxEntries: 1000, MaxMemoryBytes: 300, Expiry: time.Hour}, nil, notDisabled)

	c.Set("A", 200, make([]byte, 100), nil)
	c.Set("B", 200, make([]byte, 100), nil)
	c.Set("C", 200, make([]byte, 100), nil)
	c.Set("D", 200, make([]byte, 100), nil)

	_, okA := c.Get("A")
	assert.False(t, okA)

	stats := c.Stats()
	assert.Equal(t, 3, stats.Entries)
	assert.InDelta(t, 300.0/(1024*1024), stats.CurrentMB, 1e-9)
}

// TestS6_TTLExpiry exercises spec.md §8 scenario S6.
func TestS6_TTLExpiry(t *testing.T) {
	c := New(Config{MaxEntries: 10, MaxMemoryBytes: 1e9, Expiry: 10 * time.Millisecond}, nil, notDisabled)
	c.Set("A", 200, []byte("x"), nil)

	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("A")
	assert.False(t, ok)
	assert.Equal(t, int64(0), c.currentBytes)
}

func TestCleanup_RemovesExpiredOnly(t *testing.T) {
	c := New(Config{MaxEntries: 10, MaxMemoryBytes: 1e9, Expiry: 10 * time.Millisecond}, nil, notDisabled)
	c.Set("old", 200, []byte("x"), nil)
	time.Sleep(20 * time.Millisecond)
	c.Set("fresh", 200, []byte("y"), nil)

	removed := c.Cleanup()
	assert.Equal(t, 1, removed)

	_, okOld := c.Get("old")
	assert.False(t, okOld)
	_, okFresh := c.Get("fresh")
	assert.True(t, okFresh)
}

func TestDelete(t *testing.T) {
	c := New(DefaultConfig(), nil, notDisabled)
	c.Set("k", 200, []byte("v"), nil)

	assert.True(t, c.Delete("k"))
	assert.False(t, c.Delete("k"))
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	c := New(DefaultConfig(), nil, notDisabled)
	c.Set("a", 200, []byte("1"), nil)
	c.Set("b", 200, []byte("2"), nil)

	c.Clear()

	stats := c.Stats()
	assert.Equal(t, 0, stats.Entries)
	assert.Equal(t, int64(0), c.currentBytes)
}

func TestSet_DegenerateOversizedEntryEvictsAllAndStillInserts(t *testing.T) {
	c := New(Config{MaxEntries: 10, MaxMemoryBytes: 10, Expiry: time.Hour}, nil, notDisabled)
	c.Set("small", 200, []byte("x"), nil)
	c.Set("huge", 200, make([]byte, 1000), nil)

	_, okSmall := c.Get("small")
	assert.False(t, okSmall)

	e, okHuge := c.Get("huge")
	assert.True(t, okHuge)
	assert.Equal(t, 1000, e.SizeBytes)
}

func TestDisabledSwitch_ShortCircuitsEverything(t *testing.T) {
	disabled := true
	c := New(DefaultConfig(), nil, func() bool { return disabled })

	c.Set("k", 200, []byte("v"), nil)
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Cleanup())
	assert.Equal(t, 0, c.Stats().Entries)
}

// TestConcurrency_SetGetInvariantsHold exercises spec.md §8 invariant 7: concurrent set/get
// leaves the accounting consistent with some serialization.
func TestConcurrency_SetGetInvariantsHold(t *testing.T) {
	c := New(Config{MaxEntries: 50, MaxMemoryBytes: 5000, Expiry: time.Hour}, nil, notDisabled)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('A' + i%26))
			c.Set(key, 200, make([]byte, 10), nil)
			c.Get(key)
		}(i)
	}
	wg.Wait()

	stats := c.Stats()
	assert.LessOrEqual(t, stats.Entries, 50)
	assert.LessOrEqual(t, int64(stats.CurrentMB*1024*1024), c.cfg.MaxMemoryBytes+10)
	assert.GreaterOrEqual(t, c.currentBytes, int64(0))
}
