package dedupcache

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func pt(pairs ...string) []Pair {
	out := make([]Pair, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, Pair{Tag: pairs[i], Value: pairs[i+1]})
	}
	return out
}

func TestLookupPointFirstSeenIsNotFound(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	found, attrStr, err := c.LookupPoint("svc@1", pt("host", "a.com", "ip", "1.1.1.1"))
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, "host=a.com,ip=1.1.1.1", attrStr)
}

func TestLookupPointRepeatIsFound(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	c.LookupPoint("svc@1", pt("host", "a.com"))
	found, _, err := c.LookupPoint("svc@1", pt("host", "a.com"))
	require.NoError(t, err)
	require.True(t, found)
}

func TestLookupPointSameBucketDifferentPoints(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	found1, _, err := c.LookupPoint("svc@1", pt("host", "a.com"))
	require.NoError(t, err)
	require.False(t, found1)

	found2, _, err := c.LookupPoint("svc@1", pt("host", "b.com"))
	require.NoError(t, err)
	require.False(t, found2)
}

func TestLookupPointDistinctBucketsAreIndependent(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	found1, _, err := c.LookupPoint("svcA@1", pt("host", "a.com"))
	require.NoError(t, err)
	require.False(t, found1)

	found2, _, err := c.LookupPoint("svcB@1", pt("host", "a.com"))
	require.NoError(t, err)
	require.False(t, found2, "same point in a different bucket is not a repeat")
}

func TestLookupPointBadBucketID(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	_, _, err = c.LookupPoint("no-at-sign", pt("host", "a.com"))
	require.ErrorIs(t, err, ErrBadBucketID)

	_, _, err = c.LookupPoint("svc@notanumber", pt("host", "a.com"))
	require.ErrorIs(t, err, ErrBadBucketID)
}

func TestRemovePointThenLookupIsNewAgain(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	c.LookupPoint("svc@1", pt("host", "a.com"))
	require.NoError(t, c.RemovePoint("svc@1", pt("host", "a.com")))

	found, _, err := c.LookupPoint("svc@1", pt("host", "a.com"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestRemovePointUnknownBucketIsNoop(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	require.NoError(t, c.RemovePoint("neverseen@1", pt("host", "a.com")))
}

func TestRemovePointBadBucketID(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	require.ErrorIs(t, c.RemovePoint("bad-bucket", pt("host", "a.com")), ErrBadBucketID)
}

// S6 — ignored attributes.
func TestIgnoredAttributes(t *testing.T) {
	c, err := New(WithIgnoredAttributes("time", "value"))
	require.NoError(t, err)

	_, attrStr, err := c.LookupPoint("svc@1",
		pt("host", "foo.com", "time", "14044044", "value", "333333", "name", "cpu.system"))
	require.NoError(t, err)
	require.Equal(t, "host=foo.com,name=cpu.system", attrStr)
}

// S5 — bucket eviction by day/generation.
func TestRemoveBucketByGeneration(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	for _, id := range []string{"svcA@3", "svcA@5", "svcA@9", "svcB@5"} {
		_, _, err := c.LookupPoint(id, pt("host", "a.com"))
		require.NoError(t, err)
	}

	require.NoError(t, c.RemoveBucket("svcA@5"))

	require.NotContains(t, c.buckets, "svcA@3")
	require.NotContains(t, c.buckets, "svcA@5")
	require.Contains(t, c.buckets, "svcA@9")
	require.Contains(t, c.buckets, "svcB@5")
}

func TestRemoveBucketBadID(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	require.ErrorIs(t, c.RemoveBucket("nogen"), ErrBadBucketID)
}

// S4-lite — resizing under load within one bucket preserves correctness at
// the Cache level (the exhaustive byte-level version lives in hashset).
func TestManyDistinctPointsInOneBucket(t *testing.T) {
	c, err := New(WithInitialCapacity(4))
	require.NoError(t, err)

	const n = 2000
	for i := 0; i < n; i++ {
		found, _, err := c.LookupPoint("svc@1", pt("host", fmt.Sprintf("h%d.example.com", i)))
		require.NoError(t, err)
		require.False(t, found)
	}
	for i := 0; i < n; i++ {
		found, _, err := c.LookupPoint("svc@1", pt("host", fmt.Sprintf("h%d.example.com", i)))
		require.NoError(t, err)
		require.True(t, found)
	}
}

func TestStatsSnapshot(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	c.LookupPoint("svcA@1", pt("host", "a.com"))
	c.LookupPoint("svcA@1", pt("host", "b.com"))
	c.LookupPoint("svcB@1", pt("host", "a.com"))

	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Strings.NumTags)
	require.Len(t, stats.Buckets, 2)
	require.Equal(t, uint64(2), stats.Buckets["svcA@1"].Entries)
	require.Equal(t, uint64(1), stats.Buckets["svcB@1"].Entries)
}

func TestStrictConfigRequiresIgnoredAttributes(t *testing.T) {
	_, err := New(WithStrictConfig())
	require.ErrorIs(t, err, ErrBadConfig)

	_, err = New(WithStrictConfig(), WithIgnoredAttributes("time"))
	require.NoError(t, err)
}

func TestLookupPointTooBig(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	big := make([]byte, 20000)
	for i := range big {
		big[i] = 'x'
	}
	_, _, err = c.LookupPoint("svc@1", pt("tag", string(big)))
	require.ErrorIs(t, err, ErrTooBig)
}
