package attrtable

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidvgalbraith/dedupcache/blob"
	"github.com/davidvgalbraith/dedupcache/hashset"
	"github.com/davidvgalbraith/dedupcache/strtab"
	"github.com/davidvgalbraith/dedupcache/wireenc"
)

func newTestTable(t *testing.T) *AttributesTable {
	t.Helper()
	st := strtab.New()
	enc := wireenc.NewEncoder(st)
	bs, err := blob.NewStore(1 << 16)
	require.NoError(t, err)
	set := hashset.New(16, 0, nil, nil)
	return New(enc, bs, set, nil, nil)
}

func pt(pairs ...string) []wireenc.Pair {
	out := make([]wireenc.Pair, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, wireenc.Pair{Tag: pairs[i], Value: pairs[i+1]})
	}
	return out
}

func TestLookupFirstTimeIsNew(t *testing.T) {
	at := newTestTable(t)
	isNew, pretty, err := at.Lookup(pt("host", "a.com", "ip", "1.1.1.1"))
	require.NoError(t, err)
	require.True(t, isNew)
	require.Equal(t, "host=a.com,ip=1.1.1.1", pretty)
}

func TestLookupRepeatIsNotNew(t *testing.T) {
	at := newTestTable(t)
	_, _, err := at.Lookup(pt("host", "a.com"))
	require.NoError(t, err)

	isNew, pretty, err := at.Lookup(pt("host", "a.com"))
	require.NoError(t, err)
	require.False(t, isNew)
	require.Equal(t, "host=a.com", pretty)
}

func TestRemoveThenLookupIsNewAgain(t *testing.T) {
	at := newTestTable(t)
	at.Lookup(pt("host", "a.com"))

	err := at.Remove(pt("host", "a.com"))
	require.NoError(t, err)

	isNew, _, err := at.Lookup(pt("host", "a.com"))
	require.NoError(t, err)
	require.True(t, isNew, "point should be rediscoverable after removal")
}

func TestRemoveMissingIsNoop(t *testing.T) {
	at := newTestTable(t)
	err := at.Remove(pt("host", "never-seen.com"))
	require.NoError(t, err)
}

func TestRemoveTooBigPointErrors(t *testing.T) {
	at := newTestTable(t)
	bigValue := make([]byte, wireenc.PrettyLimit)
	for i := range bigValue {
		bigValue[i] = 'x'
	}
	err := at.Remove(pt("tag", string(bigValue)))
	require.ErrorIs(t, err, wireenc.ErrTooBig)
}

func TestStatsReflectsEntries(t *testing.T) {
	at := newTestTable(t)
	at.Lookup(pt("host", "a.com"))
	at.Lookup(pt("host", "b.com"))
	at.Lookup(pt("host", "a.com")) // repeat

	stats := at.Stats()
	require.Equal(t, uint64(2), stats.Entries)
	require.Greater(t, stats.BlobUsedBytes, uint64(0))
	require.GreaterOrEqual(t, stats.BlobAllocatedBytes, stats.BlobUsedBytes)
}

func TestLookupDifferentPointsAreDistinct(t *testing.T) {
	at := newTestTable(t)
	isNew1, _, err := at.Lookup(pt("host", "a.com", "ip", "1.1.1.1"))
	require.NoError(t, err)
	require.True(t, isNew1)

	isNew2, _, err := at.Lookup(pt("host", "a.com", "ip", "2.2.2.2"))
	require.NoError(t, err)
	require.True(t, isNew2)

	require.Equal(t, uint64(2), at.Stats().Entries)
}
