package hashset

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/davidvgalbraith/dedupcache/varint"
)

// TestInsertOnlyHashesTheKeysOwnBytes pins down a subtle contract: when a
// caller probes with a buffer longer than the key's own packed-integer
// header claims, the set must hash exactly the key's logical bytes, never
// the trailing slack.
func TestInsertOnlyHashesTheKeysOwnBytes(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockHasher := NewMockHasher(ctrl)

	logical := varint.Encode(nil, 1)
	logical = varint.Encode(logical, 1)
	logical = varint.Encode(logical, 1)

	padded := make([]byte, len(logical)+4)
	copy(padded, logical)

	mockHasher.EXPECT().Hash(gomock.Any()).DoAndReturn(func(b []byte) uint32 {
		require.Len(t, b, len(logical))
		return 42
	}).AnyTimes()

	s := New(8, 0, mockHasher, nil)
	require.True(t, s.Insert(padded[:len(logical)]))
	require.True(t, s.Contains(padded))
}
