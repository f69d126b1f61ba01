package dedupcache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidvgalbraith/dedupcache/hashset"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, defaultConfig().validate())
}

func TestWithBlobSizeParsesHumanSize(t *testing.T) {
	cfg := defaultConfig()
	WithBlobSize("64MB")(&cfg)
	require.Greater(t, cfg.BlobSize, uint64(0))
	require.NotEqual(t, defaultConfig().BlobSize, cfg.BlobSize)
}

func TestWithHasherOverridesDefault(t *testing.T) {
	cfg := defaultConfig()
	WithHasher(hashset.XXHasher{})(&cfg)
	require.IsType(t, hashset.XXHasher{}, cfg.Hasher)
}

func TestWithIgnoredAttributesAccumulates(t *testing.T) {
	cfg := defaultConfig()
	WithIgnoredAttributes("time")(&cfg)
	WithIgnoredAttributes("value")(&cfg)
	require.Len(t, cfg.IgnoredAttributes, 2)
}

func TestWithMmapBlobsToggle(t *testing.T) {
	cfg := defaultConfig()
	require.False(t, cfg.MmapBlobs)
	WithMmapBlobs(true)(&cfg)
	require.True(t, cfg.MmapBlobs)
}
