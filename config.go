package dedupcache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/davidvgalbraith/dedupcache/blob"
	"github.com/davidvgalbraith/dedupcache/hashset"
	"github.com/davidvgalbraith/dedupcache/mathutil"
)

// Config holds everything New needs to construct a Cache. Build one with
// the With* functional options rather than populating the struct directly —
// the zero Config is not meaningful (in particular, a nil Hasher or Logger
// is filled in by defaultConfig, never by zero-value field access).
type Config struct {
	BlobSize          uint64
	InitialCapacity   uint32
	MaxSetBytes       uint64
	Hasher            hashset.Hasher
	IgnoredAttributes map[string]struct{}
	Logger            *zap.Logger
	MmapBlobs         bool
	Strict            bool
}

// Option configures a Config at construction time.
type Option func(*Config)

// WithBlobSize sets the arena slab size from a human-readable string such
// as "20MB" or "64MiB".
func WithBlobSize(s string) Option {
	return func(c *Config) {
		if n, err := mathutil.ParseByteSize(s); err == nil {
			c.BlobSize = n
		}
	}
}

// WithInitialCapacity sets a bucket's hash set's starting spine capacity.
// It is rounded up to a power of two.
func WithInitialCapacity(n uint32) Option {
	return func(c *Config) { c.InitialCapacity = n }
}

// WithMaxCapacity caps a hash set's spine growth, expressed as a
// human-readable byte budget such as "512MiB".
func WithMaxCapacity(s string) Option {
	return func(c *Config) {
		if n, err := mathutil.ParseByteSize(s); err == nil {
			c.MaxSetBytes = n
		}
	}
}

// WithHasher overrides the default Jenkins hasher. Only relevant for
// benchmarking and migration; it does not change correctness (see
// hashset.Hasher).
func WithHasher(h hashset.Hasher) Option {
	return func(c *Config) { c.Hasher = h }
}

// WithIgnoredAttributes names tags that are dropped from every point before
// encoding — timestamps and raw sample values are the usual case.
func WithIgnoredAttributes(tags ...string) Option {
	return func(c *Config) {
		for _, t := range tags {
			c.IgnoredAttributes[t] = struct{}{}
		}
	}
}

// WithLogger attaches a logger used for construction, bucket eviction, and
// hash-set resize events. Never on the per-point hot path.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithMmapBlobs backs every bucket's arena with anonymous memory-mapped
// slabs instead of heap-allocated byte slices.
func WithMmapBlobs(enabled bool) Option {
	return func(c *Config) { c.MmapBlobs = enabled }
}

// WithStrictConfig requires at least one ignored attribute to be configured,
// matching this library's historical default behavior before ignored
// attributes became an explicit, optional Config field.
func WithStrictConfig() Option {
	return func(c *Config) { c.Strict = true }
}

func defaultConfig() Config {
	return Config{
		BlobSize:          blob.DefaultSlabSize,
		InitialCapacity:   4096,
		MaxSetBytes:       hashset.DefaultMaxCapacityBytes,
		Hasher:            hashset.JenkinsHasher{},
		IgnoredAttributes: make(map[string]struct{}),
		Logger:            zap.NewNop(),
	}
}

func (c Config) validate() error {
	if c.Strict && len(c.IgnoredAttributes) == 0 {
		return fmt.Errorf("dedupcache: strict config requires at least one ignored attribute: %w", ErrBadConfig)
	}
	return nil
}
