package hashset

import (
	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
)

// Hasher is the pluggable hash capability a Set is built against. The spec
// fixes equality (entry-length-bounded byte comparison) but leaves hashing
// polymorphic; this interface is that seam.
type Hasher interface {
	Hash(b []byte) uint32
}

// JenkinsHasher is the canonical hash function this cache was designed
// around: Jenkins' one-at-a-time hash. It is the default, and the only
// variant every worked example and invariant in the spec assumes —
// swapping it changes bucket distribution but never correctness.
type JenkinsHasher struct{}

func (JenkinsHasher) Hash(b []byte) uint32 {
	var h uint32
	for _, c := range b {
		h ^= (h << 5) + (h >> 2) + uint32(c)
	}
	return h
}

// XXHasher folds a 64-bit xxhash digest down to 32 bits. It favors raw
// throughput over avalanche quality, which suits the longer encoded entries
// a wide point produces.
type XXHasher struct{}

func (XXHasher) Hash(b []byte) uint32 {
	return uint32(xxhash.Sum64(b))
}

// Murmur3Hasher wraps murmur3's 32-bit variant. It favors avalanche quality
// on the short entries a narrow, low-cardinality point produces.
type Murmur3Hasher struct{}

func (Murmur3Hasher) Hash(b []byte) uint32 {
	return murmur3.Sum32(b)
}
