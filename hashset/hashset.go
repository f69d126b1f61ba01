// Package hashset implements the open-chained hash set an attribute table
// uses to deduplicate encoded points. It is deliberately specialized: keys
// are opaque byte strings whose logical length is derived from their own
// packed-integer header (see the varint package) rather than carried
// alongside them, and every stored key is a pointer into a blob store the
// set never frees itself.
//
// The spine is not a plain array of chain heads: slot zero of every chain
// lives inline in the spine itself, so a chain of length one costs no heap
// node at all. This mirrors the layout the cache was designed around and
// matters for the spec's chain-length accounting.
package hashset

import (
	"unsafe"

	"go.uber.org/zap"

	"github.com/davidvgalbraith/dedupcache/mathutil"
	"github.com/davidvgalbraith/dedupcache/varint"
)

// entry is one slot of the spine, or one node of a collision chain hanging
// off a spine slot. val is nil for an empty spine slot.
type entry struct {
	val  []byte
	next *entry
}

var entrySize = uint64(unsafe.Sizeof(entry{}))

// LoadFactorPercent is the fill ratio, as a percentage of capacity, at
// which Insert triggers a resize; the check runs after the new entry has
// been added.
const LoadFactorPercent = 97

// DefaultMaxCapacityBytes bounds the spine at roughly half a gigabyte by
// default; a Set never grows a spine past this many bytes regardless of how
// many entries are inserted, matching the spec's bounded-structures rule.
const DefaultMaxCapacityBytes = 512 << 20

// Set is the deduplicating hash set itself.
type Set struct {
	spine    []entry
	capacity uint32
	maxCap   uint32

	spineUse uint64
	entries  uint64

	hasher Hasher
	log    *zap.Logger
}

// New creates a Set with the given initial spine capacity (rounded up to a
// power of two) and a hard ceiling on spine growth expressed in bytes. A nil
// hasher defaults to JenkinsHasher, and a nil logger discards all logging.
func New(initialCapacity uint32, maxCapacityBytes uint64, hasher Hasher, log *zap.Logger) *Set {
	if initialCapacity == 0 {
		initialCapacity = 16
	}
	if hasher == nil {
		hasher = JenkinsHasher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if maxCapacityBytes == 0 {
		maxCapacityBytes = DefaultMaxCapacityBytes
	}

	maxCap := uint32(maxCapacityBytes / entrySize)
	initCap := mathutil.NextPowerOfTwo(initialCapacity)
	if initCap > maxCap {
		initCap = maxCap
	}

	return &Set{
		spine:    make([]entry, initCap),
		capacity: initCap,
		maxCap:   maxCap,
		hasher:   hasher,
		log:      log,
	}
}

// keyLen returns the logical length of a stored or probed key: everything
// up to and including the last byte its own packed-integer header says it
// owns. Callers may pass a buffer longer than the key; keyLen never reads
// past what the header claims.
func keyLen(b []byte) int {
	return varint.EntryLen(b)
}

func equalKeys(a, b []byte) bool {
	la, lb := keyLen(a), keyLen(b)
	if la != lb {
		return false
	}
	for i := 0; i < la; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s *Set) slot(key []byte) uint32 {
	return s.hasher.Hash(key[:keyLen(key)]) % s.capacity
}

// find locates key starting from spine slot idx. If the match lives in the
// spine slot itself, prev is nil. Otherwise prev is the node (spine slot or
// chain node) immediately preceding the match, so that prev.next can be
// repointed to unlink it.
func (s *Set) find(idx uint32, key []byte) (match *entry, prev *entry) {
	head := &s.spine[idx]
	if head.val != nil && equalKeys(head.val, key) {
		return head, nil
	}
	p := head
	for n := head.next; n != nil; n = n.next {
		if equalKeys(n.val, key) {
			return n, p
		}
		p = n
	}
	return nil, nil
}

// Contains reports whether key is already a member.
func (s *Set) Contains(key []byte) bool {
	idx := s.slot(key)
	match, _ := s.find(idx, key)
	return match != nil
}

// Insert adds key, which must be exactly as long as its own packed-integer
// header claims, unless an equal key is already present. It reports whether
// the key was newly inserted. key's backing array is retained directly —
// callers pass in an arena-owned pointer, never a scratch buffer they intend
// to reuse.
func (s *Set) Insert(key []byte) bool {
	idx := s.slot(key)
	if match, _ := s.find(idx, key); match != nil {
		return false
	}

	head := &s.spine[idx]
	if head.val == nil {
		head.val = key
		s.spineUse++
	} else {
		head.next = &entry{val: key, next: head.next}
	}
	s.entries++

	s.maybeResize()
	return true
}

// Erase removes key if present, reporting whether it was found.
func (s *Set) Erase(key []byte) bool {
	idx := s.slot(key)
	match, prev := s.find(idx, key)
	if match == nil {
		return false
	}

	if prev == nil {
		// Match is the spine slot. Splice the first chain node's contents
		// into the slot itself rather than leaving the slot pointer to a
		// dangling chain, so the "slot carries entry zero" invariant holds.
		if next := match.next; next != nil {
			match.val = next.val
			match.next = next.next
		} else {
			match.val = nil
			s.spineUse--
		}
	} else {
		prev.next = match.next
	}

	s.entries--
	return true
}

// Clear empties the set without shrinking the spine.
func (s *Set) Clear() {
	s.spine = make([]entry, s.capacity)
	s.spineUse = 0
	s.entries = 0
}

func (s *Set) maybeResize() {
	if s.capacity >= s.maxCap {
		return
	}
	if s.entries*100 < uint64(s.capacity)*LoadFactorPercent {
		return
	}

	newCap := s.capacity * 2
	if newCap > s.maxCap {
		newCap = s.maxCap
	}
	if newCap == s.capacity {
		return
	}

	s.log.Debug("hashset resize",
		zap.Uint32("old_capacity", s.capacity),
		zap.Uint32("new_capacity", newCap),
		zap.Uint64("entries", s.entries))

	newSpine := make([]entry, newCap)
	oldSpine := s.spine
	oldCap := s.capacity

	s.spine = newSpine
	s.capacity = newCap
	s.spineUse = 0

	for i := uint32(0); i < oldCap; i++ {
		head := &oldSpine[i]
		if head.val == nil {
			continue
		}
		s.rehashOne(head.val)
		for n := head.next; n != nil; n = n.next {
			s.rehashOne(n.val)
		}
	}
}

// rehashOne reinserts an already-owned key (a pointer into the arena, never
// copied) into the current spine during a resize.
func (s *Set) rehashOne(key []byte) {
	idx := s.hasher.Hash(key[:keyLen(key)]) % s.capacity
	head := &s.spine[idx]
	if head.val == nil {
		head.val = key
		s.spineUse++
	} else {
		head.next = &entry{val: key, next: head.next}
	}
}

// Stats is a snapshot of a Set's shape, mirroring the per-bucket hash-table
// fields of the spec's stats object.
type Stats struct {
	Capacity       uint32
	SpineUse       uint64
	Entries        uint64
	CollisionSlots uint64
	TotalChainLen  uint64
	MaxChainLen    uint64
	// Dist1_2, Dist3_5, Dist6_9, Dist10Plus count spine slots whose chain
	// length (including the inline entry) falls in that bucket.
	Dist1_2    uint64
	Dist3_5    uint64
	Dist6_9    uint64
	Dist10Plus uint64
	BytesUsed  uint64
}

// Stats walks the whole spine and returns a snapshot. It is O(capacity +
// entries) and is meant for introspection/metrics, not the hot path.
func (s *Set) Stats() Stats {
	st := Stats{
		Capacity: s.capacity,
		SpineUse: s.spineUse,
		Entries:  s.entries,
	}

	for i := uint32(0); i < s.capacity; i++ {
		head := &s.spine[i]
		if head.val == nil {
			continue
		}
		chainLen := uint64(1)
		for n := head.next; n != nil; n = n.next {
			chainLen++
		}
		if chainLen > 1 {
			st.CollisionSlots++
		}
		st.TotalChainLen += chainLen
		if chainLen > st.MaxChainLen {
			st.MaxChainLen = chainLen
		}
		switch {
		case chainLen <= 2:
			st.Dist1_2++
		case chainLen <= 5:
			st.Dist3_5++
		case chainLen <= 9:
			st.Dist6_9++
		default:
			st.Dist10Plus++
		}
	}

	st.BytesUsed = uint64(s.capacity)*entrySize + (s.entries-s.spineUse)*entrySize
	return st
}

// AvgChainLen returns the mean occupied-slot chain length, or 0 if empty.
func (st Stats) AvgChainLen() float64 {
	if st.SpineUse == 0 {
		return 0
	}
	return float64(st.TotalChainLen) / float64(st.SpineUse)
}
