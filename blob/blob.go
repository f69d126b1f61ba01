// Package blob implements the append-only arena the hash set uses to own the
// byte sequences it indexes. A Store hands out byte slices backed by fixed
// size slabs; once handed out, those bytes never move for the lifetime of
// the Store, so the hash set is free to keep raw []byte pointers into them
// without any indirection or copy-on-write bookkeeping.
package blob

import (
	"fmt"

	"go.uber.org/zap"
)

// DefaultSlabSize is the default size of one slab, matching the spec's
// 20 MiB default.
const DefaultSlabSize = 20 << 20

// Slab is a single fixed-size memory region a Store bump-allocates from.
// The two implementations in this package — a plain heap slice and an
// anonymous memory mapping — both satisfy it, so Store never needs to know
// which kind of slab it is holding.
type Slab interface {
	// Bytes returns the slab's backing memory. The returned slice always has
	// len == cap == the slab's configured size.
	Bytes() []byte
	// Release returns the slab's memory to the OS/runtime. Called once, when
	// the owning Store (or the bucket it belongs to) is discarded.
	Release() error
}

// SlabFactory allocates a new Slab of the given size.
type SlabFactory func(size int) (Slab, error)

// HeapSlab allocates its backing memory as an ordinary Go byte slice.
func HeapSlab(size int) (Slab, error) {
	return heapSlab(make([]byte, size)), nil
}

type heapSlab []byte

func (s heapSlab) Bytes() []byte { return s }
func (heapSlab) Release() error  { return nil }

// Store is a bump-allocating arena over a growing list of slabs.
// It never moves or frees an individual allocation; the only way to reclaim
// its memory is to discard the whole Store (see Release).
type Store struct {
	slabSize int
	newSlab  SlabFactory
	log      *zap.Logger

	slabs  []Slab
	cursor int // offset into the tail slab
}

// Option configures a Store at construction.
type Option func(*Store)

// WithSlabFactory overrides how new slabs are allocated. The default is
// HeapSlab; MmapSlab (see mmap_blob.go) is the other variant this codebase
// ships.
func WithSlabFactory(f SlabFactory) Option {
	return func(s *Store) { s.newSlab = f }
}

// WithLogger attaches a logger that records slab rotation at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// NewStore creates a Store with the given slab size and allocates its first
// slab eagerly, mirroring the reference implementation's constructor.
func NewStore(slabSize int, opts ...Option) (*Store, error) {
	if slabSize <= 0 {
		slabSize = DefaultSlabSize
	}
	s := &Store{
		slabSize: slabSize,
		newSlab:  HeapSlab,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.addSlab(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) addSlab() error {
	slab, err := s.newSlab(s.slabSize)
	if err != nil {
		return fmt.Errorf("blob: allocate slab: %w", err)
	}
	s.slabs = append(s.slabs, slab)
	s.cursor = 0
	s.log.Debug("blob store rotated slab", zap.Int("num_slabs", len(s.slabs)), zap.Int("slab_size", s.slabSize))
	return nil
}

// Add copies src into the arena and returns a stable slice pointing at the
// copy. src must be no longer than the configured slab size; callers are
// expected to enforce the (much smaller) 16 KiB entry cap before ever
// reaching the blob store, so that constraint is only checked defensively
// here: an oversized src returns an error and leaves the arena unchanged.
func (s *Store) Add(src []byte) ([]byte, error) {
	if len(src) > s.slabSize {
		return nil, fmt.Errorf("blob: entry of %d bytes exceeds slab size %d", len(src), s.slabSize)
	}
	tail := s.slabs[len(s.slabs)-1]
	tailBytes := tail.Bytes()
	if len(tailBytes)-s.cursor < len(src) {
		if err := s.addSlab(); err != nil {
			return nil, err
		}
		tail = s.slabs[len(s.slabs)-1]
		tailBytes = tail.Bytes()
	}
	dst := tailBytes[s.cursor : s.cursor+len(src)]
	copy(dst, src)
	s.cursor += len(src)
	return dst, nil
}

// Stats reports allocated/used bytes, as defined in the spec: allocated is
// every slab's full size, used accounts for the bump cursor in the tail slab.
func (s *Store) Stats() (allocated, used uint64) {
	allocated = uint64(len(s.slabs)) * uint64(s.slabSize)
	used = uint64(len(s.slabs)-1)*uint64(s.slabSize) + uint64(s.cursor)
	return allocated, used
}

// Release returns every slab's memory. The Store must not be used afterward.
func (s *Store) Release() error {
	var firstErr error
	for _, slab := range s.slabs {
		if err := slab.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.slabs = nil
	s.cursor = 0
	return firstErr
}
