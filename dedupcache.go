// Package dedupcache is an in-memory deduplication cache for
// attribute-tagged observation points. A point is a set of (tag, value)
// string pairs; for each bucket (a namespace identified by a
// "<space>@<generation>" string) the cache answers whether a point with
// that exact set of pairs has already been seen.
//
// The cache interns tag and value strings into small integer sequence
// numbers (strtab), canonicalizes a point into an order-independent packed
// byte sequence over those numbers (wireenc), and deduplicates that byte
// sequence in a custom open-chained hash set (hashset) backed by an
// append-only arena (blob). Points go in and out only through Cache; the
// subpackages are imported directly only for a Hasher choice (hashset) and
// for the types that make up a Stats snapshot.
package dedupcache

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/btree"
	"go.uber.org/zap"

	"github.com/davidvgalbraith/dedupcache/attrtable"
	"github.com/davidvgalbraith/dedupcache/blob"
	"github.com/davidvgalbraith/dedupcache/hashset"
	"github.com/davidvgalbraith/dedupcache/strtab"
	"github.com/davidvgalbraith/dedupcache/wireenc"
)

// Pair is one (tag,value) string pair of a point. It is a type alias for
// wireenc.Pair so callers never need to import that package directly.
type Pair = wireenc.Pair

// Cache is the top-level deduplication cache: one shared strings table plus
// one independently-owned attribute table per bucket.
//
// A Cache is built for a single cooperative mutator. Lookup/Remove methods
// do no internal locking and must not be called concurrently with one
// another; Stats is the one read-only operation safe to run while the
// bucket map it snapshots is not itself being mutated.
type Cache struct {
	cfg     Config
	strings *strtab.Table
	buckets map[string]*bucketEntry
	index   *btree.BTree
	log     *zap.Logger
}

type bucketEntry struct {
	table *attrtable.AttributesTable
	blobs *blob.Store
	key   bucketKey
}

// bucketKey orders bucket ids first by space, then by generation, then by
// the id string itself (so "svc@5" and "svc@05" stay distinct items), so
// that "evict every generation at or below N for this space" is a bounded
// btree range rather than a scan of every bucket.
type bucketKey struct {
	space      string
	generation uint64
	id         string
}

func (k *bucketKey) Less(than btree.Item) bool {
	o := than.(*bucketKey)
	if k.space != o.space {
		return k.space < o.space
	}
	if k.generation != o.generation {
		return k.generation < o.generation
	}
	return k.id < o.id
}

// New constructs a Cache from the given options. It never blocks and
// performs no I/O.
func New(opts ...Option) (*Cache, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &Cache{
		cfg:     cfg,
		strings: strtab.New(),
		buckets: make(map[string]*bucketEntry),
		index:   btree.New(32),
		log:     cfg.Logger,
	}
	c.log.Info("dedupcache constructed",
		zap.Uint64("blob_size", cfg.BlobSize),
		zap.Uint32("initial_capacity", cfg.InitialCapacity),
		zap.Uint64("max_set_bytes", cfg.MaxSetBytes),
		zap.Bool("mmap_blobs", cfg.MmapBlobs))
	return c, nil
}

func (c *Cache) ignore(tag string) bool {
	_, ok := c.cfg.IgnoredAttributes[tag]
	return ok
}

func parseBucketKey(id string) (bucketKey, error) {
	at := strings.IndexByte(id, '@')
	if at < 0 {
		return bucketKey{}, fmt.Errorf("dedupcache: bucket id %q: %w", id, ErrBadBucketID)
	}
	gen, err := strconv.ParseUint(id[at+1:], 10, 64)
	if err != nil {
		return bucketKey{}, fmt.Errorf("dedupcache: bucket id %q: %w", id, ErrBadBucketID)
	}
	return bucketKey{space: id[:at], generation: gen, id: id}, nil
}

func (c *Cache) getOrCreateBucket(bucketID string) (*bucketEntry, error) {
	if be, ok := c.buckets[bucketID]; ok {
		return be, nil
	}
	key, err := parseBucketKey(bucketID)
	if err != nil {
		return nil, err
	}

	var slabOpts []blob.Option
	slabOpts = append(slabOpts, blob.WithLogger(c.log))
	if c.cfg.MmapBlobs {
		slabOpts = append(slabOpts, blob.WithSlabFactory(blob.MmapSlab))
	}
	blobs, err := blob.NewStore(int(c.cfg.BlobSize), slabOpts...)
	if err != nil {
		return nil, fmt.Errorf("dedupcache: create bucket %q: %w", bucketID, err)
	}

	set := hashset.New(c.cfg.InitialCapacity, c.cfg.MaxSetBytes, c.cfg.Hasher, c.log)
	enc := wireenc.NewEncoder(c.strings)
	table := attrtable.New(enc, blobs, set, c.ignore, c.log)

	be := &bucketEntry{table: table, blobs: blobs, key: key}
	c.buckets[bucketID] = be
	c.index.ReplaceOrInsert(&key)
	return be, nil
}

// LookupPoint canonicalizes point against bucketID's attribute table,
// creating that bucket on first use. found is true iff this exact point was
// already present in the bucket; attrStr is the canonical
// "tag=value,tag=value,..." rendering either way.
func (c *Cache) LookupPoint(bucketID string, point []Pair) (found bool, attrStr string, err error) {
	be, err := c.getOrCreateBucket(bucketID)
	if err != nil {
		return false, "", err
	}
	isNew, pretty, err := be.table.Lookup(point)
	if err != nil {
		return false, "", err
	}
	return !isNew, pretty, nil
}

// RemovePoint removes point from bucketID if present. Removing from a
// bucket that has never been looked up in is a no-op, not an error,
// provided bucketID itself is well-formed.
func (c *Cache) RemovePoint(bucketID string, point []Pair) error {
	be, ok := c.buckets[bucketID]
	if !ok {
		if _, err := parseBucketKey(bucketID); err != nil {
			return err
		}
		return nil
	}
	return be.table.Remove(point)
}

// RemoveBucket parses bucketID as "<space>@<generation>" and evicts every
// bucket sharing that space whose generation is <= the given one. Evicted
// buckets release their arenas; the shared strings table is untouched.
func (c *Cache) RemoveBucket(bucketID string) error {
	key, err := parseBucketKey(bucketID)
	if err != nil {
		return err
	}

	lo := &bucketKey{space: key.space, generation: 0}
	hi := &bucketKey{space: key.space, generation: key.generation + 1}

	var toDelete []*bucketKey
	c.index.AscendRange(lo, hi, func(i btree.Item) bool {
		toDelete = append(toDelete, i.(*bucketKey))
		return true
	})

	for _, bk := range toDelete {
		if be, ok := c.buckets[bk.id]; ok {
			if err := be.blobs.Release(); err != nil {
				c.log.Warn("bucket eviction: releasing arena", zap.String("bucket", bk.id), zap.Error(err))
			}
			delete(c.buckets, bk.id)
		}
		c.index.Delete(bk)
	}

	c.log.Info("bucket eviction",
		zap.String("space", key.space),
		zap.Uint64("through_generation", key.generation),
		zap.Int("buckets_removed", len(toDelete)))
	return nil
}
