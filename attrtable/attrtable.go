// Package attrtable binds one hash set (hashset), one arena (blob), and an
// entry encoder (wireenc) into the per-bucket attribute table the spec
// calls attrs_table: the thing that actually answers "have I seen this
// point before in this bucket."
package attrtable

import (
	"go.uber.org/zap"

	"github.com/davidvgalbraith/dedupcache/blob"
	"github.com/davidvgalbraith/dedupcache/hashset"
	"github.com/davidvgalbraith/dedupcache/wireenc"
)

// AttributesTable is one bucket's worth of point deduplication state.
type AttributesTable struct {
	enc    *wireenc.Encoder
	blobs  *blob.Store
	set    *hashset.Set
	ignore wireenc.IgnoreFunc

	scratch []byte
	log     *zap.Logger
}

// New creates an AttributesTable. enc must be built against the strings
// table shared by the whole cache; blobs and set are this bucket's own.
func New(enc *wireenc.Encoder, blobs *blob.Store, set *hashset.Set, ignore wireenc.IgnoreFunc, log *zap.Logger) *AttributesTable {
	if log == nil {
		log = zap.NewNop()
	}
	return &AttributesTable{
		enc:    enc,
		blobs:  blobs,
		set:    set,
		ignore: ignore,
		log:    log,
	}
}

// Lookup canonicalizes point and reports whether it is new to this bucket.
// On a new point its encoding is copied into the arena and indexed; on a
// repeat the call is a pure read. pretty is always the rendered
// "tag=value,..." string for the point, regardless of novelty.
func (t *AttributesTable) Lookup(point []wireenc.Pair) (isNew bool, pretty string, err error) {
	res, err := t.enc.Encode(point, t.ignore, t.scratch, true)
	if err != nil {
		return false, "", err
	}
	t.scratch = res.Encoded

	if t.set.Contains(res.Encoded) {
		return false, res.Pretty, nil
	}

	stored, err := t.blobs.Add(res.Encoded)
	if err != nil {
		return false, "", err
	}
	t.set.Insert(stored)
	return true, res.Pretty, nil
}

// Remove evicts point from this bucket, if present. It applies the same
// ErrTooBig guard Lookup does, so a point too big to ever have been
// inserted is rejected consistently rather than silently treated as a
// successful no-op removal.
func (t *AttributesTable) Remove(point []wireenc.Pair) error {
	res, err := t.enc.Encode(point, t.ignore, t.scratch, false)
	if err != nil {
		return err
	}
	t.scratch = res.Encoded
	t.set.Erase(res.Encoded)
	return nil
}

// Stats is a snapshot of one bucket's attribute table.
type Stats struct {
	Entries            uint64
	HashSet            hashset.Stats
	BlobAllocatedBytes uint64
	BlobUsedBytes      uint64
}

// Stats returns a snapshot combining the hash set's shape with the arena's
// allocation, matching the per-bucket fields of the spec's stats object.
func (t *AttributesTable) Stats() Stats {
	hs := t.set.Stats()
	allocated, used := t.blobs.Stats()
	return Stats{
		Entries:            hs.Entries,
		HashSet:            hs,
		BlobAllocatedBytes: allocated,
		BlobUsedBytes:      used,
	}
}
