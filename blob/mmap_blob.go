package blob

import (
	"fmt"

	"github.com/edsrzf/mmap-go"
)

// MmapSlab allocates its backing memory as an anonymous, private memory
// mapping instead of a heap slice. It behaves identically to HeapSlab from
// the Store's point of view, but keeps the arena's bytes off the Go heap
// (no GC scanning of multi-megabyte slabs) and lets the OS page it in
// lazily. Pass this to WithSlabFactory for deployments with very large
// buckets where that trade-off is worth a syscall per slab.
func MmapSlab(size int) (Slab, error) {
	m, err := mmap.MapRegion(nil, size, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, fmt.Errorf("blob: mmap anonymous region of %d bytes: %w", size, err)
	}
	return mmapSlab{m}, nil
}

type mmapSlab struct {
	m mmap.MMap
}

func (s mmapSlab) Bytes() []byte { return s.m }
func (s mmapSlab) Release() error {
	return s.m.Unmap()
}
