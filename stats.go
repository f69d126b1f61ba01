package dedupcache

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/davidvgalbraith/dedupcache/attrtable"
	"github.com/davidvgalbraith/dedupcache/strtab"
)

// Stats is a full snapshot of a Cache: the shared strings table plus every
// bucket's attribute table, keyed by bucket id.
type Stats struct {
	Strings strtab.Stats
	Buckets map[string]attrtable.Stats
}

// Stats snapshots the cache. Like every other Cache method, it must not run
// concurrently with a mutating call. Per-bucket snapshots are collected
// concurrently, at most GOMAXPROCS at a time through an errgroup, since
// stats(out) on an individual bucket is a pure read. ctx bounds that
// fan-out; a cancelled or expired ctx aborts the snapshot and returns its
// error.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	out := Stats{
		Strings: c.strings.Stats(),
		Buckets: make(map[string]attrtable.Stats, len(c.buckets)),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for id, be := range c.buckets {
		id, be := id, be
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s := be.table.Stats()
			mu.Lock()
			out.Buckets[id] = s
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return out, nil
}
