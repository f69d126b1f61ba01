// Command dedupcache is a small demo/bench harness for the dedupcache
// library: it feeds synthetic points through a Cache and prints the
// resulting stats snapshot. It exists as a worked example for embedders and
// as a load generator for exercising hash-set resize behavior.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/davidvgalbraith/dedupcache"
	"github.com/davidvgalbraith/dedupcache/hashset"
)

func main() {
	app := &cli.App{
		Name:  "dedupcache",
		Usage: "demo/bench harness for the dedupcache deduplication cache",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "points", Value: 100_000, Usage: "number of synthetic points to feed in"},
			&cli.IntFlag{Name: "buckets", Value: 4, Usage: "number of distinct buckets to spread points across"},
			&cli.StringFlag{Name: "blob-size", Value: "20MB", Usage: "arena slab size, e.g. 20MB or 64MiB"},
			&cli.UintFlag{Name: "initial-capacity", Value: 4096, Usage: "hash set initial spine capacity"},
			&cli.StringFlag{Name: "hasher", Value: "jenkins", Usage: "jenkins, xxhash, or murmur3"},
			&cli.BoolFlag{Name: "mmap", Value: false, Usage: "back arenas with anonymous memory maps"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "dedupcache:", err)
		os.Exit(1)
	}
}

func run(cctx *cli.Context) error {
	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	hasher, err := parseHasher(cctx.String("hasher"))
	if err != nil {
		return err
	}

	cache, err := dedupcache.New(
		dedupcache.WithBlobSize(cctx.String("blob-size")),
		dedupcache.WithInitialCapacity(uint32(cctx.Uint("initial-capacity"))),
		dedupcache.WithHasher(hasher),
		dedupcache.WithMmapBlobs(cctx.Bool("mmap")),
		dedupcache.WithLogger(log),
	)
	if err != nil {
		return err
	}

	numPoints := cctx.Int("points")
	numBuckets := cctx.Int("buckets")
	if numBuckets < 1 {
		numBuckets = 1
	}

	for i := 0; i < numPoints; i++ {
		bucketID := fmt.Sprintf("demo@%d", i%numBuckets)
		point := syntheticPoint(i)
		if _, _, err := cache.LookupPoint(bucketID, point); err != nil {
			return fmt.Errorf("lookup point %d: %w", i, err)
		}
	}

	stats, err := cache.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("snapshot stats: %w", err)
	}

	printStats(stats)
	return nil
}

func syntheticPoint(i int) []dedupcache.Pair {
	return []dedupcache.Pair{
		{Tag: "host", Value: fmt.Sprintf("host-%d.example.com", i%10_000)},
		{Tag: "ip", Value: fmt.Sprintf("10.0.%d.%d", (i/256)%256, i%256)},
		{Tag: "metric", Value: fmt.Sprintf("counter_%d", i%50)},
	}
}

func parseHasher(name string) (hashset.Hasher, error) {
	switch name {
	case "jenkins", "":
		return hashset.JenkinsHasher{}, nil
	case "xxhash":
		return hashset.XXHasher{}, nil
	case "murmur3":
		return hashset.Murmur3Hasher{}, nil
	default:
		return nil, fmt.Errorf("unknown hasher %q", name)
	}
}

func printStats(stats dedupcache.Stats) {
	fmt.Printf("strings table: tags=%d values=%d allocated_bytes=%d\n",
		stats.Strings.NumTags, stats.Strings.NumValsAll, stats.Strings.AllocatedBytes)
	for bucket, bs := range stats.Buckets {
		fmt.Printf("bucket %-16s entries=%-8d capacity=%-8d collisions=%-6d max_chain=%-4d blob_used=%d\n",
			bucket, bs.Entries, bs.HashSet.Capacity, bs.HashSet.CollisionSlots, bs.HashSet.MaxChainLen, bs.BlobUsedBytes)
	}
}
