// Command ozheap-stats drives a synthetic allocation workload against a
// fixedheap.Heap and reports the resulting counters, the way orizon-profile
// drives a workload under the Go profiler and reports what it captured.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"
	"unsafe"

	"github.com/orizon-lang/ozheap/internal/fixedheap"
	"github.com/orizon-lang/ozheap/internal/ozcli"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version information")
		jsonOutput  = flag.Bool("json", false, "output version in JSON format")
		heapSize    = flag.Uint64("heap-size", 512*1024, "total heap reservation in bytes")
		iterations  = flag.Int("iterations", 10000, "number of alloc/free operations to drive")
		minSize     = flag.Uint64("min-size", 8, "minimum request size in bytes")
		maxSize     = flag.Uint64("max-size", 256, "maximum request size in bytes")
		seed        = flag.Int64("seed", 1, "PRNG seed for the synthetic workload")
		verbose     = flag.Bool("verbose", false, "verbose progress output")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Drives a synthetic alloc/free workload against an ozheap heap and\n")
		fmt.Fprintf(os.Stderr, "prints the resulting instrumentation counters.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showVersion {
		ozcli.PrintVersion("ozheap-stats", *jsonOutput)
		os.Exit(0)
	}

	logger := ozcli.NewLogger(*verbose, false)

	if err := run(workloadConfig{
		heapSize:   uintptr(*heapSize),
		iterations: *iterations,
		minSize:    uintptr(*minSize),
		maxSize:    uintptr(*maxSize),
		seed:       *seed,
	}, logger); err != nil {
		ozcli.ExitWithError("workload failed: %v", err)
	}
}

type workloadConfig struct {
	heapSize   uintptr
	iterations int
	minSize    uintptr
	maxSize    uintptr
	seed       int64
}

// live tracks a currently allocated block so the workload can pick one at
// random to free instead of only ever growing the live set.
type live struct {
	ptr  unsafe.Pointer
	size uintptr
}

func run(cfg workloadConfig, logger *ozcli.Logger) error {
	h, err := fixedheap.NewHeap(
		fixedheap.WithHeapSize(cfg.heapSize),
		fixedheap.WithStats(true),
	)
	if err != nil {
		return fmt.Errorf("constructing heap: %w", err)
	}

	rng := rand.New(rand.NewSource(cfg.seed))

	var blocks []live

	start := time.Now()

	for i := 0; i < cfg.iterations; i++ {
		// Free about a third of the time once something is live, otherwise
		// allocate; this keeps the free list churning in both directions
		// instead of only ever growing toward exhaustion.
		if len(blocks) > 0 && rng.Intn(3) == 0 {
			idx := rng.Intn(len(blocks))
			b := blocks[idx]
			h.Free(b.ptr, b.size)

			blocks[idx] = blocks[len(blocks)-1]
			blocks = blocks[:len(blocks)-1]

			logger.Debug("freed block of size %d (%d live)", b.size, len(blocks))

			continue
		}

		size := cfg.minSize
		if cfg.maxSize > cfg.minSize {
			size += uintptr(rng.Int63n(int64(cfg.maxSize - cfg.minSize + 1)))
		}

		p := h.AllocOrNull(size)
		if p == nil {
			logger.Debug("alloc of size %d failed, heap under pressure", size)

			continue
		}

		blocks = append(blocks, live{ptr: p, size: size})
	}

	for _, b := range blocks {
		h.Free(b.ptr, b.size)
	}

	logger.Info("workload finished in %s", time.Since(start))

	h.PrintStats(os.Stdout)

	return h.Finalize()
}
