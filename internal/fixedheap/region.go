package fixedheap

import (
	"fmt"
	"unsafe"

	"github.com/orizon-lang/ozheap/internal/ozerrors"
)

// freeNode overlays the first 8 bytes of every free region (spec §3 "Free
// node"). While a region is free these bytes hold (size, nextOffset); once
// the allocator hands the region to a caller, the same bytes become part of
// the opaque payload and are never read as a node again until it is freed.
type freeNode struct {
	size       uint32
	nextOffset uint32
}

// Heap is a single fixed-capacity, single-threaded, first-fit free-list
// allocator over one statically reserved byte region. It is the explicit,
// passable handle the spec's DESIGN NOTES call for ("Global mutable state...
// a rewrite may encapsulate it as an explicitly-passed handle") — see
// global.go for the package-level singleton wrapper preserving the
// original external interface.
//
// A Heap is not safe for concurrent use: spec §5 makes single-context
// execution a hard assumption, not merely the common case.
type Heap struct {
	cfg        *Config
	area       []byte
	release    func() error
	regionBase uintptr
	cpBase     uintptr

	first         freeNode // sentinel head; first.size is always 0.
	skipHint      *freeNode
	allocatedSize uintptr
	limit         uintptr

	reclaimer Reclaimer
	inReclaim bool

	stats Counters
}

// NewHeap reserves a fresh backing region and initializes the free list to
// a single region spanning the whole area (spec §4.A).
func NewHeap(opts ...Option) (*Heap, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	area, release, err := allocateRegion(cfg.areaSize())
	if err != nil {
		return nil, fmt.Errorf("ozheap: reserving %d-byte region: %w", cfg.areaSize(), err)
	}

	regionBase := uintptr(unsafe.Pointer(&area[0]))

	h := &Heap{
		cfg:        cfg,
		area:       area,
		release:    release,
		regionBase: regionBase,
		// cpBase sits one Alignment below the area, standing in for the
		// sentinel slot that precedes area in the C original's layout
		// (jmem_heap.first directly before jmem_heap.area). This is what
		// makes compressed offset 0 (CPNull) land on the sentinel rather
		// than on area[0] — see compress.go.
		cpBase:    regionBase - cfg.Alignment,
		limit:     cfg.DesiredLimit,
		reclaimer: cfg.reclaimer,
	}
	h.resetFreeList()
	h.stats.init(cfg.areaSize())

	return h, nil
}

// validateConfig checks the invariants NewHeap depends on; these are
// construction-time argument errors (ozerrors.CategoryValidation), not the
// hot-path debug assertions described in spec §7.
func validateConfig(cfg *Config) error {
	if cfg.Alignment == 0 || cfg.Alignment&(cfg.Alignment-1) != 0 {
		return fmt.Errorf("ozheap: alignment %d is not a power of two", cfg.Alignment)
	}

	if cfg.Alignment < freeNodeSize {
		return fmt.Errorf("ozheap: alignment %d is smaller than the free-node header (%d bytes)", cfg.Alignment, freeNodeSize)
	}

	if cfg.HeapSize <= cfg.Alignment {
		return fmt.Errorf("ozheap: heap size %d must exceed alignment %d", cfg.HeapSize, cfg.Alignment)
	}

	if cfg.areaSize()%cfg.Alignment != 0 {
		return fmt.Errorf("ozheap: area size %d is not a multiple of alignment %d", cfg.areaSize(), cfg.Alignment)
	}

	if cfg.HeapOffsetLog >= 32 {
		return fmt.Errorf("ozheap: heap offset log %d does not fit 32-bit offsets", cfg.HeapOffsetLog)
	}

	if uintptr(1)<<cfg.HeapOffsetLog < cfg.HeapSize {
		return fmt.Errorf("ozheap: heap offset log %d cannot address a %d-byte heap", cfg.HeapOffsetLog, cfg.HeapSize)
	}

	if cfg.DesiredLimit == 0 {
		return fmt.Errorf("ozheap: desired limit must be positive")
	}

	return nil
}

// resetFreeList rebuilds the single-region free list spanning the whole
// area, with the skip hint parked at the sentinel (spec §4.A).
func (h *Heap) resetFreeList() {
	h.first.size = 0
	h.first.nextOffset = 0

	region := h.nodeAt(0)
	region.size = uint32(len(h.area))
	region.nextOffset = endOfList

	h.skipHint = &h.first
	h.allocatedSize = 0
}

// Finalize asserts there are no live allocations and releases the backing
// region (spec §4.A "Finalization verifies that allocated_size = 0 and
// otherwise reports a bug; it does not reclaim the static region" — ozheap
// additionally releases the region it reserved itself, since unlike the
// embedded original it does not own static memory for the life of the
// process).
func (h *Heap) Finalize() error {
	if h.allocatedSize != 0 {
		panic(ozerrors.LeakedAllocations(h.allocatedSize))
	}

	if h.release == nil {
		return nil
	}

	return h.release()
}

// IsHeapPointer reports whether p addresses a byte within the region (spec
// §6 "debug-only"). It never dereferences p.
func (h *Heap) IsHeapPointer(p unsafe.Pointer) bool {
	addr := uintptr(p)

	return addr >= h.regionBase && addr < h.regionBase+uintptr(len(h.area))
}

// assertHeapPointer panics with a ozerrors.NotHeapPointer when debug
// assertions are enabled and p falls outside the region. Release paths
// (EnableDebug=false) skip the check, matching spec §7's "the core does
// not attempt to validate" in non-debug builds.
func (h *Heap) assertHeapPointer(p unsafe.Pointer, context string) {
	if !h.cfg.EnableDebug {
		return
	}

	if !h.IsHeapPointer(p) {
		panic(ozerrors.NotHeapPointer(context))
	}
}

// regionEnd returns the address immediately past n's occupied bytes.
func (h *Heap) regionEnd(n *freeNode) uintptr {
	return uintptr(unsafe.Pointer(n)) + uintptr(n.size)
}

// alignUp rounds size up to the next multiple of alignment (alignment must
// be a power of two).
func alignUp(size, alignment uintptr) uintptr {
	return (size + alignment - 1) &^ (alignment - 1)
}
