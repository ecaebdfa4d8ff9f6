package fixedheap

import (
	"unsafe"

	"github.com/orizon-lang/ozheap/internal/ozerrors"
)

// Free releases a block previously returned by AllocOrFatal, AllocOrNull or
// AllocStoreSize (via FreeStored) back to the free list, coalescing with
// the preceding and following regions when they are adjacent (spec §4.E).
// size must equal the size originally requested; calling Free twice for the
// same pointer, or with a size that does not match the original request, is
// undefined (spec §7 LogicError). With EnableDebug set, Free checks only that
// size is nonzero and that p lies in the region; double frees and mismatched
// sizes are not detected.
func (h *Heap) Free(p unsafe.Pointer, size uintptr) {
	if h.cfg.EnableDebug {
		if size == 0 {
			panic(ozerrors.InvalidSize(size, "Free"))
		}

		h.assertHeapPointer(p, "Free")
	}

	alignedSize := alignUp(size, h.cfg.Alignment)
	block := (*freeNode)(p)
	blockOffset := h.offsetOf(block)

	prev := h.freeSearchOrigin(block)
	h.stats.recordFreeIter()

	for prev.nextOffset < blockOffset {
		prev = h.nodeAt(prev.nextOffset)
		h.stats.recordFreeIter()
	}

	next := h.nodeAt(prev.nextOffset)

	if prev != &h.first && h.regionEnd(prev) == uintptr(unsafe.Pointer(block)) {
		prev.size += uint32(alignedSize)
		block = prev
	} else {
		block.size = uint32(alignedSize)
		prev.nextOffset = blockOffset
	}

	if next != nil && h.regionEnd(block) == uintptr(unsafe.Pointer(next)) {
		if next == h.skipHint {
			h.skipHint = block
		}

		block.size += next.size
		block.nextOffset = next.nextOffset
	} else {
		h.setNext(block, next)
	}

	h.skipHint = prev

	if h.cfg.EnableDebug && h.allocatedSize < alignedSize {
		panic(ozerrors.CorruptFreeList("allocated_size underflow on Free"))
	}

	h.allocatedSize -= alignedSize

	for h.limit >= h.cfg.DesiredLimit && h.limit-h.cfg.DesiredLimit >= h.allocatedSize {
		h.limit -= h.cfg.DesiredLimit
	}

	h.stats.recordFree(size, alignedSize)
}

// freeSearchOrigin picks the walk's starting point (spec §4.C, §4.E): the
// skip hint if block sorts after it, otherwise the sentinel head.
func (h *Heap) freeSearchOrigin(block *freeNode) *freeNode {
	if h.posKey(block) > h.posKey(h.skipHint) {
		h.stats.recordSkip()

		return h.skipHint
	}

	h.stats.recordNonskip()

	return &h.first
}

// FreeStored releases a block allocated with AllocStoreSize, recovering the
// original size from the 4-byte header AllocStoreSize prepended (spec
// §4.D, §6).
func (h *Heap) FreeStored(ptr unsafe.Pointer) {
	base := unsafe.Pointer(uintptr(ptr) - storedSizeHeaderBytes)
	total := *(*uint32)(base)

	h.Free(base, uintptr(total))
}
