package fixedheap

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/orizon-lang/ozheap/internal/ozerrors"
)

// exit lets tests observe (and suppress) the fatal-OOM path instead of
// tearing down the test binary.
var exit = os.Exit

// storedSizeHeaderBytes is the width of the length prefix AllocStoreSize
// writes ahead of the payload it returns (spec §4.D "alloc_store_size").
// The C original reuses the whole 8-byte free-node struct as scratch space
// for this and only ever touches its size field; ozheap uses a plain
// 4-byte length instead, which is what the spec's own text describes
// ("Alignment guarantee is only to 4 bytes (header size)") and needs no
// free-node type-punning to read back.
const storedSizeHeaderBytes = 4

// AllocStoreSize allocates size+4 bytes, prepends the total length as a
// uint32 header, and returns the address immediately after it — 4-byte
// aligned, not necessarily cfg.Alignment-aligned. Pairs with FreeStored,
// which recovers the stored length and frees the whole block. Like the
// jmem_heap_alloc_block_store_size it mirrors, the underlying reservation
// goes through the fatal path: out of memory here is as unrecoverable as
// anywhere else in the allocator.
func (h *Heap) AllocStoreSize(size uintptr) unsafe.Pointer {
	if size == 0 {
		return nil
	}

	total := size + storedSizeHeaderBytes

	base := h.AllocOrFatal(total)
	*(*uint32)(base) = uint32(total)

	return unsafe.Pointer(uintptr(base) + storedSizeHeaderBytes)
}

// AllocOrFatal returns a payload of at least size bytes, aligned to
// cfg.Alignment, terminating the process with an OUT_OF_MEMORY diagnostic
// if no region can satisfy the request even after the pressure loop runs
// every reclamation severity (spec §4.D, §7). size == 0 returns nil.
func (h *Heap) AllocOrFatal(size uintptr) unsafe.Pointer {
	if size == 0 {
		return nil
	}

	h.guardReentrantAlloc()

	if p := h.allocWithPressure(size); p != nil {
		return p
	}

	fmt.Fprintln(os.Stderr, ozerrors.OutOfMemory(size).Error())
	exit(1)

	return nil
}

// AllocOrNull is AllocOrFatal's non-terminating sibling: it returns nil
// instead of aborting the process when the pressure loop is exhausted
// (spec §4.D).
func (h *Heap) AllocOrNull(size uintptr) unsafe.Pointer {
	if size == 0 {
		return nil
	}

	h.guardReentrantAlloc()

	return h.allocWithPressure(size)
}

// guardReentrantAlloc enforces the one-directional reclamation contract
// (spec §5): a reclamation callback running synchronously inside Alloc may
// call Free on this heap, but must never call back into Alloc.
func (h *Heap) guardReentrantAlloc() {
	if h.inReclaim {
		panic(ozerrors.ReentrantAlloc())
	}
}

// allocInternal implements the two-path split of spec §4.D without any
// reclamation: a fast path for exactly-Alignment-sized requests, and a
// first-fit walk for everything else. It returns nil if no region can
// satisfy the request as the free list currently stands.
func (h *Heap) allocInternal(size uintptr) unsafe.Pointer {
	required := alignUp(size, h.cfg.Alignment)

	var dataSpace *freeNode

	if required == h.cfg.Alignment && h.first.nextOffset != endOfList {
		dataSpace = h.allocFastPath()
	} else {
		dataSpace = h.allocSlowPath(required)
	}

	for h.allocatedSize >= h.limit {
		h.limit += h.cfg.DesiredLimit
	}

	if dataSpace == nil {
		return nil
	}

	if h.cfg.EnableDebug && uintptr(unsafe.Pointer(dataSpace))%h.cfg.Alignment != 0 {
		panic(ozerrors.CorruptFreeList("allocated block is not Alignment-aligned"))
	}

	h.stats.recordAlloc(size, required)

	return unsafe.Pointer(dataSpace)
}

// allocFastPath takes the first free region directly off the sentinel when
// the request rounds up to exactly one Alignment-sized block, splitting the
// region in place if it is larger than required (spec §4.D "Fast path").
func (h *Heap) allocFastPath() *freeNode {
	alignment := uint32(h.cfg.Alignment)

	firstOffset := h.first.nextOffset
	dataSpace := h.nodeAt(firstOffset)

	h.allocatedSize += h.cfg.Alignment
	h.stats.recordAllocIter()

	if dataSpace.size == alignment {
		h.first.nextOffset = dataSpace.nextOffset
	} else {
		remaining := h.nodeAt(firstOffset + alignment)
		remaining.size = dataSpace.size - alignment
		remaining.nextOffset = dataSpace.nextOffset
		h.first.nextOffset = h.offsetOf(remaining)
	}

	if dataSpace == h.skipHint {
		h.skipHint = h.nodeAt(h.first.nextOffset)
	}

	return dataSpace
}

// allocSlowPath walks the free list from its head looking for the first
// region big enough to satisfy required, carving from the front of an
// over-sized region rather than the back (spec §4.D "Slow path").
func (h *Heap) allocSlowPath(required uintptr) *freeNode {
	prev := &h.first
	current := h.nodeAt(h.first.nextOffset)

	for current != nil {
		h.stats.recordAllocIter()

		nextOffset := current.nextOffset

		if uintptr(current.size) >= required {
			if uintptr(current.size) > required {
				remaining := h.nodeAt(h.offsetOf(current) + uint32(required))
				remaining.size = current.size - uint32(required)
				remaining.nextOffset = nextOffset
				prev.nextOffset = h.offsetOf(remaining)
			} else {
				prev.nextOffset = nextOffset
			}

			h.allocatedSize += required
			h.skipHint = prev

			return current
		}

		prev = current
		current = h.nodeAt(nextOffset)
	}

	return nil
}
