package fixedheap

import (
	"unsafe"

	"github.com/orizon-lang/ozheap/internal/ozerrors"
)

// CPNull is the reserved compressed-pointer code meaning "no object" (spec
// §4.G, glossary CP_NULL). It is never returned by Compress.
const CPNull uint32 = cpNull

// Compress packs an in-region, Alignment-aligned address into a
// HeapOffsetLog-AlignmentLog-bit unsigned integer (spec §4.G, glossary
// "Compressed pointer"). p must not be nil and must address a byte inside
// the region; decompress(compress(p)) == p for every aligned in-region p
// (spec §8 property 5).
//
// On a platform where native pointers already fit in the compressed width,
// a rewrite may degenerate this to identity (spec DESIGN NOTES) — ozheap
// keeps the shift-scaled encoding regardless, since Go pointers are never
// narrow enough for that shortcut to apply, and the shift is what buys the
// caller a field half the width of a pointer.
func (h *Heap) Compress(p unsafe.Pointer) uint32 {
	if p == nil {
		panic(ozerrors.InvalidSize(0, "Compress: nil pointer"))
	}

	h.assertHeapPointer(p, "Compress")

	// Offsets are taken from cpBase, one Alignment below the area — the
	// spot the sentinel header would occupy in the C layout this mirrors.
	// That is what guarantees CPNull (offset 0) is never a legal in-region
	// address: the lowest reachable in-region address is area[0], which
	// sits exactly one Alignment above cpBase.
	offset := uintptr(p) - h.cpBase

	if h.cfg.EnableDebug && offset%h.cfg.Alignment != 0 {
		panic(ozerrors.CorruptFreeList("Compress: pointer is not Alignment-aligned"))
	}

	cp := uint32(offset >> h.cfg.AlignmentLog)

	maxCP := uint32(1) << (h.cfg.HeapOffsetLog - h.cfg.AlignmentLog)
	if h.cfg.EnableDebug && cp >= maxCP {
		panic(ozerrors.CorruptFreeList("Compress: offset exceeds HeapOffsetLog width"))
	}

	return cp
}

// Decompress reverses Compress. u must not be CPNull.
func (h *Heap) Decompress(u uint32) unsafe.Pointer {
	if u == cpNull {
		panic(ozerrors.InvalidSize(uintptr(u), "Decompress: CPNull"))
	}

	offset := uintptr(u) << h.cfg.AlignmentLog
	p := unsafe.Pointer(h.cpBase + offset)

	h.assertHeapPointer(p, "Decompress")

	return p
}
