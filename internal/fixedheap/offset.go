package fixedheap

import "unsafe"

// nodeAt is half of the offset/address bijection (spec §4.B): given an
// in-region byte offset, it returns the node living there. It maps the
// reserved endOfList code to nil, the distinguished "no such node" value,
// matching JMEM_HEAP_END_OF_LIST never being dereferenced in the original.
func (h *Heap) nodeAt(offset uint32) *freeNode {
	if offset == endOfList {
		return nil
	}

	return (*freeNode)(unsafe.Pointer(&h.area[offset]))
}

// offsetOf is the other half of the bijection: given a node (or nil, for
// "no next node"), it returns the offset to store in a next_offset field.
func (h *Heap) offsetOf(n *freeNode) uint32 {
	if n == nil {
		return endOfList
	}

	return uint32(uintptr(unsafe.Pointer(n)) - h.regionBase)
}

// next returns the node that n.nextOffset names, or nil at the end of the
// list. n may be the sentinel (&h.first) or any node inside the area — both
// share the freeNode layout, so the walk never special-cases the head
// (spec DESIGN NOTES "Sentinel head... avoids null checks in the hot
// path").
func (h *Heap) next(n *freeNode) *freeNode {
	return h.nodeAt(n.nextOffset)
}

// setNext stores next's offset into n.nextOffset.
func (h *Heap) setNext(n *freeNode, next *freeNode) {
	n.nextOffset = h.offsetOf(next)
}

// posKey orders a node's position in the region for comparisons that, in
// the C original, were raw pointer comparisons against &jmem_heap.first —
// valid there because the sentinel sits in memory immediately before the
// area. A Go *Heap carries no such layout guarantee (the area may be a
// separate mmap/VirtualAlloc reservation at an arbitrary address), so
// ordering comparisons against the sentinel go through posKey instead of
// raw pointer magnitude. The sentinel sorts before every in-region offset.
func (h *Heap) posKey(n *freeNode) int64 {
	if n == &h.first {
		return -1
	}

	return int64(h.offsetOf(n))
}
