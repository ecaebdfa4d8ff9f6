package fixedheap

import (
	"math/rand"
	"testing"
	"unsafe"
)

// checkInvariants verifies spec properties 1-4 and 7-8: free-list
// sortedness, no touching frees, conservation, alignment, the limit
// envelope, and skip-hint validity. It is called after every operation in
// TestPropertyRandomWorkload.
func checkInvariants(t *testing.T, h *Heap, allocated map[unsafe.Pointer]uintptr) {
	t.Helper()

	var (
		prev     *freeNode
		freeSize uintptr
	)

	for n := h.next(&h.first); n != nil; n = h.next(n) {
		addr := uintptr(unsafe.Pointer(n))

		if addr%h.cfg.Alignment != 0 {
			t.Fatalf("free node at %#x is not Alignment-aligned", addr)
		}

		if uintptr(n.size)%h.cfg.Alignment != 0 || n.size == 0 {
			t.Fatalf("free node at %#x has invalid size %d", addr, n.size)
		}

		if prev != nil {
			prevAddr := uintptr(unsafe.Pointer(prev))
			if !(prevAddr < addr) {
				t.Fatalf("free list not sorted: %#x before %#x", prevAddr, addr)
			}

			if h.regionEnd(prev) >= addr {
				t.Fatalf("adjacent free regions not coalesced: prev ends at %#x, next starts at %#x", h.regionEnd(prev), addr)
			}
		}

		freeSize += uintptr(n.size)
		prev = n
	}

	if h.allocatedSize+freeSize != h.cfg.areaSize() {
		t.Fatalf("conservation violated: allocated=%d free=%d area=%d", h.allocatedSize, freeSize, h.cfg.areaSize())
	}

	if h.allocatedSize > h.limit {
		t.Fatalf("limit envelope violated: allocated=%d limit=%d", h.allocatedSize, h.limit)
	}

	if h.skipHint != &h.first {
		valid := false

		for n := h.next(&h.first); n != nil; n = h.next(n) {
			if n == h.skipHint {
				valid = true

				break
			}
		}

		if !valid {
			t.Fatalf("skip_hint %p is neither the sentinel nor a live free node", h.skipHint)
		}
	}

	for p, size := range allocated {
		if uintptr(p)%h.cfg.Alignment != 0 {
			t.Fatalf("live allocation at %p is not Alignment-aligned", p)
		}

		_ = size
	}
}

// TestPropertyRandomWorkload drives a seeded random sequence of allocations
// and frees, checking every quantified invariant after each operation (spec
// §8).
func TestPropertyRandomWorkload(t *testing.T) {
	h := newTestHeap(t, WithHeapSize(16*1024))
	rng := rand.New(rand.NewSource(7))

	allocated := map[unsafe.Pointer]uintptr{}

	checkInvariants(t, h, allocated)

	for i := 0; i < 5000; i++ {
		if len(allocated) > 0 && rng.Intn(3) == 0 {
			var victim unsafe.Pointer
			for p := range allocated {
				victim = p

				break
			}

			h.Free(victim, allocated[victim])
			delete(allocated, victim)
		} else {
			size := uintptr(1 + rng.Intn(128))

			p := h.AllocOrNull(size)
			if p != nil {
				allocated[p] = size
			}
		}

		checkInvariants(t, h, allocated)
	}

	for p, size := range allocated {
		h.Free(p, size)
	}

	checkInvariants(t, h, nil)

	if h.allocatedSize != 0 {
		t.Fatalf("allocatedSize = %d after draining every block, want 0", h.allocatedSize)
	}
}

func TestSkipHintStartsAtSentinel(t *testing.T) {
	h := newTestHeap(t, WithHeapSize(4096))

	if h.skipHint != &h.first {
		t.Errorf("skipHint = %p on a fresh heap, want the sentinel %p", h.skipHint, &h.first)
	}
}

func TestIsHeapPointer(t *testing.T) {
	h := newTestHeap(t, WithHeapSize(4096))

	p := h.AllocOrNull(8)
	if p == nil {
		t.Fatal("allocation failed")
	}

	if !h.IsHeapPointer(p) {
		t.Error("IsHeapPointer should be true for a live in-region pointer")
	}

	var stray byte
	if h.IsHeapPointer(unsafe.Pointer(&stray)) {
		t.Error("IsHeapPointer should be false for a stack/heap pointer outside the region")
	}

	h.Free(p, 8)
}

func TestFinalizeRejectsLeakedAllocations(t *testing.T) {
	h := newTestHeap(t, WithHeapSize(4096))

	p := h.AllocOrNull(8)
	if p == nil {
		t.Fatal("allocation failed")
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected Finalize to panic with a live allocation outstanding")
		}
	}()

	_ = h.Finalize()
}

func TestFinalizeSucceedsWhenDrained(t *testing.T) {
	h := newTestHeap(t, WithHeapSize(4096))

	p := h.AllocOrNull(8)
	if p == nil {
		t.Fatal("allocation failed")
	}

	h.Free(p, 8)

	if err := h.Finalize(); err != nil {
		t.Errorf("Finalize() = %v, want nil", err)
	}
}
