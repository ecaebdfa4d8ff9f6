package fixedheap

import (
	"math/rand"
	"testing"
	"unsafe"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	h := newTestHeap(t, WithHeapSize(4096))

	var ptrs []unsafe.Pointer
	for i := 0; i < 20; i++ {
		p := h.AllocOrNull(h.cfg.Alignment)
		if p == nil {
			t.Fatalf("allocation %d failed", i)
		}

		ptrs = append(ptrs, p)
	}

	for _, p := range ptrs {
		cp := h.Compress(p)

		if cp == CPNull {
			t.Errorf("Compress(%p) = CPNull, want a live code", p)
		}

		if got := h.Decompress(cp); got != p {
			t.Errorf("Decompress(Compress(%p)) = %p, want %p", p, got, p)
		}
	}

	for _, p := range ptrs {
		h.Free(p, h.cfg.Alignment)
	}
}

func TestCompressNilPanics(t *testing.T) {
	h := newTestHeap(t, WithHeapSize(4096))

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic compressing a nil pointer")
		}
	}()

	h.Compress(nil)
}

func TestDecompressCPNullPanics(t *testing.T) {
	h := newTestHeap(t, WithHeapSize(4096))

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic decompressing CPNull")
		}
	}()

	h.Decompress(CPNull)
}

func TestCompressOutOfRegionPanics(t *testing.T) {
	h := newTestHeap(t, WithHeapSize(4096))

	var stray byte

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic compressing a pointer outside the region")
		}
	}()

	h.Compress(unsafe.Pointer(&stray))
}

// TestCompressDistinctLivePointersNeverCollide is scenario S6: for a random
// sequence of alloc/free pairs, no two distinct live pointers ever share a
// compressed code, and every live pointer round-trips.
func TestCompressDistinctLivePointersNeverCollide(t *testing.T) {
	h := newTestHeap(t, WithHeapSize(8192))
	rng := rand.New(rand.NewSource(42))

	live := map[unsafe.Pointer]uint32{}
	byCode := map[uint32]unsafe.Pointer{}

	for i := 0; i < 2000; i++ {
		if len(live) > 0 && rng.Intn(2) == 0 {
			var victim unsafe.Pointer
			for p := range live {
				victim = p

				break
			}

			code := live[victim]
			delete(live, victim)
			delete(byCode, code)
			h.Free(victim, h.cfg.Alignment)

			continue
		}

		p := h.AllocOrNull(h.cfg.Alignment)
		if p == nil {
			continue
		}

		cp := h.Compress(p)

		if cp == CPNull {
			t.Fatalf("Compress(%p) = CPNull on a live pointer", p)
		}

		if other, collides := byCode[cp]; collides && other != p {
			t.Fatalf("compressed code %d collides between %p and %p", cp, other, p)
		}

		if h.Decompress(cp) != p {
			t.Fatalf("round-trip failed for %p", p)
		}

		live[p] = cp
		byCode[cp] = p
	}

	for p := range live {
		h.Free(p, h.cfg.Alignment)
	}
}
