package fixedheap

import "testing"

func TestNewHeapDefaults(t *testing.T) {
	h := newTestHeap(t)

	if h.cfg.HeapSize != defaultHeapSize {
		t.Errorf("HeapSize = %d, want %d", h.cfg.HeapSize, defaultHeapSize)
	}

	if h.first.size != 0 {
		t.Errorf("sentinel size = %d, want 0", h.first.size)
	}

	if h.allocatedSize != 0 {
		t.Errorf("allocatedSize = %d, want 0", h.allocatedSize)
	}

	if h.limit != h.cfg.DesiredLimit {
		t.Errorf("limit = %d, want %d", h.limit, h.cfg.DesiredLimit)
	}
}

func TestValidateConfigRejectsBadInputs(t *testing.T) {
	cases := []struct {
		name string
		opts []Option
	}{
		{"zero alignment", []Option{WithAlignment(0, 0)}},
		{"non-power-of-two alignment", []Option{WithAlignment(3, 2)}},
		{"alignment smaller than free-node header", []Option{WithAlignment(4, 2)}},
		{"heap size not exceeding alignment", []Option{WithHeapSize(4), WithAlignment(8, 3)}},
		{"desired limit zero", []Option{WithDesiredLimit(0)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewHeap(tc.opts...); err == nil {
				t.Error("expected an error, got nil")
			}
		})
	}
}

func TestResetFreeListSingleRegion(t *testing.T) {
	h := newTestHeap(t, WithHeapSize(4096))

	if n := freeNodeCount(h); n != 1 {
		t.Fatalf("fresh heap has %d free nodes, want 1", n)
	}

	region := h.nodeAt(h.first.nextOffset)
	if uintptr(region.size) != h.cfg.areaSize() {
		t.Errorf("initial region size = %d, want %d", region.size, h.cfg.areaSize())
	}

	if region.nextOffset != endOfList {
		t.Errorf("initial region nextOffset = %d, want endOfList", region.nextOffset)
	}
}
