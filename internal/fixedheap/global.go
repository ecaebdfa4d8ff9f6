package fixedheap

import "unsafe"

// globalHeap backs the package-level convenience wrappers below, mirroring
// the teacher's GlobalAllocator/GlobalRuntime pattern: a process that wants
// exactly one heap can Init it once and call the free functions anywhere
// without threading a *Heap through every call site. Code that wants more
// than one heap, or wants to avoid global state entirely, should construct
// its own *Heap with NewHeap and call its methods directly instead.
var globalHeap *Heap

// Init constructs the package-level Heap. It panics if called twice without
// an intervening Finalize.
func Init(opts ...Option) error {
	if globalHeap != nil {
		panic("fixedheap: Init called with a heap already active")
	}

	h, err := NewHeap(opts...)
	if err != nil {
		return err
	}

	globalHeap = h

	return nil
}

// Finalize tears down the package-level Heap (spec §4.A). It panics if Init
// was never called, same as every other wrapper in this file.
func Finalize() error {
	h := mustGlobal()
	err := h.Finalize()
	globalHeap = nil

	return err
}

func mustGlobal() *Heap {
	if globalHeap == nil {
		panic("fixedheap: no active heap — call Init first")
	}

	return globalHeap
}

// AllocOrFatal delegates to the package-level Heap. See Heap.AllocOrFatal.
func AllocOrFatal(size uintptr) unsafe.Pointer { return mustGlobal().AllocOrFatal(size) }

// AllocOrNull delegates to the package-level Heap. See Heap.AllocOrNull.
func AllocOrNull(size uintptr) unsafe.Pointer { return mustGlobal().AllocOrNull(size) }

// AllocStoreSize delegates to the package-level Heap. See Heap.AllocStoreSize.
func AllocStoreSize(size uintptr) unsafe.Pointer { return mustGlobal().AllocStoreSize(size) }

// Free delegates to the package-level Heap. See Heap.Free.
func Free(p unsafe.Pointer, size uintptr) { mustGlobal().Free(p, size) }

// FreeStored delegates to the package-level Heap. See Heap.FreeStored.
func FreeStored(p unsafe.Pointer) { mustGlobal().FreeStored(p) }

// Compress delegates to the package-level Heap. See Heap.Compress.
func Compress(p unsafe.Pointer) uint32 { return mustGlobal().Compress(p) }

// Decompress delegates to the package-level Heap. See Heap.Decompress.
func Decompress(u uint32) unsafe.Pointer { return mustGlobal().Decompress(u) }

// IsHeapPointer delegates to the package-level Heap. See Heap.IsHeapPointer.
func IsHeapPointer(p unsafe.Pointer) bool { return mustGlobal().IsHeapPointer(p) }

// SetReclaimer delegates to the package-level Heap. See Heap.SetReclaimer.
func SetReclaimer(r Reclaimer) { mustGlobal().SetReclaimer(r) }

// GetStats delegates to the package-level Heap. See Heap.GetStats.
func GetStats() Counters { return mustGlobal().GetStats() }

// ResetPeak delegates to the package-level Heap. See Heap.ResetPeak.
func ResetPeak() { mustGlobal().ResetPeak() }

// PrintStats delegates to the package-level Heap. See Heap.PrintStats.
func PrintStats(w interface{ Write([]byte) (int, error) }) { mustGlobal().PrintStats(w) }
