package fixedheap

import "fmt"

// Counters is the optional instrumentation block spec §4.H describes,
// mirroring jmem_heap_stats_t: running totals and high-water marks for
// allocation traffic, free-list walk cost, and skip-hint effectiveness.
// Every field is updated unconditionally by the allocator, and GetStats and
// PrintStats report them whether or not Config.EnableStats is set; nothing
// reads EnableStats.
type Counters struct {
	Size uintptr // usable area size, fixed at construction.

	AllocCount uintptr
	FreeCount  uintptr

	AllocIterCount uintptr // free-list nodes visited across all allocations.
	FreeIterCount  uintptr // free-list nodes visited across all frees.

	SkipCount    uintptr // Free() calls that started from the skip hint.
	NonskipCount uintptr // Free() calls that started from the sentinel.

	Allocated     uintptr // bytes currently live (rounded up to Alignment).
	PeakAllocated uintptr // high-water mark, resettable via ResetPeak.
	GlobalPeak    uintptr // high-water mark across the Heap's whole lifetime.

	Waste           uintptr // bytes lost to alignment rounding on live allocations.
	PeakWaste       uintptr
	GlobalPeakWaste uintptr

	ReclaimLowCount  uintptr
	ReclaimHighCount uintptr
}

// init resets the running counters to their starting state for a region of
// the given usable size. Called once from NewHeap.
func (c *Counters) init(size uintptr) {
	*c = Counters{Size: size}
}

// recordAlloc updates the allocation counters: requested tracks caller-facing
// bytes, rounded tracks what the free list actually carved out (requested's
// Alignment-rounded waste is rounded - requested).
func (c *Counters) recordAlloc(requested, rounded uintptr) {
	c.AllocCount++
	c.Allocated += rounded

	if c.Allocated > c.PeakAllocated {
		c.PeakAllocated = c.Allocated
	}

	if c.Allocated > c.GlobalPeak {
		c.GlobalPeak = c.Allocated
	}

	waste := rounded - requested
	c.Waste += waste

	if c.Waste > c.PeakWaste {
		c.PeakWaste = c.Waste
	}

	if c.Waste > c.GlobalPeakWaste {
		c.GlobalPeakWaste = c.Waste
	}
}

// recordFree is recordAlloc's inverse: requested/rounded are the same pair
// originally passed to the matching recordAlloc.
func (c *Counters) recordFree(requested, rounded uintptr) {
	c.FreeCount++
	c.Allocated -= rounded
	c.Waste -= rounded - requested
}

func (c *Counters) recordAllocIter() { c.AllocIterCount++ }
func (c *Counters) recordFreeIter()  { c.FreeIterCount++ }
func (c *Counters) recordSkip()      { c.SkipCount++ }
func (c *Counters) recordNonskip()   { c.NonskipCount++ }

func (c *Counters) recordReclamation(severity Severity) {
	if severity == SeverityHigh {
		c.ReclaimHighCount++
	} else {
		c.ReclaimLowCount++
	}
}

// GetStats returns a snapshot of the current counters (spec §4.H
// "get_stats").
func (h *Heap) GetStats() Counters {
	return h.stats
}

// ResetPeak resets PeakAllocated and PeakWaste to the current Allocated and
// Waste without touching the
// lifetime GlobalPeak/GlobalPeakWaste high-water marks or any running total
// (spec §4.H "reset_peak" — mirrors jmem_heap_stats_reset_peak, which resets
// only the interval peak, not the cumulative one).
func (h *Heap) ResetPeak() {
	h.stats.PeakAllocated = h.stats.Allocated
	h.stats.PeakWaste = h.stats.Waste
}

// PrintStats writes a human-readable report to w (spec §4.H "print_stats").
// The C original this mirrors (jmem_heap_stats_print) divides unconditionally
// by alloc/free/nonskip counts and crashes on a heap that has never allocated
// or freed anything; ozheap guards each ratio instead of reproducing that
// crash, printing 0 when the denominator is zero.
func (h *Heap) PrintStats(w interface{ Write([]byte) (int, error) }) {
	s := &h.stats

	avgAllocIter := ratio(s.AllocIterCount, s.AllocCount)
	avgFreeIter := ratio(s.FreeIterCount, s.FreeCount)
	skipRatio := ratio(s.SkipCount*100, s.SkipCount+s.NonskipCount)

	fmt.Fprintf(w, "Heap stats:\n")
	fmt.Fprintf(w, "  size = %d\n", s.Size)
	fmt.Fprintf(w, "  allocated = %d (peak %d, global peak %d)\n", s.Allocated, s.PeakAllocated, s.GlobalPeak)
	fmt.Fprintf(w, "  waste = %d (peak %d, global peak %d)\n", s.Waste, s.PeakWaste, s.GlobalPeakWaste)
	fmt.Fprintf(w, "  allocs = %d, frees = %d\n", s.AllocCount, s.FreeCount)
	fmt.Fprintf(w, "  avg alloc iters = %.2f, avg free iters = %.2f\n", avgAllocIter, avgFreeIter)
	fmt.Fprintf(w, "  skip hint used in %.1f%% of frees (%d skip, %d nonskip)\n", skipRatio, s.SkipCount, s.NonskipCount)
	fmt.Fprintf(w, "  reclamations: low = %d, high = %d\n", s.ReclaimLowCount, s.ReclaimHighCount)
}

// ratio divides two counts as floats, returning 0 rather than NaN/Inf when
// denom is zero.
func ratio(num, denom uintptr) float64 {
	if denom == 0 {
		return 0
	}

	return float64(num) / float64(denom)
}
