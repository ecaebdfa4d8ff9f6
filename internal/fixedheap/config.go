package fixedheap

// Compile-time tunables (spec §6 "Configuration constants").
//
// These mirror jerry-core's JMEM_* macros: HeapSize is the full static
// reservation including the sentinel-sized slack, Alignment is the minimum
// block granularity (and the in-band free-node header size), AlignmentLog
// is its base-2 logarithm, HeapOffsetLog is the number of bits every
// in-region offset must fit in, and DesiredLimit is the step the soft
// pressure threshold grows/shrinks by.
const (
	defaultHeapSize          = 512 * 1024
	defaultAlignment         = 8
	defaultAlignmentLog      = 3
	defaultHeapOffsetLog     = 20 // 2^20 = 1MiB >= any reasonable HeapSize below that bound
	defaultDesiredLimit      = 8 * 1024
	defaultGCBeforeEachAlloc = false
)

// freeNodeSize is sizeof(size uint32, next_offset uint32) — the in-band
// free-node header (spec §3 "Free node"). It is also the minimum
// allocation granularity: Alignment must be >= freeNodeSize.
const freeNodeSize = 8

// endOfList is the reserved offset value that terminates the free list
// (spec §3 "Offsets" — "all-ones"). It is never a valid in-region offset
// because Config.HeapOffsetLog always yields a strictly smaller address
// space than 1<<32.
const endOfList uint32 = ^uint32(0)

// cpNull is the reserved compressed-pointer code meaning "no object"
// (spec §4.G, glossary CP_NULL).
const cpNull uint32 = 0

// Config holds the compile-time-equivalent parameters of a Heap. Unlike the
// C original these are per-instance rather than preprocessor macros, so a
// process may run more than one differently-sized heap; Config is
// immutable once passed to NewHeap.
type Config struct {
	// HeapSize is the full static reservation; the usable area is
	// HeapSize - Alignment (room for the sentinel-adjacent header).
	HeapSize uintptr
	// Alignment is the block granularity; must be a power of two and at
	// least freeNodeSize.
	Alignment uintptr
	// AlignmentLog is log2(Alignment).
	AlignmentLog uint
	// HeapOffsetLog bounds every in-region offset: 1<<HeapOffsetLog must
	// be >= HeapSize.
	HeapOffsetLog uint
	// DesiredLimit is the increment Limit grows/shrinks by (spec §3).
	DesiredLimit uintptr
	// GCBeforeEachAlloc is the debug toggle that runs a HIGH-severity
	// reclamation pass before every allocation request, regardless of
	// pressure (spec §6).
	GCBeforeEachAlloc bool
	// EnableDebug gates the assertion checks spec §7 calls "debug
	// assertions only... undefined in release builds". Named after the
	// teacher's Config.EnableDebug field.
	EnableDebug bool
	// EnableStats is stored but not consulted: the instrumentation
	// counters (spec §4.H) are updated and reported whether or not it is
	// set. Counters never alter externally observable behavior.
	EnableStats bool

	// reclaimer is carried through Config so WithReclaimer composes with
	// the rest of the functional-options pattern; NewHeap copies it onto
	// the constructed Heap.
	reclaimer Reclaimer
}

// Option configures a Heap at construction time.
type Option func(*Config)

// defaultConfig returns the baseline configuration used when NewHeap is
// called with no options.
func defaultConfig() *Config {
	return &Config{
		HeapSize:          defaultHeapSize,
		Alignment:         defaultAlignment,
		AlignmentLog:      defaultAlignmentLog,
		HeapOffsetLog:     defaultHeapOffsetLog,
		DesiredLimit:      defaultDesiredLimit,
		GCBeforeEachAlloc: defaultGCBeforeEachAlloc,
		EnableDebug:       true,
		EnableStats:       false,
	}
}

// WithHeapSize sets the total static reservation.
func WithHeapSize(size uintptr) Option {
	return func(c *Config) { c.HeapSize = size }
}

// WithAlignment sets the block granularity and its base-2 logarithm.
// alignment must be a power of two and log must equal log2(alignment);
// log is neither derived nor checked, so the two must be passed
// consistently (the default pairing is (8, 3)).
func WithAlignment(alignment uintptr, log uint) Option {
	return func(c *Config) {
		c.Alignment = alignment
		c.AlignmentLog = log
	}
}

// WithHeapOffsetLog sets the number of bits every in-region offset must
// fit in; it governs the width of the compressed-pointer API.
func WithHeapOffsetLog(log uint) Option {
	return func(c *Config) { c.HeapOffsetLog = log }
}

// WithDesiredLimit sets the pressure-threshold step.
func WithDesiredLimit(step uintptr) Option {
	return func(c *Config) { c.DesiredLimit = step }
}

// WithGCBeforeEachAlloc enables the debug toggle that forces a HIGH
// reclamation pass before every allocation.
func WithGCBeforeEachAlloc(enabled bool) Option {
	return func(c *Config) { c.GCBeforeEachAlloc = enabled }
}

// WithDebug enables or disables the debug assertion checks (spec §7).
func WithDebug(enabled bool) Option {
	return func(c *Config) { c.EnableDebug = enabled }
}

// WithStats sets Config.EnableStats. The counters (spec §4.H) are kept
// whether or not it is set.
func WithStats(enabled bool) Option {
	return func(c *Config) { c.EnableStats = enabled }
}

// areaSize returns the usable free-list area: the full reservation minus
// one Alignment-sized slot, matching JMEM_HEAP_AREA_SIZE.
func (c *Config) areaSize() uintptr {
	return c.HeapSize - c.Alignment
}
