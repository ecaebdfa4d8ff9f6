//go:build unix

package fixedheap

import (
	"golang.org/x/sys/unix"
)

// allocateRegion reserves the backing area with an anonymous mmap, the same
// pattern the teacher's internal/runtime/asyncio package uses
// golang.org/x/sys/unix for platform syscalls it needs but the stdlib
// doesn't expose. Anonymous mappings come back page-aligned, which easily
// satisfies any Alignment this package supports.
func allocateRegion(size uintptr) ([]byte, func() error, error) {
	area, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}

	release := func() error {
		return unix.Munmap(area)
	}

	return area, release, nil
}
