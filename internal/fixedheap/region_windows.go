//go:build windows

package fixedheap

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// allocateRegion reserves and commits the backing area with VirtualAlloc,
// mirroring the teacher's internal/runtime/asyncio windows build-tagged
// files that reach for golang.org/x/sys/windows where the stdlib has no
// equivalent. VirtualAlloc's returned address is always page-aligned.
func allocateRegion(size uintptr) ([]byte, func() error, error) {
	addr, err := windows.VirtualAlloc(0, size, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, nil, err
	}

	area := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size))

	release := func() error {
		return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
	}

	return area, release, nil
}
