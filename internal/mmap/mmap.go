//go:build unix

package mmap

import (
	"fmt"
	"os"
	"syscall"
)

// Supported reports whether anonymous mappings are available on this
// platform.
const Supported = true

// New maps size bytes of anonymous, zeroed memory outside of the Go heap.
// The region starts on a page boundary, which also satisfies the memory
// alignment required for direct I/O. The length is rounded up to a whole
// number of pages. The caller owns the region and must release it with Free.
func New(size int) ([]byte, error) {
	if size < 1 {
		return nil, fmt.Errorf("mmap: invalid size %d", size)
	}

	data, err := syscall.Mmap(-1, 0, RoundToPage(size),
		syscall.PROT_READ|syscall.PROT_WRITE,
		syscall.MAP_ANON|syscall.MAP_PRIVATE,
	)
	if err != nil {
		return nil, fmt.Errorf("mmap: map %d bytes: %w", size, err)
	}
	return data, nil
}

// Free unmaps a region returned by New. Freeing nil is a no-op.
func Free(data []byte) error {
	if data == nil {
		return nil
	}
	// Munmap wants the original slice header, so undo any reslicing.
	return syscall.Munmap(data[:cap(data)])
}

// RoundToPage rounds size up to a multiple of the OS page size.
func RoundToPage(size int) int {
	page := os.Getpagesize()
	return (size + page - 1) &^ (page - 1)
}
