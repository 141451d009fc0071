package blockfile

import (
	"unsafe"

	"github.com/ncw/directio"
)

// isAligned reports whether block starts on a directio.AlignSize boundary.
func isAligned(block []byte) bool {
	if len(block) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(&block[0]))&uintptr(directio.AlignSize-1) == 0
}
