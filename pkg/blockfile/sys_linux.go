package blockfile

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// fallocate reserves length bytes at offset, extending the file. Filesystems
// without fallocate support get a sparse extension instead.
func fallocate(f *os.File, offset, length int64) error {
	err := unix.Fallocate(int(f.Fd()), 0, offset, length)
	if errors.Is(err, unix.EOPNOTSUPP) {
		return f.Truncate(offset + length)
	}
	return err
}

func fdatasync(f *os.File) error {
	return unix.Fdatasync(int(f.Fd()))
}
