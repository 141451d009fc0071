//go:build !linux

package blockfile

import "os"

func fallocate(f *os.File, offset, length int64) error {
	st, err := f.Stat()
	if err != nil {
		return err
	}
	// never shrink
	if st.Size() >= offset+length {
		return nil
	}
	return f.Truncate(offset + length)
}

func fdatasync(f *os.File) error {
	return f.Sync()
}
