package blockfile

import (
	"io"
	"math"
	"math/bits"

	"github.com/ncw/directio"
)

const maxOffset = math.MaxInt64

// mulInt64 returns a*b if the product fits in an int64.
func mulInt64(a, b uint64) (int64, bool) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 || lo > maxOffset {
		return 0, false
	}
	return int64(lo), true
}

// extent translates count blocks starting at block start into a byte
// offset and length.
func extent(start, count uint64, blockSize int) (off, n int64, ok bool) {
	if off, ok = mulInt64(start, uint64(blockSize)); !ok {
		return 0, 0, false
	}
	if n, ok = mulInt64(count, uint64(blockSize)); !ok {
		return 0, 0, false
	}
	if off > maxOffset-n {
		return 0, 0, false
	}
	return off, n, true
}

// segment validates a block range against the file and the buffer and
// returns the file offset, the buffer offset and the length in bytes.
func (f *File) segment(buf Buffer, startBlockInFile, numberOfBlocks, startBlockInBuffer uint64) (fileOff, bufOff, n int64, err error) {
	if f.file == nil {
		return 0, 0, 0, InvalidHandleError.Wrap(ErrClosed)
	}
	if numberOfBlocks == 0 {
		return 0, 0, 0, BoundsError.New("segment of zero blocks")
	}

	data := buf.Bytes()
	if f.directIO && !isAligned(data) {
		return 0, 0, 0, AlignmentError.New("buffer memory is not aligned to %d bytes", directio.AlignSize)
	}

	// Direct mode addresses the file in units of the buffer's blocks.
	blockSize := f.blockSize
	if f.directIO {
		blockSize = buf.BlockSize()
		if blockSize <= 0 || blockSize%DirectBlockSize != 0 {
			return 0, 0, 0, AlignmentError.New("buffer block size %d is not a multiple of %d", blockSize, DirectBlockSize)
		}
	}

	fileOff, n, ok := extent(startBlockInFile, numberOfBlocks, blockSize)
	if !ok || uint64(fileOff+n) > f.size {
		return 0, 0, 0, BoundsError.New("blocks [%d, +%d) exceed file size %d", startBlockInFile, numberOfBlocks, f.size)
	}
	bufOff, _, ok = extent(startBlockInBuffer, numberOfBlocks, blockSize)
	if !ok || bufOff+n > int64(len(data)) {
		return 0, 0, 0, BoundsError.New("blocks [%d, +%d) exceed buffer capacity %d", startBlockInBuffer, numberOfBlocks, len(data))
	}

	return fileOff, bufOff, n, nil
}

// ReadSegment copies numberOfBlocks blocks starting at startBlockInFile into
// buf starting at startBlockInBuffer. The range must lie within the
// allocated file extent and the buffer capacity. In direct I/O mode block
// numbers are in units of buf.BlockSize().
func (f *File) ReadSegment(buf Buffer, startBlockInFile, numberOfBlocks, startBlockInBuffer uint64) error {
	fileOff, bufOff, n, err := f.segment(buf, startBlockInFile, numberOfBlocks, startBlockInBuffer)
	if err != nil {
		return err
	}

	return f.readAt(buf.Bytes()[bufOff:bufOff+n], fileOff)
}

// WriteSegment copies numberOfBlocks blocks of buf starting at
// startBlockInBuffer into the file at startBlockInFile and syncs the data
// before returning. The range must already be allocated; WriteSegment never
// grows the file.
func (f *File) WriteSegment(buf Buffer, startBlockInFile, numberOfBlocks, startBlockInBuffer uint64) error {
	fileOff, bufOff, n, err := f.segment(buf, startBlockInFile, numberOfBlocks, startBlockInBuffer)
	if err != nil {
		return err
	}

	return f.writeAt(buf.Bytes()[bufOff:bufOff+n], fileOff)
}

func (f *File) readAt(p []byte, off int64) error {
	n, err := f.file.ReadAt(p, off)
	if n < len(p) {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return IoError.Wrap(err)
	}
	return nil
}

func (f *File) writeAt(p []byte, off int64) error {
	n, err := f.file.WriteAt(p, off)
	if err != nil {
		return IoError.Wrap(err)
	}
	if n < len(p) {
		return IoError.Wrap(io.ErrShortWrite)
	}
	if err := fdatasync(f.file); err != nil {
		return IoError.Wrap(err)
	}
	return nil
}

// ReadCompleteFile grows buf until it holds the whole file, reads the file
// into it and sets buf's length to the file size. It is not available in
// direct I/O mode.
func (f *File) ReadCompleteFile(buf GrowableBuffer) error {
	if f.file == nil {
		return InvalidHandleError.Wrap(ErrClosed)
	}
	if f.directIO {
		return AlignmentError.Wrap(ErrDirectIOUnsupported)
	}
	if err := f.UpdateFileSize(); err != nil {
		return err
	}
	if f.size > uint64(math.MaxInt) {
		return BoundsError.New("file size %d does not fit in memory", f.size)
	}

	size := int(f.size)
	if missing := size - len(buf.Bytes()); missing > 0 {
		bs := buf.BlockSize()
		if bs <= 0 {
			return BoundsError.New("buffer block size %d", bs)
		}
		if err := buf.Grow((missing + bs - 1) / bs); err != nil {
			return BoundsError.Wrap(err)
		}
	}

	if size > 0 {
		if err := f.readAt(buf.Bytes()[:size], 0); err != nil {
			return err
		}
	}
	if err := buf.SetLen(size); err != nil {
		return BoundsError.Wrap(err)
	}
	return nil
}

// WriteCompleteFile writes the valid content of buf to the start of the
// file. When the content is larger than the file, the file is first grown by
// the difference rounded up to buf's block size. It is not available in
// direct I/O mode.
func (f *File) WriteCompleteFile(buf ContentBuffer) error {
	if f.file == nil {
		return InvalidHandleError.Wrap(ErrClosed)
	}
	if f.directIO {
		return AlignmentError.Wrap(ErrDirectIOUnsupported)
	}

	length := buf.Len()
	data := buf.Bytes()
	if length < 0 || length > len(data) {
		return BoundsError.New("content length %d exceeds buffer capacity %d", length, len(data))
	}
	if length == 0 {
		return nil
	}

	if uint64(length) > f.size {
		bs := buf.BlockSize()
		if bs <= 0 {
			return BoundsError.New("buffer block size %d", bs)
		}
		if uint64(bs) > math.MaxUint32 {
			return AlignmentError.New("buffer block size %d exceeds %d", bs, uint32(math.MaxUint32))
		}
		missing := uint64(length) - f.size
		blocks := (missing + uint64(bs) - 1) / uint64(bs)
		if err := f.Allocate(blocks, uint32(bs)); err != nil {
			return err
		}
	}

	return f.writeAt(data[:length], 0)
}
