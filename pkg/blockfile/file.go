// Package blockfile provides block addressed access to a single binary file,
// optionally bypassing the page cache with direct I/O.
//
// In buffered mode block numbers are byte offsets. In direct I/O mode they
// count blocks of the buffer passed to the call, whose block size must be a
// multiple of DirectBlockSize. The file is grown only by Allocate; reads and writes never change its size and
// fail when they reach past the allocated extent.
//
// A File is not safe for concurrent use. Callers serialize access or wrap it,
// as pkg/logger does.
package blockfile

import (
	"io"
	"os"

	"github.com/ncw/directio"
	"github.com/zerodha/logf"
)

const (
	// DirectBlockSize is the device alignment every direct I/O offset and
	// length must be a multiple of.
	DirectBlockSize = 512

	// DefaultAllocationBlockSize is the block size used by AllocateBlocks.
	DefaultAllocationBlockSize = 4096

	defaultPerm = 0666
)

// File is one binary file opened for block addressed access.
type File struct {
	path      string
	file      *os.File
	directIO  bool
	blockSize int
	size      uint64
	perm      os.FileMode
	log       *logf.Logger
}

// Open opens path for reading and writing, creating it if it does not exist,
// and caches its current size.
//
// With directIO the file is opened with the platform's page cache bypass
// (O_DIRECT on Linux) and the block size is fixed to DirectBlockSize;
// otherwise addressing is byte granular.
func Open(path string, directIO bool, options ...Option) (*File, error) {
	f := &File{
		path:      path,
		directIO:  directIO,
		blockSize: 1,
		perm:      defaultPerm,
	}
	for _, option := range options {
		option(f)
	}

	flag := os.O_CREATE | os.O_RDWR
	var err error
	if directIO {
		f.blockSize = DirectBlockSize
		f.file, err = directio.OpenFile(path, flag, f.perm)
	} else {
		f.file, err = os.OpenFile(path, flag, f.perm)
	}
	if err != nil {
		return nil, OpenError.Wrap(err)
	}

	if err := f.UpdateFileSize(); err != nil {
		_ = f.file.Close()
		return nil, OpenError.Wrap(err)
	}

	f.debug("opened block file", "path", path, "direct_io", directIO, "size", f.size)
	return f, nil
}

func (f *File) debug(msg string, fields ...interface{}) {
	if f.log != nil {
		f.log.Debug(msg, fields...)
	}
}

func (f *File) Path() string { return f.path }

func (f *File) DirectIO() bool { return f.directIO }

// BlockSize returns the granularity allocations must be a multiple of. In
// buffered mode it is also the unit of segment block numbers.
func (f *File) BlockSize() int { return f.blockSize }

// Size returns the cached file size in bytes. It is refreshed by Allocate
// and UpdateFileSize only.
func (f *File) Size() uint64 { return f.size }

// Closed reports whether Close has been called.
func (f *File) Closed() bool { return f.file == nil }

// UpdateFileSize re-reads the file size from the OS by seeking to the end,
// then rewinds to the start.
func (f *File) UpdateFileSize() error {
	if f.file == nil {
		return InvalidHandleError.Wrap(ErrClosed)
	}

	end, err := f.file.Seek(0, io.SeekEnd)
	if err != nil {
		return IoError.Wrap(err)
	}
	f.size = uint64(end)

	if _, err := f.file.Seek(0, io.SeekStart); err != nil {
		return IoError.Wrap(err)
	}
	return nil
}

// AllocateBlocks is Allocate with DefaultAllocationBlockSize.
func (f *File) AllocateBlocks(numberOfBlocks uint64) error {
	return f.Allocate(numberOfBlocks, DefaultAllocationBlockSize)
}

// Allocate reserves numberOfBlocks*blockSize more bytes at the end of the
// file. Every successful call appends; it never shrinks the file or touches
// existing bytes. blockSize must be a multiple of BlockSize.
func (f *File) Allocate(numberOfBlocks uint64, blockSize uint32) error {
	if f.file == nil {
		return InvalidHandleError.Wrap(ErrClosed)
	}
	if numberOfBlocks == 0 {
		return BoundsError.New("allocation of zero blocks")
	}
	if blockSize == 0 || blockSize%uint32(f.blockSize) != 0 {
		return AlignmentError.New("allocation block size %d is not a multiple of %d", blockSize, f.blockSize)
	}

	length, ok := mulInt64(numberOfBlocks, uint64(blockSize))
	if !ok || f.size > maxOffset-uint64(length) {
		return BoundsError.New("allocation of %d blocks of %d bytes overflows the file offset", numberOfBlocks, blockSize)
	}

	if err := fallocate(f.file, int64(f.size), length); err != nil {
		return AllocationError.Wrap(err)
	}
	if err := f.UpdateFileSize(); err != nil {
		return err
	}

	f.debug("allocated storage", "path", f.path, "bytes", length, "size", f.size)
	return nil
}

// Close releases the file handle. Only the first call succeeds; later calls
// and any other operation on the closed File return an InvalidHandleError.
func (f *File) Close() error {
	if f.file == nil {
		return InvalidHandleError.Wrap(ErrClosed)
	}

	file := f.file
	f.file = nil
	if err := file.Close(); err != nil {
		return IoError.Wrap(err)
	}

	f.debug("closed block file", "path", f.path)
	return nil
}
