package buffer

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/ncw/directio"

	"blockstore/internal/mmap"
)

// DefaultBlockSize is the block size used when no WithBlockSize option is
// given.
const DefaultBlockSize = 4096

// maxSize bounds one allocation below what the runtime can make.
const maxSize = 1 << 40

var (
	ErrClosed           = errors.New("buffer: closed")
	ErrInvalidBlockSize = errors.New("buffer: block size must be positive")
	ErrInvalidLength    = errors.New("buffer: length out of range")
	ErrTooLarge         = errors.New("buffer: size too large")
)

type Option func(*DataBuffer)

// WithBlockSize sets the size of one block in bytes.
func WithBlockSize(size int) Option {
	return func(b *DataBuffer) {
		b.blockSize = size
	}
}

// WithMmap backs the buffer with an anonymous memory mapping instead of the
// Go heap. Mapped buffers must be released with Close.
func WithMmap() Option {
	return func(b *DataBuffer) {
		b.mapped = true
	}
}

// DataBuffer is a block-structured region of memory whose first byte is
// aligned for direct I/O. It tracks its capacity in whole blocks and,
// separately, a logical length of valid content.
//
// A DataBuffer is not safe for concurrent use.
type DataBuffer struct {
	blockSize      int
	numberOfBlocks int
	data           []byte
	length         int
	mapped         bool
	closed         bool
}

// New allocates a zeroed buffer of numberOfBlocks blocks.
func New(numberOfBlocks int, options ...Option) (*DataBuffer, error) {
	b := &DataBuffer{blockSize: DefaultBlockSize}
	for _, option := range options {
		option(b)
	}

	if b.blockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}
	if numberOfBlocks < 0 {
		return nil, fmt.Errorf("buffer: invalid number of blocks %d", numberOfBlocks)
	}

	size, err := byteSize(numberOfBlocks, b.blockSize)
	if err != nil {
		return nil, err
	}
	data, err := b.alloc(size)
	if err != nil {
		return nil, err
	}
	b.data = data
	b.numberOfBlocks = numberOfBlocks
	return b, nil
}

func byteSize(blocks, blockSize int) (int, error) {
	hi, lo := bits.Mul64(uint64(blocks), uint64(blockSize))
	if hi != 0 || lo > maxSize || lo > uint64(math.MaxInt-directio.AlignSize) {
		return 0, fmt.Errorf("%w: %d blocks of %d bytes", ErrTooLarge, blocks, blockSize)
	}
	return int(lo), nil
}

func (b *DataBuffer) alloc(size int) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	if !b.mapped {
		return directio.AlignedBlock(size), nil
	}
	data, err := mmap.New(size)
	if err != nil {
		return nil, err
	}
	return data[:size], nil
}

func (b *DataBuffer) free(data []byte) error {
	if !b.mapped {
		return nil
	}
	return mmap.Free(data)
}

// Bytes returns the whole allocated region, including bytes past Len.
func (b *DataBuffer) Bytes() []byte { return b.data }

func (b *DataBuffer) BlockSize() int { return b.blockSize }

func (b *DataBuffer) NumberOfBlocks() int { return b.numberOfBlocks }

// Cap returns the capacity in bytes.
func (b *DataBuffer) Cap() int { return len(b.data) }

// Len returns the number of bytes of valid content.
func (b *DataBuffer) Len() int { return b.length }

// SetLen records how many bytes of the buffer hold valid content.
func (b *DataBuffer) SetLen(n int) error {
	if n < 0 || n > len(b.data) {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidLength, n, len(b.data))
	}
	b.length = n
	return nil
}

// Block returns the memory of block i, or nil if i is out of range.
func (b *DataBuffer) Block(i int) []byte {
	if i < 0 || i >= b.numberOfBlocks {
		return nil
	}
	start, end := i*b.blockSize, (i+1)*b.blockSize
	return b.data[start:end:end]
}

// Grow adds blocks to the buffer. Existing content is preserved and the new
// region is zeroed. The previous backing memory is released, so slices
// obtained from Bytes or Block before the call must not be used afterwards.
func (b *DataBuffer) Grow(blocks int) error {
	if b.closed {
		return ErrClosed
	}
	if blocks < 0 {
		return fmt.Errorf("buffer: cannot grow by %d blocks", blocks)
	}
	if blocks == 0 {
		return nil
	}

	if blocks > math.MaxInt-b.numberOfBlocks {
		return fmt.Errorf("%w: %d more blocks", ErrTooLarge, blocks)
	}
	total := b.numberOfBlocks + blocks
	size, err := byteSize(total, b.blockSize)
	if err != nil {
		return err
	}
	data, err := b.alloc(size)
	if err != nil {
		return err
	}
	copy(data, b.data)

	if err := b.free(b.data); err != nil {
		_ = b.free(data)
		return err
	}
	b.data = data
	b.numberOfBlocks = total
	return nil
}

// Append copies p to the end of the valid content, growing the buffer by
// whole blocks when needed.
func (b *DataBuffer) Append(p []byte) error {
	if b.closed {
		return ErrClosed
	}

	need := b.length + len(p)
	if need > len(b.data) {
		missing := need - len(b.data)
		if err := b.Grow((missing + b.blockSize - 1) / b.blockSize); err != nil {
			return err
		}
	}
	copy(b.data[b.length:], p)
	b.length = need
	return nil
}

// Reset zeroes the buffer and sets its length to 0. The capacity is kept.
func (b *DataBuffer) Reset() {
	clear(b.data)
	b.length = 0
}

// Close releases the buffer memory. It can be called multiple times.
func (b *DataBuffer) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true

	err := b.free(b.data)
	b.data = nil
	b.numberOfBlocks = 0
	b.length = 0
	return err
}
