package blockfile

// Buffer is the memory a File reads into and writes from. The File never
// allocates, resizes or frees it.
type Buffer interface {
	// Bytes returns the whole capacity of the buffer. In direct I/O mode
	// the first byte must be aligned to directio.AlignSize.
	Bytes() []byte

	// BlockSize returns the buffer's own block size in bytes.
	BlockSize() int
}

// ContentBuffer is a Buffer that knows how many of its bytes are valid.
type ContentBuffer interface {
	Buffer
	Len() int
}

// GrowableBuffer is a ContentBuffer that can be enlarged by whole blocks.
type GrowableBuffer interface {
	ContentBuffer
	Grow(blocks int) error
	SetLen(n int) error
}
