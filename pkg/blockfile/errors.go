package blockfile

import (
	"errors"

	"github.com/zeebo/errs"
)

// Error classes. Every failure returned by this package belongs to exactly
// one of them; test membership with Has, e.g. BoundsError.Has(err).
var (
	// OpenError is returned when the file cannot be created or opened.
	OpenError = errs.Class("blockfile open")
	// AllocationError is returned when reserving file space fails.
	AllocationError = errs.Class("blockfile allocate")
	// AlignmentError is returned when a request violates direct I/O
	// alignment.
	AlignmentError = errs.Class("blockfile alignment")
	// BoundsError is returned when a block range is empty or exceeds the
	// buffer capacity or the allocated file extent.
	BoundsError = errs.Class("blockfile bounds")
	// IoError is returned when a read, write or sync fails or is short.
	IoError = errs.Class("blockfile io")
	// InvalidHandleError is returned for any operation on a closed file.
	InvalidHandleError = errs.Class("blockfile handle")
)

var (
	ErrClosed              = errors.New("file is closed")
	ErrDirectIOUnsupported = errors.New("operation not supported with direct I/O")
)
