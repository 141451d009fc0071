package blockfile

import (
	"os"

	"github.com/zerodha/logf"
)

type Option func(*File)

// WithPerm sets the permission bits used when the file is created.
func WithPerm(perm os.FileMode) Option {
	return func(f *File) {
		f.perm = perm
	}
}

// WithLogger enables debug logging of open, allocate and close.
func WithLogger(l logf.Logger) Option {
	return func(f *File) {
		f.log = &l
	}
}
