//go:build !unix

package mmap

import (
	"errors"
	"os"
)

const Supported = false

var errUnsupported = errors.New("mmap: anonymous mappings not supported on this platform")

func New(size int) ([]byte, error) {
	return nil, errUnsupported
}

func Free(data []byte) error {
	if data == nil {
		return nil
	}
	return errUnsupported
}

func RoundToPage(size int) int {
	page := os.Getpagesize()
	return (size + page - 1) &^ (page - 1)
}
