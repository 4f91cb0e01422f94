//go:build !unix

package mmap

import (
	"io"
	"os"
)

func mmap(f *os.File, length int) ([]byte, error) {
	data := make([]byte, length)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, err
	}
	return data, nil
}

func munmap(b []byte) error { return nil }
