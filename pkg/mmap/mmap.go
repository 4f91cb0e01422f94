// Package mmap maps input files read-only into memory.
package mmap

import (
	"os"

	"lexgen/pkg/lexerr"
)

// Buffer is the contents of a mapped file. Bytes must not be used after
// Unmap.
type Buffer struct {
	Path  string
	Bytes []byte

	mapped bool
}

// Map maps the file at path. An empty file yields an empty, unmapped buffer.
func Map(path string) (*Buffer, error) {
	if path == "" {
		return nil, lexerr.New(lexerr.NullInput, "empty path")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, lexerr.Wrap(lexerr.FileOpen, err, "opening %s", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, lexerr.Wrap(lexerr.FileDescriptor, err, "stat %s", path)
	}
	if info.IsDir() {
		return nil, lexerr.New(lexerr.FileOpen, "%s is a directory", path)
	}
	size := info.Size()
	if size == 0 {
		return &Buffer{Path: path, Bytes: []byte{}}, nil
	}
	if int64(int(size)) != size {
		return nil, lexerr.New(lexerr.BadLength, "%s is too large to map (%d bytes)", path, size)
	}
	data, err := mmap(f, int(size))
	if err != nil {
		return nil, lexerr.Wrap(lexerr.FileDescriptor, err, "mapping %s", path)
	}
	return &Buffer{Path: path, Bytes: data, mapped: true}, nil
}

// Unmap releases the mapping. It is safe to call more than once and on a
// nil buffer.
func (b *Buffer) Unmap() error {
	if b == nil {
		return nil
	}
	data := b.Bytes
	b.Bytes = nil
	if !b.mapped {
		return nil
	}
	b.mapped = false
	if err := munmap(data); err != nil {
		return lexerr.Wrap(lexerr.FileDescriptor, err, "unmapping %s", b.Path)
	}
	return nil
}
