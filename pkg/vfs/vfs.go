// Package vfs provides the output sinks generated files are written to: the
// host file system, or an in-memory disk used for dry runs and tests.
package vfs

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultQuota is the capacity of an in-memory disk created with a zero quota.
const DefaultQuota = 64 << 20

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrQuotaExceeded   = errors.New("disk quota exceeded")
	ErrClosed          = errors.New("file already closed")
)

// File is an output file open for writing.
type File interface {
	Write(p []byte) (int, error)
	Close() error
	Name() string
}

// Disk creates and removes output files. Create truncates an existing file.
type Disk interface {
	Create(name string) (File, error)
	Remove(name string) error
}

// OSDisk writes to the host file system.
type OSDisk struct{}

func (OSDisk) Create(name string) (File, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (OSDisk) Remove(name string) error {
	return os.Remove(name)
}

func validName(name string) error {
	if name == "" || strings.ContainsRune(name, 0) || strings.HasSuffix(name, string(filepath.Separator)) {
		return ErrInvalidFilename
	}
	return nil
}

type FileEntry struct {
	Data     []byte
	Created  time.Time
	Modified time.Time
}

// VirtualDisk represents an in-memory file system with a byte quota.
type VirtualDisk struct {
	Mu        sync.RWMutex
	Files     map[string]*FileEntry
	UsedBytes int
	Quota     int
}

// NewVirtualDisk creates a new instance of VirtualDisk. A quota of zero
// selects DefaultQuota.
func NewVirtualDisk(quota int) *VirtualDisk {
	if quota <= 0 {
		quota = DefaultQuota
	}
	return &VirtualDisk{
		Files: make(map[string]*FileEntry),
		Quota: quota,
	}
}

func key(name string) string { return filepath.Clean(name) }

// Write writes data to a file on the virtual disk.
// It validates the filename, checks the quota, and deep copies the data.
// If the file already exists, it is overwritten, and the quota usage is updated accordingly.
func (vd *VirtualDisk) Write(filename string, data []byte) error {
	vd.Mu.Lock()
	defer vd.Mu.Unlock()

	if err := validName(filename); err != nil {
		return err
	}
	filename = key(filename)

	oldSize := 0
	var entry *FileEntry
	if existing, ok := vd.Files[filename]; ok {
		oldSize = len(existing.Data)
		entry = existing
	}

	newSize := len(data)
	if vd.UsedBytes-oldSize+newSize > vd.Quota {
		return ErrQuotaExceeded
	}

	// Deep copy data to prevent external mutations
	newData := make([]byte, newSize)
	copy(newData, data)

	if entry == nil {
		entry = &FileEntry{
			Created: time.Now(),
		}
		vd.Files[filename] = entry
	}
	entry.Data = newData
	entry.Modified = time.Now()
	vd.UsedBytes = vd.UsedBytes - oldSize + newSize

	return nil
}

// Read returns the data of a file on the virtual disk.
func (vd *VirtualDisk) Read(filename string) ([]byte, error) {
	vd.Mu.RLock()
	defer vd.Mu.RUnlock()

	if err := validName(filename); err != nil {
		return nil, err
	}
	entry, ok := vd.Files[key(filename)]
	if !ok {
		return nil, ErrFileNotFound
	}
	return entry.Data, nil
}

// Size returns the size of a file in bytes.
func (vd *VirtualDisk) Size(filename string) (int, error) {
	data, err := vd.Read(filename)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

// Delete removes a file from the virtual disk.
func (vd *VirtualDisk) Delete(filename string) error {
	vd.Mu.Lock()
	defer vd.Mu.Unlock()

	if err := validName(filename); err != nil {
		return err
	}
	filename = key(filename)
	entry, ok := vd.Files[filename]
	if !ok {
		return ErrFileNotFound
	}
	vd.UsedBytes -= len(entry.Data)
	delete(vd.Files, filename)
	return nil
}

// FreeSpace returns the number of free bytes on the disk.
func (vd *VirtualDisk) FreeSpace() int {
	vd.Mu.RLock()
	defer vd.Mu.RUnlock()
	return vd.Quota - vd.UsedBytes
}

// List returns a sorted list of all filenames on the disk.
func (vd *VirtualDisk) List() []string {
	vd.Mu.RLock()
	defer vd.Mu.RUnlock()

	keys := make([]string, 0, len(vd.Files))
	for k := range vd.Files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Create truncates name to an empty file and returns a handle whose writes
// are charged against the quota as they happen.
func (vd *VirtualDisk) Create(name string) (File, error) {
	if err := vd.Write(name, nil); err != nil {
		return nil, err
	}
	return &virtualFile{vd: vd, name: key(name)}, nil
}

func (vd *VirtualDisk) Remove(name string) error {
	return vd.Delete(name)
}

type virtualFile struct {
	vd     *VirtualDisk
	name   string
	closed bool
}

func (f *virtualFile) Name() string { return f.name }

func (f *virtualFile) Write(p []byte) (int, error) {
	if f.closed {
		return 0, ErrClosed
	}
	f.vd.Mu.Lock()
	defer f.vd.Mu.Unlock()

	entry, ok := f.vd.Files[f.name]
	if !ok {
		return 0, ErrFileNotFound
	}
	if f.vd.UsedBytes+len(p) > f.vd.Quota {
		return 0, ErrQuotaExceeded
	}
	entry.Data = append(entry.Data, p...)
	entry.Modified = time.Now()
	f.vd.UsedBytes += len(p)
	return len(p), nil
}

func (f *virtualFile) Close() error {
	if f.closed {
		return ErrClosed
	}
	f.closed = true
	return nil
}
