package vfs

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestVirtualDisk_Write(t *testing.T) {
	tests := []struct {
		name         string
		filename     string
		data         []byte
		quota        int
		expectError  error
		expectedUsed int
	}{
		{
			name:         "Valid write",
			filename:     "lexer.c",
			data:         []byte{1, 2, 3},
			expectedUsed: 3,
		},
		{
			name:         "Nested path",
			filename:     "out/gen/lexer.c",
			data:         []byte("int x;"),
			expectedUsed: 6,
		},
		{
			name:        "Empty filename",
			filename:    "",
			data:        []byte{1},
			expectError: ErrInvalidFilename,
		},
		{
			name:        "Directory name",
			filename:    "out/",
			data:        []byte{1},
			expectError: ErrInvalidFilename,
		},
		{
			name:        "Quota exceeded",
			filename:    "big.c",
			data:        make([]byte, 11),
			quota:       10,
			expectError: ErrQuotaExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vd := NewVirtualDisk(tt.quota)
			err := vd.Write(tt.filename, tt.data)

			if !errors.Is(err, tt.expectError) {
				t.Fatalf("Write() error = %v, expected %v", err, tt.expectError)
			}
			if tt.expectError != nil {
				if vd.UsedBytes != 0 {
					t.Errorf("UsedBytes = %d after a failed write", vd.UsedBytes)
				}
				return
			}
			if vd.UsedBytes != tt.expectedUsed {
				t.Errorf("UsedBytes = %d, expected %d", vd.UsedBytes, tt.expectedUsed)
			}
			got, err := vd.Read(tt.filename)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.data) {
				t.Errorf("Read() = %v, expected %v", got, tt.data)
			}
		})
	}
}

func TestVirtualDisk_DeepCopy(t *testing.T) {
	vd := NewVirtualDisk(0)
	data := []byte("abc")
	if err := vd.Write("a.c", data); err != nil {
		t.Fatal(err)
	}
	data[0] = 'X'
	got, _ := vd.Read("a.c")
	if string(got) != "abc" {
		t.Errorf("stored data changed with the caller's slice: %q", got)
	}
}

func TestVirtualDisk_Overwrite(t *testing.T) {
	vd := NewVirtualDisk(0)
	_ = vd.Write("a.c", make([]byte, 10))
	_ = vd.Write("a.c", make([]byte, 4))
	if vd.UsedBytes != 4 {
		t.Errorf("UsedBytes = %d, expected 4", vd.UsedBytes)
	}
	if size, _ := vd.Size("./a.c"); size != 4 {
		t.Errorf("Size() = %d, expected 4", size)
	}
}

func TestVirtualDisk_CreateTruncates(t *testing.T) {
	vd := NewVirtualDisk(0)
	_ = vd.Write("lexer.c", []byte("stale contents"))

	f, err := vd.Create("lexer.c")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("int ")); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("x;")); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("more")); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Close error = %v, expected ErrClosed", err)
	}

	got, _ := vd.Read("lexer.c")
	if string(got) != "int x;" {
		t.Errorf("Read() = %q", got)
	}
	if vd.UsedBytes != 6 {
		t.Errorf("UsedBytes = %d, expected 6", vd.UsedBytes)
	}
}

func TestVirtualDisk_StreamingQuota(t *testing.T) {
	vd := NewVirtualDisk(8)
	f, err := vd.Create("lexer.c")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("12345")); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("6789")); !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("Write() error = %v, expected ErrQuotaExceeded", err)
	}
	if vd.FreeSpace() != 3 {
		t.Errorf("FreeSpace() = %d, expected 3", vd.FreeSpace())
	}
}

func TestVirtualDisk_RemoveAndList(t *testing.T) {
	vd := NewVirtualDisk(0)
	_ = vd.Write("b.c", []byte("b"))
	_ = vd.Write("a.c", []byte("a"))

	if got := vd.List(); !reflect.DeepEqual(got, []string{"a.c", "b.c"}) {
		t.Errorf("List() = %v", got)
	}
	if err := vd.Remove("a.c"); err != nil {
		t.Fatal(err)
	}
	if err := vd.Remove("a.c"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("second Remove() error = %v, expected ErrFileNotFound", err)
	}
	if _, err := vd.Read("a.c"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Read() error = %v, expected ErrFileNotFound", err)
	}
	if vd.UsedBytes != 1 {
		t.Errorf("UsedBytes = %d, expected 1", vd.UsedBytes)
	}
}

func TestOSDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexer.c")
	if err := os.WriteFile(path, []byte("stale contents"), 0o644); err != nil {
		t.Fatal(err)
	}

	var disk Disk = OSDisk{}
	f, err := disk.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if f.Name() != path {
		t.Errorf("Name() = %q, expected %q", f.Name(), path)
	}
	if _, err := f.Write([]byte("int x;")); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "int x;" {
		t.Errorf("file contents = %q", got)
	}

	if err := disk.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still exists after Remove: %v", err)
	}
	if _, err := disk.Create(""); !errors.Is(err, ErrInvalidFilename) {
		t.Errorf("Create(\"\") error = %v, expected ErrInvalidFilename", err)
	}
}
