package utils

import (
	"os"
	"path/filepath"
)

// GetPathInfo returns the absolute form of relPath and the directory that
// contains it.
func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}
	return fullPath, filepath.Dir(fullPath), nil
}

// FindDir returns dir when it exists as given, otherwise dir joined to each
// base in turn, first existing one wins. A relative dir that exists nowhere is
// returned unchanged so the caller reports the original name.
func FindDir(dir string, bases ...string) string {
	if isDir(dir) || filepath.IsAbs(dir) {
		return dir
	}
	for _, base := range bases {
		if candidate := filepath.Join(base, dir); isDir(candidate) {
			return candidate
		}
	}
	return dir
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
