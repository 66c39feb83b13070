package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// File is an open write handle on the removable volume.
type File interface {
	io.Writer
	// Sync pushes buffered data to the medium.
	Sync() error
	Close() error
}

// Volume abstracts the removable storage medium: presence probing, name
// lookup and append-or-create opening. Exactly one file is open at a time;
// the session owns the handle.
type Volume interface {
	// Present probes whether the medium is currently available.
	Present() bool
	// Exists reports whether a file with the given name exists.
	Exists(name string) bool
	// OpenAppend opens the named file for appending, creating it if needed.
	OpenAppend(name string) (File, error)
}

// DirVolume is a Volume backed by a directory, typically the mount point of
// a removable card. The medium counts as present while the mount directory
// exists.
type DirVolume struct {
	path string
}

var _ Volume = (*DirVolume)(nil)

// NewDirVolume creates a DirVolume rooted at the given mount path.
func NewDirVolume(path string) *DirVolume {
	return &DirVolume{path: path}
}

// Path returns the mount path.
func (v *DirVolume) Path() string { return v.path }

// Present reports whether the mount directory exists.
func (v *DirVolume) Present() bool {
	info, err := os.Stat(v.path)
	return err == nil && info.IsDir()
}

// Exists reports whether the named file exists on the volume.
func (v *DirVolume) Exists(name string) bool {
	_, err := os.Stat(filepath.Join(v.path, name))
	return err == nil
}

// OpenAppend opens the named file for appending, creating it if missing.
// Names are plain file names, never paths into subdirectories.
func (v *DirVolume) OpenAppend(name string) (File, error) {
	if name == "" || strings.ContainsAny(name, "/\\") {
		return nil, fmt.Errorf("invalid file name %q", name)
	}
	f, err := os.OpenFile(filepath.Join(v.path, name), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}
