package volume

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/bmvandoren/vol2bird/internal/fsutil"
)

const maxDocumentSize = 64 * 1024 * 1024 // 64MB

// File is an opened volume document. The decoded object stays valid until
// Release is called.
type File struct {
	path string

	mu  sync.Mutex
	obj Object
}

// Open reads and decodes the document at path.
func Open(fsys fsutil.FileSystem, path string) (*File, error) {
	cleanPath := filepath.Clean(path)

	info, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat volume: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("volume path %s is a directory", cleanPath)
	}
	if info.Size() > maxDocumentSize {
		return nil, fmt.Errorf("volume too large: %d bytes (max %d)", info.Size(), maxDocumentSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read volume: %w", err)
	}
	obj, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", cleanPath, err)
	}
	return &File{path: cleanPath, obj: obj}, nil
}

// Path returns the cleaned path the file was opened from.
func (f *File) Path() string { return f.path }

// ObjectType reports the declared type of the contained object, or
// TypeUndefined after Release.
func (f *File) ObjectType() ObjectType {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.obj == nil {
		return TypeUndefined
	}
	return f.obj.ObjectType()
}

// Object returns the decoded object, or nil after Release.
func (f *File) Object() Object {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.obj
}

// PolarVolume returns the contained polar volume and true, or nil and
// false when the object is of another type.
func (f *File) PolarVolume() (*PolarVolume, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.obj.(*PolarVolume)
	return v, ok
}

// Release drops the decoded object. It is safe to call more than once.
func (f *File) Release() {
	if f == nil {
		return
	}
	f.mu.Lock()
	f.obj = nil
	f.mu.Unlock()
}
