package merge

import (
	"io"

	"github.com/spf13/afero"

	"github.com/kestrel-tools/resforge/pkg/restable"
)

// FileProvider resolves the logical path of a file-backed resource to a
// handle on its bytes.
type FileProvider interface {
	FindFile(path string) (restable.FileHandle, bool)
}

// FSCollection serves file handles out of a filesystem, remembering every
// path it has been asked to serve.
type FSCollection struct {
	fs    afero.Fs
	files map[string]*fsFile
}

// NewFSCollection returns a collection over fs.
func NewFSCollection(fs afero.Fs) *FSCollection {
	return &FSCollection{fs: fs, files: make(map[string]*fsFile)}
}

// InsertFile registers a path without touching the filesystem.
func (c *FSCollection) InsertFile(path string) restable.FileHandle {
	f, ok := c.files[path]
	if !ok {
		f = &fsFile{fs: c.fs, path: path}
		c.files[path] = f
	}

	return f
}

// FindFile implements FileProvider.
func (c *FSCollection) FindFile(path string) (restable.FileHandle, bool) {
	if f, ok := c.files[path]; ok {
		return f, true
	}

	ok, err := afero.Exists(c.fs, path)
	if err != nil || !ok {
		return nil, false
	}

	return c.InsertFile(path), true
}

type fsFile struct {
	fs   afero.Fs
	path string
}

func (f *fsFile) Path() string { return f.path }

func (f *fsFile) Open() (io.ReadCloser, error) {
	return f.fs.Open(f.path)
}
