package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Reader serves UI files from a single directory.
type Reader struct {
	fsys fs.FS
}

func New(root string) (*Reader, error) {
	if root == "" {
		return nil, errors.New("assets: root must not be empty")
	}
	return &Reader{fsys: os.DirFS(root)}, nil
}

// NewFS is used by tests to serve from an in-memory tree.
func NewFS(fsys fs.FS) *Reader {
	return &Reader{fsys: fsys}
}

// Read returns the file contents. Names that would leave the root, such as
// "../x" or "/etc/passwd", are rejected.
func (r *Reader) Read(name string) (string, error) {
	if !fs.ValidPath(name) {
		return "", fmt.Errorf("assets: invalid name %q", name)
	}
	b, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return "", fmt.Errorf("assets: read %s: %w", name, err)
	}
	return string(b), nil
}
