package module

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrFileAccess file primitive path outside the permitted file root
var ErrFileAccess = errors.New("module: file access denied")

// WithFileRoot confines file primitives to dir.
// Paths are resolved the way a guest mounted at dir sees them.
func WithFileRoot(dir string) Option {
	return func(m *Module) {
		if dir == "" {
			return
		}
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		m.FileRoot = dir
	}
}

// WithDisableFiles with disable file primitives option
func WithDisableFiles(disabled bool) Option {
	return func(m *Module) {
		m.DisableFiles = disabled
	}
}

// filePath resolves the filename argument of a file primitive
func (m *Module) filePath(prim string, index int, name string) (string, error) {
	denied := &ArgError{
		Prim: prim, Index: index, Param: "filename", Kind: String, Value: name, Err: ErrFileAccess,
	}
	if m.DisableFiles {
		return "", denied
	}
	if m.FileRoot == "" {
		return name, nil
	}
	// coder prefixes e.g. "text:" and "ephemeral:" address more than the file
	if strings.ContainsAny(name, ":[") {
		return "", denied
	}
	rel := strings.TrimPrefix(path.Clean(filepath.ToSlash(name)), "/")
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", denied
	}
	full := filepath.Join(m.FileRoot, filepath.FromSlash(rel))
	if !m.withinRoot(full) {
		return "", denied
	}
	return full, nil
}

// withinRoot checks full does not leave FileRoot through symlinks
func (m *Module) withinRoot(full string) bool {
	root, err := filepath.EvalSymlinks(m.FileRoot)
	if err != nil {
		return false
	}
	target := full
	if _, err := os.Lstat(full); err != nil {
		target = filepath.Dir(full)
	}
	real, err := filepath.EvalSymlinks(target)
	if err != nil {
		// missing directories fail in the library
		return true
	}
	rel, err := filepath.Rel(root, real)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
