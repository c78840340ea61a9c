package convert

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is a scratch directory for one conversion. Close removes it along
// with every input and output written into it.
type Workspace struct {
	dir string
}

// NewWorkspace creates a fresh directory under parent (os.TempDir when empty).
func NewWorkspace(parent string) (*Workspace, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create upload directory: %w", err)
		}
	}
	dir, err := os.MkdirTemp(parent, "pdftools-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

func (w *Workspace) Dir() string { return w.dir }

// Path returns the location of name inside the workspace. Directory parts of
// name are dropped.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, filepath.Base(name))
}

// WriteFile stores data under name and returns its path.
func (w *Workspace) WriteFile(name string, data []byte) (string, error) {
	p := w.Path(name)
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filepath.Base(p), err)
	}
	return p, nil
}

// Close deletes the workspace. It is safe to call more than once.
func (w *Workspace) Close() error {
	if w.dir == "" {
		return nil
	}
	err := os.RemoveAll(w.dir)
	w.dir = ""
	return err
}
