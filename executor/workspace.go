package executor

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is the directory player commands run in.
type Workspace struct {
	dir       string
	temporary bool
}

// OpenWorkspace uses dir, creating it if needed. An empty dir creates a
// temporary directory that Close removes.
func OpenWorkspace(dir string) (*Workspace, error) {
	if dir == "" {
		tmp, err := os.MkdirTemp("", "quest_")
		if err != nil {
			return nil, fmt.Errorf("creating workspace: %w", err)
		}
		return &Workspace{dir: tmp, temporary: true}, nil
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace %s: %w", abs, err)
	}
	return &Workspace{dir: abs}, nil
}

// Dir returns the absolute workspace path.
func (w *Workspace) Dir() string {
	return w.dir
}

// Temporary reports whether Close removes the directory.
func (w *Workspace) Temporary() bool {
	return w.temporary
}

// Close removes a temporary workspace. A configured directory is kept.
func (w *Workspace) Close() error {
	if !w.temporary {
		return nil
	}
	return os.RemoveAll(w.dir)
}
