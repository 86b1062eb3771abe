// Package filesystem implements ports.SourcePort over local files.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nathantilsley/linediff/internal/diff/domain"
)

// Adapter reads documents from the local filesystem. Relative paths are
// resolved against root; an empty root means the working directory.
type Adapter struct {
	root string
}

// New creates a filesystem source rooted at root.
func New(root string) *Adapter {
	return &Adapter{root: root}
}

// Fetch reads ref.Path. Local files have no versions, so a non-empty Ref is
// rejected.
func (a *Adapter) Fetch(_ context.Context, ref domain.DocumentRef) ([]byte, error) {
	if ref.Ref != "" {
		return nil, fmt.Errorf("filesystem source cannot read %s at ref %q", ref.Path, ref.Ref)
	}
	if ref.Path == "" {
		return nil, errors.New("empty path")
	}

	path := ref.Path
	if !filepath.IsAbs(path) && a.root != "" {
		path = filepath.Join(a.root, path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewNotFoundError(ref.Path, "")
		}
		return nil, fmt.Errorf("reading %s: %w", ref.Path, err)
	}
	return content, nil
}
