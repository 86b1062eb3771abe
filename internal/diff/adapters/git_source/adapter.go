// Package gitsource implements ports.SourcePort over refs of a local git
// repository.
package gitsource

import (
	"context"
	"errors"
	"fmt"

	"github.com/nathantilsley/linediff/internal/diff/domain"
	"github.com/nathantilsley/linediff/internal/platform/gitrepo"
)

// Shower reads a file at a ref. *gitrepo.GitRepo satisfies it.
type Shower interface {
	Show(ctx context.Context, ref, path string) ([]byte, error)
	Ready() bool
}

// Adapter fetches documents from a git repository.
type Adapter struct {
	repo       Shower
	defaultRef string
}

// New creates a git source. Requests without a ref read defaultRef
// ("HEAD" when empty).
func New(repo Shower, defaultRef string) *Adapter {
	if defaultRef == "" {
		defaultRef = "HEAD"
	}
	return &Adapter{repo: repo, defaultRef: defaultRef}
}

// Fetch returns ref.Path at ref.Ref.
func (a *Adapter) Fetch(ctx context.Context, ref domain.DocumentRef) ([]byte, error) {
	if !a.repo.Ready() {
		return nil, errors.New("git repository is not ready yet")
	}
	rev := ref.Ref
	if rev == "" {
		rev = a.defaultRef
	}

	content, err := a.repo.Show(ctx, rev, ref.Path)
	if err != nil {
		if errors.Is(err, gitrepo.ErrPathNotFound) {
			return nil, domain.NewNotFoundError(ref.Path, rev)
		}
		return nil, fmt.Errorf("reading %s at %s: %w", ref.Path, rev, err)
	}
	return content, nil
}
