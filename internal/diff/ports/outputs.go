package ports

import (
	"context"

	"github.com/nathantilsley/linediff/internal/diff/domain"
	"github.com/nathantilsley/linediff/internal/diff/engine"
)

// SourcePort abstracts fetching a document's raw content. Implementations
// return a domain.NotFoundError when the document does not exist at the ref.
type SourcePort interface {
	Fetch(ctx context.Context, ref domain.DocumentRef) ([]byte, error)
}

// DiffPort abstracts the diff algorithm, so the engine is swappable.
// Neither document is binary.
type DiffPort interface {
	ComputeDiff(source, target domain.Document, opts domain.DiffOptions) (script []engine.DiffItem, unified string)
}

// ReportingPort abstracts publishing results (terminal, pull request comment).
type ReportingPort interface {
	PostResult(ctx context.Context, results []domain.DiffResult) error
}

// ManifestPort abstracts reading a batch manifest stored in a source.
type ManifestPort interface {
	Load(ctx context.Context, source SourcePort, ref domain.DocumentRef) (domain.Batch, error)
}

// RepositoryPort builds the per-repository ports a pull request review needs.
type RepositoryPort interface {
	Source(owner, repo string) SourcePort
	Reporter(pr domain.PullRequest) ReportingPort
}
