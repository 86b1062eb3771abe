package ports

import (
	"context"

	"github.com/nathantilsley/linediff/internal/diff/domain"
)

// DiffUseCase is the driving port for comparing documents.
type DiffUseCase interface {
	// Compare diffs two documents that are already loaded.
	Compare(ctx context.Context, name string, source, target domain.Document, opts domain.DiffOptions) domain.DiffResult
	// Execute fetches both sides of req and compares them. Failures are
	// reported as a StatusError result.
	Execute(ctx context.Context, req domain.DiffRequest) domain.DiffResult
	// ExecuteBatch runs every request of b and reports the results. Results
	// are in request order.
	ExecuteBatch(ctx context.Context, b domain.Batch) ([]domain.DiffResult, error)
}

// PullRequestUseCase is the driving port for reviewing a pull request.
type PullRequestUseCase interface {
	Review(ctx context.Context, pr domain.PullRequest) error
}
