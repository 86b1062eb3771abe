package app

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nathantilsley/linediff/internal/diff/domain"
	"github.com/nathantilsley/linediff/internal/diff/ports"
)

// DefaultManifestPath is where a repository lists the files a pull request
// review compares.
const DefaultManifestPath = ".linediff.yaml"

// PRReviewer implements ports.PullRequestUseCase. It reads the manifest from
// the pull request's head, compares every listed file between base and
// head, and reports through the repository's reporter.
type PRReviewer struct {
	diffs        *DiffService
	repos        ports.RepositoryPort
	manifests    ports.ManifestPort
	manifestPath string
	logger       *slog.Logger
	tracer       trace.Tracer
}

// NewPRReviewer creates a reviewer. An empty manifestPath means
// DefaultManifestPath.
func NewPRReviewer(
	diffs *DiffService,
	repos ports.RepositoryPort,
	manifests ports.ManifestPort,
	manifestPath string,
	logger *slog.Logger,
	tracer trace.Tracer,
) *PRReviewer {
	if manifestPath == "" {
		manifestPath = DefaultManifestPath
	}
	return &PRReviewer{
		diffs:        diffs,
		repos:        repos,
		manifests:    manifests,
		manifestPath: manifestPath,
		logger:       logger,
		tracer:       tracer,
	}
}

// Review runs the manifest's comparisons for pr. A head without a manifest
// is not an error; there is nothing to review.
func (r *PRReviewer) Review(ctx context.Context, pr domain.PullRequest) error {
	ctx, span := r.tracer.Start(ctx, "PRReviewer.Review", trace.WithAttributes(
		attribute.String("github.repo", pr.Owner+"/"+pr.Repo),
		attribute.Int("github.pr", pr.Number),
	))
	defer span.End()

	headRef := pr.HeadSHA
	if headRef == "" {
		headRef = pr.HeadRef
	}

	source := r.repos.Source(pr.Owner, pr.Repo)
	batch, err := r.manifests.Load(ctx, source, domain.DocumentRef{Path: r.manifestPath, Ref: headRef})
	if err != nil {
		if domain.IsNotFound(err) {
			r.logger.Info("no manifest at head, nothing to review",
				"owner", pr.Owner,
				"repo", pr.Repo,
				"pr", pr.Number,
				"manifest", r.manifestPath,
			)
			return nil
		}
		return fmt.Errorf("loading manifest: %w", err)
	}

	r.logger.Info("reviewing pull request",
		"owner", pr.Owner,
		"repo", pr.Repo,
		"pr", pr.Number,
		"comparisons", len(batch.Requests),
	)

	results, err := r.diffs.runBatch(ctx, batch.WithRefs(pr.BaseRef, headRef), source, r.repos.Reporter(pr))
	if err != nil {
		return err
	}

	success, changes, errs := domain.CountByStatus(results)
	r.logger.Info("pull request reviewed", "pr", pr.Number, "identical", success, "changed", changes, "failed", errs)
	return nil
}
