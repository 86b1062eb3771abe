package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/nathantilsley/linediff/internal/diff/domain"
	"github.com/nathantilsley/linediff/internal/diff/engine"
	"github.com/nathantilsley/linediff/internal/diff/ports"
	"github.com/nathantilsley/linediff/internal/diff/unified"
)

const noChangesMessage = "No changes detected."

// DiffService implements ports.DiffUseCase by orchestrating the comparison
// workflow: fetch both documents, diff, render, record telemetry and report.
type DiffService struct {
	source      ports.SourcePort
	differ      ports.DiffPort
	reporter    ports.ReportingPort // Optional: nil skips reporting
	logger      *slog.Logger
	tracer      trace.Tracer
	concurrency int

	comparisons metric.Int64Counter
	editItems   metric.Int64Histogram
	duration    metric.Float64Histogram
}

// NewDiffService creates a new DiffService wired with its driven ports.
// source may be nil for callers that only use Compare. concurrency bounds
// ExecuteBatch; values below 1 mean one comparison at a time.
func NewDiffService(
	source ports.SourcePort,
	differ ports.DiffPort,
	reporter ports.ReportingPort,
	logger *slog.Logger,
	meter metric.Meter,
	tracer trace.Tracer,
	concurrency int,
) (*DiffService, error) {
	comparisons, err := meter.Int64Counter("linediff_comparisons_total",
		metric.WithDescription("Number of comparisons by outcome."))
	if err != nil {
		return nil, fmt.Errorf("creating comparisons counter: %w", err)
	}
	editItems, err := meter.Int64Histogram("linediff_edit_items",
		metric.WithDescription("Edit script items per comparison."))
	if err != nil {
		return nil, fmt.Errorf("creating edit items histogram: %w", err)
	}
	duration, err := meter.Float64Histogram("linediff_compare_duration_seconds",
		metric.WithDescription("Time spent diffing and rendering one comparison."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return &DiffService{
		source:      source,
		differ:      differ,
		reporter:    reporter,
		logger:      logger,
		tracer:      tracer,
		concurrency: max(concurrency, 1),
		comparisons: comparisons,
		editItems:   editItems,
		duration:    duration,
	}, nil
}

// Compare diffs two loaded documents.
func (s *DiffService) Compare(
	ctx context.Context,
	name string,
	source, target domain.Document,
	opts domain.DiffOptions,
) domain.DiffResult {
	ctx, span := s.tracer.Start(ctx, "DiffService.Compare", trace.WithAttributes(
		attribute.String("linediff.name", name),
		attribute.Int("linediff.source_lines", len(source.Lines)),
		attribute.Int("linediff.target_lines", len(target.Lines)),
	))
	defer span.End()

	start := time.Now()
	result := s.compare(name, source, target, opts)
	s.record(ctx, result, time.Since(start))

	span.SetAttributes(
		attribute.String("linediff.status", result.Status.String()),
		attribute.Int("linediff.items", result.Stats.Items),
	)
	return result
}

func (s *DiffService) compare(name string, source, target domain.Document, opts domain.DiffOptions) domain.DiffResult {
	result := domain.DiffResult{
		Name:        name,
		SourceLabel: source.Label,
		TargetLabel: target.Label,
	}

	if source.Binary || target.Binary {
		if source.Binary && target.Binary && source.Digest == target.Digest {
			result.Status = domain.StatusSuccess
			result.Summary = noChangesMessage
			return result
		}
		result.Status = domain.StatusChanges
		result.UnifiedDiff = unified.String(nil, nil, nil, unified.Options{SourceBinary: true, TargetBinary: true})
		result.Summary = "Binary files differ."
		return result
	}

	if opts.Normalization.TrimEdges || opts.Normalization.CollapseWhitespace {
		opts.IgnoreWhitespace = true
	}

	script, text := s.differ.ComputeDiff(source, target, opts)
	result.Items = script
	result.Stats = domain.NewStats(script)
	result.UnifiedDiff = text

	switch {
	case len(script) == 0:
		result.Status = domain.StatusSuccess
		result.Summary = noChangesMessage
	case source.Missing:
		result.Status = domain.StatusChanges
		result.Summary = fmt.Sprintf("New file: %s.", domain.Summarize(result.Stats))
	case target.Missing:
		result.Status = domain.StatusChanges
		result.Summary = fmt.Sprintf("Deleted file: %s.", domain.Summarize(result.Stats))
	default:
		result.Status = domain.StatusChanges
		result.Summary = domain.Summarize(result.Stats) + "."
	}
	return result
}

func (s *DiffService) record(ctx context.Context, r domain.DiffResult, elapsed time.Duration) {
	status := metric.WithAttributes(attribute.String("status", r.Status.String()))
	s.comparisons.Add(ctx, 1, status)
	s.duration.Record(ctx, elapsed.Seconds(), status)
	if r.Status != domain.StatusError {
		s.editItems.Record(ctx, int64(r.Stats.Items))
	}
}

// Execute fetches both sides of req and compares them. A side that does not
// exist is compared as an empty document.
func (s *DiffService) Execute(ctx context.Context, req domain.DiffRequest) domain.DiffResult {
	return s.execute(ctx, req, s.source)
}

func (s *DiffService) execute(ctx context.Context, req domain.DiffRequest, src ports.SourcePort) domain.DiffResult {
	ctx, span := s.tracer.Start(ctx, "DiffService.Execute", trace.WithAttributes(
		attribute.String("linediff.source", req.Source.String()),
		attribute.String("linediff.target", req.Target.String()),
	))
	defer span.End()

	name := req.Name
	if name == "" {
		name = req.Target.Path
	}

	fail := func(err error) domain.DiffResult {
		s.logger.Error("comparison failed", "name", name, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		result := domain.DiffResult{
			Name:        name,
			SourceLabel: req.Source.String(),
			TargetLabel: req.Target.String(),
			Status:      domain.StatusError,
			Summary:     err.Error(),
		}
		s.record(ctx, result, 0)
		return result
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if src == nil {
		return fail(errors.New("no document source configured"))
	}

	source, err := s.fetch(ctx, src, req.Source)
	if err != nil {
		return fail(fmt.Errorf("fetching source: %w", err))
	}
	target, err := s.fetch(ctx, src, req.Target)
	if err != nil {
		return fail(fmt.Errorf("fetching target: %w", err))
	}
	if source.Missing && target.Missing {
		return fail(fmt.Errorf("neither %s nor %s exists", req.Source, req.Target))
	}

	s.logger.Debug("comparing documents",
		"name", name,
		"source", source.Label,
		"target", target.Label,
		"sourceLines", len(source.Lines),
		"targetLines", len(target.Lines),
	)
	return s.Compare(ctx, name, source, target, req.Options)
}

func (s *DiffService) fetch(ctx context.Context, src ports.SourcePort, ref domain.DocumentRef) (domain.Document, error) {
	content, err := src.Fetch(ctx, ref)
	if err != nil {
		if domain.IsNotFound(err) {
			s.logger.Info("document not found, treating as empty", "path", ref.Path, "ref", ref.Ref)
			return domain.MissingDocument(ref), nil
		}
		return domain.Document{}, err
	}
	return domain.NewDocument(ref, content), nil
}

// ExecuteBatch runs every request of b and posts the results to the
// reporter. Requests marked InheritOptions run with b.Options. With
// ShareSymbols the requests run one after another over a single symbol
// table; otherwise up to the configured concurrency run at once.
func (s *DiffService) ExecuteBatch(ctx context.Context, b domain.Batch) ([]domain.DiffResult, error) {
	return s.runBatch(ctx, b, s.source, s.reporter)
}

func (s *DiffService) runBatch(
	ctx context.Context,
	b domain.Batch,
	src ports.SourcePort,
	reporter ports.ReportingPort,
) ([]domain.DiffResult, error) {
	ctx, span := s.tracer.Start(ctx, "DiffService.ExecuteBatch", trace.WithAttributes(
		attribute.Int("linediff.requests", len(b.Requests)),
		attribute.Bool("linediff.share_symbols", b.ShareSymbols),
	))
	defer span.End()

	s.logger.Info("running batch", "requests", len(b.Requests), "shareSymbols", b.ShareSymbols)

	reqs := make([]domain.DiffRequest, len(b.Requests))
	copy(reqs, b.Requests)
	for i := range reqs {
		if reqs[i].InheritOptions {
			reqs[i].Options = b.Options
		}
	}

	results := make([]domain.DiffResult, len(reqs))
	if b.ShareSymbols {
		table := engine.NewSymbolTable()
		for i, req := range reqs {
			req.Options.Symbols = table
			results[i] = s.execute(ctx, req, src)
		}
		s.logger.Debug("shared symbol table", "symbols", table.Len())
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)
		for i, req := range reqs {
			g.Go(func() error {
				results[i] = s.execute(gctx, req, src)
				return nil
			})
		}
		_ = g.Wait() // per-request failures are carried in results
	}

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("batch interrupted: %w", err)
	}

	success, changes, errs := domain.CountByStatus(results)
	s.logger.Info("batch complete", "identical", success, "changed", changes, "failed", errs)

	if reporter != nil {
		if err := reporter.PostResult(ctx, results); err != nil {
			span.RecordError(err)
			return results, fmt.Errorf("reporting results: %w", err)
		}
	}
	return results, nil
}
