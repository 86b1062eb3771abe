// Command linediff-cli compares files, git refs or GitHub refs and prints
// unified diffs. It exits 0 when nothing differs, 1 when something does and
// 2 on error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	gogithub "github.com/google/go-github/v68/github"

	"github.com/nathantilsley/linediff/internal/diff/adapters/differ"
	"github.com/nathantilsley/linediff/internal/diff/adapters/filesystem"
	gitsource "github.com/nathantilsley/linediff/internal/diff/adapters/git_source"
	githubout "github.com/nathantilsley/linediff/internal/diff/adapters/github_out"
	"github.com/nathantilsley/linediff/internal/diff/adapters/manifest"
	sourcectrl "github.com/nathantilsley/linediff/internal/diff/adapters/source_ctrl"
	stdoutout "github.com/nathantilsley/linediff/internal/diff/adapters/stdout_out"
	"github.com/nathantilsley/linediff/internal/diff/app"
	"github.com/nathantilsley/linediff/internal/diff/domain"
	"github.com/nathantilsley/linediff/internal/diff/ports"
	"github.com/nathantilsley/linediff/internal/platform/config"
	"github.com/nathantilsley/linediff/internal/platform/gitrepo"
	ghclient "github.com/nathantilsley/linediff/internal/platform/github"
	"github.com/nathantilsley/linediff/internal/platform/logger"
	"github.com/nathantilsley/linediff/internal/platform/telemetry"
)

const (
	exitError = 2
	usage     = `Usage:
  linediff-cli [flags] OLD NEW
  linediff-cli [flags] -manifest batch.yaml
  linediff-cli [flags] -git DIR_OR_URL -base REF -head REF PATH...
  linediff-cli [flags] -github owner/repo -base REF -head REF [-pr N] PATH...

Flags:
`
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	context      int
	trim         bool
	collapse     bool
	fold         bool
	engine       string
	color        string
	manifest     string
	git          string
	github       string
	base         string
	head         string
	pr           int
	shareSymbols bool
	logLevel     string
}

func parseFlags(args []string, stderr io.Writer, cfg config.Config) (options, []string, error) {
	var o options
	fs := flag.NewFlagSet("linediff-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	fs.IntVar(&o.context, "U", cfg.ContextLines, "lines of context around each change")
	fs.BoolVar(&o.trim, "trim", cfg.TrimEdges, "ignore leading and trailing whitespace")
	fs.BoolVar(&o.collapse, "collapse", cfg.CollapseWhitespace, "treat runs of whitespace as one space")
	fs.BoolVar(&o.fold, "fold", cfg.FoldCase, "ignore case")
	fs.StringVar(&o.engine, "engine", cfg.DiffEngine, "diff engine: myers or difflib")
	fs.StringVar(&o.color, "color", "auto", "color output: auto, always or never")
	fs.StringVar(&o.manifest, "manifest", "", "YAML file listing the comparisons to run")
	fs.StringVar(&o.git, "git", "", "git working copy or clone URL to read refs from")
	fs.StringVar(&o.github, "github", "", "GitHub owner/repo to read refs from")
	fs.StringVar(&o.base, "base", "", "old ref for -git and -github")
	fs.StringVar(&o.head, "head", "", "new ref for -git and -github")
	fs.IntVar(&o.pr, "pr", 0, "also post the report as a comment on this pull request (with -github)")
	fs.BoolVar(&o.shareSymbols, "share-symbols", false, "encode every comparison with one symbol table")
	fs.StringVar(&o.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return options{}, nil, err
	}
	if o.context < 0 {
		return options{}, nil, fmt.Errorf("-U must not be negative, got %d", o.context)
	}
	if o.git != "" && o.github != "" {
		return options{}, nil, errors.New("-git and -github are mutually exclusive")
	}
	if o.pr != 0 && o.github == "" {
		return options{}, nil, errors.New("-pr requires -github")
	}
	return o, fs.Args(), nil
}

// run returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "error: loading config: %s\n", err)
		return exitError
	}

	o, rest, err := parseFlags(args, stderr, cfg)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "error: %s\n", err)
		return exitError
	}

	log := logger.NewWithWriter(stderr, o.logLevel)
	results, err := compare(ctx, cfg, o, rest, stdout, stderr, log)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return exitError
	}
	return domain.ExitCode(results)
}

func compare(
	ctx context.Context,
	cfg config.Config,
	o options,
	args []string,
	stdout, stderr io.Writer,
	log *slog.Logger,
) ([]domain.DiffResult, error) {
	mode, err := stdoutout.ParseColorMode(o.color)
	if err != nil {
		return nil, err
	}
	engine, err := differ.New(o.engine)
	if err != nil {
		return nil, fmt.Errorf("-engine: %w", err)
	}

	opts := domain.DefaultDiffOptions()
	opts.ContextSize = o.context
	opts.Normalization.TrimEdges = o.trim
	opts.Normalization.CollapseWhitespace = o.collapse
	opts.Normalization.FoldCase = o.fold

	src, err := newSource(ctx, cfg, o, log)
	if err != nil {
		return nil, err
	}
	defer src.cleanup()

	batch, err := newBatch(ctx, o, args, opts)
	if err != nil {
		return nil, err
	}
	batch.ShareSymbols = batch.ShareSymbols || o.shareSymbols

	reporters := multiReporter{stdoutout.New(stdout, stderr, mode)}
	if o.pr != 0 {
		owner, repo, err := ghclient.SplitRepo(o.github)
		if err != nil {
			return nil, err
		}
		reporters = append(reporters, githubout.New(src.client, owner, repo, o.pr, cfg.AppName, log))
	}

	tel := telemetry.Noop()
	svc, err := app.NewDiffService(src.documents, engine, reporters, log, tel.Meter, tel.Tracer, cfg.MaxConcurrency)
	if err != nil {
		return nil, err
	}
	return svc.ExecuteBatch(ctx, batch)
}

type source struct {
	documents ports.SourcePort
	client    *gogithub.Client // set with -github
	cleanup   func()
}

// newSource opens the document source the flags select. Without -git or
// -github documents are local files, relative to the manifest when there
// is one.
func newSource(ctx context.Context, cfg config.Config, o options, log *slog.Logger) (source, error) {
	noop := func() {}
	switch {
	case o.git != "":
		if info, err := os.Stat(o.git); err == nil && info.IsDir() {
			return source{documents: gitsource.New(gitrepo.Open(o.git, log), ""), cleanup: noop}, nil
		}
		tmp, err := os.MkdirTemp("", "linediff-clone-*")
		if err != nil {
			return source{}, fmt.Errorf("creating clone dir: %w", err)
		}
		cleanup := func() { _ = os.RemoveAll(tmp) }
		repo := gitrepo.New(o.git, filepath.Join(tmp, "repo"), 0, log)
		if err := repo.Start(ctx); err != nil {
			cleanup()
			return source{}, fmt.Errorf("cloning %s: %w", o.git, err)
		}
		return source{documents: gitsource.New(repo, ""), cleanup: cleanup}, nil

	case o.github != "":
		owner, repo, err := ghclient.SplitRepo(o.github)
		if err != nil {
			return source{}, err
		}
		client, err := ghclient.FromCredentials(ghclient.Credentials{
			Token:          cfg.GitHubToken,
			AppID:          cfg.GitHubAppID,
			InstallationID: cfg.GitHubInstallationID,
			PrivateKeyPEM:  cfg.GitHubPrivateKey,
		})
		if err != nil {
			return source{}, fmt.Errorf("creating github client: %w", err)
		}
		return source{documents: sourcectrl.New(client, owner, repo), client: client, cleanup: noop}, nil

	case o.manifest != "":
		return source{documents: filesystem.New(filepath.Dir(o.manifest)), cleanup: noop}, nil

	default:
		return source{documents: filesystem.New(""), cleanup: noop}, nil
	}
}

func newBatch(ctx context.Context, o options, args []string, opts domain.DiffOptions) (domain.Batch, error) {
	refMode := o.git != "" || o.github != ""

	if o.manifest != "" {
		if len(args) > 0 {
			return domain.Batch{}, errors.New("-manifest takes no positional arguments")
		}
		local := filesystem.New(filepath.Dir(o.manifest))
		batch, err := manifest.New(opts).Load(ctx, local, domain.DocumentRef{Path: filepath.Base(o.manifest)})
		if err != nil {
			return domain.Batch{}, err
		}
		if refMode {
			batch = batch.WithRefs(o.base, o.head)
		}
		return batch, nil
	}

	if refMode {
		if len(args) == 0 {
			return domain.Batch{}, errors.New("name at least one PATH to compare between -base and -head")
		}
		if o.base == "" && o.head == "" {
			return domain.Batch{}, errors.New("-git and -github need -base or -head")
		}
		batch := domain.Batch{Options: opts}
		for _, path := range args {
			batch.Requests = append(batch.Requests, domain.DiffRequest{
				Name:    path,
				Source:  domain.DocumentRef{Path: path, Ref: o.base},
				Target:  domain.DocumentRef{Path: path, Ref: o.head},
				Options: opts,
			})
		}
		return batch, nil
	}

	if len(args) != 2 {
		return domain.Batch{}, fmt.Errorf("expected OLD and NEW, got %d argument(s)", len(args))
	}
	return domain.Batch{
		Options: opts,
		Requests: []domain.DiffRequest{{
			Name:    args[1],
			Source:  domain.DocumentRef{Path: args[0]},
			Target:  domain.DocumentRef{Path: args[1]},
			Options: opts,
		}},
	}, nil
}

// multiReporter posts to every reporter and joins their errors.
type multiReporter []ports.ReportingPort

func (m multiReporter) PostResult(ctx context.Context, results []domain.DiffResult) error {
	var errs []error
	for _, r := range m {
		if err := r.PostResult(ctx, results); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
