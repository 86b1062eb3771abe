// Package main provides the linediff HTTP service: JSON diffs, ref
// comparisons and pull request reviews driven by GitHub webhooks.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gogithub "github.com/google/go-github/v68/github"

	"github.com/nathantilsley/linediff/internal/diff/adapters/differ"
	gitsource "github.com/nathantilsley/linediff/internal/diff/adapters/git_source"
	githubin "github.com/nathantilsley/linediff/internal/diff/adapters/github_in"
	githubrepos "github.com/nathantilsley/linediff/internal/diff/adapters/github_repos"
	httpin "github.com/nathantilsley/linediff/internal/diff/adapters/http_in"
	"github.com/nathantilsley/linediff/internal/diff/adapters/manifest"
	sourcectrl "github.com/nathantilsley/linediff/internal/diff/adapters/source_ctrl"
	"github.com/nathantilsley/linediff/internal/diff/app"
	"github.com/nathantilsley/linediff/internal/diff/domain"
	"github.com/nathantilsley/linediff/internal/diff/ports"
	"github.com/nathantilsley/linediff/internal/platform/config"
	"github.com/nathantilsley/linediff/internal/platform/gitrepo"
	ghclient "github.com/nathantilsley/linediff/internal/platform/github"
	"github.com/nathantilsley/linediff/internal/platform/telemetry"
)

const shutdownTimeout = 10 * time.Second

// Container holds all application dependencies.
type Container struct {
	Config         config.Config
	Logger         *slog.Logger
	Telemetry      *telemetry.Telemetry
	GitHubClient   *gogithub.Client // nil without GitHub credentials
	GitRepo        *gitrepo.GitRepo // nil unless GIT_REPO_URL is set
	DiffService    *app.DiffService
	HTTPHandler    *httpin.Handler
	WebhookHandler *githubin.WebhookHandler // nil unless WEBHOOK_SECRET is set
}

// NewContainer builds and wires all dependencies.
func NewContainer(ctx context.Context, cfg config.Config, log *slog.Logger) (*Container, error) {
	tel, err := telemetry.New(ctx, cfg.OTelEnabled)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	c := &Container{Config: cfg, Logger: log, Telemetry: tel}

	if cfg.HasGitHubCredentials() {
		c.GitHubClient, err = ghclient.FromCredentials(ghclient.Credentials{
			Token:          cfg.GitHubToken,
			AppID:          cfg.GitHubAppID,
			InstallationID: cfg.GitHubInstallationID,
			PrivateKeyPEM:  cfg.GitHubPrivateKey,
		})
		if err != nil {
			return nil, fmt.Errorf("creating github client: %w", err)
		}
	}

	source, err := c.refSource(ctx)
	if err != nil {
		return nil, err
	}

	engine, err := differ.New(cfg.DiffEngine)
	if err != nil {
		return nil, err
	}

	c.DiffService, err = app.NewDiffService(
		source,
		engine,
		nil, // HTTP callers get results in the response
		log,
		tel.Meter,
		tel.Tracer,
		cfg.MaxConcurrency,
	)
	if err != nil {
		return nil, fmt.Errorf("creating diff service: %w", err)
	}

	defaults := DiffOptions(cfg)
	c.HTTPHandler = httpin.NewHandler(c.DiffService, defaults, cfg.MaxBodyBytes, log)

	if cfg.WebhookSecret != "" {
		reviewer := app.NewPRReviewer(
			c.DiffService,
			githubrepos.New(c.GitHubClient, cfg.AppName, log),
			manifest.New(defaults),
			cfg.ManifestPath,
			log,
			tel.Tracer,
		)
		c.WebhookHandler = githubin.NewWebhookHandler(reviewer, cfg.WebhookSecret, log)
		log.Info("pull request reviews enabled", "manifest", cfg.ManifestPath)
	}

	return c, nil
}

// refSource picks the source GET /compare reads from: a managed clone when
// GIT_REPO_URL is set, else the GitHub contents API for GITHUB_REPO.
func (c *Container) refSource(ctx context.Context) (ports.SourcePort, error) {
	cfg := c.Config
	switch {
	case cfg.GitRepoURL != "":
		c.GitRepo = gitrepo.New(cfg.GitRepoURL, cfg.GitRepoLocalPath, cfg.GitSyncInterval, c.Logger)
		c.GitRepo.OnSync(func() {
			c.Logger.Debug("git clone synced", "path", c.GitRepo.Path())
		})
		if err := c.GitRepo.Start(ctx); err != nil {
			return nil, fmt.Errorf("starting git repo: %w", err)
		}
		c.Logger.Info("comparing refs of git clone", "repoURL", cfg.GitRepoURL, "path", cfg.GitRepoLocalPath)
		return gitsource.New(c.GitRepo, ""), nil
	case cfg.GitHubRepo != "":
		if c.GitHubClient == nil {
			return nil, errors.New("GITHUB_REPO requires GitHub credentials")
		}
		owner, repo, err := ghclient.SplitRepo(cfg.GitHubRepo)
		if err != nil {
			return nil, err
		}
		c.Logger.Info("comparing refs through the GitHub API", "repo", cfg.GitHubRepo)
		return sourcectrl.New(c.GitHubClient, owner, repo), nil
	default:
		c.Logger.Info("no ref source configured, GET /compare is disabled")
		return nil, nil
	}
}

// Ready reports whether the service can answer requests.
func (c *Container) Ready() bool {
	return c.GitRepo == nil || c.GitRepo.Ready()
}

// Close stops background work and flushes telemetry.
func (c *Container) Close() {
	if c.GitRepo != nil {
		c.GitRepo.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := c.Telemetry.Shutdown(ctx); err != nil {
		c.Logger.Warn("telemetry shutdown failed", "error", err)
	}
}

// DiffOptions converts the configured defaults.
func DiffOptions(cfg config.Config) domain.DiffOptions {
	opts := domain.DefaultDiffOptions()
	opts.ContextSize = cfg.ContextLines
	opts.Normalization.TrimEdges = cfg.TrimEdges
	opts.Normalization.CollapseWhitespace = cfg.CollapseWhitespace
	opts.Normalization.FoldCase = cfg.FoldCase
	return opts
}
