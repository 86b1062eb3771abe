// Package githubrepos implements ports.RepositoryPort for any repository the
// GitHub client can reach.
package githubrepos

import (
	"log/slog"

	gogithub "github.com/google/go-github/v68/github"

	githubout "github.com/nathantilsley/linediff/internal/diff/adapters/github_out"
	sourcectrl "github.com/nathantilsley/linediff/internal/diff/adapters/source_ctrl"
	"github.com/nathantilsley/linediff/internal/diff/domain"
	"github.com/nathantilsley/linediff/internal/diff/ports"
)

// Adapter hands out a contents-API source per repository and a PR-comment
// reporter per pull request.
type Adapter struct {
	client  *gogithub.Client
	appName string
	logger  *slog.Logger
}

// New creates a repository adapter. appName signs and marks posted comments.
func New(client *gogithub.Client, appName string, logger *slog.Logger) *Adapter {
	return &Adapter{client: client, appName: appName, logger: logger}
}

// Source returns a document source for owner/repo.
func (a *Adapter) Source(owner, repo string) ports.SourcePort {
	return sourcectrl.New(a.client, owner, repo)
}

// Reporter returns a reporter that comments on pr.
func (a *Adapter) Reporter(pr domain.PullRequest) ports.ReportingPort {
	return githubout.New(a.client, pr.Owner, pr.Repo, pr.Number, a.appName, a.logger.With("pr", pr.Number))
}
