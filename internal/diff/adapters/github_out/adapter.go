// Package githubout posts comparison results as a pull request comment.
package githubout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gogithub "github.com/google/go-github/v68/github"

	"github.com/nathantilsley/linediff/internal/diff/domain"
)

// maxCommentLen is GitHub's limit on an issue comment body.
const maxCommentLen = 65536

// Adapter implements ports.ReportingPort by replacing its earlier comment
// on a pull request.
type Adapter struct {
	client   *gogithub.Client
	owner    string
	repo     string
	prNumber int
	appName  string
	logger   *slog.Logger
}

// New creates a new GitHub reporting adapter for one pull request.
func New(client *gogithub.Client, owner, repo string, prNumber int, appName string, logger *slog.Logger) *Adapter {
	return &Adapter{
		client:   client,
		owner:    owner,
		repo:     repo,
		prNumber: prNumber,
		appName:  appName,
		logger:   logger,
	}
}

// PostResult deletes the previous report and posts a new one. Nothing is
// posted when every comparison is identical.
func (a *Adapter) PostResult(ctx context.Context, results []domain.DiffResult) error {
	if len(results) == 0 {
		return errors.New("no results to post comment")
	}

	marker := a.marker()
	a.deleteMatchingComments(ctx, marker)

	if _, changes, errs := domain.CountByStatus(results); changes == 0 && errs == 0 {
		a.logger.Info("no changes, skipping PR comment", "pr", a.prNumber)
		return nil
	}

	a.logger.Info("posting PR comment", "pr", a.prNumber, "results", len(results))
	_, _, err := a.client.Issues.CreateComment(ctx, a.owner, a.repo, a.prNumber, &gogithub.IssueComment{
		Body: gogithub.Ptr(a.FormatPRComment(results)),
	})
	if err != nil {
		return fmt.Errorf("creating PR comment: %w", err)
	}

	a.logger.Info("PR comment posted successfully", "pr", a.prNumber)
	return nil
}

func (a *Adapter) marker() string {
	return fmt.Sprintf("<!-- %s: report -->", a.appName)
}

// deleteMatchingComments deletes comments containing the given marker.
func (a *Adapter) deleteMatchingComments(ctx context.Context, marker string) {
	comments, _, err := a.client.Issues.ListComments(ctx, a.owner, a.repo, a.prNumber,
		&gogithub.IssueListCommentsOptions{})
	if err != nil {
		a.logger.Warn("failed to list comments, continuing anyway", "error", err)
		return
	}
	for _, comment := range comments {
		if strings.Contains(comment.GetBody(), marker) {
			a.logger.Info("deleting old comment", "commentID", comment.GetID())
			if _, err := a.client.Issues.DeleteComment(ctx, a.owner, a.repo, comment.GetID()); err != nil {
				a.logger.Warn("failed to delete old comment", "commentID", comment.GetID(), "error", err)
			}
		}
	}
}

// FormatPRComment formats the comment body for results.
func (a *Adapter) FormatPRComment(results []domain.DiffResult) string {
	var sb strings.Builder

	// Hidden marker for identifying this comment (for deletion on updates)
	sb.WriteString(a.marker() + "\n")
	sb.WriteString("## Diff Report\n\n")

	success, changes, errorCount := domain.CountByStatus(results)
	switch {
	case errorCount > 0:
		fmt.Fprintf(&sb, "**Status:** %d comparison(s) failed, %d changed, %d identical\n\n", errorCount, changes, success)
	default:
		fmt.Fprintf(&sb, "**Status:** %d changed, %d identical\n\n", changes, success)
	}

	sb.WriteString("| File | Status | Summary |\n")
	sb.WriteString("|------|--------|---------|\n")
	for _, r := range results {
		fmt.Fprintf(&sb, "| `%s` | %s | %s |\n", r.Name, statusLabel(r.Status), escapeCell(r.Summary))
	}
	sb.WriteString("\n")

	var details strings.Builder
	for _, r := range results {
		switch r.Status {
		case domain.StatusError:
			fmt.Fprintf(&details, "<details>\n<summary><b>%s</b>: error details</summary>\n\n", r.Name)
			fmt.Fprintf(&details, "%s\n\n", r.Summary)
			details.WriteString("</details>\n\n")
		case domain.StatusChanges:
			fmt.Fprintf(&details, "<details>\n<summary><b>%s</b>: view diff</summary>\n\n", r.Name)
			fmt.Fprintf(&details, "```diff\n%s```\n\n", r.UnifiedDiff)
			details.WriteString("</details>\n\n")
		case domain.StatusSuccess:
			// Already shown in the table
		}
	}

	footer := fmt.Sprintf("---\n_Posted by %s_\n", a.appName)
	sb.WriteString(truncate(details.String(), maxCommentLen-sb.Len()-len(footer)))
	sb.WriteString(footer)
	return sb.String()
}

func statusLabel(status domain.Status) string {
	switch status {
	case domain.StatusError:
		return "Error"
	case domain.StatusChanges:
		return "Changed"
	case domain.StatusSuccess:
		return "No changes"
	default:
		return "Unknown"
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}

func truncate(text string, limit int) string {
	const truncMsg = "\n\n... (output truncated)\n\n"
	if len(text) <= limit {
		return text
	}
	if limit < len(truncMsg) {
		return ""
	}
	return text[:limit-len(truncMsg)] + truncMsg
}
