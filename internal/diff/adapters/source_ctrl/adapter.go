// Package sourcectrl implements ports.SourcePort over the GitHub contents API.
package sourcectrl

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	gogithub "github.com/google/go-github/v68/github"

	"github.com/nathantilsley/linediff/internal/diff/domain"
)

// Adapter fetches documents from one GitHub repository.
type Adapter struct {
	client *gogithub.Client
	owner  string
	repo   string
}

// New creates a new source control adapter for owner/repo.
func New(client *gogithub.Client, owner, repo string) *Adapter {
	return &Adapter{client: client, owner: owner, repo: repo}
}

// Fetch returns the file at ref.Path on ref.Ref (the default branch when
// empty). Files above the contents API's inline size limit are downloaded.
func (a *Adapter) Fetch(ctx context.Context, ref domain.DocumentRef) ([]byte, error) {
	path := strings.TrimPrefix(ref.Path, "/")
	opts := &gogithub.RepositoryContentGetOptions{Ref: ref.Ref}

	fileContent, dirContent, resp, err := a.client.Repositories.GetContents(ctx, a.owner, a.repo, path, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			// Wrap with NotFoundError so the service can treat it as a new file
			return nil, domain.NewNotFoundError(ref.Path, ref.Ref)
		}
		return nil, fmt.Errorf("fetching %s from %s/%s: %w", path, a.owner, a.repo, err)
	}
	if fileContent == nil || dirContent != nil {
		return nil, fmt.Errorf("%s in %s/%s is a directory", path, a.owner, a.repo)
	}

	if fileContent.GetEncoding() == "none" {
		return a.download(ctx, path, opts)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return []byte(content), nil
}

func (a *Adapter) download(ctx context.Context, path string, opts *gogithub.RepositoryContentGetOptions) ([]byte, error) {
	rc, _, err := a.client.Repositories.DownloadContents(ctx, a.owner, a.repo, path, opts)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", path, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return content, nil
}
