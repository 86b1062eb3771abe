// Package github provides authenticated GitHub API clients.
package github

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	gogithub "github.com/google/go-github/v68/github"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewClient creates a GitHub API client authenticated as a GitHub App installation.
// The ghinstallation transport automatically handles token renewal.
func NewClient(appID, installationID int64, privateKeyPEM string) (*gogithub.Client, error) {
	// Create installation transport - handles JWT generation and token refresh
	transport, err := ghinstallation.New(instrumented(), appID, installationID, []byte(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("creating github installation transport: %w", err)
	}

	return gogithub.NewClient(&http.Client{Transport: transport}), nil
}

// NewTokenClient creates a client authenticated with a personal access
// token. An empty token gives an anonymous client, limited to public
// repositories and a low rate limit.
func NewTokenClient(token string) *gogithub.Client {
	client := gogithub.NewClient(&http.Client{Transport: instrumented()})
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return client
}

// Credentials selects how FromCredentials authenticates.
type Credentials struct {
	Token          string
	AppID          int64
	InstallationID int64
	PrivateKeyPEM  string
}

// FromCredentials prefers GitHub App credentials when all three are set and
// falls back to a token client.
func FromCredentials(c Credentials) (*gogithub.Client, error) {
	if c.AppID != 0 || c.InstallationID != 0 || c.PrivateKeyPEM != "" {
		if c.AppID == 0 || c.InstallationID == 0 || c.PrivateKeyPEM == "" {
			return nil, errors.New("github app auth needs app id, installation id and private key")
		}
		return NewClient(c.AppID, c.InstallationID, c.PrivateKeyPEM)
	}
	return NewTokenClient(c.Token), nil
}

// SplitRepo parses "owner/repo".
func SplitRepo(fullName string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid repository %q, want owner/repo", fullName)
	}
	return owner, repo, nil
}

func instrumented() http.RoundTripper {
	return otelhttp.NewTransport(http.DefaultTransport)
}
