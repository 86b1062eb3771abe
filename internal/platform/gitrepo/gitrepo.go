// Package gitrepo manages a local git clone's lifecycle (clone, fetch and
// periodic background sync) and reads files at arbitrary refs.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrUnknownRef is returned by Show when the ref does not resolve to a commit.
	ErrUnknownRef = errors.New("unknown ref")
	// ErrPathNotFound is returned by Show when the ref exists but has no such file.
	ErrPathNotFound = errors.New("path not found at ref")
)

// GitRepo owns the clone/fetch/sync lifecycle for a single git repository.
type GitRepo struct {
	repoURL      string
	localPath    string
	syncInterval time.Duration
	logger       *slog.Logger

	ready    atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	onSync   []func()   // callbacks after each successful sync
	mu       sync.Mutex // serializes fetch + callbacks
}

// New creates a GitRepo. No I/O is performed; call Start to clone/fetch.
// A syncInterval of zero or less disables background sync.
func New(repoURL, localPath string, syncInterval time.Duration, logger *slog.Logger) *GitRepo {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &GitRepo{
		repoURL:      repoURL,
		localPath:    localPath,
		syncInterval: syncInterval,
		logger:       logger,
		stopCh:       make(chan struct{}),
	}
}

// Open wraps an existing working copy. It never clones or syncs and is
// ready immediately.
func Open(localPath string, logger *slog.Logger) *GitRepo {
	r := New("", localPath, 0, logger)
	r.ready.Store(true)
	return r
}

// OnSync registers a callback invoked (under mu) after each successful fetch.
func (r *GitRepo) OnSync(fn func()) {
	r.onSync = append(r.onSync, fn)
}

// Start performs the initial clone (or fetch if already cloned), invokes OnSync
// callbacks, marks the repo as ready, and starts the background sync goroutine.
func (r *GitRepo) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.initRepo(ctx); err != nil {
		return fmt.Errorf("initializing repo: %w", err)
	}

	r.runCallbacks()
	r.ready.Store(true)

	if r.syncInterval > 0 {
		go r.syncLoop(ctx)
	}
	r.logger.Info("gitrepo started", "repoURL", r.repoURL, "syncInterval", r.syncInterval)
	return nil
}

// Ready returns true after Start completes the initial clone and first callback cycle.
func (r *GitRepo) Ready() bool {
	return r.ready.Load()
}

// Path returns the local filesystem path of the repository.
func (r *GitRepo) Path() string {
	return r.localPath
}

// Stop signals the background sync goroutine to exit. It is safe to call
// more than once.
func (r *GitRepo) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// Show returns the content of path at ref. Remote branches are tried as
// "origin/<ref>" when ref does not resolve locally.
func (r *GitRepo) Show(ctx context.Context, ref, path string) ([]byte, error) {
	if ref == "" || strings.HasPrefix(ref, "-") || strings.ContainsAny(ref, ": \t\n") {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRef, ref)
	}
	path = strings.TrimPrefix(filepath.ToSlash(filepath.Clean(path)), "/")

	commit, err := r.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // G204: ref was resolved to a commit id above
	cmd := exec.CommandContext(ctx, "git", "-C", r.localPath, "cat-file", "blob", commit+":"+path)
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s at %s", ErrPathNotFound, path, ref)
	}
	return out, nil
}

// resolve returns the commit id for ref, falling back to origin/<ref>.
func (r *GitRepo) resolve(ctx context.Context, ref string) (string, error) {
	for _, candidate := range []string{ref, "origin/" + ref} {
		//nolint:gosec // G204: candidate is validated by Show
		cmd := exec.CommandContext(ctx, "git", "-C", r.localPath, "rev-parse", "--verify", "--quiet", candidate+"^{commit}")
		out, err := cmd.Output()
		if err == nil {
			return strings.TrimSpace(string(out)), nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownRef, ref)
}

// initRepo clones the repository if it doesn't exist, or fetches if it does.
// The clone keeps full history so any ref can be shown.
func (r *GitRepo) initRepo(ctx context.Context) error {
	gitDir := filepath.Join(r.localPath, ".git")

	if _, err := os.Stat(gitDir); err == nil {
		r.logger.Info("repository already exists, fetching latest")
		return r.fetchRepo(ctx)
	}

	r.logger.Info("cloning repository", "repoURL", r.repoURL)
	//nolint:gosec // G204: repoURL is from trusted config, not user input
	cmd := exec.CommandContext(ctx, "git", "clone", "--quiet", r.repoURL, r.localPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git clone failed: %w\noutput: %s", err, output)
	}
	return nil
}

// fetchRepo updates remote-tracking refs and tags.
func (r *GitRepo) fetchRepo(ctx context.Context) error {
	//nolint:gosec // G204: localPath is from trusted config, not user input
	cmd := exec.CommandContext(ctx, "git", "-C", r.localPath, "fetch", "--quiet", "--prune", "--tags", "origin")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git fetch failed: %w\noutput: %s", err, output)
	}
	return nil
}

// syncLoop periodically fetches and invokes callbacks.
func (r *GitRepo) syncLoop(ctx context.Context) {
	ticker := time.NewTicker(r.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sync(ctx)
		case <-r.stopCh:
			r.logger.Info("stopping gitrepo sync loop")
			return
		case <-ctx.Done():
			return
		}
	}
}

// sync performs a single fetch + callback cycle under mu.
func (r *GitRepo) sync(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug("syncing git repository")
	if err := r.fetchRepo(ctx); err != nil {
		r.logger.Error("failed to fetch repository", "error", err)
		return
	}

	r.runCallbacks()
	r.logger.Debug("git repository synced successfully")
}

// runCallbacks invokes all OnSync callbacks sequentially. Must be called under mu.
func (r *GitRepo) runCallbacks() {
	for _, fn := range r.onSync {
		fn()
	}
}
