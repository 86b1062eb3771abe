package githubin

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nathantilsley/linediff/internal/diff/domain"
)

const testSecret = "test-webhook-secret"

// blockingReviewer blocks Review until the caller signals via gate.
type blockingReviewer struct {
	gate      chan struct{}
	active    atomic.Int32
	completed atomic.Int32
}

func (b *blockingReviewer) Review(_ context.Context, _ domain.PullRequest) error {
	b.active.Add(1)
	<-b.gate
	b.active.Add(-1)
	b.completed.Add(1)
	return nil
}

// recordingReviewer keeps the pull requests it was asked to review.
type recordingReviewer struct {
	mu  sync.Mutex
	prs []domain.PullRequest
}

func (r *recordingReviewer) Review(_ context.Context, pr domain.PullRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prs = append(r.prs, pr)
	return nil
}

func (r *recordingReviewer) reviewed() []domain.PullRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.PullRequest(nil), r.prs...)
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func buildPRPayload(tb testing.TB, action string, draft bool) []byte {
	tb.Helper()
	payload := map[string]any{
		"action": action,
		"number": 42,
		"pull_request": map[string]any{
			"draft": draft,
			"head":  map[string]any{"ref": "feature", "sha": "abc123"},
			"base":  map[string]any{"ref": "main"},
		},
		"repository": map[string]any{
			"name":  "my-repo",
			"owner": map[string]any{"login": "my-org"},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		tb.Fatalf("marshal payload: %v", err)
	}
	return body
}

func newSignedRequest(tb testing.TB, event string, body []byte) *http.Request {
	tb.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hub-Signature-256", sign(body, testSecret))
	req.Header.Set("X-GitHub-Event", event)
	return req
}

func newTestHandler(reviewer interface {
	Review(context.Context, domain.PullRequest) error
},
) *WebhookHandler {
	return NewWebhookHandler(
		reviewer,
		testSecret,
		slog.New(slog.NewTextHandler(
			&discardWriter{},
			&slog.HandlerOptions{Level: slog.LevelError},
		)),
	)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func waitFor(
	t *testing.T,
	cond func() bool,
	timeout time.Duration,
	msg string,
) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting: %s", msg)
		}
		runtime.Gosched()
	}
}

func TestHandler_InvalidSignature(t *testing.T) {
	h := newTestHandler(&recordingReviewer{})

	body := buildPRPayload(t, "opened", false)
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hub-Signature-256", "sha256=bad")
	req.Header.Set("X-GitHub-Event", "pull_request")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("got %d, want 401", rr.Code)
	}
}

func TestHandler_UnparseableEvent(t *testing.T) {
	h := newTestHandler(&recordingReviewer{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, newSignedRequest(t, "pull_request", []byte(`{"number": "not a number"}`)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}
}

func TestHandler_NonPREvent(t *testing.T) {
	reviewer := &recordingReviewer{}
	h := newTestHandler(reviewer)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, newSignedRequest(t, "push", []byte(`{"ref":"refs/heads/main"}`)))

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rr.Code)
	}
	if n := len(reviewer.reviewed()); n != 0 {
		t.Fatalf("push event started %d reviews", n)
	}
}

func TestHandler_IgnoredActions(t *testing.T) {
	h := newTestHandler(&recordingReviewer{})

	for _, action := range []string{"closed", "edited", "labeled", "assigned"} {
		t.Run(action, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, newSignedRequest(t, "pull_request", buildPRPayload(t, action, false)))

			if rr.Code != http.StatusOK {
				t.Fatalf("action %q: got %d, want 200", action, rr.Code)
			}
		})
	}
}

func TestHandler_IgnoresDrafts(t *testing.T) {
	reviewer := &recordingReviewer{}
	h := newTestHandler(reviewer)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, newSignedRequest(t, "pull_request", buildPRPayload(t, "opened", true)))

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rr.Code)
	}
	if n := len(reviewer.reviewed()); n != 0 {
		t.Fatalf("draft started %d reviews", n)
	}
}

func TestHandler_AcceptedActions(t *testing.T) {
	for _, action := range []string{"opened", "synchronize", "reopened", "ready_for_review"} {
		t.Run(action, func(t *testing.T) {
			reviewer := &recordingReviewer{}
			h := newTestHandler(reviewer)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, newSignedRequest(t, "pull_request", buildPRPayload(t, action, false)))

			if rr.Code != http.StatusAccepted {
				t.Fatalf("action %q: got %d, want 202", action, rr.Code)
			}

			waitFor(t, func() bool { return len(reviewer.reviewed()) == 1 }, 2*time.Second, "review")
			want := domain.PullRequest{
				Owner:   "my-org",
				Repo:    "my-repo",
				Number:  42,
				BaseRef: "main",
				HeadRef: "feature",
				HeadSHA: "abc123",
			}
			if got := reviewer.reviewed()[0]; got != want {
				t.Fatalf("reviewed %+v, want %+v", got, want)
			}
		})
	}
}

func TestSemaphore_Returns202Immediately(t *testing.T) {
	reviewer := &blockingReviewer{gate: make(chan struct{})}
	h := newTestHandler(reviewer)
	h.sem = make(chan struct{}, 1) // single slot to prove non-blocking

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, newSignedRequest(t, "pull_request", buildPRPayload(t, "opened", false)))
	waitFor(t, func() bool { return reviewer.active.Load() == 1 }, 2*time.Second,
		"slot should fill")

	// The slot is taken; the next delivery must still be answered at once.
	start := time.Now()
	rr2 := httptest.NewRecorder()
	h.ServeHTTP(rr2, newSignedRequest(t, "pull_request", buildPRPayload(t, "synchronize", false)))
	elapsed := time.Since(start)

	if rr2.Code != http.StatusAccepted {
		t.Fatalf("got %d, want 202", rr2.Code)
	}
	if elapsed > 50*time.Millisecond {
		t.Fatalf("ServeHTTP took %v; semaphore appears to block the handler", elapsed)
	}

	for range 2 {
		reviewer.gate <- struct{}{}
	}
	waitFor(t, func() bool { return reviewer.completed.Load() == 2 }, 2*time.Second,
		"cleanup")
}

func BenchmarkWebhookHandler(b *testing.B) {
	h := newTestHandler(&recordingReviewer{})
	body := buildPRPayload(b, "closed", false)
	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, newSignedRequest(b, "pull_request", body))
	}
}
