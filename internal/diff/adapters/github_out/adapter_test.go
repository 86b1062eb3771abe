package githubout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	gogithub "github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathantilsley/linediff/internal/diff/domain"
)

type fakeIssues struct {
	mu      sync.Mutex
	posted  []string
	deleted []string
}

func newTestAdapter(t *testing.T, existing string) (*Adapter, *fakeIssues) {
	t.Helper()
	fake := &fakeIssues{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/hello/issues/7/comments", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `[{"id":1,"body":%q},{"id":2,"body":"unrelated"}]`, existing)
	})
	mux.HandleFunc("POST /repos/octo/hello/issues/7/comments", func(w http.ResponseWriter, r *http.Request) {
		var c struct {
			Body string `json:"body"`
		}
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &c)
		fake.mu.Lock()
		fake.posted = append(fake.posted, c.Body)
		fake.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":3}`)
	})
	mux.HandleFunc("DELETE /repos/octo/hello/issues/comments/{id}", func(w http.ResponseWriter, r *http.Request) {
		fake.mu.Lock()
		fake.deleted = append(fake.deleted, r.PathValue("id"))
		fake.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client := gogithub.NewClient(nil)
	u, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = u

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(client, "octo", "hello", 7, "linediff", logger), fake
}

func TestAdapter_PostResult(t *testing.T) {
	a, fake := newTestAdapter(t, "<!-- linediff: report -->\nold report")

	results := []domain.DiffResult{
		{Name: "a.txt", Status: domain.StatusChanges, Summary: "1 change", UnifiedDiff: "@@ -1,1 +1,1 @@\n-x\n+y\n"},
		{Name: "b.txt", Status: domain.StatusSuccess, Summary: "No changes detected."},
	}
	require.NoError(t, a.PostResult(context.Background(), results))

	assert.Equal(t, []string{"1"}, fake.deleted)
	require.Len(t, fake.posted, 1)
	body := fake.posted[0]
	assert.True(t, strings.HasPrefix(body, "<!-- linediff: report -->\n"))
	assert.Contains(t, body, "| `a.txt` | Changed | 1 change |")
	assert.Contains(t, body, "```diff\n@@ -1,1 +1,1 @@\n-x\n+y\n```")
	assert.NotContains(t, body, "<b>b.txt</b>")
}

func TestAdapter_PostResult_NoChangesSkipsComment(t *testing.T) {
	a, fake := newTestAdapter(t, "<!-- linediff: report -->")

	err := a.PostResult(context.Background(), []domain.DiffResult{{Name: "a.txt", Status: domain.StatusSuccess}})
	require.NoError(t, err)
	assert.Empty(t, fake.posted)
	assert.Equal(t, []string{"1"}, fake.deleted, "stale report is still removed")
}

func TestAdapter_PostResult_Empty(t *testing.T) {
	a, _ := newTestAdapter(t, "")
	assert.Error(t, a.PostResult(context.Background(), nil))
}

func TestFormatPRComment_Truncates(t *testing.T) {
	a := &Adapter{appName: "linediff"}
	huge := strings.Repeat("+line\n", 20000)
	body := a.FormatPRComment([]domain.DiffResult{{Name: "big.txt", Status: domain.StatusChanges, UnifiedDiff: huge}})

	assert.LessOrEqual(t, len(body), maxCommentLen)
	assert.Contains(t, body, "(output truncated)")
	assert.True(t, strings.HasSuffix(body, "_Posted by linediff_\n"))
}

func TestFormatPRComment_Errors(t *testing.T) {
	a := &Adapter{appName: "linediff"}
	body := a.FormatPRComment([]domain.DiffResult{{Name: "a|b.txt", Status: domain.StatusError, Summary: "fetching source: boom"}})
	assert.Contains(t, body, "1 comparison(s) failed")
	assert.Contains(t, body, "fetching source: boom")
	assert.Contains(t, body, "Error")
}
