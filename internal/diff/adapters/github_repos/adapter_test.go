package githubrepos

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	gogithub "github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathantilsley/linediff/internal/diff/domain"
)

func TestAdapter_SourceAndReporter(t *testing.T) {
	var posted string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/web/contents/config.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"type":"file","encoding":"base64","path":"config.txt","content":%q}`,
			base64.StdEncoding.EncodeToString([]byte("ref="+r.URL.Query().Get("ref")+"\n")))
	})
	mux.HandleFunc("GET /repos/acme/web/issues/7/comments", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	mux.HandleFunc("POST /repos/acme/web/issues/7/comments", func(w http.ResponseWriter, r *http.Request) {
		var c gogithub.IssueComment
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		posted = c.GetBody()
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 1}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := gogithub.NewClient(nil)
	u, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = u

	a := New(client, "linediff", slog.New(slog.NewTextHandler(io.Discard, nil)))

	content, err := a.Source("acme", "web").Fetch(context.Background(), domain.DocumentRef{Path: "config.txt", Ref: "abc123"})
	require.NoError(t, err)
	assert.Equal(t, "ref=abc123\n", string(content))

	pr := domain.PullRequest{Owner: "acme", Repo: "web", Number: 7}
	err = a.Reporter(pr).PostResult(context.Background(), []domain.DiffResult{{
		Name:        "config.txt",
		Status:      domain.StatusChanges,
		UnifiedDiff: "@@ -1,1 +1,1 @@\n-a\n+b\n",
		Summary:     "1 change: 1 deletion(-), 1 insertion(+).",
	}})
	require.NoError(t, err)
	assert.Contains(t, posted, "<!-- linediff: report -->")
	assert.Contains(t, posted, "| `config.txt` | Changed |")
}
