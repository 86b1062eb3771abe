// Package githubin receives GitHub pull request webhooks and starts a review.
package githubin

import (
	"context"
	"log/slog"
	"net/http"

	gogithub "github.com/google/go-github/v68/github"
	"go.opentelemetry.io/otel/trace"

	"github.com/nathantilsley/linediff/internal/diff/domain"
	"github.com/nathantilsley/linediff/internal/diff/ports"
)

const maxConcurrentReviews = 5

// reviewActions are the pull_request actions that change what a review
// would report.
var reviewActions = map[string]bool{
	"opened":           true,
	"synchronize":      true,
	"reopened":         true,
	"ready_for_review": true,
}

// WebhookHandler turns pull_request events into reviews.
type WebhookHandler struct {
	reviewer      ports.PullRequestUseCase
	webhookSecret []byte
	logger        *slog.Logger
	sem           chan struct{}
}

// NewWebhookHandler creates a webhook handler that verifies payloads with
// secret.
func NewWebhookHandler(
	reviewer ports.PullRequestUseCase,
	secret string,
	logger *slog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		reviewer:      reviewer,
		webhookSecret: []byte(secret),
		logger:        logger,
		sem:           make(chan struct{}, maxConcurrentReviews),
	}
}

// ServeHTTP validates the signature and parses the event. Reviews run in the
// background and the request is answered with 202 straight away.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := gogithub.ValidatePayload(r, h.webhookSecret)
	if err != nil {
		h.logger.Error("invalid webhook signature", "error", err)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	event, err := gogithub.ParseWebHook(gogithub.WebHookType(r), payload)
	if err != nil {
		h.logger.Error("failed to parse webhook", "error", err)
		http.Error(w, "failed to parse webhook", http.StatusBadRequest)
		return
	}

	prEvent, ok := event.(*gogithub.PullRequestEvent)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}

	action := prEvent.GetAction()
	if !reviewActions[action] || prEvent.GetPullRequest().GetDraft() {
		h.logger.Debug("ignoring pull request event", "action", action, "draft", prEvent.GetPullRequest().GetDraft())
		w.WriteHeader(http.StatusOK)
		return
	}

	pr := pullRequestFromEvent(prEvent)
	h.logger.Info("reviewing pull request",
		"owner", pr.Owner,
		"repo", pr.Repo,
		"pr", pr.Number,
		"action", action,
	)

	// GitHub gives up on a delivery after 10s. The review is detached from
	// the request's cancellation but keeps its trace as the remote parent.
	ctx := trace.ContextWithRemoteSpanContext(context.Background(),
		trace.SpanContextFromContext(r.Context()),
	)
	go func() {
		h.sem <- struct{}{}
		defer func() { <-h.sem }()
		if err := h.reviewer.Review(ctx, pr); err != nil {
			h.logger.Error("pull request review failed",
				"owner", pr.Owner,
				"repo", pr.Repo,
				"pr", pr.Number,
				"error", err,
			)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
}

func pullRequestFromEvent(e *gogithub.PullRequestEvent) domain.PullRequest {
	return domain.PullRequest{
		Owner:   e.GetRepo().GetOwner().GetLogin(),
		Repo:    e.GetRepo().GetName(),
		Number:  e.GetNumber(),
		BaseRef: e.GetPullRequest().GetBase().GetRef(),
		HeadRef: e.GetPullRequest().GetHead().GetRef(),
		HeadSHA: e.GetPullRequest().GetHead().GetSHA(),
	}
}
