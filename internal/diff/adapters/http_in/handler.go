// Package httpin exposes the diff use case as a JSON HTTP API.
package httpin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/nathantilsley/linediff/api"
	"github.com/nathantilsley/linediff/internal/diff/domain"
	"github.com/nathantilsley/linediff/internal/diff/ports"
)

// RequestIDHeader carries the id assigned to every request.
const RequestIDHeader = "X-Request-ID"

// DefaultMaxBodyBytes bounds a POST /diff body when no limit is configured.
const DefaultMaxBodyBytes = 10 << 20

const maxConcurrentDiffs = 8

// Handler serves POST /diff and GET /compare.
type Handler struct {
	diffs        ports.DiffUseCase
	defaults     domain.DiffOptions
	maxBodyBytes int64
	logger       *slog.Logger
	sem          chan struct{}
}

// NewHandler creates a handler. defaults fill in whatever a request leaves
// unset; maxBodyBytes of zero or less means DefaultMaxBodyBytes.
func NewHandler(diffs ports.DiffUseCase, defaults domain.DiffOptions, maxBodyBytes int64, logger *slog.Logger) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{
		diffs:        diffs,
		defaults:     defaults,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
		sem:          make(chan struct{}, maxConcurrentDiffs),
	}
}

// Register adds the handler's routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /diff", h.handleDiff)
	mux.HandleFunc("GET /compare", h.handleCompare)
}

func (h *Handler) handleDiff(w http.ResponseWriter, r *http.Request) {
	var req api.DiffRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		h.writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	opts, err := h.options(req.Options)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if !h.acquire(w, r) {
		return
	}
	defer h.release()

	result := h.diffs.Compare(r.Context(), "", toDocument(req.Source), toDocument(req.Target), opts)
	h.writeJSON(w, r, http.StatusOK, toResponse(result))
}

func (h *Handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path := q.Get("path")
	if path == "" {
		h.writeError(w, r, http.StatusBadRequest, "missing path parameter")
		return
	}

	if !h.acquire(w, r) {
		return
	}
	defer h.release()

	result := h.diffs.Execute(r.Context(), domain.DiffRequest{
		Name:    path,
		Source:  domain.DocumentRef{Path: path, Ref: q.Get("base")},
		Target:  domain.DocumentRef{Path: path, Ref: q.Get("head")},
		Options: h.defaults,
	})
	if result.Status == domain.StatusError {
		h.writeError(w, r, http.StatusUnprocessableEntity, result.Summary)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toResponse(result))
}

// acquire waits for a diff slot. It answers 503 and returns false when the
// client goes away first.
func (h *Handler) acquire(w http.ResponseWriter, r *http.Request) bool {
	select {
	case h.sem <- struct{}{}:
		return true
	case <-r.Context().Done():
		h.writeError(w, r, http.StatusServiceUnavailable, "request cancelled while waiting for a diff slot")
		return false
	}
}

func (h *Handler) release() { <-h.sem }

func (h *Handler) options(o *api.DiffOptions) (domain.DiffOptions, error) {
	opts := h.defaults
	if o == nil {
		return opts, nil
	}
	if o.Context != nil {
		if *o.Context < 0 {
			return domain.DiffOptions{}, fmt.Errorf("context must not be negative, got %d", *o.Context)
		}
		opts.ContextSize = *o.Context
	}
	setBool(&opts.Normalization.TrimEdges, o.TrimEdges)
	setBool(&opts.Normalization.CollapseWhitespace, o.CollapseWhitespace)
	setBool(&opts.Normalization.FoldCase, o.FoldCase)
	setBool(&opts.IgnoreWhitespace, o.IgnoreWhitespace)
	return opts, nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func toDocument(d api.Document) domain.Document {
	ref := domain.DocumentRef{Path: d.Label}
	if d.Binary {
		return domain.NewBinaryDocument(ref, []byte(d.Content))
	}
	return domain.NewDocument(ref, []byte(d.Content))
}

func toResponse(r domain.DiffResult) api.DiffResponse {
	items := make([]api.Item, len(r.Items))
	for i, it := range r.Items {
		items[i] = api.Item{
			StartA:    it.StartA,
			StartB:    it.StartB,
			DeletedA:  it.DeletedA,
			InsertedB: it.InsertedB,
		}
	}
	return api.DiffResponse{
		Name:    r.Name,
		Status:  r.Status.String(),
		Summary: r.Summary,
		Items:   items,
		Stats: api.Stats{
			Items:    r.Stats.Items,
			Deleted:  r.Stats.Deleted,
			Inserted: r.Stats.Inserted,
		},
		Unified: r.UnifiedDiff,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("writing response failed", "requestID", RequestID(r.Context()), "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.logger.Info("request failed",
		"requestID", RequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"error", msg,
	)
	h.writeJSON(w, r, status, api.ErrorResponse{Error: msg, RequestID: RequestID(r.Context())})
}

type requestIDKey struct{}

// WithRequestID assigns every request an id, keeping one the client sent,
// and echoes it in the response header.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// RequestID returns the id WithRequestID stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
