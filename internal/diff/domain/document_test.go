package domain

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"testing"
)

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"empty", "", nil},
		{"no trailing newline", "a\nb", []string{"a", "b"}},
		{"trailing newline", "a\nb\n", []string{"a", "b"}},
		{"blank last line kept", "a\n\n", []string{"a", ""}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"single newline", "\n", []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitLines([]byte(tt.content))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitLines(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestNewDocument(t *testing.T) {
	ref := DocumentRef{Path: "img.png", Ref: "main"}

	doc := NewDocument(ref, []byte("\x89PNG\x00\x01"))
	if !doc.Binary || doc.Lines != nil {
		t.Errorf("binary content: got Binary=%v Lines=%q", doc.Binary, doc.Lines)
	}
	if doc.Label != "img.png (main)" {
		t.Errorf("Label = %q", doc.Label)
	}

	doc = NewDocument(DocumentRef{Path: "a.txt"}, []byte("x\ny\n"))
	if doc.Binary || len(doc.Lines) != 2 {
		t.Errorf("text content: got Binary=%v Lines=%q", doc.Binary, doc.Lines)
	}

	missing := MissingDocument(ref)
	if !missing.Missing || missing.Lines != nil {
		t.Errorf("MissingDocument() = %+v", missing)
	}
}

func TestNewDocument_FinalNewline(t *testing.T) {
	tests := []struct {
		content       string
		wantNoNewline bool
		wantDiffLines []string
	}{
		{content: "", wantNoNewline: false, wantDiffLines: nil},
		{content: "a\n", wantNoNewline: false, wantDiffLines: []string{"a"}},
		{content: "a", wantNoNewline: true, wantDiffLines: []string{"a\x00"}},
		{content: "a\nb", wantNoNewline: true, wantDiffLines: []string{"a", "b\x00"}},
	}
	for _, tt := range tests {
		doc := NewDocument(DocumentRef{Path: "f"}, []byte(tt.content))
		if doc.NoFinalNewline != tt.wantNoNewline {
			t.Errorf("NewDocument(%q).NoFinalNewline = %v, want %v", tt.content, doc.NoFinalNewline, tt.wantNoNewline)
		}
		if got := doc.DiffLines(); !slices.Equal(got, tt.wantDiffLines) {
			t.Errorf("NewDocument(%q).DiffLines() = %q, want %q", tt.content, got, tt.wantDiffLines)
		}
		if len(doc.Lines) > 0 && strings.Contains(doc.Lines[len(doc.Lines)-1], "\x00") {
			t.Errorf("NewDocument(%q).Lines carries the comparison mark", tt.content)
		}
	}
}

func TestIsNotFound(t *testing.T) {
	err := NewNotFoundError("charts/app/values.yaml", "main")
	if !IsNotFound(err) {
		t.Error("IsNotFound(NotFoundError) = false")
	}
	if !IsNotFound(fmt.Errorf("fetching source: %w", err)) {
		t.Error("IsNotFound(wrapped) = false")
	}
	if IsNotFound(errors.New("boom")) {
		t.Error("IsNotFound(other) = true")
	}
	if got := err.Error(); got != "charts/app/values.yaml: not found at main" {
		t.Errorf("Error() = %q", got)
	}
}

func TestBatch_WithRefs(t *testing.T) {
	b := Batch{Requests: []DiffRequest{
		{Source: DocumentRef{Path: "a"}, Target: DocumentRef{Path: "a"}},
		{Source: DocumentRef{Path: "b", Ref: "v1"}, Target: DocumentRef{Path: "b"}},
	}}

	got := b.WithRefs("main", "feature")
	if got.Requests[0].Source.Ref != "main" || got.Requests[0].Target.Ref != "feature" {
		t.Errorf("first request refs = %q, %q", got.Requests[0].Source.Ref, got.Requests[0].Target.Ref)
	}
	if got.Requests[1].Source.Ref != "v1" {
		t.Errorf("explicit ref overwritten: %q", got.Requests[1].Source.Ref)
	}
	if b.Requests[0].Source.Ref != "" {
		t.Error("WithRefs modified the original batch")
	}
}
