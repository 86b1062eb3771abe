package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"

	"github.com/nathantilsley/linediff/internal/diff/engine"
)

// DocumentRef locates a document in a source. Ref is empty for local files
// and names a branch, tag or commit for versioned sources.
type DocumentRef struct {
	Path string `json:"path" yaml:"path"`
	Ref  string `json:"ref,omitempty" yaml:"ref,omitempty"`
}

// String returns the ref's label, see DiffLabel.
func (r DocumentRef) String() string {
	return DiffLabel(r.Path, r.Ref)
}

// Document is one side of a comparison, already split into lines.
type Document struct {
	Ref     DocumentRef
	Label   string
	Lines   []string
	Binary  bool
	Missing bool   // the document does not exist at Ref (new or deleted file)
	Digest  string // sha256 of the raw content, set for binary documents
	// NoFinalNewline is set when the content does not end with "\n".
	NoFinalNewline bool
}

// noNewlineMark is appended to an unterminated last line before encoding so
// that "a" and "a\n" compare unequal. Text documents never contain NUL.
const noNewlineMark = "\x00"

// DiffLines returns the lines to encode for comparison: Lines, with the last
// one marked when it has no newline.
func (d Document) DiffLines() []string {
	if !d.NoFinalNewline || len(d.Lines) == 0 {
		return d.Lines
	}
	lines := slices.Clone(d.Lines)
	lines[len(lines)-1] += noNewlineMark
	return lines
}

// binarySniffLen is how much of a document is scanned for NUL bytes.
const binarySniffLen = 8000

// IsBinary reports whether content looks binary: a NUL byte within the
// first few kilobytes, as git does.
func IsBinary(content []byte) bool {
	if len(content) > binarySniffLen {
		content = content[:binarySniffLen]
	}
	return bytes.IndexByte(content, 0) >= 0
}

// SplitLines splits content on "\n". A trailing newline does not start an
// empty last line, and a "\r" before each "\n" is dropped. Whether the
// trailing newline was there is kept in Document.NoFinalNewline.
func SplitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	s := strings.TrimSuffix(string(content), "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// NewDocument builds a Document from raw content.
func NewDocument(ref DocumentRef, content []byte) Document {
	if IsBinary(content) {
		return NewBinaryDocument(ref, content)
	}
	return Document{
		Ref:            ref,
		Label:          ref.String(),
		Lines:          SplitLines(content),
		NoFinalNewline: len(content) > 0 && content[len(content)-1] != '\n',
	}
}

// NewBinaryDocument builds a binary Document. Only its digest is kept.
func NewBinaryDocument(ref DocumentRef, content []byte) Document {
	sum := sha256.Sum256(content)
	return Document{
		Ref:    ref,
		Label:  ref.String(),
		Binary: true,
		Digest: hex.EncodeToString(sum[:]),
	}
}

// MissingDocument is the empty stand-in for a document that does not exist.
func MissingDocument(ref DocumentRef) Document {
	return Document{Ref: ref, Label: ref.String(), Missing: true}
}

// DiffOptions controls one comparison.
type DiffOptions struct {
	Normalization engine.Normalization
	ContextSize   int
	// IgnoreWhitespace renders context lines from the target side. It is
	// implied by any whitespace Normalization.
	IgnoreWhitespace bool
	// Symbols, when set, is shared with other comparisons. A nil table means
	// a fresh one per comparison.
	Symbols *engine.SymbolTable
}

// DefaultDiffOptions returns options with the default context size and no
// normalization.
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{ContextSize: 3}
}

// DiffRequest names a comparison between two documents.
type DiffRequest struct {
	Name    string
	Source  DocumentRef
	Target  DocumentRef
	Options DiffOptions
	// InheritOptions makes a batch run the request with the batch's Options
	// in place of its own.
	InheritOptions bool
}

// Batch is a set of comparisons. With ShareSymbols every request encodes
// lines through the same table.
type Batch struct {
	Requests     []DiffRequest
	ShareSymbols bool
	Options      DiffOptions
}
