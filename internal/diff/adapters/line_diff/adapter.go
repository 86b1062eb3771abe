// Package linediff implements ports.DiffPort with the Myers engine.
package linediff

import (
	"github.com/nathantilsley/linediff/internal/diff/domain"
	"github.com/nathantilsley/linediff/internal/diff/engine"
	"github.com/nathantilsley/linediff/internal/diff/unified"
)

// Adapter implements ports.DiffPort using engine.DiffText and the unified
// renderer.
type Adapter struct{}

// New creates a new engine-backed diff adapter.
func New() *Adapter {
	return &Adapter{}
}

// ComputeDiff diffs the lines of source and target. A shared symbol table in
// opts is reused; otherwise each call gets its own.
func (a *Adapter) ComputeDiff(source, target domain.Document, opts domain.DiffOptions) ([]engine.DiffItem, string) {
	table := opts.Symbols
	if table == nil {
		table = engine.NewSymbolTable()
	}
	script := engine.DiffText(table, source.DiffLines(), target.DiffLines(), opts.Normalization)

	text := unified.String(source.Lines, target.Lines, script, unified.Options{
		ContextSize:      opts.ContextSize,
		SourceLabel:      source.Label,
		TargetLabel:      target.Label,
		IgnoreWhitespace: opts.IgnoreWhitespace,
		SourceNoNewline:  source.NoFinalNewline,
		TargetNoNewline:  target.NoFinalNewline,
	})
	return script, text
}
