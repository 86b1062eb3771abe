// Package difflibdiff implements ports.DiffPort with go-difflib's
// SequenceMatcher. Its scripts are not guaranteed minimal but tend to keep
// long unique runs together.
package difflibdiff

import (
	"strconv"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/nathantilsley/linediff/internal/diff/domain"
	"github.com/nathantilsley/linediff/internal/diff/engine"
	"github.com/nathantilsley/linediff/internal/diff/unified"
)

// Adapter implements ports.DiffPort using difflib.SequenceMatcher.
type Adapter struct{}

// New creates a new difflib-backed diff adapter.
func New() *Adapter {
	return &Adapter{}
}

// ComputeDiff matches the normalized lines of source and target and renders
// the result with the same unified writer as the engine adapter.
func (a *Adapter) ComputeDiff(source, target domain.Document, opts domain.DiffOptions) ([]engine.DiffItem, string) {
	table := opts.Symbols
	if table == nil {
		table = engine.NewSymbolTable()
	}
	keysA := keys(table.Encode(source.DiffLines(), opts.Normalization))
	keysB := keys(table.Encode(target.DiffLines(), opts.Normalization))

	script := Script(keysA, keysB)
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

// Script converts SequenceMatcher opcodes for a and b into an edit script.
func Script(a, b []string) []engine.DiffItem {
	var script []engine.DiffItem
	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		script = append(script, engine.DiffItem{
			StartA:    op.I1,
			StartB:    op.J1,
			DeletedA:  op.I2 - op.I1,
			InsertedB: op.J2 - op.J1,
		})
	}
	return script
}

// keys turns codes back into strings, since SequenceMatcher compares text.
func keys(codes []int) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = strconv.Itoa(c)
	}
	return out
}
