package linediff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathantilsley/linediff/internal/diff/domain"
	"github.com/nathantilsley/linediff/internal/diff/engine"
)

func doc(label string, lines ...string) domain.Document {
	return domain.Document{Label: label, Lines: lines}
}

func TestAdapter_ComputeDiff(t *testing.T) {
	a := New()

	script, text := a.ComputeDiff(
		doc("old", "one", "two"),
		doc("new", "one", "three", "two"),
		domain.DefaultDiffOptions(),
	)
	require.Equal(t, []engine.DiffItem{{StartA: 1, StartB: 1, InsertedB: 1}}, script)
	assert.Equal(t, "--- old\n+++ new\n@@ -1,2 +1,3 @@\n one\n+three\n two\n", text)
}

func TestAdapter_ComputeDiff_Identical(t *testing.T) {
	script, text := New().ComputeDiff(doc("a", "x"), doc("b", "x"), domain.DefaultDiffOptions())
	assert.Empty(t, script)
	assert.Empty(t, text)
}

func TestAdapter_ComputeDiff_FinalNewline(t *testing.T) {
	withNL := domain.NewDocument(domain.DocumentRef{Path: "b"}, []byte("x\ny\n"))
	without := domain.NewDocument(domain.DocumentRef{Path: "a"}, []byte("x\ny"))

	script, text := New().ComputeDiff(without, withNL, domain.DefaultDiffOptions())
	require.Equal(t, []engine.DiffItem{{StartA: 1, StartB: 1, DeletedA: 1, InsertedB: 1}}, script)
	assert.Equal(t, "--- a\n+++ b\n@@ -1,2 +1,2 @@\n x\n-y\n\\ No newline at end of file\n+y\n", text)

	script, text = New().ComputeDiff(without, without, domain.DefaultDiffOptions())
	assert.Empty(t, script)
	assert.Empty(t, text)
}

func TestAdapter_ComputeDiff_SharedSymbols(t *testing.T) {
	table := engine.NewSymbolTable()
	opts := domain.DefaultDiffOptions()
	opts.Symbols = table

	New().ComputeDiff(doc("a", "x", "y"), doc("b", "y", "z"), opts)
	assert.Equal(t, 3, table.Len())
}

func TestAdapter_ComputeDiff_Normalization(t *testing.T) {
	opts := domain.DefaultDiffOptions()
	opts.Normalization = engine.Normalization{TrimEdges: true, FoldCase: true}

	script, text := New().ComputeDiff(doc("a", "Hello "), doc("b", "hello"), opts)
	assert.Empty(t, script)
	assert.Empty(t, text)
}
