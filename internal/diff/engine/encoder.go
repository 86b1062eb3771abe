package engine

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
)

// Normalization controls how a line's text is canonicalized before it is
// assigned a code. Options are applied in field order.
type Normalization struct {
	TrimEdges          bool // strip leading and trailing whitespace
	CollapseWhitespace bool // replace each internal whitespace run with one space
	FoldCase           bool // Unicode full case folding
}

// SymbolTable maps normalized line text to small integer codes so that equal
// lines compare as equal integers. A table is normally scoped to one diff; a
// caller may share one across a batch to reuse codes between comparisons.
//
// SymbolTable is safe for concurrent use.
type SymbolTable struct {
	mu    sync.Mutex
	codes map[string]int
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{codes: make(map[string]int)}
}

// Len returns the number of distinct normalized lines seen so far.
func (t *SymbolTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.codes)
}

// Encode returns one code per line. Lines whose normalized text was seen
// before (by any Encode call on t) reuse that code; new text gets the next
// unused code, starting at 0.
func (t *SymbolTable) Encode(lines []string, n Normalization) []int {
	if t == nil {
		panic("engine: Encode called with nil SymbolTable")
	}

	var fold cases.Caser
	if n.FoldCase {
		fold = cases.Fold()
	}

	out := make([]int, len(lines))

	t.mu.Lock()
	defer t.mu.Unlock()

	for i, line := range lines {
		key := normalize(line, n, fold)
		code, ok := t.codes[key]
		if !ok {
			code = len(t.codes)
			t.codes[key] = code
		}
		out[i] = code
	}
	return out
}

// normalize applies n to s. fold is only used when n.FoldCase is set.
func normalize(s string, n Normalization, fold cases.Caser) string {
	if n.TrimEdges {
		s = strings.TrimSpace(s)
	}
	if n.CollapseWhitespace {
		s = collapseSpace(s)
	}
	if n.FoldCase {
		s = fold.String(s)
	}
	return s
}

func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
