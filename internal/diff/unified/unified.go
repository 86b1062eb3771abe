// Package unified renders edit scripts from the engine package as unified
// diff text.
package unified

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/nathantilsley/linediff/internal/diff/engine"
)

// DefaultContext is the number of unchanged lines shown around each change
// by DefaultOptions.
const DefaultContext = 3

// NoNewlineMarker follows the last line of a side that does not end with a
// newline.
const NoNewlineMarker = `\ No newline at end of file`

// Options controls rendering.
type Options struct {
	// ContextSize is the number of unchanged lines around each change.
	// Negative values are treated as 0.
	ContextSize int

	// SourceLabel and TargetLabel name the two sides in the "---" and "+++"
	// header lines. The header is omitted when both are empty.
	SourceLabel string
	TargetLabel string

	// IgnoreWhitespace takes context lines from B instead of A. Set it when
	// the script was computed with a Normalization, since lines that
	// compared equal may differ textually.
	IgnoreWhitespace bool

	SourceBinary bool
	TargetBinary bool

	// SourceNoNewline and TargetNoNewline mark a side whose last line has no
	// trailing newline.
	SourceNoNewline bool
	TargetNoNewline bool
}

// DefaultOptions returns Options with DefaultContext lines of context.
func DefaultOptions() Options {
	return Options{ContextSize: DefaultContext}
}

// Write renders script, computed from linesA and linesB, to w. An empty
// script writes nothing unless both sides are binary.
func Write(w io.Writer, linesA, linesB []string, script []engine.DiffItem, opts Options) error {
	p := &printer{w: bufio.NewWriter(w)}

	switch {
	case opts.SourceBinary && opts.TargetBinary:
		p.line("", "Binary files differ")
	case len(script) == 0:
		return nil
	default:
		if opts.SourceLabel != "" || opts.TargetLabel != "" {
			p.line("--- ", opts.SourceLabel)
			p.line("+++ ", opts.TargetLabel)
		}
		if len(linesA) == 0 {
			p.header(0, 0, 0, len(linesB))
			for i, l := range linesB {
				p.line("+", l)
				p.eof(i, len(linesB), opts.TargetNoNewline)
			}
		} else {
			r := renderer{p: p, a: linesA, b: linesB, script: script, opts: opts}
			r.hunks()
		}
	}

	if p.err != nil {
		return p.err
	}
	return p.w.Flush()
}

// String is Write to a string.
func String(linesA, linesB []string, script []engine.DiffItem, opts Options) string {
	var sb strings.Builder
	_ = Write(&sb, linesA, linesB, script, opts) // strings.Builder never fails
	return sb.String()
}

// printer writes lines and remembers the first error.
type printer struct {
	w   *bufio.Writer
	err error
}

func (p *printer) line(prefix, text string) {
	if p.err != nil {
		return
	}
	if _, err := p.w.WriteString(prefix); err != nil {
		p.err = err
		return
	}
	if _, err := p.w.WriteString(text); err != nil {
		p.err = err
		return
	}
	p.err = p.w.WriteByte('\n')
}

// eof writes NoNewlineMarker after line i of n when that is the last line
// of a side without a trailing newline.
func (p *printer) eof(i, n int, noNewline bool) {
	if noNewline && i == n-1 {
		p.line("", NoNewlineMarker)
	}
}

// header writes "@@ -s,c +s,c @@" for the 0-based ranges [startA, startA+countA)
// and [startB, startB+countB). An empty range reports the line before it.
func (p *printer) header(startA, countA, startB, countB int) {
	p.line("", "@@ -"+formatRange(startA, countA)+" +"+formatRange(startB, countB)+" @@")
}

func formatRange(start, count int) string {
	if count > 0 {
		start++
	}
	return strconv.Itoa(start) + "," + strconv.Itoa(count)
}

type renderer struct {
	p      *printer
	a, b   []string
	script []engine.DiffItem
	opts   Options
}

// hunks groups items whose unchanged gap is at most twice the context size
// and writes one hunk per group.
func (r *renderer) hunks() {
	ctx := max(r.opts.ContextSize, 0)

	for first := 0; first < len(r.script); {
		last := first
		for last+1 < len(r.script) && r.script[last+1].StartA-r.script[last].EndA() <= 2*ctx {
			last++
		}

		lead := min(ctx, r.script[first].StartA)
		if first > 0 {
			lead = min(ctx, r.script[first].StartA-r.script[first-1].EndA())
		}
		trail := min(ctx, len(r.a)-r.script[last].EndA())
		if last+1 < len(r.script) {
			trail = min(ctx, r.script[last+1].StartA-r.script[last].EndA())
		}

		r.hunk(r.script[first:last+1], lead, trail)
		first = last + 1
	}
}

func (r *renderer) hunk(items []engine.DiffItem, lead, trail int) {
	startA := items[0].StartA - lead
	startB := items[0].StartB - lead
	endA := items[len(items)-1].EndA() + trail
	endB := items[len(items)-1].EndB() + trail
	r.p.header(startA, endA-startA, startB, endB-startB)

	posA, posB := startA, startB
	for _, it := range items {
		r.context(posA, posB, it.StartA-posA)
		for i := it.StartA; i < it.EndA(); i++ {
			r.p.line("-", r.a[i])
			r.p.eof(i, len(r.a), r.opts.SourceNoNewline)
		}
		for i := it.StartB; i < it.EndB(); i++ {
			r.p.line("+", r.b[i])
			r.p.eof(i, len(r.b), r.opts.TargetNoNewline)
		}
		posA, posB = it.EndA(), it.EndB()
	}
	r.context(posA, posB, trail)
}

// context writes n unchanged lines starting at posA in A (posB in B).
func (r *renderer) context(posA, posB, n int) {
	for i := 0; i < n; i++ {
		if r.opts.IgnoreWhitespace {
			r.p.line(" ", r.b[posB+i])
			r.p.eof(posB+i, len(r.b), r.opts.TargetNoNewline)
		} else {
			r.p.line(" ", r.a[posA+i])
			r.p.eof(posA+i, len(r.a), r.opts.SourceNoNewline)
		}
	}
}
