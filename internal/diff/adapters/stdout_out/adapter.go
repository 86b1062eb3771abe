// Package stdoutout writes results to a terminal the way diff(1) does,
// optionally colored.
package stdoutout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/nathantilsley/linediff/internal/diff/domain"
)

// ColorMode selects when output is colored.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode validates a -color flag value.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(s)); m {
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	default:
		return "", fmt.Errorf("invalid color mode %q (must be auto, always or never)", s)
	}
}

// Adapter implements ports.ReportingPort. Diffs go to out, failures to errOut.
type Adapter struct {
	out    io.Writer
	errOut io.Writer

	header *color.Color
	hunk   *color.Color
	del    *color.Color
	ins    *color.Color
	fail   *color.Color
}

// New creates a terminal reporter. In ColorAuto mode output is colored when
// out is a terminal and NO_COLOR is unset.
func New(out, errOut io.Writer, mode ColorMode) *Adapter {
	a := &Adapter{
		out:    out,
		errOut: errOut,
		header: color.New(color.Bold),
		hunk:   color.New(color.FgCyan),
		del:    color.New(color.FgRed),
		ins:    color.New(color.FgGreen),
		fail:   color.New(color.FgRed, color.Bold),
	}

	enabled := mode == ColorAlways || (mode == ColorAuto && isTerminal(out) && os.Getenv("NO_COLOR") == "")
	for _, c := range []*color.Color{a.header, a.hunk, a.del, a.ins, a.fail} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return a
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// PostResult writes every changed result's diff and every failure.
// Identical results print nothing.
func (a *Adapter) PostResult(_ context.Context, results []domain.DiffResult) error {
	for _, r := range results {
		switch r.Status {
		case domain.StatusError:
			if _, err := a.fail.Fprintf(a.errOut, "%s: %s\n", r.Name, r.Summary); err != nil {
				return fmt.Errorf("writing error for %s: %w", r.Name, err)
			}
		case domain.StatusChanges:
			if err := a.writeDiff(r.UnifiedDiff); err != nil {
				return fmt.Errorf("writing diff for %s: %w", r.Name, err)
			}
		case domain.StatusSuccess:
		}
	}
	return nil
}

func (a *Adapter) writeDiff(text string) error {
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		var err error
		switch {
		case strings.HasPrefix(line, "--- "), strings.HasPrefix(line, "+++ "):
			_, err = a.header.Fprint(a.out, line)
		case strings.HasPrefix(line, "@@"):
			_, err = a.hunk.Fprint(a.out, line)
		case strings.HasPrefix(line, "-"):
			_, err = a.del.Fprint(a.out, line)
		case strings.HasPrefix(line, "+"):
			_, err = a.ins.Fprint(a.out, line)
		default:
			_, err = io.WriteString(a.out, line)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
