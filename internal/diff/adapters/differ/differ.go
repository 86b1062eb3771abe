// Package differ selects a DiffPort implementation by engine name.
package differ

import (
	"fmt"

	difflibdiff "github.com/nathantilsley/linediff/internal/diff/adapters/difflib_diff"
	linediff "github.com/nathantilsley/linediff/internal/diff/adapters/line_diff"
	"github.com/nathantilsley/linediff/internal/diff/ports"
)

// Engine names accepted by New.
const (
	Myers   = "myers"
	Difflib = "difflib"
)

// New returns the DiffPort for engine. An empty name means Myers.
func New(engine string) (ports.DiffPort, error) {
	switch engine {
	case "", Myers:
		return linediff.New(), nil
	case Difflib:
		return difflibdiff.New(), nil
	default:
		return nil, fmt.Errorf("unknown diff engine %q (want %s or %s)", engine, Myers, Difflib)
	}
}
