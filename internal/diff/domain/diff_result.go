package domain

import (
	"fmt"

	"github.com/nathantilsley/linediff/internal/diff/engine"
)

// Status represents the outcome of a comparison.
type Status int

const (
	StatusSuccess Status = iota // Documents are identical
	StatusChanges               // Differences detected
	StatusError                 // Comparison could not be completed
)

// String returns the string representation of the Status.
// Implements the Stringer interface.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "Unknown"
	}
	return statusNames[s]
}

var statusNames = [...]string{
	StatusSuccess: "Success",
	StatusChanges: "Changes",
	StatusError:   "Error",
}

// Stats totals an edit script.
type Stats struct {
	Items    int `json:"items"`
	Deleted  int `json:"deleted"`
	Inserted int `json:"inserted"`
}

// NewStats sums the runs of script.
func NewStats(script []engine.DiffItem) Stats {
	s := Stats{Items: len(script)}
	for _, it := range script {
		s.Deleted += it.DeletedA
		s.Inserted += it.InsertedB
	}
	return s
}

// DiffResult is the outcome of one comparison.
type DiffResult struct {
	Name        string
	SourceLabel string
	TargetLabel string
	Status      Status
	Items       []engine.DiffItem
	Stats       Stats
	UnifiedDiff string // Rendered unified diff, empty when identical
	Summary     string // Human-readable summary (or error message if Status == StatusError)
}

// CountByStatus returns counts of results grouped by status.
func CountByStatus(results []DiffResult) (success, changes, errors int) {
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			success++
		case StatusChanges:
			changes++
		case StatusError:
			errors++
		}
	}
	return
}

// DiffLabel creates an identifier for one side of a comparison.
// Example: "deploy/values.yaml (main)"
func DiffLabel(path, ref string) string {
	if ref == "" {
		return path
	}
	return path + " (" + ref + ")"
}

// Summarize describes s in one line.
// Example: "2 changes: 3 deletions(-), 1 insertion(+)"
func Summarize(s Stats) string {
	if s.Items == 0 {
		return "no differences"
	}
	return fmt.Sprintf("%d %s: %d %s(-), %d %s(+)",
		s.Items, plural(s.Items, "change", "changes"),
		s.Deleted, plural(s.Deleted, "deletion", "deletions"),
		s.Inserted, plural(s.Inserted, "insertion", "insertions"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// ExitCode maps results to the diff(1) convention: 0 when every comparison
// is identical, 1 when any differs, 2 when any failed.
func ExitCode(results []DiffResult) int {
	_, changes, errs := CountByStatus(results)
	switch {
	case errs > 0:
		return 2
	case changes > 0:
		return 1
	default:
		return 0
	}
}
