// Package engine computes shortest edit scripts between two sequences using
// Myers' O(ND) divide-and-conquer algorithm.
//
// Text is compared line by line: DiffText encodes both sides through a
// SymbolTable so that equal (normalized) lines share an integer code, then
// diffs the codes. Callers that already tokenized their input use
// DiffSequence directly.
//
// The result is an ordered, non-overlapping list of DiffItems whose total
// size is minimal: the number of deleted plus inserted elements equals
// len(A)+len(B)-2*LCS(A,B).
//
// All functions are synchronous and perform no I/O. Applying the same
// Normalization to both sides is the caller's responsibility; encoding the
// two sides differently yields a meaningless script.
package engine

import (
	"fmt"
)

// DiffText diffs linesA against linesB. Both sides are normalized with n and
// encoded through table, which grows as new lines are seen. table must not
// be nil.
func DiffText(table *SymbolTable, linesA, linesB []string, n Normalization) []DiffItem {
	if table == nil {
		panic("engine: DiffText called with nil SymbolTable")
	}
	return DiffSequence(table.Encode(linesA, n), table.Encode(linesB, n))
}

// DiffSequence diffs two pre-encoded sequences.
func DiffSequence(codesA, codesB []int) []DiffItem {
	a := newSequence(codesA)
	b := newSequence(codesB)
	markModified(a, b)
	return buildScript(a, b)
}

// Validate checks that items is a well-formed script for sequences of
// length lenA and lenB: no empty items, ascending and non-overlapping
// runs, and every run within bounds.
func Validate(items []DiffItem, lenA, lenB int) error {
	prevEndA, prevEndB := 0, 0
	for i, it := range items {
		if it.DeletedA < 0 || it.InsertedB < 0 {
			return fmt.Errorf("item[%d]: negative run length", i)
		}
		if it.DeletedA+it.InsertedB == 0 {
			return fmt.Errorf("item[%d]: empty item", i)
		}
		if it.StartA < prevEndA || it.StartB < prevEndB {
			return fmt.Errorf("item[%d]: overlaps previous item", i)
		}
		if it.StartA-prevEndA != it.StartB-prevEndB {
			return fmt.Errorf("item[%d]: unequal gap since previous item (A %d, B %d)", i, it.StartA-prevEndA, it.StartB-prevEndB)
		}
		if i > 0 && it.StartA == prevEndA {
			return fmt.Errorf("item[%d]: adjacent to previous item", i)
		}
		if it.EndA() > lenA || it.EndB() > lenB {
			return fmt.Errorf("item[%d]: out of bounds", i)
		}
		prevEndA, prevEndB = it.EndA(), it.EndB()
	}
	if lenA-prevEndA != lenB-prevEndB {
		return fmt.Errorf("unequal trailing context (A %d, B %d)", lenA-prevEndA, lenB-prevEndB)
	}
	return nil
}
