package engine

// DiffItem is one edit: DeletedA elements are removed from A starting at
// StartA, and InsertedB elements of B starting at StartB take their place.
// DeletedA+InsertedB is always positive.
type DiffItem struct {
	StartA    int `json:"startA"`
	StartB    int `json:"startB"`
	DeletedA  int `json:"deletedA"`
	InsertedB int `json:"insertedB"`
}

// EndA returns the position in A just past the deleted run.
func (d DiffItem) EndA() int { return d.StartA + d.DeletedA }

// EndB returns the position in B just past the inserted run.
func (d DiffItem) EndB() int { return d.StartB + d.InsertedB }

// buildScript condenses the modified flags of a and b into ordered items.
func buildScript(a, b sequence) []DiffItem {
	lenA, lenB := len(a.modified), len(b.modified)
	var items []DiffItem

	lineA, lineB := 0, 0
	for lineA < lenA || lineB < lenB {
		if lineA < lenA && !a.modified[lineA] && lineB < lenB && !b.modified[lineB] {
			// equal pair
			lineA++
			lineB++
			continue
		}

		startA, startB := lineA, lineB
		for lineA < lenA && (lineB >= lenB || a.modified[lineA]) {
			lineA++
		}
		for lineB < lenB && (lineA >= lenA || b.modified[lineB]) {
			lineB++
		}

		if startA < lineA || startB < lineB {
			items = append(items, DiffItem{
				StartA:    startA,
				StartB:    startB,
				DeletedA:  lineA - startA,
				InsertedB: lineB - startB,
			})
		}
	}
	return items
}
