package engine

import (
	"errors"
	"sync"
)

// ErrNoMiddleSnake is the panic value raised when the middle-snake search
// exhausts its distance bound. It indicates a defect in the engine and is
// never expected for finite inputs.
var ErrNoMiddleSnake = errors.New("engine: no middle snake found within distance bound")

// sequence is one side of a comparison. modified has the same length as data.
type sequence struct {
	data     []int
	modified []bool
}

func newSequence(data []int) sequence {
	return sequence{data: data, modified: make([]bool, len(data))}
}

// span is a pending sub-problem [lowerA,upperA) x [lowerB,upperB).
type span struct {
	lowerA, upperA int
	lowerB, upperB int
}

// markModified sets the modified flags of a and b so that the unflagged
// positions form a longest common subsequence. Sub-problems are kept on an
// explicit stack, so scattered inputs cannot exhaust the goroutine stack.
func markModified(a, b sequence) {
	s := getScratch()
	defer putScratch(s)

	stack := []span{{lowerA: 0, upperA: len(a.data), lowerB: 0, upperB: len(b.data)}}
	for len(stack) > 0 {
		r := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		// Common prefix and suffix never participate in a change.
		for r.lowerA < r.upperA && r.lowerB < r.upperB && a.data[r.lowerA] == b.data[r.lowerB] {
			r.lowerA++
			r.lowerB++
		}
		for r.lowerA < r.upperA && r.lowerB < r.upperB && a.data[r.upperA-1] == b.data[r.upperB-1] {
			r.upperA--
			r.upperB--
		}

		switch {
		case r.lowerA == r.upperA:
			for i := r.lowerB; i < r.upperB; i++ {
				b.modified[i] = true
			}
		case r.lowerB == r.upperB:
			for i := r.lowerA; i < r.upperA; i++ {
				a.modified[i] = true
			}
		default:
			x, y := middleSnake(a.data, b.data, r, s)
			stack = append(stack,
				span{lowerA: x, upperA: r.upperA, lowerB: y, upperB: r.upperB},
				span{lowerA: r.lowerA, upperA: x, lowerB: r.lowerB, upperB: y},
			)
		}
	}
}

// middleSnake returns a point (x, y) on a shortest edit path through r.
// Both ranges of r must be non-empty.
//
// The forward search runs from (lowerA, lowerB) along diagonals centered on
// downK, the backward search from (upperA, upperB) along diagonals centered on
// upK. down[off+k] and up[off+k] hold the furthest x reached on diagonal k.
func middleSnake(a, b []int, r span, s *scratch) (int, int) {
	sizeA := r.upperA - r.lowerA
	sizeB := r.upperB - r.lowerB
	vmax := sizeA + sizeB + 1
	down, up := s.vectors(2*vmax + 2)

	downK := r.lowerA - r.lowerB
	upK := r.upperA - r.upperB
	oddDelta := (sizeA-sizeB)&1 != 0
	downOff := vmax - downK
	upOff := vmax - upK
	maxD := (sizeA+sizeB)/2 + 1

	down[downOff+downK+1] = r.lowerA
	up[upOff+upK-1] = r.upperA

	for d := 0; d <= maxD; d++ {
		for k := downK - d; k <= downK+d; k += 2 {
			var x int
			if k == downK-d {
				x = down[downOff+k+1] // down
			} else {
				x = down[downOff+k-1] + 1 // right
				if k < downK+d && down[downOff+k+1] >= x {
					x = down[downOff+k+1] // down
				}
			}
			y := x - k
			for x < r.upperA && y < r.upperB && a[x] == b[y] {
				x++
				y++
			}
			down[downOff+k] = x

			if oddDelta && upK-d < k && k < upK+d && up[upOff+k] <= down[downOff+k] {
				return down[downOff+k], down[downOff+k] - k
			}
		}

		for k := upK - d; k <= upK+d; k += 2 {
			var x int
			if k == upK+d {
				x = up[upOff+k-1] // up
			} else {
				x = up[upOff+k+1] - 1 // left
				if k > upK-d && up[upOff+k-1] < x {
					x = up[upOff+k-1] // up
				}
			}
			y := x - k
			for x > r.lowerA && y > r.lowerB && a[x-1] == b[y-1] {
				x--
				y--
			}
			up[upOff+k] = x

			if !oddDelta && downK-d <= k && k <= downK+d && up[upOff+k] <= down[downOff+k] {
				return down[downOff+k], down[downOff+k] - k
			}
		}
	}

	panic(ErrNoMiddleSnake)
}

// maxPooledVector bounds the vectors kept in scratchPool so one huge diff
// does not pin its buffers for the life of the process.
const maxPooledVector = 1 << 20

// scratch holds the diagonal vectors reused across the sub-problems of one
// markModified call.
type scratch struct {
	down, up []int
}

var scratchPool = sync.Pool{
	New: func() any { return new(scratch) },
}

func getScratch() *scratch {
	return scratchPool.Get().(*scratch)
}

func putScratch(s *scratch) {
	if cap(s.down) > maxPooledVector {
		return
	}
	scratchPool.Put(s)
}

// vectors returns zeroed down and up vectors of length n. Values left by an
// earlier search are cleared, never reused.
func (s *scratch) vectors(n int) (down, up []int) {
	if cap(s.down) < n {
		s.down = make([]int, n)
		s.up = make([]int, n)
	}
	down, up = s.down[:n], s.up[:n]
	clear(down)
	clear(up)
	return down, up
}
