package curve

import "sort"

// bracket returns indices of the two adjacent nodes around x.
// Outside the node range it returns the nearest boundary pair, so callers
// extrapolate with the first or last segment.
func bracket(xs []float64, x float64) (int, int) {
	if len(xs) < 2 {
		return 0, 0
	}

	// First index with xs[i] >= x.
	idx := sort.Search(len(xs), func(i int) bool {
		return xs[i] >= x
	})

	if idx <= 0 {
		return 0, 1
	}
	if idx >= len(xs) {
		return len(xs) - 2, len(xs) - 1
	}
	return idx - 1, idx
}
