// Package position implements the fractional sort keys used to order work
// items on a board.
//
// New items go to the tail at max+Gap. Moving an item between two neighbours
// takes the midpoint, so a drag touches one document. Repeated midpoints
// shrink the gap; once it drops below MinGap the caller renumbers the whole
// project to Gap, 2*Gap, ... and retries.
package position

import "math"

const (
	Gap    = 1000.0
	MinGap = 1e-6
)

// Next returns the tail position after max. An empty project starts at Gap.
func Next(max float64, hasAny bool) float64 {
	if !hasAny {
		return Gap
	}
	return max + Gap
}

// Between returns a position strictly between before and after. A nil
// neighbour means "open end". ok is false when the neighbours are too close
// (or out of order) and the project needs a rebalance first.
func Between(before, after *float64) (pos float64, ok bool) {
	switch {
	case before == nil && after == nil:
		return Gap, true
	case before == nil:
		return *after - Gap, true
	case after == nil:
		return *before + Gap, true
	}
	if *after-*before < MinGap {
		return 0, false
	}
	mid := *before + (*after-*before)/2
	if mid <= *before || mid >= *after || math.IsNaN(mid) {
		return 0, false
	}
	return mid, true
}

// Sequence returns the rebalanced positions for n items.
func Sequence(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i+1) * Gap
	}
	return out
}
