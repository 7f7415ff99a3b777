package ice

import "golang.org/x/exp/constraints"

// clamp constrains v to [lo, hi]. Same shape as WingFC's helpers.go
// constrain(), generalized with golang.org/x/exp/constraints the way
// WingFC's own main.go already generalizes mapRange.
func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
