package internal

import "golang.org/x/exp/constraints"

// Between reports lo <= v && v <= hi.
func Between[T constraints.Integer](v, lo, hi T) bool {
	return v >= lo && v <= hi
}
