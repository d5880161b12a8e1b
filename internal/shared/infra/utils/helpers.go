package utils

import "cmp"

// AtMost recorta v a limit; un limit cero o negativo significa sin tope.
func AtMost[T cmp.Ordered](v, limit T) T {
	var zero T
	if limit > zero && v > limit {
		return limit
	}
	return v
}
