package flash

import (
	"golang.org/x/exp/constraints"
)

// ceilDiv will return a/b rounded up
func ceilDiv[T constraints.Integer](a, b T) T {
	return (a + b - 1) / b
}
