// Package kernel is the exact geometry kernel. Points are arbitrary-precision
// rationals (math/big.Rat) so that every predicate and every constructed
// intersection is exact; float64 shadows of each coordinate are kept only to
// filter predicates and to produce reduced-precision render output.
package kernel

import (
	"errors"
	"fmt"
)

// ColorID indexes a palette entry. Palettes are small (at most 16 entries).
type ColorID uint8

func (c ColorID) String() string {
	return fmt.Sprintf("color#%d", uint8(c))
}

// ErrDegenerateTriangle is returned when a triangle has zero area and no
// supporting plane can be derived from it.
var ErrDegenerateTriangle = errors.New("kernel: degenerate triangle")

// ErrNonFinite is returned when a float input cannot be represented exactly
// (NaN or infinity).
var ErrNonFinite = errors.New("kernel: non-finite coordinate")
