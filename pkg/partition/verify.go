package partition

import (
	"math/big"

	pkgerrors "github.com/pkg/errors"

	"github.com/chazu/facepaint/pkg/polygon"
)

// Verify checks the partition invariants: every color set is valid and
// inside the triangle, no two colors overlap and together they cover the
// triangle exactly.
func (p *Partition) Verify() error {
	p.sync()
	ids := sortedKeys(p.colors)
	total := new(big.Rat)
	for i, c := range ids {
		s := p.colors[c]
		if err := polygon.Validate(s); err != nil {
			return pkgerrors.Wrapf(ErrCorruptedGeometry, "face %d color %d: %v", p.id, c, err)
		}
		if polygon.Difference(s, p.bounds).Area().Sign() != 0 {
			return pkgerrors.Wrapf(ErrCorruptedGeometry, "face %d color %d leaves the triangle", p.id, c)
		}
		for _, d := range ids[i+1:] {
			if polygon.Intersect(s, p.colors[d]).Area().Sign() != 0 {
				return pkgerrors.Wrapf(ErrCorruptedGeometry, "face %d colors %d and %d overlap", p.id, c, d)
			}
		}
		total.Add(total, s.Area())
	}
	if want := p.bounds.Area(); total.Cmp(want) != 0 {
		return pkgerrors.Wrapf(ErrCorruptedGeometry, "face %d colors cover %s of %s", p.id, total.RatString(), want.RatString())
	}
	return nil
}
