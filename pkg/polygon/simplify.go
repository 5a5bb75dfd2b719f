package polygon

import "github.com/chazu/facepaint/pkg/kernel"

// Simplify removes every vertex that is collinear with both of its
// neighbours, repeating until nothing changes. Rings that collapse are
// dropped, and an outer ring that collapses takes its holes with it. The
// boolean reports whether anything was removed. Simplify is idempotent.
func Simplify(s Set) (Set, bool) {
	return SimplifyKeeping(s, nil)
}

// SimplifyKeeping is Simplify that never removes a collinear vertex for
// which keep returns true. Duplicate vertices are always removed.
func SimplifyKeeping(s Set, keep func(kernel.Point2) bool) (Set, bool) {
	changed := false
	var out []WithHoles
	for _, p := range s.Polygons {
		outer, c := simplifyRing(p.Outer, keep)
		changed = changed || c
		if len(outer) < 3 {
			changed = true
			continue
		}
		np := WithHoles{Outer: outer}
		for _, h := range p.Holes {
			hs, c := simplifyRing(h, keep)
			changed = changed || c
			if len(hs) < 3 {
				changed = true
				continue
			}
			np.Holes = append(np.Holes, hs)
		}
		out = append(out, np)
	}
	return Set{Polygons: out}, changed
}

func simplifyRing(r Ring, keep func(kernel.Point2) bool) (Ring, bool) {
	out := r.Clone()
	changed := false
	for {
		removed := false
		for i := 0; len(out) >= 3 && i < len(out); {
			n := len(out)
			prev, cur, next := out[(i+n-1)%n], out[i], out[(i+1)%n]
			if cur.Equal(prev) || (kernel.Orient2D(prev, cur, next) == 0 && (keep == nil || !keep(cur))) {
				out = append(out[:i], out[i+1:]...)
				removed = true
				continue
			}
			i++
		}
		if !removed {
			break
		}
		changed = true
	}
	return out, changed
}
