package partition

import (
	"fmt"
	"io"
	"math/big"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/ugorji/go/codec"

	"github.com/chazu/facepaint/pkg/kernel"
	"github.com/chazu/facepaint/pkg/polygon"
)

// Snapshot is the persistent form of a partition: the original triangle and
// the color sets, with every coordinate written as exact rational text
// ("num/den"). Drawable triangles are rebuilt on restore.
type Snapshot struct {
	Original TriangleRecord `codec:"original" json:"original"`
	Colors   []ColorRecord  `codec:"colors" json:"colors"`
}

// TriangleRecord is an original triangle. Vertices are "x,y,z" strings.
type TriangleRecord struct {
	Vertices [3]string  `codec:"vertices" json:"vertices"`
	Normal   [3]float64 `codec:"normal" json:"normal"`
	Color    uint8      `codec:"color" json:"color"`
}

// ColorRecord is the polygon set of one color.
type ColorRecord struct {
	Color    uint8           `codec:"color" json:"color"`
	Polygons []PolygonRecord `codec:"polygons" json:"polygons"`
}

// PolygonRecord is a polygon-with-holes; points are "x,y" strings.
type PolygonRecord struct {
	Outer []string   `codec:"outer" json:"outer"`
	Holes [][]string `codec:"holes,omitempty" json:"holes,omitempty"`
}

// Snapshot captures the current state.
func (p *Partition) Snapshot() Snapshot {
	p.sync()
	s := Snapshot{Original: TriangleRecordOf(p.original)}
	for _, c := range sortedKeys(p.colors) {
		rec := ColorRecord{Color: uint8(c)}
		for _, poly := range p.colors[c].Polygons {
			pr := PolygonRecord{Outer: ringText(poly.Outer)}
			for _, h := range poly.Holes {
				pr.Holes = append(pr.Holes, ringText(h))
			}
			rec.Polygons = append(rec.Polygons, pr)
		}
		s.Colors = append(s.Colors, rec)
	}
	return s
}

// FromSnapshot restores a partition and retriangulates it.
func FromSnapshot(s Snapshot, opts ...Option) (*Partition, error) {
	tri, err := s.Original.Triangle()
	if err != nil {
		return nil, err
	}
	p, err := newEmpty(tri, opts...)
	if err != nil {
		return nil, err
	}
	for _, rec := range s.Colors {
		c := kernel.ColorID(rec.Color)
		if err := checkColor(c); err != nil {
			return nil, err
		}
		var polys []polygon.WithHoles
		for _, pr := range rec.Polygons {
			outer, err := parseRing(pr.Outer)
			if err != nil {
				return nil, err
			}
			wh := polygon.WithHoles{Outer: outer}
			for _, h := range pr.Holes {
				hole, err := parseRing(h)
				if err != nil {
					return nil, err
				}
				wh.Holes = append(wh.Holes, hole)
			}
			polys = append(polys, wh)
		}
		if len(polys) > 0 {
			p.colors[c] = polygon.NewSet(polys...)
		}
	}
	p.retriangulate()
	return p, p.verifyIfEnabled()
}

// TriangleRecordOf encodes an original triangle.
func TriangleRecordOf(t kernel.Triangle) TriangleRecord {
	rec := TriangleRecord{
		Normal: [3]float64{t.Normal.X, t.Normal.Y, t.Normal.Z},
		Color:  uint8(t.Color),
	}
	for i, v := range t.Vertices {
		rec.Vertices[i] = v.Key()
	}
	return rec
}

// Triangle decodes the record.
func (r TriangleRecord) Triangle() (kernel.Triangle, error) {
	var t kernel.Triangle
	for i, text := range r.Vertices {
		c, err := parseRats(text, 3)
		if err != nil {
			return t, err
		}
		t.Vertices[i] = kernel.NewPoint3(c[0], c[1], c[2])
	}
	t.Normal = v3.Vec{X: r.Normal[0], Y: r.Normal[1], Z: r.Normal[2]}
	t.Color = kernel.ColorID(r.Color)
	return t, nil
}

func ringText(r polygon.Ring) []string {
	out := make([]string, len(r))
	for i, q := range r {
		out[i] = q.Key()
	}
	return out
}

func parseRing(text []string) (polygon.Ring, error) {
	r := make(polygon.Ring, len(text))
	for i, t := range text {
		c, err := parseRats(t, 2)
		if err != nil {
			return nil, err
		}
		r[i] = kernel.NewPoint2(c[0], c[1])
	}
	return r, nil
}

func parseRats(text string, n int) ([]*big.Rat, error) {
	parts := strings.Split(text, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("partition: point %q: want %d coordinates", text, n)
	}
	out := make([]*big.Rat, n)
	for i, s := range parts {
		r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
		if !ok {
			return nil, fmt.Errorf("partition: point %q: bad rational %q", text, s)
		}
		out[i] = r
	}
	return out, nil
}

// jsonHandle is shared; codec handles are safe for concurrent use once
// configured.
var jsonHandle = &codec.JsonHandle{}

// EncodeSnapshot writes s as JSON.
func EncodeSnapshot(w io.Writer, s Snapshot) error {
	if err := codec.NewEncoder(w, jsonHandle).Encode(s); err != nil {
		return fmt.Errorf("partition: encode snapshot: %w", err)
	}
	return nil
}

// DecodeSnapshot reads a snapshot written by EncodeSnapshot.
func DecodeSnapshot(r io.Reader) (Snapshot, error) {
	var s Snapshot
	if err := codec.NewDecoder(r, jsonHandle).Decode(&s); err != nil {
		return s, fmt.Errorf("partition: decode snapshot: %w", err)
	}
	return s, nil
}
