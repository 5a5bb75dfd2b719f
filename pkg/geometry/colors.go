package geometry

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/chazu/facepaint/pkg/kernel"
	"github.com/chazu/facepaint/pkg/partition"
)

// UsedColors returns every color id present on the model, ascending.
func (g *Geometry) UsedColors() []kernel.ColorID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.usedColors()
}

func (g *Geometry) usedColors() []kernel.ColorID {
	used := make(map[kernel.ColorID]bool)
	for f := range g.base {
		for _, c := range g.colorsOf(f) {
			used[c] = true
		}
	}
	ids := lo.Keys(used)
	slices.Sort(ids)
	return ids
}

// ReplaceColors renames color ids on every face. Ids mapped onto the same
// target merge.
func (g *Geometry) ReplaceColors(remap map[kernel.ColorID]kernel.ColorID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, to := range remap {
		if err := g.checkColor(to); err != nil {
			return err
		}
	}
	for f, c := range g.base {
		if to, ok := remap[c]; ok {
			g.base[f] = to
		}
	}
	for _, f := range lo.Keys(g.partitions) {
		if err := g.partitions[f].ChangeColorIDs(remap); err != nil {
			return fmt.Errorf("geometry: face %d: %w", f, err)
		}
	}
	return nil
}

// SetPaletteColor changes the value of color id i.
func (g *Geometry) SetPaletteColor(i kernel.ColorID, c Color) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.palette.Set(i, c)
}

// AddPaletteColor appends a color.
func (g *Geometry) AddPaletteColor(c Color) (kernel.ColorID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.palette.Add(c)
}

// SetActiveColor selects the palette entry used by default.
func (g *Geometry) SetActiveColor(i int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.palette.SetActive(i)
}

// ReplacePalette swaps the color list. It fails when a color id still in use
// would fall off the end of the new list.
func (g *Geometry) ReplacePalette(colors []Color) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := min(len(colors), MaxPaletteColors)
	for _, c := range g.usedColors() {
		if int(c) >= n {
			return fmt.Errorf("%w: color %d is in use but the new palette has %d colors", partition.ErrInvalidColor, c, n)
		}
	}
	g.palette.Replace(colors)
	return nil
}
