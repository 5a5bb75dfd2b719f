package geometry

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/chazu/facepaint/pkg/kernel"
	"github.com/chazu/facepaint/pkg/partition"
)

// MaxPaletteColors bounds the palette.
const MaxPaletteColors = partition.MaxColors

// ErrPaletteFull is returned when adding a color to a full palette.
var ErrPaletteFull = errors.New("geometry: palette full")

// Color is a 24-bit RGB value, 0xRRGGBB.
type Color uint32

// Hex formats the color as #RRGGBB.
func (c Color) Hex() string { return fmt.Sprintf("#%06X", uint32(c)&0xFFFFFF) }

// RGB returns the channels scaled to [0,1].
func (c Color) RGB() (r, g, b float64) {
	return float64(c>>16&0xFF) / 255, float64(c>>8&0xFF) / 255, float64(c&0xFF) / 255
}

// ParseColor accepts "#RRGGBB", "RRGGBB" or "0xRRGGBB".
func ParseColor(s string) (Color, error) {
	t := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "#"), "0x")
	if len(t) != 6 {
		return 0, fmt.Errorf("geometry: bad color %q", s)
	}
	v, err := strconv.ParseUint(t, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("geometry: bad color %q: %w", s, err)
	}
	return Color(v), nil
}

// Palette is the list of paint colors plus the active selection. Color ids
// used by partitions index into Colors.
type Palette struct {
	Colors []Color `json:"colors" codec:"colors"`
	Active int     `json:"active" codec:"active"`
}

// DefaultPalette returns the four stock colors.
func DefaultPalette() Palette {
	return Palette{Colors: []Color{0x017BDA, 0xEB5757, 0xF2994A, 0x292E33}}
}

// Len returns the number of colors.
func (p Palette) Len() int { return len(p.Colors) }

// Color returns color id c.
func (p Palette) Color(c kernel.ColorID) (Color, bool) {
	if int(c) >= len(p.Colors) {
		return 0, false
	}
	return p.Colors[c], true
}

// Add appends a color and returns its id.
func (p *Palette) Add(c Color) (kernel.ColorID, error) {
	if len(p.Colors) >= MaxPaletteColors {
		return 0, fmt.Errorf("%w: %d colors", ErrPaletteFull, MaxPaletteColors)
	}
	p.Colors = append(p.Colors, c)
	return kernel.ColorID(len(p.Colors) - 1), nil
}

// Set replaces color id i.
func (p *Palette) Set(i kernel.ColorID, c Color) error {
	if int(i) >= len(p.Colors) {
		return fmt.Errorf("%w: %d not in palette of %d", partition.ErrInvalidColor, i, len(p.Colors))
	}
	p.Colors[i] = c
	return nil
}

// Replace swaps in a new color list, trimmed to MaxPaletteColors. The
// active index is clamped.
func (p *Palette) Replace(colors []Color) {
	if len(colors) > MaxPaletteColors {
		colors = colors[:MaxPaletteColors]
	}
	p.Colors = append([]Color(nil), colors...)
	p.SetActive(p.Active)
}

// SetActive selects a color, clamped to the palette.
func (p *Palette) SetActive(i int) {
	p.Active = max(0, min(i, len(p.Colors)-1))
}

// ActiveID returns the selected color id.
func (p Palette) ActiveID() kernel.ColorID { return kernel.ColorID(p.Active) }

// Clone returns a deep copy.
func (p Palette) Clone() Palette {
	p.Colors = append([]Color(nil), p.Colors...)
	return p
}

// GeneratePalette spreads n saturated colors around the hue circle from a
// seeded random start.
func GeneratePalette(n int, seed uint64) Palette {
	n = min(n, MaxPaletteColors)
	rng := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	start := rng.Float64()
	colors := make([]Color, 0, n)
	for i := 0; i < n; i++ {
		_, h := math.Modf(start + float64(i)/float64(n)*0.7)
		v := 0.6 + 0.4*rng.Float64()
		colors = append(colors, hsv(h, 1, v))
	}
	return Palette{Colors: colors}
}

func hsv(h, s, v float64) Color {
	i := math.Floor(h * 6)
	f := h*6 - i
	p, q, t := v*(1-s), v*(1-f*s), v*(1-(1-f)*s)
	var r, g, b float64
	switch int(i) % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	ch := func(x float64) Color { return Color(math.Round(x * 255)) }
	return ch(r)<<16 | ch(g)<<8 | ch(b)
}
