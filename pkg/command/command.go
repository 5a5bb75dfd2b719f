// Package command defines the undoable edits of a painted model and the
// manager that executes them with snapshot-based undo and redo.
package command

import (
	"context"
	"fmt"
	"maps"
	"slices"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"

	"github.com/chazu/facepaint/pkg/geometry"
	"github.com/chazu/facepaint/pkg/kernel"
)

// Kind enumerates the command variants.
type Kind int

const (
	KindPaintSphere     Kind = iota // spherical brush strokes
	KindPaintShape                  // flat polygon projected along a direction
	KindPaintFaces                  // whole faces
	KindBucket                      // bucket fill from a face
	KindSetTriangle                 // one drawable sub-triangle
	KindReplaceColors               // color id remap
	KindSetPaletteColor             // change one palette entry
	KindReplacePalette              // swap the palette
)

var kindNames = map[Kind]string{
	KindPaintSphere:     "paint-sphere",
	KindPaintShape:      "paint-shape",
	KindPaintFaces:      "paint-faces",
	KindBucket:          "bucket",
	KindSetTriangle:     "set-triangle",
	KindReplaceColors:   "replace-colors",
	KindSetPaletteColor: "set-palette-color",
	KindReplacePalette:  "replace-palette",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Stroke is one sphere position of a brush command.
type Stroke struct {
	Center [3]float64 `json:"center"`
	Radius float64    `json:"radius"`
}

// Command is a single undoable edit. Which payload fields are meaningful
// depends on Kind. Commands are values and are never mutated after
// construction; TryJoin returns a new command.
type Command struct {
	Kind  Kind           `json:"kind"`
	ID    uuid.UUID      `json:"id"`
	Color kernel.ColorID `json:"color"`

	Strokes []Stroke `json:"strokes,omitempty"`

	Points    [][3]float64 `json:"points,omitempty"`
	Direction [3]float64   `json:"direction,omitempty"`
	Backfaces bool         `json:"backfaces,omitempty"`

	Faces []int `json:"faces,omitempty"`

	Start    int                 `json:"start,omitempty"`
	Mode     geometry.BucketMode `json:"mode,omitempty"`
	MaxAngle float64             `json:"max_angle,omitempty"`

	Triangle geometry.DetailedTriangleID `json:"triangle,omitempty"`

	Remap map[kernel.ColorID]kernel.ColorID `json:"remap,omitempty"`

	PaletteIndex kernel.ColorID   `json:"palette_index,omitempty"`
	PaletteColor geometry.Color   `json:"palette_color,omitempty"`
	Palette      []geometry.Color `json:"palette,omitempty"`
}

func newCommand(k Kind, c kernel.ColorID) Command {
	return Command{Kind: k, ID: uuid.New(), Color: c}
}

// PaintSphere paints inside a sphere.
func PaintSphere(center [3]float64, radius float64, c kernel.ColorID) Command {
	cmd := newCommand(KindPaintSphere, c)
	cmd.Strokes = []Stroke{{Center: center, Radius: radius}}
	return cmd
}

// PaintShape projects a closed polygon along direction.
func PaintShape(points [][3]float64, direction [3]float64, c kernel.ColorID, backfaces bool) Command {
	cmd := newCommand(KindPaintShape, c)
	cmd.Points = slices.Clone(points)
	cmd.Direction = direction
	cmd.Backfaces = backfaces
	return cmd
}

// PaintFaces paints whole faces.
func PaintFaces(faces []int, c kernel.ColorID) Command {
	cmd := newCommand(KindPaintFaces, c)
	cmd.Faces = slices.Clone(faces)
	return cmd
}

// Bucket fills from start.
func Bucket(start int, mode geometry.BucketMode, maxAngle float64, c kernel.ColorID) Command {
	cmd := newCommand(KindBucket, c)
	cmd.Start, cmd.Mode, cmd.MaxAngle = start, mode, maxAngle
	return cmd
}

// SetTriangle recolors one drawable sub-triangle.
func SetTriangle(id geometry.DetailedTriangleID, c kernel.ColorID) Command {
	cmd := newCommand(KindSetTriangle, c)
	cmd.Triangle = id
	return cmd
}

// ReplaceColors renames color ids on the model.
func ReplaceColors(remap map[kernel.ColorID]kernel.ColorID) Command {
	cmd := newCommand(KindReplaceColors, 0)
	cmd.Remap = maps.Clone(remap)
	return cmd
}

// SetPaletteColor changes palette entry i.
func SetPaletteColor(i kernel.ColorID, color geometry.Color) Command {
	cmd := newCommand(KindSetPaletteColor, 0)
	cmd.PaletteIndex, cmd.PaletteColor = i, color
	return cmd
}

// ReplacePalette swaps the palette.
func ReplacePalette(colors []geometry.Color) Command {
	cmd := newCommand(KindReplacePalette, 0)
	cmd.Palette = slices.Clone(colors)
	return cmd
}

// Slow reports whether running the command is expensive enough that the
// manager should snapshot right after it.
func (c Command) Slow() bool {
	switch c.Kind {
	case KindPaintSphere, KindPaintShape, KindBucket:
		return true
	default:
		return false
	}
}

// Description is a short human-readable summary.
func (c Command) Description() string {
	switch c.Kind {
	case KindPaintSphere:
		return fmt.Sprintf("paint %d brush strokes with color %d", len(c.Strokes), c.Color)
	case KindPaintShape:
		return fmt.Sprintf("paint a %d-point shape with color %d", len(c.Points), c.Color)
	case KindPaintFaces:
		return fmt.Sprintf("paint %d faces with color %d", len(c.Faces), c.Color)
	case KindBucket:
		return fmt.Sprintf("bucket fill (%s) from face %d with color %d", c.Mode, c.Start, c.Color)
	case KindSetTriangle:
		return fmt.Sprintf("set triangle %d/%d to color %d", c.Triangle.Face, c.Triangle.Index, c.Color)
	case KindReplaceColors:
		return fmt.Sprintf("replace %d colors", len(c.Remap))
	case KindSetPaletteColor:
		return fmt.Sprintf("set palette color %d to %s", c.PaletteIndex, c.PaletteColor.Hex())
	case KindReplacePalette:
		return fmt.Sprintf("replace palette with %d colors", len(c.Palette))
	default:
		return c.Kind.String()
	}
}

// TryJoin merges next into c when both are consecutive edits of the same
// kind that undo as one: brush strokes with the same color and radius, or
// face paints with the same color. The merged command keeps c's ID.
func (c Command) TryJoin(next Command) (Command, bool) {
	if c.Kind != next.Kind || c.Color != next.Color {
		return c, false
	}
	switch c.Kind {
	case KindPaintSphere:
		if len(c.Strokes) == 0 || len(next.Strokes) == 0 || c.Strokes[0].Radius != next.Strokes[0].Radius {
			return c, false
		}
		c.Strokes = append(slices.Clone(c.Strokes), next.Strokes...)
		return c, true
	case KindPaintFaces:
		c.Faces = append(slices.Clone(c.Faces), next.Faces...)
		return c, true
	default:
		return c, false
	}
}

// Apply runs the command against g.
func (c Command) Apply(ctx context.Context, g *geometry.Geometry) error {
	var err error
	switch c.Kind {
	case KindPaintSphere:
		for _, s := range c.Strokes {
			sphere := kernel.Sphere{Center: kernel.Pt3(s.Center[0], s.Center[1], s.Center[2]), Radius: s.Radius}
			if _, err = g.PaintSphere(ctx, sphere, c.Color); err != nil {
				break
			}
		}
	case KindPaintShape:
		pts := make([]kernel.Point3, len(c.Points))
		for i, p := range c.Points {
			pts[i] = kernel.Pt3(p[0], p[1], p[2])
		}
		dir := v3.Vec{X: c.Direction[0], Y: c.Direction[1], Z: c.Direction[2]}
		_, err = g.PaintShape(ctx, pts, dir, c.Color, c.Backfaces)
	case KindPaintFaces:
		_, err = g.PaintFaces(ctx, c.Faces, c.Color)
	case KindBucket:
		_, err = g.BucketFill(ctx, c.Start, c.Mode, c.MaxAngle, c.Color)
	case KindSetTriangle:
		err = g.SetTriangleColor(c.Triangle, c.Color)
	case KindReplaceColors:
		err = g.ReplaceColors(c.Remap)
	case KindSetPaletteColor:
		err = g.SetPaletteColor(c.PaletteIndex, c.PaletteColor)
	case KindReplacePalette:
		err = g.ReplacePalette(c.Palette)
	default:
		err = fmt.Errorf("command: unknown kind %v", c.Kind)
	}
	if err != nil {
		return fmt.Errorf("command %s: %w", c.Kind, err)
	}
	return nil
}
