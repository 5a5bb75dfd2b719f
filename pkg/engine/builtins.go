package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/samber/lo"

	"github.com/chazu/facepaint/pkg/command"
	"github.com/chazu/facepaint/pkg/geometry"
	"github.com/chazu/facepaint/pkg/kernel"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms paint script source before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: set-color -> set_color
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a point or direction.
type sexpVec3 struct {
	vec [3]float64
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpCommand is what every painting builtin returns: the index of the
// recorded command.
type sexpCommand struct {
	index int
	kind  command.Kind
}

func (c *sexpCommand) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(command %d %s)", c.index, c.kind)
}
func (c *sexpCommand) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		// A trailing flag keyword parses to nil.
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_normal) and plain strings ("normal").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toColor accepts a palette index in range.
func toColor(s zygo.Sexp) (kernel.ColorID, error) {
	n, err := toInt(s)
	if err != nil {
		return 0, err
	}
	if n < 0 || n >= geometry.MaxPaletteColors {
		return 0, fmt.Errorf("color %d out of range [0, %d)", n, geometry.MaxPaletteColors)
	}
	return kernel.ColorID(n), nil
}

// toHexColor accepts "#RRGGBB" or an integer 0xRRGGBB.
func toHexColor(s zygo.Sexp) (geometry.Color, error) {
	if n, err := toInt(s); err == nil {
		return geometry.Color(uint32(n) & 0xFFFFFF), nil
	}
	str, err := toString(s)
	if err != nil {
		return 0, err
	}
	return geometry.ParseColor(str)
}

// toVec3 extracts a point from a sexpVec3.
func toVec3(s zygo.Sexp) ([3]float64, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return [3]float64{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// faceArgs flattens integers and lists of integers into face indices.
func faceArgs(args []zygo.Sexp) ([]int, error) {
	var out []int
	for _, a := range args {
		if n, err := toInt(a); err == nil {
			out = append(out, n)
			continue
		}
		items, err := sexpListToSlice(a)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			n, err := toInt(item)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// colorArg returns :color when given, else the script's current color.
func colorArg(pa kwArgs, s *Script) (kernel.ColorID, error) {
	v, ok := pa.kw["color"]
	if !ok {
		return s.Color, nil
	}
	return toColor(v)
}

func (s *Script) add(c command.Command) zygo.Sexp {
	s.Commands = append(s.Commands, c)
	return &sexpCommand{index: len(s.Commands) - 1, kind: c.Kind}
}

func (s *Script) warn(msg string) {
	s.Warnings = append(s.Warnings, EvalWarning{Message: msg, Command: len(s.Commands) - 1})
}

// registerBuiltins installs the paint builtins into a zygomys environment.
// Each painting builtin appends to s.Commands.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, s *Script) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var v [3]float64
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			v[i] = f
		}
		return &sexpVec3{vec: v}, nil
	})

	// -----------------------------------------------------------------------
	// (set-color 2)
	// -----------------------------------------------------------------------
	env.AddFunction("set_color", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("set-color requires a color index")
		}
		c, err := toColor(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-color: %w", err)
		}
		s.Color = c
		return &zygo.SexpInt{Val: int64(c)}, nil
	})

	// -----------------------------------------------------------------------
	// (sphere (vec3 0 0 1) 0.5 :color 1)
	// -----------------------------------------------------------------------
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("sphere requires a center and a radius")
		}
		center, err := toVec3(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: center: %w", err)
		}
		radius, err := toFloat64(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: radius: %w", err)
		}
		if radius <= 0 {
			return zygo.SexpNull, fmt.Errorf("sphere: radius must be positive, got %g", radius)
		}
		c, err := colorArg(pa, s)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: color: %w", err)
		}
		return s.add(command.PaintSphere(center, radius, c)), nil
	})

	// -----------------------------------------------------------------------
	// (shape (list (vec3 0 0 1) (vec3 1 0 1) (vec3 0 1 1))
	//        :direction (vec3 0 0 -1) :color 2 :backfaces false)
	// -----------------------------------------------------------------------
	env.AddFunction("shape", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("shape requires a list of points")
		}
		items, err := sexpListToSlice(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("shape: points: %w", err)
		}
		if len(items) < 3 {
			return zygo.SexpNull, fmt.Errorf("shape: need at least 3 points, got %d", len(items))
		}
		points := make([][3]float64, len(items))
		for i, item := range items {
			if points[i], err = toVec3(item); err != nil {
				return zygo.SexpNull, fmt.Errorf("shape: point %d: %w", i, err)
			}
		}
		dir := [3]float64{0, 0, -1}
		if v, ok := pa.kw["direction"]; ok {
			if dir, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("shape: direction: %w", err)
			}
		}
		if dir == [3]float64{} {
			return zygo.SexpNull, fmt.Errorf("shape: direction must be non-zero")
		}
		backfaces := false
		if v, ok := pa.kw["backfaces"]; ok {
			if backfaces, err = toBool(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("shape: backfaces: %w", err)
			}
		}
		c, err := colorArg(pa, s)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("shape: color: %w", err)
		}
		return s.add(command.PaintShape(points, dir, c, backfaces)), nil
	})

	// -----------------------------------------------------------------------
	// (fill 0 1 (list 2 3) :color 1)
	// -----------------------------------------------------------------------
	env.AddFunction("fill", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		faces, err := faceArgs(pa.positional)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("fill: faces: %w", err)
		}
		c, err := colorArg(pa, s)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("fill: color: %w", err)
		}
		ret := s.add(command.PaintFaces(lo.Uniq(faces), c))
		if len(faces) == 0 {
			s.warn("fill without faces does nothing")
		}
		return ret, nil
	})

	// -----------------------------------------------------------------------
	// (bucket 0 :mode :normal :angle 30 :color 1)
	// -----------------------------------------------------------------------
	env.AddFunction("bucket", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("bucket requires a start face")
		}
		start, err := toInt(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("bucket: start: %w", err)
		}
		mode := geometry.BucketConnected
		if v, ok := pa.kw["mode"]; ok {
			str, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("bucket: mode: %w", err)
			}
			if mode, err = geometry.ParseBucketMode(str); err != nil {
				return zygo.SexpNull, fmt.Errorf("bucket: %w", err)
			}
		}
		angle := 0.0
		if v, ok := pa.kw["angle"]; ok {
			if angle, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("bucket: angle: %w", err)
			}
		}
		c, err := colorArg(pa, s)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("bucket: color: %w", err)
		}
		ret := s.add(command.Bucket(start, mode, angle, c))
		if mode != geometry.BucketNormal && angle != 0 {
			s.warn(fmt.Sprintf("bucket: :angle is ignored in %s mode", mode))
		}
		return ret, nil
	})

	// -----------------------------------------------------------------------
	// (triangle 3 0 :color 1)
	// -----------------------------------------------------------------------
	env.AddFunction("triangle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("triangle requires a face and a triangle index")
		}
		face, err := toInt(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("triangle: face: %w", err)
		}
		index, err := toInt(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("triangle: index: %w", err)
		}
		c, err := colorArg(pa, s)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("triangle: color: %w", err)
		}
		return s.add(command.SetTriangle(geometry.DetailedTriangleID{Face: face, Index: index}, c)), nil
	})

	// -----------------------------------------------------------------------
	// (palette-color 1 "#EB5757")
	// -----------------------------------------------------------------------
	env.AddFunction("palette_color", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("palette-color requires an index and a color")
		}
		i, err := toColor(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("palette-color: index: %w", err)
		}
		color, err := toHexColor(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("palette-color: color: %w", err)
		}
		return s.add(command.SetPaletteColor(i, color)), nil
	})

	// -----------------------------------------------------------------------
	// (remap-colors 1 2 3 0) renames color 1 to 2 and 3 to 0
	// -----------------------------------------------------------------------
	env.AddFunction("remap_colors", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) == 0 || len(args)%2 != 0 {
			return zygo.SexpNull, fmt.Errorf("remap-colors requires from/to pairs")
		}
		remap := make(map[kernel.ColorID]kernel.ColorID, len(args)/2)
		for i := 0; i < len(args); i += 2 {
			from, err := toColor(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("remap-colors: %w", err)
			}
			to, err := toColor(args[i+1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("remap-colors: %w", err)
			}
			remap[from] = to
		}
		return s.add(command.ReplaceColors(remap)), nil
	})
}
