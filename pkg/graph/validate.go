package graph

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationSeverity indicates whether a validation finding blocks painting
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks painting
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Face     FaceID             // which face has the problem (NoFace if mesh-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Face == NoFace {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] face %d: %s", e.Severity, e.Face, e.Message)
}

// ValidationResult bundles errors (blocking) and warnings (advisory).
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether no blocking finding was made.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Validate runs every check on the graph and returns the findings sorted by
// face. An empty slice means the mesh is a closed 2-manifold of proper
// triangles. Validate never mutates the graph.
func Validate(g *FaceGraph) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateDegenerate(g)...)
	errs = append(errs, validateDuplicates(g)...)
	errs = append(errs, validateEdges(g)...)
	slices.SortStableFunc(errs, func(a, b ValidationError) int {
		if a.Face != b.Face {
			return int(a.Face) - int(b.Face)
		}
		return strings.Compare(a.Message, b.Message)
	})
	return errs
}

// ValidateAll runs Validate and separates errors from warnings.
func ValidateAll(g *FaceGraph) ValidationResult {
	var result ValidationResult
	for _, e := range Validate(g) {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, e)
		} else {
			result.Errors = append(result.Errors, e)
		}
	}
	return result
}

// validateDegenerate reports faces with exactly zero area. They have no
// supporting plane and cannot be painted.
func validateDegenerate(g *FaceGraph) []ValidationError {
	var errs []ValidationError
	for i, f := range g.Faces {
		if f.Degenerate() {
			errs = append(errs, ValidationError{
				Face:     FaceID(i),
				Message:  "degenerate face (zero area)",
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateDuplicates reports faces whose vertex set repeats an earlier face,
// in any order or winding.
func validateDuplicates(g *FaceGraph) []ValidationError {
	var errs []ValidationError
	first := make(map[string]FaceID)
	for i, f := range g.Faces {
		keys := []string{f.Vertices[0].Key(), f.Vertices[1].Key(), f.Vertices[2].Key()}
		slices.Sort(keys)
		k := strings.Join(keys, "|")
		if prev, ok := first[k]; ok {
			errs = append(errs, ValidationError{
				Face:     FaceID(i),
				Message:  fmt.Sprintf("duplicate of face %d", prev),
				Severity: SeverityError,
			})
			continue
		}
		first[k] = FaceID(i)
	}
	return errs
}

// validateEdges warns about open (boundary) edges and edges shared by more
// than two faces. Painting still works on such meshes but reconciliation
// only covers edges with exactly two faces.
func validateEdges(g *FaceGraph) []ValidationError {
	var errs []ValidationError
	reported := make(map[EdgeKey]bool)
	for f := range g.Faces {
		for k := 0; k < 3; k++ {
			key := g.EdgeOf(FaceID(f), k)
			if reported[key] {
				continue
			}
			reported[key] = true
			faces := g.Edges[key]
			switch {
			case len(faces) == 1:
				errs = append(errs, ValidationError{
					Face:     FaceID(f),
					Message:  fmt.Sprintf("boundary edge %s", key),
					Severity: SeverityWarning,
				})
			case len(faces) > 2:
				errs = append(errs, ValidationError{
					Face:     FaceID(f),
					Message:  fmt.Sprintf("non-manifold edge %s shared by %d faces", key, len(faces)),
					Severity: SeverityWarning,
				})
			}
		}
	}
	return errs
}
