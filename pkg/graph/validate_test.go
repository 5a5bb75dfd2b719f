package graph

import (
	"strings"
	"testing"

	"github.com/chazu/facepaint/pkg/kernel"
)

// hasError returns true if errs contains at least one error-severity finding
// whose message contains substr.
func hasError(errs []ValidationError, substr string) bool {
	for _, e := range errs {
		if e.Severity == SeverityError && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// hasWarning returns true if errs contains at least one warning-severity
// finding whose message contains substr.
func hasWarning(errs []ValidationError, substr string) bool {
	for _, e := range errs {
		if e.Severity == SeverityWarning && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestValidateClosedMesh(t *testing.T) {
	errs := Validate(Build(tetrahedron()))
	if len(errs) != 0 {
		t.Fatalf("closed tetrahedron should validate, got %v", errs)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		faces   []kernel.Triangle
		errors  []string
		warning []string
	}{
		{
			name:    "open square",
			faces:   square(),
			warning: []string{"boundary edge"},
		},
		{
			name: "degenerate",
			faces: append(tetrahedron(), kernel.NewTriangle(
				kernel.Pt3(0, 0, 0), kernel.Pt3(1, 0, 0), kernel.Pt3(2, 0, 0), 0)),
			errors: []string{"degenerate face"},
		},
		{
			name: "duplicate reversed",
			faces: append(tetrahedron(), kernel.NewTriangle(
				kernel.Pt3(0, 0, 0), kernel.Pt3(1, 0, 0), kernel.Pt3(0, 1, 0), 0)),
			errors:  []string{"duplicate of face 0"},
			warning: []string{"non-manifold edge"},
		},
		{
			name: "fin",
			faces: append(square(), kernel.NewTriangle(
				kernel.Pt3(1, 0, 0), kernel.Pt3(0, 1, 0), kernel.Pt3(0, 0, 1), 0)),
			warning: []string{"shared by 3 faces", "boundary edge"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(Build(tt.faces))
			for _, want := range tt.errors {
				if !hasError(errs, want) {
					t.Errorf("missing error %q in %v", want, errs)
				}
			}
			for _, want := range tt.warning {
				if !hasWarning(errs, want) {
					t.Errorf("missing warning %q in %v", want, errs)
				}
			}
			if len(tt.errors) == 0 && hasError(errs, "") {
				t.Errorf("unexpected errors: %v", errs)
			}
		})
	}
}

func TestValidateAllSeparates(t *testing.T) {
	faces := append(square(), kernel.NewTriangle(
		kernel.Pt3(5, 5, 5), kernel.Pt3(5, 5, 5), kernel.Pt3(6, 5, 5), 0))
	r := ValidateAll(Build(faces))
	if r.OK() {
		t.Fatal("degenerate face should block")
	}
	for _, e := range r.Errors {
		if e.Severity != SeverityError {
			t.Errorf("warning %v in Errors", e)
		}
	}
	if len(r.Warnings) == 0 {
		t.Error("expected boundary warnings")
	}
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Face: 3, Message: "boom", Severity: SeverityError}
	if got := e.Error(); got != "[error] face 3: boom" {
		t.Errorf("Error() = %q", got)
	}
	e = ValidationError{Face: NoFace, Message: "empty mesh", Severity: SeverityWarning}
	if got := e.Error(); got != "[warning] empty mesh" {
		t.Errorf("Error() = %q", got)
	}
	if got := ValidationSeverity(7).String(); got != "ValidationSeverity(7)" {
		t.Errorf("String() = %q", got)
	}
}
