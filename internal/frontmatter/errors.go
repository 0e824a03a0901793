package frontmatter

import (
	"strings"

	"github.com/keithlinneman/folio/internal/xerrors"
)

const (
	ProblemMissing   = "missing"
	ProblemWrongType = "wrong type"
	ProblemInvalid   = "invalid value"
)

type FieldError struct {
	Field   string `json:"field"`
	Problem string `json:"problem"`
}

// ValidationError lists every field that failed the schema.
type ValidationError struct {
	Fields []FieldError
}

// Add records a violation. Callers outside this package use it to extend
// schema errors with their own checks.
func (v *ValidationError) Add(field, problem string) {
	v.Fields = append(v.Fields, FieldError{Field: field, Problem: problem})
}

func (v *ValidationError) Error() string {
	parts := make([]string, len(v.Fields))
	for i, f := range v.Fields {
		parts[i] = f.Field + ": " + f.Problem
	}
	return "invalid frontmatter: " + strings.Join(parts, ", ")
}

// Empty reports whether no violation has been recorded.
func (v *ValidationError) Empty() bool { return len(v.Fields) == 0 }

func (v *ValidationError) Kind() xerrors.Kind { return xerrors.KindValidation }
