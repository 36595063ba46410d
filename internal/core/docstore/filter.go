package docstore

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"coffeetrace/internal/core/apperror"
)

// Filter selects documents in List.
//
// Eq holds top-level field equalities and is pushed down to the backend.
// Expr is an optional CEL boolean expression over the variable `doc`,
// evaluated in-process after Eq, e.g. `doc.status in ["En Bodega", "Mezclada Parcialmente"]`.
type Filter struct {
	Eq   map[string]any
	Expr string
}

// All matches every document.
func All() Filter {
	return Filter{}
}

// Where is a shorthand for a single equality filter.
func Where(field string, value any) Filter {
	return Filter{Eq: map[string]any{field: value}}
}

// And adds an equality to the filter.
func (f Filter) And(field string, value any) Filter {
	eq := make(map[string]any, len(f.Eq)+1)
	for k, v := range f.Eq {
		eq[k] = v
	}
	eq[field] = value
	return Filter{Eq: eq, Expr: f.Expr}
}

// MatchExpr sets the CEL expression.
func (f Filter) MatchExpr(expr string) Filter {
	f.Expr = expr
	return f
}

// InExpr builds a CEL membership test of a string field, e.g. `doc.id in ["a", "b"]`.
func InExpr(field string, values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return fmt.Sprintf("doc.%s in [%s]", field, strings.Join(quoted, ", "))
}

// NormalizedEq returns Eq with values converted to JSON primitives.
func (f Filter) NormalizedEq() (Document, error) {
	if len(f.Eq) == 0 {
		return Document{}, nil
	}
	return Normalize(f.Eq)
}

// Matcher evaluates filters in-process. Compiled CEL programs are cached by expression.
type Matcher struct {
	env      *cel.Env
	programs sync.Map // expr -> cel.Program
}

// NewMatcher builds a Matcher with the `doc` variable declared as a dynamic map.
func NewMatcher() (*Matcher, error) {
	env, err := cel.NewEnv(cel.Variable("doc", cel.MapType(cel.StringType, cel.DynType)))
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}
	return &Matcher{env: env}, nil
}

// MustMatcher is NewMatcher that panics on error.
func MustMatcher() *Matcher {
	m, err := NewMatcher()
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Matcher) program(expr string) (cel.Program, error) {
	if p, ok := m.programs.Load(expr); ok {
		return p.(cel.Program), nil
	}

	ast, iss := m.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, apperror.NewValidation("invalid filter expression").
			WithDetail("expr", expr).
			WithDetail("error", iss.Err().Error())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, apperror.NewValidation("filter expression must be boolean").WithDetail("expr", expr)
	}

	p, err := m.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build cel program: %w", err)
	}
	m.programs.Store(expr, p)
	return p, nil
}

// MatchEq reports whether doc satisfies every equality in eq (already normalized).
func MatchEq(doc Document, eq Document) bool {
	for k, want := range eq {
		if !reflect.DeepEqual(doc[k], want) {
			return false
		}
	}
	return true
}

// MatchExpr evaluates the CEL expression against doc. An empty expression matches.
func (m *Matcher) MatchExpr(doc Document, expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}

	p, err := m.program(expr)
	if err != nil {
		return false, err
	}

	out, _, err := p.Eval(map[string]any{"doc": map[string]any(doc)})
	if err != nil {
		// Missing keys evaluate to errors in CEL; treat them as non-matching.
		return false, nil
	}
	ok, isBool := out.Value().(bool)
	return isBool && ok, nil
}

// Apply filters docs in place by the CEL expression of f.
func (m *Matcher) Apply(docs []Document, expr string) ([]Document, error) {
	if expr == "" {
		return docs, nil
	}
	out := docs[:0]
	for _, d := range docs {
		ok, err := m.MatchExpr(d, expr)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}
