// Package expr evaluates arithmetic and string expressions over global
// properties. Expressions use HCL expression syntax; every root variable in
// an expression names a property, looked up without regard to case.
package expr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/zclconf/go-cty/cty"
)

// Expression is a parsed expression.
type Expression struct {
	src  string
	expr hclsyntax.Expression
}

// Parse parses src without evaluating it.
func Parse(src string) (*Expression, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("expression is empty")
	}
	e, diags := hclsyntax.ParseExpression([]byte(src), "expression", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid expression %q: %s", src, diags.Error())
	}
	if err := checkFunctions(e); err != nil {
		return nil, err
	}
	return &Expression{src: src, expr: e}, nil
}

func (e *Expression) String() string { return e.src }

// References returns the property names the expression reads, sorted and
// without duplicates.
func (e *Expression) References() []string {
	seen := make(map[string]struct{})
	for _, t := range e.expr.Variables() {
		seen[t.RootName()] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CalledFunctions returns the function names the expression calls, sorted.
func (e *Expression) CalledFunctions() []string {
	funcs := make(map[string]struct{})
	walkForFunctions(e.expr, funcs)
	out := make([]string, 0, len(funcs))
	for f := range funcs {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Evaluate computes the expression against properties. Referencing a
// property that is not set is an error.
func (e *Expression) Evaluate(properties *props.Bag) (props.Value, error) {
	vars := make(map[string]cty.Value)
	for _, name := range e.References() {
		v, ok := properties.Get(name)
		if !ok || v.IsAbsent() {
			return props.Value{}, fmt.Errorf("property %q is not set", name)
		}
		cv, err := ToCty(v)
		if err != nil {
			return props.Value{}, fmt.Errorf("property %q: %w", name, err)
		}
		vars[name] = cv
	}

	ctx := &hcl.EvalContext{Variables: vars, Functions: functions}
	val, diags := e.expr.Value(ctx)
	if diags.HasErrors() {
		return props.Value{}, fmt.Errorf("evaluating %q: %s", e.src, diags.Error())
	}
	return FromCty(val)
}

// Eval parses and evaluates src in one step.
func Eval(src string, properties *props.Bag) (props.Value, error) {
	e, err := Parse(src)
	if err != nil {
		return props.Value{}, err
	}
	return e.Evaluate(properties)
}

func checkFunctions(e hclsyntax.Expression) error {
	called := make(map[string]struct{})
	walkForFunctions(e, called)
	var unknown []string
	for name := range called {
		if _, ok := functions[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown function(s): %s", strings.Join(unknown, ", "))
	}
	return nil
}

// walkForFunctions collects the names of every function called anywhere in
// the syntax tree.
func walkForFunctions(expr hclsyntax.Expression, functions map[string]struct{}) {
	if expr == nil {
		return
	}
	hclsyntax.VisitAll(expr, func(node hclsyntax.Node) hcl.Diagnostics {
		if call, ok := node.(*hclsyntax.FunctionCallExpr); ok {
			functions[call.Name] = struct{}{}
		}
		return nil
	})
}
