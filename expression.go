/*
Copyright © 2021 the InMAP authors.
This file is part of ctmextract.

ctmextract is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

ctmextract is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with ctmextract.  If not, see <http://www.gnu.org/licenses/>.
*/

package ctmextract

import (
	"fmt"
	"math"
	"sort"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/sparse"
)

// Expression is a formula for a derived variable, for example
// "SURF_ppb_NO2 + SURF_ppb_NO". Identifiers refer to model variables, and
// the formula is evaluated cell by cell.
//
// In addition to the operators supported by
// github.com/Knetic/govaluate, the following functions are available:
// 'exp(x)', 'log(x)', 'sqrt(x)', 'abs(x)', 'max(x, y)' and 'min(x, y)'.
type Expression struct {
	expr *govaluate.EvaluableExpression
	vars []string
}

var expressionFuncs = map[string]govaluate.ExpressionFunction{
	"exp":  unaryFunc("exp", math.Exp),
	"log":  unaryFunc("log", math.Log),
	"sqrt": unaryFunc("sqrt", math.Sqrt),
	"abs":  unaryFunc("abs", math.Abs),
	"max":  binaryFunc("max", math.Max),
	"min":  binaryFunc("min", math.Min),
}

func unaryFunc(name string, f func(float64) float64) govaluate.ExpressionFunction {
	return func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 1 {
			return nil, fmt.Errorf("ctmextract: got %d arguments for function '%s', but needs 1", len(arg), name)
		}
		x, ok := arg[0].(float64)
		if !ok {
			return nil, fmt.Errorf("ctmextract: invalid argument type %T for function '%s'", arg[0], name)
		}
		return f(x), nil
	}
}

func binaryFunc(name string, f func(float64, float64) float64) govaluate.ExpressionFunction {
	return func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 2 {
			return nil, fmt.Errorf("ctmextract: got %d arguments for function '%s', but needs 2", len(arg), name)
		}
		x, ok1 := arg[0].(float64)
		y, ok2 := arg[1].(float64)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("ctmextract: invalid argument types %T, %T for function '%s'", arg[0], arg[1], name)
		}
		return f(x, y), nil
	}
}

// NewExpression parses expr.
func NewExpression(expr string) (*Expression, error) {
	e, err := govaluate.NewEvaluableExpressionWithFunctions(expr, expressionFuncs)
	if err != nil {
		return nil, fmt.Errorf("ctmextract: parsing expression %q: %v", expr, err)
	}
	vars := removeDuplicates(e.Vars())
	sort.Strings(vars)
	return &Expression{expr: e, vars: vars}, nil
}

// Variables returns the names of the model variables that e refers to,
// sorted alphabetically.
func (e *Expression) Variables() []string { return e.vars }

// String returns the original formula.
func (e *Expression) String() string { return e.expr.String() }

// Evaluate computes e for every cell and time step of the cubes in data,
// which must contain every variable returned by Variables and share the
// same shape. The result takes its timestamps from the first variable and
// is given the specified name and units.
func (e *Expression) Evaluate(name, units string, data map[string]*DataCube) (*DataCube, error) {
	if len(e.vars) == 0 {
		return nil, fmt.Errorf("ctmextract: expression %q for %s does not refer to any variables", e, name)
	}
	var first *DataCube
	for _, v := range e.vars {
		c, ok := data[v]
		if !ok {
			return nil, fmt.Errorf("ctmextract: evaluating %s: missing variable %s", name, v)
		}
		if first == nil {
			first = c
		} else if !first.sameShape(c) {
			return nil, fmt.Errorf("ctmextract: evaluating %s: %s has shape %v but %s has shape %v: %w",
				name, first.Name, first.Data.Shape, c.Name, c.Data.Shape, ErrShapeMismatch)
		}
	}
	nt, ny, nx := first.Shape()
	o := sparse.ZerosDense(nt, ny, nx)
	params := make(map[string]interface{}, len(e.vars))
	for i := range o.Elements {
		for _, v := range e.vars {
			params[v] = data[v].Data.Elements[i]
		}
		r, err := e.expr.Evaluate(params)
		if err != nil {
			return nil, fmt.Errorf("ctmextract: evaluating %s: %v", name, err)
		}
		switch val := r.(type) {
		case float64:
			o.Elements[i] = val
		case bool:
			if val {
				o.Elements[i] = 1
			}
		default:
			return nil, fmt.Errorf("ctmextract: evaluating %s: result has type %T, not a number", name, r)
		}
	}
	return &DataCube{Name: name, Units: units, Times: first.Times, Data: o}, nil
}

// removeDuplicates removes all duplicated strings from a slice, returning a
// slice that contains only unique strings.
func removeDuplicates(s []string) []string {
	result := make([]string, 0, len(s))
	seen := make(map[string]struct{})
	for _, val := range s {
		if _, ok := seen[val]; !ok {
			result = append(result, val)
			seen[val] = struct{}{}
		}
	}
	return result
}
