// Copyright 2023 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package semantic

import (
	"fmt"

	"github.com/SnellerInc/semlayer/expr"
)

// Scope is the context in which a
// MeasureFunc builds its expression.
//
// Scope methods that look up a name record
// the first failed lookup; the registration
// that invoked the MeasureFunc then fails
// with that error, regardless of the
// expression that was returned.
type Scope struct {
	ns   *namespace
	name string
	err  error
	// cols and dims record the names
	// looked up with Col and Dim
	cols, dims map[string]bool
}

func (s *Scope) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// Err returns the first error
// encountered by s, if any.
func (s *Scope) Err() error { return s.err }

// Col returns a handle to the base column
// with the given name. The handle refers to
// the column even if a dimension of the
// same name is defined as another expression.
func (s *Scope) Col(name string) Field {
	c, err := s.ns.base.Lookup(name)
	if err != nil {
		s.fail(&UnresolvedReferenceError{Entity: s.ns.entity, Name: s.name, Ref: name, Want: "column"})
		return Field{s: s, node: expr.Ident(name), Type: expr.AnyType}
	}
	s.cols = record(s.cols, name)
	return Field{s: s, node: expr.Ident(name), Type: c.Type}
}

func record(set map[string]bool, name string) map[string]bool {
	if set == nil {
		set = make(map[string]bool)
	}
	set[name] = true
	return set
}

// conflicts returns the first lookup error, or
// an error if the same name was used both as a
// column and as a dimension that is not that column
func (s *Scope) conflicts() error {
	if s.err != nil {
		return s.err
	}
	for name := range s.dims {
		if !s.cols[name] {
			continue
		}
		if d := s.ns.defs.dims[name]; !expr.Equal(d.Expr, expr.Ident(name)) {
			return &AmbiguousReferenceError{Entity: s.ns.entity, Name: s.name, Ref: name}
		}
	}
	return nil
}

// Dim returns a handle to the dimension
// with the given name. The handle is
// resolved along with the rest of the
// measure, so it must be used inside
// an aggregate.
func (s *Scope) Dim(name string) Field {
	d, ok := s.ns.defs.dims[name]
	if !ok {
		s.fail(&UnresolvedReferenceError{Entity: s.ns.entity, Name: s.name, Ref: name, Want: "dimension"})
		return Field{s: s, node: expr.Ident(name), Type: expr.AnyType}
	}
	s.dims = record(s.dims, name)
	return Field{s: s, node: expr.Ident(name), Type: d.Type}
}

// Measure returns a reference to the
// previously registered measure name.
func (s *Scope) Measure(name string) expr.Node {
	if _, ok := s.ns.defs.measures[name]; !ok {
		s.fail(&UnresolvedReferenceError{Entity: s.ns.entity, Name: s.name, Ref: name, Want: "measure"})
	}
	return expr.Ident(name)
}

// Count returns the number of rows.
func (s *Scope) Count() expr.Node { return expr.CountStar() }

// All returns e computed over every row
// that passes the query's filters, ignoring
// the grouping of the query.
func (s *Scope) All(e expr.Node) expr.Node { return expr.All(e) }

func (s *Scope) literal(v any) expr.Node {
	n, err := expr.Literal(v)
	if err != nil {
		s.fail(fmt.Errorf("semantic: %s: measure %s: %w", s.ns.entity, s.name, err))
		return expr.Null{}
	}
	return n
}

// Field is a handle to a column
// or dimension within a Scope.
type Field struct {
	s      *Scope
	node   expr.Node
	filter expr.Node
	Type   expr.TypeSet
}

// Expr returns the expression for c.
func (c Field) Expr() expr.Node { return c.node }

// Where returns a handle to c whose aggregates
// consider only the rows for which cond holds.
func (c Field) Where(cond Cond) Field {
	if c.filter != nil {
		c.filter = expr.And(c.filter, cond.node)
	} else {
		c.filter = cond.node
	}
	return c
}

func (c Field) agg(a *expr.Aggregate) expr.Node {
	if c.filter != nil {
		return a.Where(c.filter)
	}
	return a
}

func (c Field) Sum() expr.Node  { return c.agg(expr.Sum(c.node)) }
func (c Field) Mean() expr.Node { return c.agg(expr.Avg(c.node)) }
func (c Field) Min() expr.Node  { return c.agg(expr.Min(c.node)) }
func (c Field) Max() expr.Node  { return c.agg(expr.Max(c.node)) }

// Median returns the continuous median of c.
func (c Field) Median() expr.Node { return c.agg(expr.Quantile(c.node, 0.5)) }

// Quantile returns the continuous q-quantile of c.
func (c Field) Quantile(q float64) expr.Node { return c.agg(expr.Quantile(c.node, q)) }

// Count returns the number of non-NULL values of c.
func (c Field) Count() expr.Node { return c.agg(expr.Count(c.node)) }

// CountDistinct returns the number of
// distinct non-NULL values of c.
func (c Field) CountDistinct() expr.Node { return c.agg(expr.CountDistinct(c.node)) }

func (c Field) cmp(op expr.CmpOp, v any) Cond {
	return Cond{s: c.s, node: expr.Compare(op, c.node, c.s.literal(v))}
}

func (c Field) Eq(v any) Cond { return c.cmp(expr.Equals, v) }
func (c Field) Ne(v any) Cond { return c.cmp(expr.NotEquals, v) }
func (c Field) Gt(v any) Cond { return c.cmp(expr.Greater, v) }
func (c Field) Ge(v any) Cond { return c.cmp(expr.GreaterEquals, v) }
func (c Field) Lt(v any) Cond { return c.cmp(expr.Less, v) }
func (c Field) Le(v any) Cond { return c.cmp(expr.LessEquals, v) }

// Between returns lo <= c AND c <= hi.
func (c Field) Between(lo, hi any) Cond {
	return Cond{s: c.s, node: expr.Between(c.node, c.s.literal(lo), c.s.literal(hi))}
}

// In returns c IN (values...).
func (c Field) In(values ...any) Cond {
	lst := make([]expr.Node, len(values))
	for i := range values {
		lst[i] = c.s.literal(values[i])
	}
	return Cond{s: c.s, node: expr.In(c.node, lst...)}
}

func (c Field) IsNull() Cond  { return Cond{s: c.s, node: expr.Is(c.node, expr.IsNull)} }
func (c Field) NotNull() Cond { return Cond{s: c.s, node: expr.Is(c.node, expr.IsNotNull)} }

// Cond is a boolean condition within a Scope.
type Cond struct {
	s    *Scope
	node expr.Node
}

// Expr returns the expression for c.
func (c Cond) Expr() expr.Node { return c.node }

func (c Cond) And(o Cond) Cond { return Cond{s: c.s, node: expr.And(c.node, o.node)} }
func (c Cond) Or(o Cond) Cond  { return Cond{s: c.s, node: expr.Or(c.node, o.node)} }
func (c Cond) Not() Cond       { return Cond{s: c.s, node: &expr.Not{Expr: c.node}} }

// Sum returns the number of rows for
// which c holds.
func (c Cond) Sum() expr.Node { return expr.Sum(c.node) }

// Mean returns the fraction of rows for
// which c holds.
func (c Cond) Mean() expr.Node { return expr.Avg(c.node) }
