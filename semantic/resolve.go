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

// namespace resolves names against
// the definitions of one entity
type namespace struct {
	entity string
	base   *BaseTable
	defs   *defs
}

func (n *namespace) taken(name string) bool {
	_, dim := n.defs.dims[name]
	_, meas := n.defs.measures[name]
	return dim || meas
}

func (n *namespace) checkName(kind, name string) error {
	if name == "" {
		return fmt.Errorf("semantic: %s: %s name must not be empty", n.entity, kind)
	}
	if n.taken(name) {
		return &DuplicateNameError{Entity: n.entity, Kind: kind, Name: name}
	}
	return nil
}

// TypeOf implements expr.Hint for expressions
// that have been resolved to base columns
func (n *namespace) TypeOf(e expr.Node) expr.TypeSet {
	return n.base.TypeOf(e)
}

// resolver rewrites the identifiers of
// a definition into base columns and
// expanded measures
type resolver struct {
	ns *namespace
	// name is the name being defined
	name string
	// inAgg is set for the arguments of an aggregate
	inAgg bool
	// measures determines whether
	// identifiers outside of an aggregate
	// refer to measures
	measures bool
	// columns are names that refer to
	// base columns even where a dimension
	// has the same name
	columns map[string]bool
	err     *error
}

func (r *resolver) fail(err error) {
	if *r.err == nil {
		*r.err = err
	}
}

func (r *resolver) Walk(e expr.Node) expr.Rewriter {
	switch e.(type) {
	case *expr.Aggregate:
		if !r.inAgg {
			sub := *r
			sub.inAgg = true
			return &sub
		}
	case *expr.Total:
		if r.inAgg {
			sub := *r
			sub.inAgg = false
			return &sub
		}
	}
	return r
}

func (r *resolver) Rewrite(e expr.Node) expr.Node {
	id, ok := e.(expr.Ident)
	if !ok {
		return e
	}
	name := string(id)
	if r.inAgg || !r.measures {
		if r.columns[name] && r.ns.base.has(name) {
			return id
		}
		if d, ok := r.ns.defs.dims[name]; ok {
			return expr.Copy(d.Expr)
		}
		if r.ns.base.has(name) {
			return id
		}
		r.fail(&UnresolvedReferenceError{Entity: r.ns.entity, Name: r.name, Ref: name, Want: "dimension or column"})
		return id
	}
	if m, ok := r.ns.defs.measures[name]; ok {
		return expr.Copy(m.Expr)
	}
	r.fail(&UnresolvedReferenceError{Entity: r.ns.entity, Name: r.name, Ref: name, Want: "measure"})
	return id
}

// numericBools wraps the boolean arguments
// of SUM, AVG and QUANTILE in a cast to an
// integer, so that the mean of a predicate is
// the rate at which the predicate holds
type numericBools struct {
	hint expr.Hint
}

func (b *numericBools) Walk(expr.Node) expr.Rewriter { return b }

func (b *numericBools) Rewrite(e expr.Node) expr.Node {
	agg, ok := e.(*expr.Aggregate)
	if !ok {
		return e
	}
	switch agg.Op {
	case expr.OpSum, expr.OpAvg, expr.OpQuantile:
		t := expr.TypeOf(agg.Inner, b.hint).Scalar()
		if t == expr.BoolType {
			agg.Inner = expr.CastTo(agg.Inner, expr.IntegerType)
		}
	}
	return agg
}

// resolve returns a resolved copy of e
func (n *namespace) resolve(name string, e expr.Node, measures bool, columns map[string]bool) (expr.Node, error) {
	var err error
	r := &resolver{ns: n, name: name, measures: measures, columns: columns, err: &err}
	out := expr.Rewrite(r, expr.Copy(e))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (n *namespace) addDimension(name string, e expr.Node, description string) error {
	if err := n.checkName("dimension", name); err != nil {
		return err
	}
	if e == nil {
		e = expr.Ident(name)
	}
	if expr.IsAggregate(e) {
		return &expr.TypeError{At: e, Msg: fmt.Sprintf("dimension %s cannot contain an aggregate", name)}
	}
	out, err := n.resolve(name, e, false, nil)
	if err != nil {
		return err
	}
	if err := expr.CheckHint(out, n); err != nil {
		return fmt.Errorf("%s: dimension %s: %w", n.entity, name, err)
	}
	n.defs.dims[name] = &Dimension{
		Name:        name,
		Source:      e,
		Expr:        out,
		Type:        expr.TypeOf(out, n),
		Description: description,
	}
	n.defs.dimOrder = append(n.defs.dimOrder, name)
	return nil
}

// measure resolves and checks the
// expression of a measure without
// registering it; identifiers in columns
// resolve to base columns first
func (n *namespace) measure(name string, e expr.Node, description string, columns map[string]bool) (*Measure, error) {
	if e == nil {
		return nil, fmt.Errorf("semantic: %s: measure %s has no expression", n.entity, name)
	}
	out, err := n.resolve(name, e, true, columns)
	if err != nil {
		return nil, err
	}
	if !expr.IsAggregate(out) {
		return nil, &expr.TypeError{At: e, Msg: fmt.Sprintf("measure %s does not aggregate", name)}
	}
	out = expr.Rewrite(&numericBools{hint: n}, out)
	if err := expr.CheckHint(out, n); err != nil {
		return nil, fmt.Errorf("%s: measure %s: %w", n.entity, name, err)
	}
	return &Measure{
		Name:        name,
		Source:      e,
		Expr:        out,
		Type:        expr.TypeOf(out, n),
		Description: description,
	}, nil
}

func (n *namespace) addMeasure(name string, e expr.Node, description string) error {
	if err := n.checkName("measure", name); err != nil {
		return err
	}
	return n.register(n.measure(name, e, description, nil))
}

func (n *namespace) register(m *Measure, err error) error {
	if err != nil {
		return err
	}
	n.defs.measures[m.Name] = m
	n.defs.measOrder = append(n.defs.measOrder, m.Name)
	return nil
}

func (n *namespace) addMeasureFunc(name string, fn MeasureFunc, description string) error {
	if err := n.checkName("measure", name); err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("semantic: %s: measure %s has no expression", n.entity, name)
	}
	s := &Scope{ns: n, name: name}
	e := fn(s)
	if err := s.conflicts(); err != nil {
		return err
	}
	return n.register(n.measure(name, e, description, s.cols))
}

func (n *namespace) addMeasureDef(d *MeasureDef) error {
	if d.Func != nil {
		return n.addMeasureFunc(d.Name, d.Func, d.Description)
	}
	return n.addMeasure(d.Name, d.Expr, d.Description)
}
