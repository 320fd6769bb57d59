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
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SnellerInc/semlayer/expr"

	"golang.org/x/exp/slices"
)

// Direction is a sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// ParseDirection parses "asc" or "desc"
// (case-insensitively). The empty string is Asc.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "", "asc", "ascending":
		return Asc, nil
	case "desc", "descending":
		return Desc, nil
	}
	return Asc, fmt.Errorf("semantic: unknown sort direction %q", s)
}

// Agg is a measure defined inline
// in a call to Query.Aggregate.
// Exactly one of Expr and Func should be set.
type Agg struct {
	Name string
	Expr expr.Node
	Func MeasureFunc
}

// Inline returns an Agg built by fn.
func Inline(name string, fn MeasureFunc) Agg {
	return Agg{Name: name, Func: fn}
}

// Derived is a named expression over
// the output columns of an aggregated query.
type Derived struct {
	Name string
	Expr expr.Node
}

// column is an output column of a query
type column struct {
	name string
	expr expr.Node
	typ  expr.TypeSet
}

type postOp struct {
	filter  expr.Node
	derived []column
}

type orderKey struct {
	name string
	dir  Direction
}

// Query is a query over an entity.
//
// A Query is an immutable value: each
// method returns a new Query and leaves
// its receiver unchanged, so a Query can be
// shared and extended from multiple goroutines.
// Every method validates its arguments when
// it is called; a Query that has been built
// without error always compiles.
type Query struct {
	table *Table
	ns    *namespace

	// where is the conjunction of filters
	// over the rows of the base table
	where      []expr.Node
	groupBy    []string
	aggregated bool
	measures   []column
	// post holds the operations on
	// the output of the aggregation
	post  []postOp
	order []orderKey
	limit *int
}

func (q *Query) clone() *Query {
	c := *q
	c.where = slices.Clone(q.where)
	c.groupBy = slices.Clone(q.groupBy)
	c.measures = slices.Clone(q.measures)
	c.post = slices.Clone(q.post)
	c.order = slices.Clone(q.order)
	return &c
}

// Table returns the entity that q queries.
func (q *Query) Table() *Table { return q.table }

func (q *Query) unknown(kind, name string) error {
	var known []string
	switch kind {
	case "dimension":
		known = q.ns.defs.dimOrder
	case "measure":
		known = q.ns.defs.measOrder
	case "dimension or column":
		known = q.ns.defs.dimOrder
		for i := range q.ns.base.Columns {
			known = append(known, q.ns.base.Columns[i].Name)
		}
	default:
		known = q.Columns()
	}
	return &UnknownNameError{Entity: q.ns.entity, Kind: kind, Name: name, Suggest: suggest(name, known)}
}

// keys returns the dimensions
// the query projects or groups by
func (q *Query) keys() []string {
	if len(q.groupBy) > 0 || q.aggregated {
		return q.groupBy
	}
	return q.ns.defs.dimOrder
}

// outputs returns the output
// columns of the query
func (q *Query) outputs() []column {
	var out []column
	for _, name := range q.keys() {
		d := q.ns.defs.dims[name]
		out = append(out, column{name: name, expr: d.Expr, typ: d.Type})
	}
	out = append(out, q.measures...)
	for i := range q.post {
		out = append(out, q.post[i].derived...)
	}
	return out
}

// Columns returns the names of the
// output columns of q, in order.
func (q *Query) Columns() []string {
	cols := q.outputs()
	out := make([]string, len(cols))
	for i := range cols {
		out[i] = cols[i].name
	}
	return out
}

func outputHint(cols []column) expr.Hint {
	return expr.HintFn(func(e expr.Node) expr.TypeSet {
		if id, ok := e.(expr.Ident); ok {
			for i := range cols {
				if cols[i].name == string(id) {
					return cols[i].typ
				}
			}
		}
		return expr.AnyType
	})
}

func findColumn(cols []column, name string) bool {
	return slices.IndexFunc(cols, func(c column) bool { return c.name == name }) >= 0
}

// identFunc is a Rewriter that
// applies a function to every identifier
type identFunc func(expr.Ident) expr.Node

func (f identFunc) Walk(expr.Node) expr.Rewriter { return f }

func (f identFunc) Rewrite(e expr.Node) expr.Node {
	if id, ok := e.(expr.Ident); ok {
		return f(id)
	}
	return e
}

func scalar(e expr.Node, what string) error {
	var found expr.Node
	expr.Walk(expr.WalkFunc(func(n expr.Node) bool {
		switch n.(type) {
		case *expr.Aggregate, *expr.Total:
			found = n
		}
		return found == nil
	}), e)
	if found != nil {
		return &expr.TypeError{At: found, Msg: what + " cannot contain an aggregate"}
	}
	return nil
}

// Filter returns q restricted to the rows for which e holds.
//
// Before Aggregate has been called, e is evaluated
// over the rows of the base table, and identifiers
// in e refer to dimensions or base columns.
// After Aggregate, e is evaluated over the rows
// of the output and identifiers refer to
// output columns.
func (q *Query) Filter(e expr.Node) (*Query, error) {
	if e == nil {
		return nil, fmt.Errorf("semantic: nil filter")
	}
	if err := scalar(e, "a filter"); err != nil {
		return nil, err
	}
	var err error
	var hint expr.Hint
	var resolved expr.Node
	if !q.aggregated {
		hint = q.ns.base
		resolved = expr.Rewrite(identFunc(func(id expr.Ident) expr.Node {
			if d, ok := q.ns.defs.dims[string(id)]; ok {
				return expr.Copy(d.Expr)
			}
			if !q.ns.base.has(string(id)) && err == nil {
				err = q.unknown("dimension or column", string(id))
			}
			return id
		}), expr.Copy(e))
	} else {
		cols := q.outputs()
		hint = outputHint(cols)
		resolved = expr.Rewrite(identFunc(func(id expr.Ident) expr.Node {
			if !findColumn(cols, string(id)) && err == nil {
				err = q.unknown("output column", string(id))
			}
			return id
		}), expr.Copy(e))
	}
	if err != nil {
		return nil, err
	}
	if err := expr.CheckHint(resolved, hint); err != nil {
		return nil, err
	}
	if t := expr.TypeOf(resolved, hint).Scalar(); t != expr.NoType && !t.AnyOf(expr.BoolType) {
		return nil, &expr.TypeError{At: e, Msg: "filter is not a boolean expression"}
	}
	out := q.clone()
	if !q.aggregated {
		out.where = append(out.where, resolved)
	} else {
		out.post = append(out.post, postOp{filter: resolved})
	}
	return out, nil
}

// Where is like Filter, but parses
// the filter from text with expr.Parse.
func (q *Query) Where(text string) (*Query, error) {
	e, err := expr.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("semantic: filter %q: %w", text, err)
	}
	return q.Filter(e)
}

func (q *Query) checkOrder() error {
	cols := q.outputs()
	for i := range q.order {
		if !findColumn(cols, q.order[i].name) {
			return q.unknown("output column", q.order[i].name)
		}
	}
	return nil
}

// GroupBy returns q grouped by the named dimensions.
// Grouping by no dimensions leaves q unchanged;
// an aggregated query without any grouping
// aggregates the whole table.
func (q *Query) GroupBy(names ...string) (*Query, error) {
	if q.aggregated {
		return nil, ErrAggregated
	}
	out := q.clone()
	for _, name := range names {
		if _, ok := q.ns.defs.dims[name]; !ok {
			return nil, q.unknown("dimension", name)
		}
		if !slices.Contains(out.groupBy, name) {
			out.groupBy = append(out.groupBy, name)
		}
	}
	if err := out.checkOrder(); err != nil {
		return nil, err
	}
	return out, nil
}

// Aggregate returns q with the named measures
// and the inline measures computed for each group.
// Inline measures are resolved exactly as registered
// measures are, and may refer to any registered
// measure and to earlier inline measures.
// A grouped query aggregated without measures
// yields its distinct group keys; an ungrouped
// one is rejected with ErrNoMeasures.
func (q *Query) Aggregate(names []string, inline ...Agg) (*Query, error) {
	if q.aggregated {
		return nil, ErrAggregated
	}
	if len(names) == 0 && len(inline) == 0 && len(q.groupBy) == 0 {
		return nil, ErrNoMeasures
	}
	out := q.clone()
	out.aggregated = true
	seen := make(map[string]bool)
	for _, name := range names {
		m, ok := q.ns.defs.measures[name]
		if !ok {
			return nil, q.unknown("measure", name)
		}
		if seen[name] {
			return nil, &DuplicateNameError{Entity: q.ns.entity, Kind: "output column", Name: name}
		}
		seen[name] = true
		out.measures = append(out.measures, column{name: name, expr: m.Expr, typ: m.Type})
	}
	if len(inline) > 0 {
		scratch := &namespace{entity: q.ns.entity, base: q.ns.base, defs: q.ns.defs.clone()}
		for i := range inline {
			def := &MeasureDef{Name: inline[i].Name, Func: inline[i].Func, Expr: inline[i].Expr}
			if err := scratch.addMeasureDef(def); err != nil {
				var ure *UnresolvedReferenceError
				if errors.As(err, &ure) {
					return nil, q.unknown(ure.Want, ure.Ref)
				}
				return nil, err
			}
			m := scratch.defs.measures[def.Name]
			out.measures = append(out.measures, column{name: m.Name, expr: m.Expr, typ: m.Type})
		}
	}
	if err := out.checkOrder(); err != nil {
		return nil, err
	}
	return out, nil
}

// Mutate returns q with additional output columns
// computed from the output of the aggregation.
// Each expression may refer only to the output
// columns that q already has.
func (q *Query) Mutate(derived ...Derived) (*Query, error) {
	if !q.aggregated {
		return nil, ErrNotAggregated
	}
	cols := q.outputs()
	hint := outputHint(cols)
	var op postOp
	for i := range derived {
		d := &derived[i]
		if d.Name == "" {
			return nil, fmt.Errorf("semantic: %s: derived column name must not be empty", q.ns.entity)
		}
		if findColumn(cols, d.Name) || findColumn(op.derived, d.Name) {
			return nil, &DuplicateNameError{Entity: q.ns.entity, Kind: "output column", Name: d.Name}
		}
		if d.Expr == nil {
			return nil, fmt.Errorf("semantic: %s: derived column %s has no expression", q.ns.entity, d.Name)
		}
		if err := scalar(d.Expr, "a derived column"); err != nil {
			return nil, err
		}
		for _, ref := range expr.Idents(d.Expr) {
			if !findColumn(cols, ref) {
				return nil, q.unknown("output column", ref)
			}
		}
		if err := expr.CheckHint(d.Expr, hint); err != nil {
			return nil, err
		}
		op.derived = append(op.derived, column{
			name: d.Name,
			expr: expr.Copy(d.Expr),
			typ:  expr.TypeOf(d.Expr, hint),
		})
	}
	if len(op.derived) == 0 {
		return q, nil
	}
	out := q.clone()
	out.post = append(out.post, op)
	return out, nil
}

// OrderBy returns q sorted by the named output
// column after any previous sort keys.
func (q *Query) OrderBy(name string, dir Direction) (*Query, error) {
	if !findColumn(q.outputs(), name) {
		return nil, q.unknown("output column", name)
	}
	out := q.clone()
	out.order = append(out.order, orderKey{name: name, dir: dir})
	return out, nil
}

// Limit returns q limited to at most n rows,
// replacing any previous limit.
func (q *Query) Limit(n int) (*Query, error) {
	if n < 0 {
		return nil, ErrInvalidLimit
	}
	out := q.clone()
	out.limit = &n
	return out, nil
}

// totals replaces each Total in e with
// a scalar subquery over the filtered base table
type totals struct {
	from  expr.TableRef
	where []expr.Node
}

func (t *totals) Walk(e expr.Node) expr.Rewriter {
	if _, ok := e.(*expr.Total); ok {
		return nil
	}
	return t
}

func (t *totals) Rewrite(e expr.Node) expr.Node {
	total, ok := e.(*expr.Total)
	if !ok {
		return e
	}
	from := t.from
	return &expr.Subquery{Query: &expr.Select{
		Columns: []expr.Binding{expr.Bind(expr.Copy(total.Inner), "")},
		From:    &from,
		Where:   expr.Copy(expr.Conjoin(t.where)),
	}}
}

// Compile returns the SELECT statement for q.
func (q *Query) Compile() *expr.Select {
	from := q.ns.base.Ref
	sel := &expr.Select{
		From:  &from,
		Where: expr.Copy(expr.Conjoin(q.where)),
	}
	for _, name := range q.keys() {
		d := q.ns.defs.dims[name]
		sel.Columns = append(sel.Columns, expr.Bind(expr.Copy(d.Expr), name))
		if q.aggregated {
			sel.GroupBy = append(sel.GroupBy, expr.Copy(d.Expr))
		}
	}
	if !q.aggregated {
		sel.Distinct = len(q.groupBy) > 0
	}
	tr := &totals{from: q.ns.base.Ref, where: q.where}
	for i := range q.measures {
		m := &q.measures[i]
		sel.Columns = append(sel.Columns, expr.Bind(expr.Rewrite(tr, expr.Copy(m.expr)), m.name))
	}
	names := q.Columns()
	names = names[:len(names)-q.derivedCount()]
	for i := range q.post {
		op := &q.post[i]
		cols := make([]expr.Binding, 0, len(names)+len(op.derived))
		for _, name := range names {
			cols = append(cols, expr.Identity(name))
		}
		for j := range op.derived {
			cols = append(cols, expr.Bind(expr.Copy(op.derived[j].expr), op.derived[j].name))
			names = append(names, op.derived[j].name)
		}
		sel = &expr.Select{
			Columns: cols,
			From:    &expr.DerivedTable{Query: sel, As: fmt.Sprintf("q%d", i)},
			Where:   expr.Copy(op.filter),
		}
	}
	for i := range q.order {
		sel.OrderBy = append(sel.OrderBy, expr.Order{
			Column: expr.Ident(q.order[i].name),
			Desc:   q.order[i].dir == Desc,
		})
	}
	if q.limit != nil {
		lim := expr.Integer(*q.limit)
		sel.Limit = &lim
	}
	return sel
}

func (q *Query) derivedCount() int {
	n := 0
	for i := range q.post {
		n += len(q.post[i].derived)
	}
	return n
}

// SQL returns the query text of q in dialect d.
func (q *Query) SQL(d *expr.Dialect) (string, error) {
	return expr.Render(d, q.Compile())
}

// String returns the query text of q in
// the default dialect, for diagnostics.
func (q *Query) String() string {
	return expr.ToString(q.Compile())
}

// Execute compiles q in the dialect of ex
// and executes it. An error returned by
// ex is wrapped in an *ExecutionError.
func (q *Query) Execute(ctx context.Context, ex Executor) (*Result, error) {
	text, err := q.SQL(ex.Dialect())
	if err != nil {
		return nil, err
	}
	res, err := ex.Execute(ctx, text)
	if err != nil {
		return nil, &ExecutionError{SQL: text, Err: err}
	}
	return res, nil
}
