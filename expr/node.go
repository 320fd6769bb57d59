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

package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

// Visitor is an interface that must
// be satisfied by the argument to Visit.
//
// A Visitor's Visit method is invoked for each node encountered by Walk. If
// the result visitor w is not nil, Walk visits each of the children of node
// with the visitor w, followed by a call of w.Visit(nil).
//
// (see also: ast.Visitor)
type Visitor interface {
	Visit(Node) Visitor
}

// Rewriter accepts a Node and returns
// a new node (or just its argument)
type Rewriter interface {
	// Rewrite is applied to nodes
	// in depth-first order, and each
	// node is re-written to use the
	// returned value.
	Rewrite(Node) Node

	// Walk is called during node traversal
	// and the returned Rewriter is used for
	// all the children of Node.
	// If the returned rewriter is nil,
	// then traversal does not proceed past Node.
	Walk(Node) Rewriter
}

type nonleaf interface {
	rewrite(r Rewriter) Node
}

// Rewrite recursively applies a Rewriter in depth-first order.
// Rewrite modifies n in place; callers that need to
// preserve n should Rewrite a Copy of it.
func Rewrite(r Rewriter, n Node) Node {
	if n == nil {
		return nil
	}
	nl, ok := n.(nonleaf)
	if ok {
		rc := r.Walk(n)
		if rc != nil {
			n = nl.rewrite(rc)
		}
	}
	n = r.Rewrite(n)
	return n
}

// Walk traverses an AST in depth-first order: It starts by calling
// v.Visit(node); node must not be nil. If the visitor w returned by
// v.Visit(node) is not nil, Walk is invoked recursively with visitor w for
// each of the non-nil children of node, followed by a call of w.Visit(nil).
//
// (see also: ast.Walk)
func Walk(v Visitor, n Node) {
	w := v.Visit(n)
	if w != nil {
		n.walk(w)
		w.Visit(nil)
	}
}

// WalkFunc is a Visitor built from a function.
// Traversal continues into the children of a node
// as long as the function returns true.
type WalkFunc func(Node) bool

// Visit implements Visitor.Visit
func (w WalkFunc) Visit(n Node) Visitor {
	if n == nil || !w(n) {
		return nil
	}
	return w
}

// Printable is the interface satisfied by
// everything that can be rendered as query text.
type Printable interface {
	text(p *printer)
}

// Node is an expression AST node
type Node interface {
	Printable
	// Equals returns whether this node
	// is equivalent to another node.
	Equals(Node) bool

	walk(Visitor)
}

// Equal returns whether a and b are equivalent.
// Either argument may be nil.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equals(b)
}

// AggregateOp is one of the aggregation operations
type AggregateOp int

const (
	// Invalid or no aggregate operation.
	OpNone AggregateOp = iota

	// Describes SQL COUNT(...) aggregate operation
	OpCount

	// Describes SQL COUNT(DISTINCT ...) operation
	OpCountDistinct

	// Describes SQL SUM(...) aggregate operation.
	OpSum

	// Describes SQL AVG(...) aggregate
	OpAvg

	// Describes SQL MIN(...) aggregate operation.
	OpMin

	// Describes SQL MAX(...) aggregate operation.
	OpMax

	// OpQuantile computes the continuous quantile
	// given by Aggregate.Param (0.5 is the median).
	OpQuantile
)

func (a AggregateOp) String() string {
	switch a {
	case OpCount:
		return "COUNT"
	case OpCountDistinct:
		return "COUNT_DISTINCT"
	case OpSum:
		return "SUM"
	case OpAvg:
		return "AVG"
	case OpMin:
		return "MIN"
	case OpMax:
		return "MAX"
	case OpQuantile:
		return "QUANTILE"
	default:
		return "<unknown aggregate>"
	}
}

// Aggregate is an aggregation expression
type Aggregate struct {
	// Op is the aggregation operation
	// (sum, min, max, etc.)
	Op AggregateOp
	// Inner is the expression to be aggregated;
	// COUNT(*) has Inner set to Star{}.
	Inner Node
	// Param is the fraction for OpQuantile
	Param float64
	// Filter, if non-nil, restricts the
	// rows that are aggregated
	Filter Node
}

func (a *Aggregate) Equals(e Node) bool {
	ea, ok := e.(*Aggregate)
	if !ok || ea.Op != a.Op || ea.Param != a.Param || !a.Inner.Equals(ea.Inner) {
		return false
	}
	if a.Filter == nil || ea.Filter == nil {
		return a.Filter == nil && ea.Filter == nil
	}
	return a.Filter.Equals(ea.Filter)
}

func (a *Aggregate) text(p *printer) {
	if a.Filter != nil && !p.dialect.AggregateFilter {
		p.caseFilter(a)
		return
	}
	switch a.Op {
	case OpCountDistinct:
		p.WriteString("COUNT(DISTINCT ")
		a.Inner.text(p)
		p.WriteByte(')')
	case OpQuantile:
		p.quantile(a.Inner, a.Param)
	default:
		p.WriteString(a.Op.String())
		p.WriteByte('(')
		a.Inner.text(p)
		p.WriteByte(')')
	}
	if a.Filter != nil {
		p.WriteString(" FILTER (WHERE ")
		a.Filter.text(p)
		p.WriteByte(')')
	}
}

func (a *Aggregate) walk(v Visitor) {
	Walk(v, a.Inner)
	if a.Filter != nil {
		Walk(v, a.Filter)
	}
}

func (a *Aggregate) rewrite(r Rewriter) Node {
	a.Inner = Rewrite(r, a.Inner)
	if a.Filter != nil {
		a.Filter = Rewrite(r, a.Filter)
	}
	return a
}

// Where returns a copy of a that aggregates
// only the rows for which cond holds. A
// filter that is already present is
// conjoined with cond.
func (a *Aggregate) Where(cond Node) *Aggregate {
	out := &Aggregate{Op: a.Op, Inner: a.Inner, Param: a.Param, Filter: cond}
	if a.Filter != nil {
		out.Filter = And(a.Filter, cond)
	}
	return out
}

// Count produces COUNT(e)
func Count(e Node) *Aggregate { return &Aggregate{Op: OpCount, Inner: e} }

// CountStar produces COUNT(*)
func CountStar() *Aggregate { return &Aggregate{Op: OpCount, Inner: Star{}} }

// CountDistinct produces COUNT(DISTINCT e)
func CountDistinct(e Node) *Aggregate { return &Aggregate{Op: OpCountDistinct, Inner: e} }

// Sum produces SUM(e)
func Sum(e Node) *Aggregate { return &Aggregate{Op: OpSum, Inner: e} }

// Avg produces AVG(e)
func Avg(e Node) *Aggregate { return &Aggregate{Op: OpAvg, Inner: e} }

// Min produces MIN(e)
func Min(e Node) *Aggregate { return &Aggregate{Op: OpMin, Inner: e} }

// Max produces MAX(e)
func Max(e Node) *Aggregate { return &Aggregate{Op: OpMax, Inner: e} }

// Quantile produces the continuous q-quantile of e.
func Quantile(e Node, q float64) *Aggregate {
	return &Aggregate{Op: OpQuantile, Inner: e, Param: q}
}

// IsAggregate returns whether n contains
// an aggregate expression anywhere in its tree.
// Aggregates inside a Total are counted.
func IsAggregate(n Node) bool {
	found := false
	Walk(WalkFunc(func(n Node) bool {
		if _, ok := n.(*Aggregate); ok {
			found = true
		}
		return !found
	}), n)
	return found
}

// Total is the value of Inner computed
// over every row of the (filtered) input,
// regardless of any grouping that applies
// to the surrounding expression.
//
// Total cannot be rendered directly; the query
// compiler replaces it with a Subquery.
type Total struct {
	Inner Node
}

// All produces a Total of e.
func All(e Node) *Total { return &Total{Inner: e} }

func (t *Total) Equals(e Node) bool {
	et, ok := e.(*Total)
	return ok && t.Inner.Equals(et.Inner)
}

func (t *Total) text(p *printer) {
	p.errorf("ALL(%s) must be compiled into a subquery", ToString(t.Inner))
	p.WriteString("ALL(")
	t.Inner.text(p)
	p.WriteByte(')')
}

func (t *Total) walk(v Visitor) { Walk(v, t.Inner) }

func (t *Total) rewrite(r Rewriter) Node {
	t.Inner = Rewrite(r, t.Inner)
	return t
}

// Subquery is a scalar subquery, i.e.
// a query producing exactly one row
// with exactly one column.
type Subquery struct {
	Query *Select
}

func (s *Subquery) Equals(e Node) bool {
	es, ok := e.(*Subquery)
	return ok && s.Query.Equals(es.Query)
}

func (s *Subquery) text(p *printer) {
	p.WriteByte('(')
	s.Query.text(p)
	p.WriteByte(')')
}

// the outer query does not see
// the inner query's identifiers
func (s *Subquery) walk(v Visitor) {}

// Bool is a boolean literal
type Bool bool

func (b Bool) text(p *printer) {
	if b {
		p.WriteString("TRUE")
	} else {
		p.WriteString("FALSE")
	}
}

func (b Bool) Equals(e Node) bool {
	eb, ok := e.(Bool)
	return ok && eb == b
}

func (b Bool) walk(v Visitor) {}

// String is a string literal
type String string

func (s String) text(p *printer) { p.quote(string(s)) }

func (s String) walk(v Visitor) {}

func (s String) Equals(e Node) bool {
	es, ok := e.(String)
	return ok && es == s
}

// Float is a floating-point literal
type Float float64

func (f Float) text(p *printer) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		p.errorf("cannot represent %g as a literal", v)
		p.WriteString("NULL")
		return
	}
	str := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(str, ".e") {
		str += ".0"
	}
	p.WriteString(str)
}

func (f Float) walk(v Visitor) {}

func (f Float) Equals(e Node) bool {
	switch e := e.(type) {
	case Float:
		return e == f
	case Integer:
		return float64(e) == float64(f)
	}
	return false
}

// Integer is an integer literal
type Integer int64

func (i Integer) text(p *printer) {
	p.WriteString(strconv.FormatInt(int64(i), 10))
}

func (i Integer) walk(v Visitor) {}

func (i Integer) Equals(e Node) bool {
	switch e := e.(type) {
	case Integer:
		return e == i
	case Float:
		return float64(e) == float64(i)
	}
	return false
}

// Timestamp is a timestamp literal
type Timestamp struct {
	Value time.Time
}

func (t Timestamp) text(p *printer) { p.timestamp(t.Value) }

func (t Timestamp) walk(v Visitor) {}

func (t Timestamp) Equals(e Node) bool {
	et, ok := e.(Timestamp)
	return ok && et.Value.Equal(t.Value)
}

// Null is the NULL literal
type Null struct{}

func (n Null) text(p *printer) { p.WriteString("NULL") }

func (n Null) walk(v Visitor) {}

func (n Null) Equals(e Node) bool {
	_, ok := e.(Null)
	return ok
}

// IsConstant returns whether n is a literal.
func IsConstant(n Node) bool {
	switch n.(type) {
	case Bool, String, Float, Integer, Timestamp, Null:
		return true
	}
	return false
}

// Literal converts a Go value into
// the equivalent literal node.
// Nodes are returned unchanged.
func Literal(v any) (Node, error) {
	switch v := v.(type) {
	case Node:
		return v, nil
	case nil:
		return Null{}, nil
	case bool:
		return Bool(v), nil
	case int:
		return Integer(v), nil
	case int8:
		return Integer(v), nil
	case int16:
		return Integer(v), nil
	case int32:
		return Integer(v), nil
	case int64:
		return Integer(v), nil
	case uint8:
		return Integer(v), nil
	case uint16:
		return Integer(v), nil
	case uint32:
		return Integer(v), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return nil, fmt.Errorf("expr: integer %d out of range", v)
		}
		return Integer(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, fmt.Errorf("expr: integer %d out of range", v)
		}
		return Integer(v), nil
	case float32:
		return Float(v), nil
	case float64:
		return Float(v), nil
	case string:
		return String(v), nil
	case time.Time:
		return Timestamp{Value: v}, nil
	default:
		return nil, fmt.Errorf("expr: cannot use %T as a literal", v)
	}
}

// Ident is a reference to a named value:
// a column of a table, or a named
// dimension, measure, or output column,
// depending on where the expression is used.
type Ident string

func (i Ident) text(p *printer) { p.ident(string(i)) }

func (i Ident) walk(v Visitor) {}

func (i Ident) Equals(x Node) bool {
	xi, ok := x.(Ident)
	return ok && xi == i
}

// Identifier produces an Ident
func Identifier(x string) Ident { return Ident(x) }

// Idents returns the distinct identifiers
// referenced anywhere in n, in order of
// first appearance.
func Idents(n Node) []string {
	var out []string
	Walk(WalkFunc(func(n Node) bool {
		if id, ok := n.(Ident); ok && !slices.Contains(out, string(id)) {
			out = append(out, string(id))
		}
		return true
	}), n)
	return out
}

// Star is the '*' in COUNT(*)
type Star struct{}

func (s Star) text(p *printer) { p.WriteByte('*') }

func (s Star) Equals(e Node) bool {
	_, ok := e.(Star)
	return ok
}

func (s Star) walk(v Visitor) {}

// CmpOp is a comparison operation type
type CmpOp int

const (
	Equals CmpOp = iota
	NotEquals

	// note: keep these in order
	// so that we can determine
	// quickly if we are performing
	// an ordinal comparison:

	Less
	LessEquals
	Greater
	GreaterEquals
)

func (c CmpOp) String() string {
	switch c {
	case Equals:
		return "="
	case NotEquals:
		return "<>"
	case Less:
		return "<"
	case LessEquals:
		return "<="
	case Greater:
		return ">"
	case GreaterEquals:
		return ">="
	default:
		return "<unknown cmp op>"
	}
}

// Ordinal returns whether c orders its arguments.
func (c CmpOp) Ordinal() bool {
	return c >= Less && c <= GreaterEquals
}

// Comparison is a Node that represents
// a comparison of two expressions
type Comparison struct {
	Op          CmpOp
	Left, Right Node
}

// Compare produces a Comparison
func Compare(op CmpOp, left, right Node) *Comparison {
	return &Comparison{Op: op, Left: left, Right: right}
}

func (c *Comparison) Equals(x Node) bool {
	xc, ok := x.(*Comparison)
	return ok && c.Op == xc.Op && c.Left.Equals(xc.Left) && c.Right.Equals(xc.Right)
}

func (c *Comparison) walk(v Visitor) {
	Walk(v, c.Left)
	Walk(v, c.Right)
}

func (c *Comparison) rewrite(r Rewriter) Node {
	c.Left = Rewrite(r, c.Left)
	c.Right = Rewrite(r, c.Right)
	return c
}

func (c *Comparison) text(p *printer) {
	p.infix(c, c.Left, " "+c.Op.String()+" ", c.Right)
}

// Between yields an expression equivalent to
//
//	<val> BETWEEN <lo> AND <hi>
func Between(val, lo, hi Node) *Logical {
	return &Logical{
		Op:    OpAnd,
		Left:  Compare(GreaterEquals, val, lo),
		Right: Compare(LessEquals, val, hi),
	}
}

// LogicalOp is a logical operation
type LogicalOp int

const (
	OpAnd LogicalOp = iota // A AND B
	OpOr                   // A OR B
)

func (l LogicalOp) String() string {
	switch l {
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	}
	return "<unknown logical op>"
}

// Logical is a Node that represents
// a logical expression
type Logical struct {
	Op          LogicalOp
	Left, Right Node
}

// And produces left AND right
func And(left, right Node) *Logical {
	return &Logical{Op: OpAnd, Left: left, Right: right}
}

// Or produces left OR right
func Or(left, right Node) *Logical {
	return &Logical{Op: OpOr, Left: left, Right: right}
}

// Conjoin joins each of lst with AND.
// Conjoin returns nil when lst is empty.
func Conjoin(lst []Node) Node {
	var out Node
	for i := range lst {
		if out == nil {
			out = lst[i]
		} else {
			out = And(out, lst[i])
		}
	}
	return out
}

func (l *Logical) Equals(x Node) bool {
	xl, ok := x.(*Logical)
	return ok && l.Op == xl.Op && l.Left.Equals(xl.Left) && l.Right.Equals(xl.Right)
}

func (l *Logical) walk(v Visitor) {
	Walk(v, l.Left)
	Walk(v, l.Right)
}

func (l *Logical) rewrite(r Rewriter) Node {
	l.Left = Rewrite(r, l.Left)
	l.Right = Rewrite(r, l.Right)
	return l
}

func (l *Logical) text(p *printer) {
	p.infix(l, l.Left, " "+l.Op.String()+" ", l.Right)
}

// Not is a Node that represents
// the logical inverse of an expression
type Not struct {
	Expr Node
}

func (n *Not) text(p *printer) {
	p.WriteString("NOT ")
	p.operand(n, n.Expr, false)
}

func (n *Not) walk(v Visitor) { Walk(v, n.Expr) }

func (n *Not) rewrite(r Rewriter) Node {
	n.Expr = Rewrite(r, n.Expr)
	return n
}

func (n *Not) Equals(x Node) bool {
	xn, ok := x.(*Not)
	return ok && n.Expr.Equals(xn.Expr)
}

// Keyword is one of the keywords
// that can appear on the right-hand-side
// of an IS expression
type Keyword int

const (
	IsNull Keyword = iota
	IsNotNull
	IsTrue
	IsNotTrue
	IsFalse
	IsNotFalse
)

func (k Keyword) String() string {
	switch k {
	case IsNull:
		return "IS NULL"
	case IsNotNull:
		return "IS NOT NULL"
	case IsTrue:
		return "IS TRUE"
	case IsNotTrue:
		return "IS NOT TRUE"
	case IsFalse:
		return "IS FALSE"
	case IsNotFalse:
		return "IS NOT FALSE"
	}
	return "<unknown keyword>"
}

// IsKey is a Node that represents
// the expression <Expr> IS <Key>
type IsKey struct {
	Key  Keyword
	Expr Node
}

// Is produces e IS k
func Is(e Node, k Keyword) *IsKey {
	return &IsKey{Key: k, Expr: e}
}

func (i *IsKey) text(p *printer) {
	p.operand(i, i.Expr, false)
	p.WriteByte(' ')
	p.WriteString(i.Key.String())
}

func (i *IsKey) walk(v Visitor) { Walk(v, i.Expr) }

func (i *IsKey) rewrite(r Rewriter) Node {
	i.Expr = Rewrite(r, i.Expr)
	return i
}

func (i *IsKey) Equals(x Node) bool {
	xi, ok := x.(*IsKey)
	return ok && i.Key == xi.Key && i.Expr.Equals(xi.Expr)
}

// Member is an implementation of IN
// that compares against a list of
// constant values
type Member struct {
	Arg    Node
	Values []Node
}

// In yields an expression equivalent to
//
//	<val> IN (cmp ...)
func In(val Node, cmp ...Node) *Member {
	return &Member{Arg: val, Values: cmp}
}

func (m *Member) text(p *printer) {
	p.operand(m, m.Arg, false)
	p.WriteString(" IN (")
	for i := range m.Values {
		if i > 0 {
			p.WriteString(", ")
		}
		m.Values[i].text(p)
	}
	p.WriteByte(')')
}

func (m *Member) walk(v Visitor) {
	Walk(v, m.Arg)
	for i := range m.Values {
		Walk(v, m.Values[i])
	}
}

func (m *Member) rewrite(r Rewriter) Node {
	m.Arg = Rewrite(r, m.Arg)
	for i := range m.Values {
		m.Values[i] = Rewrite(r, m.Values[i])
	}
	return m
}

func (m *Member) Equals(e Node) bool {
	em, ok := e.(*Member)
	return ok && m.Arg.Equals(em.Arg) && slices.EqualFunc(m.Values, em.Values, Equal)
}

// StringMatch is a Node that represents
// a LIKE comparison against a constant pattern
type StringMatch struct {
	Expr    Node
	Pattern string
}

// Like produces e LIKE pattern
func Like(e Node, pattern string) *StringMatch {
	return &StringMatch{Expr: e, Pattern: pattern}
}

func (s *StringMatch) text(p *printer) {
	p.operand(s, s.Expr, false)
	p.WriteString(" LIKE ")
	p.quote(s.Pattern)
}

func (s *StringMatch) walk(v Visitor) { Walk(v, s.Expr) }

func (s *StringMatch) rewrite(r Rewriter) Node {
	s.Expr = Rewrite(r, s.Expr)
	return s
}

func (s *StringMatch) Equals(x Node) bool {
	xs, ok := x.(*StringMatch)
	return ok && s.Pattern == xs.Pattern && s.Expr.Equals(xs.Expr)
}

// ArithOp is an arithmetic operation
type ArithOp int

const (
	AddOp ArithOp = iota
	SubOp
	MulOp
	DivOp
	ModOp
)

func (a ArithOp) String() string {
	switch a {
	case AddOp:
		return "+"
	case SubOp:
		return "-"
	case MulOp:
		return "*"
	case DivOp:
		return "/"
	case ModOp:
		return "%"
	default:
		return "<unknown arith op>"
	}
}

// Arithmetic is a Node that represents
// an arithmetic expression
type Arithmetic struct {
	Op          ArithOp
	Left, Right Node
}

// NewArith produces a new Arithmetic node
func NewArith(op ArithOp, left, right Node) *Arithmetic {
	return &Arithmetic{Op: op, Left: left, Right: right}
}

func Add(left, right Node) *Arithmetic { return NewArith(AddOp, left, right) }
func Sub(left, right Node) *Arithmetic { return NewArith(SubOp, left, right) }
func Mul(left, right Node) *Arithmetic { return NewArith(MulOp, left, right) }
func Div(left, right Node) *Arithmetic { return NewArith(DivOp, left, right) }
func Mod(left, right Node) *Arithmetic { return NewArith(ModOp, left, right) }

// Division always produces a float, and
// division by zero produces NULL rather
// than an error or an infinity:
//
//	CAST(left AS DOUBLE) / NULLIF(right, 0)
func (a *Arithmetic) text(p *printer) {
	if a.Op == DivOp {
		p.WriteString("CAST(")
		a.Left.text(p)
		p.WriteString(" AS ")
		p.WriteString(p.dialect.FloatName)
		p.WriteString(") / NULLIF(")
		a.Right.text(p)
		p.WriteString(", 0)")
		return
	}
	p.infix(a, a.Left, " "+a.Op.String()+" ", a.Right)
}

func (a *Arithmetic) walk(v Visitor) {
	Walk(v, a.Left)
	Walk(v, a.Right)
}

func (a *Arithmetic) rewrite(r Rewriter) Node {
	a.Left = Rewrite(r, a.Left)
	a.Right = Rewrite(r, a.Right)
	return a
}

func (a *Arithmetic) Equals(x Node) bool {
	xa, ok := x.(*Arithmetic)
	return ok && a.Op == xa.Op && a.Left.Equals(xa.Left) && a.Right.Equals(xa.Right)
}

// Cast is a Node that represents
// a conversion of From into a number
// or a string
type Cast struct {
	From Node
	To   TypeSet // IntegerType, FloatType, or StringType
}

// CastTo produces CAST(e AS to)
func CastTo(e Node, to TypeSet) *Cast {
	return &Cast{From: e, To: to}
}

func (c *Cast) text(p *printer) {
	p.WriteString("CAST(")
	c.From.text(p)
	p.WriteString(" AS ")
	switch c.To {
	case IntegerType:
		p.WriteString(p.dialect.IntName)
	case FloatType:
		p.WriteString(p.dialect.FloatName)
	case StringType:
		p.WriteString(p.dialect.StringName)
	default:
		p.errorf("cannot cast to %s", c.To)
	}
	p.WriteByte(')')
}

func (c *Cast) walk(v Visitor) { Walk(v, c.From) }

func (c *Cast) rewrite(r Rewriter) Node {
	c.From = Rewrite(r, c.From)
	return c
}

func (c *Cast) Equals(x Node) bool {
	xc, ok := x.(*Cast)
	return ok && c.To == xc.To && c.From.Equals(xc.From)
}
