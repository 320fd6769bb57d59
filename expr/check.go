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
)

// TypeError is the error type returned
// from Check when an expression is ill-typed.
type TypeError struct {
	At  Node
	Msg string
}

// SyntaxError is the error type
// returned from Check when an
// expression has illegal syntax,
// and from Parse when the input text
// cannot be parsed.
type SyntaxError struct {
	// Pos is the byte offset of the
	// error within the parsed text, or -1
	Pos int
	Msg string
}

// Error implements error
func (t *TypeError) Error() string {
	return fmt.Sprintf("%q is ill-typed: %s", ToString(t.At), t.Msg)
}

func (s *SyntaxError) Error() string {
	if s.Pos >= 0 {
		return fmt.Sprintf("syntax error at offset %d: %s", s.Pos, s.Msg)
	}
	return s.Msg
}

func errtype(e Node, msg string) *TypeError {
	return &TypeError{At: e, Msg: msg}
}

func errsyntax(msg string) *SyntaxError {
	return &SyntaxError{Pos: -1, Msg: msg}
}

// Hint is an argument that can be
// supplied to type-checking operations
// to refine the type of identifiers that
// would otherwise be unknown.
type Hint interface {
	TypeOf(e Node) TypeSet
}

// HintFn is a function that implements Hint
type HintFn func(Node) TypeSet

func (h HintFn) TypeOf(e Node) TypeSet {
	return h(e)
}

// NoHint is the empty Hint
func NoHint(Node) TypeSet {
	return AnyType
}

// TypeOf returns the set of types that n may
// evaluate to, using h to determine the
// types of identifiers.
func TypeOf(n Node, h Hint) TypeSet {
	if h == nil {
		h = HintFn(NoHint)
	}
	switch n := n.(type) {
	case Ident:
		return h.TypeOf(n)
	case Bool:
		return BoolType
	case Integer:
		return IntegerType
	case Float:
		return FloatType
	case String:
		return StringType
	case Timestamp:
		return TimeType
	case Null:
		return NullType
	case *Aggregate:
		return aggtype(n, h)
	case *Arithmetic:
		return arithtype(n, h)
	case *Comparison, *Logical, *Not, *Member, *StringMatch:
		return BoolType | NullType
	case *IsKey:
		return BoolType
	case *Cast:
		return n.To | NullType
	case *Builtin:
		return n.typeof(h)
	case *Total:
		return TypeOf(n.Inner, h)
	case *Subquery:
		if len(n.Query.Columns) == 1 {
			// the subquery has its own
			// scope, so identifiers in it
			// are unknown here
			return TypeOf(n.Query.Columns[0].Expr, HintFn(NoHint)) | NullType
		}
	}
	return AnyType
}

func aggtype(a *Aggregate, h Hint) TypeSet {
	switch a.Op {
	case OpCount, OpCountDistinct:
		return IntegerType
	case OpSum:
		inner := TypeOf(a.Inner, h).Scalar()
		if inner != NoType && inner.Only(IntegerType|BoolType) {
			return IntegerType | NullType
		}
		if inner.Only(FloatType) {
			return FloatType | NullType
		}
		return NumericType | NullType
	case OpAvg, OpQuantile:
		return FloatType | NullType
	case OpMin, OpMax:
		return TypeOf(a.Inner, h) | NullType
	}
	return AnyType
}

func arithtype(a *Arithmetic, h Hint) TypeSet {
	if a.Op == DivOp {
		return FloatType | NullType
	}
	l, r := TypeOf(a.Left, h), TypeOf(a.Right, h)
	out := NumericType
	if l.Scalar().Only(IntegerType) && r.Scalar().Only(IntegerType) {
		out = IntegerType
	} else if l.Scalar().Only(NumericType) && r.Scalar().Only(NumericType) &&
		(l.Scalar().Only(FloatType) || r.Scalar().Only(FloatType)) {
		out = FloatType
	}
	if (l|r)&NullType != 0 {
		out |= NullType
	}
	return out
}

// maybe returns whether an expression of
// type t can produce a value in set; an
// expression that is always NULL qualifies
func maybe(t, set TypeSet) bool {
	s := t.Scalar()
	return s == NoType || s.AnyOf(set)
}

type checker interface {
	check(Hint) error
}

type checkwalk struct {
	errors []error
	hint   Hint
}

func (c *checkwalk) Visit(n Node) Visitor {
	if n == nil {
		return nil
	}
	ce, ok := n.(checker)
	if ok {
		err := ce.check(c.hint)
		if err != nil {
			c.errors = append(c.errors, err)
			return nil
		}
	}
	return c
}

func combine(err []error) error {
	if len(err) == 1 {
		return err[0]
	}
	return fmt.Errorf("%w and %d other errors", err[0], len(err)-1)
}

// Check walks the AST given by n
// and performs rudimentary sanity-checking
// on all of the values in the tree.
func Check(n Node) error {
	return CheckHint(n, HintFn(NoHint))
}

// CheckHint performs the same sanity-checking
// as Check, except that it uses additional type-hint
// information.
func CheckHint(n Node, h Hint) error {
	c := &checkwalk{hint: h}
	Walk(c, n)
	if c.errors == nil {
		return nil
	}
	return combine(c.errors)
}

// nestedAggregate returns the first
// aggregate or ALL inside n, or nil
func nestedAggregate(n Node) Node {
	var nested Node
	Walk(WalkFunc(func(n Node) bool {
		switch n.(type) {
		case *Aggregate, *Total:
			nested = n
		}
		return nested == nil
	}), n)
	return nested
}

func (a *Aggregate) check(h Hint) error {
	if a.Filter != nil {
		if nested := nestedAggregate(a.Filter); nested != nil {
			return errsyntaxf("cannot use %s in the filter of %s", ToString(nested), a.Op)
		}
		if !maybe(TypeOf(a.Filter, h), BoolType) {
			return errtype(a, "filter is not a boolean")
		}
	}
	if _, ok := a.Inner.(Star); ok {
		if a.Op != OpCount {
			return errsyntaxf("%s(*) is not allowed", a.Op)
		}
		return nil
	}
	if nested := nestedAggregate(a.Inner); nested != nil {
		return errsyntaxf("cannot nest %s inside %s", ToString(nested), a.Op)
	}
	t := TypeOf(a.Inner, h)
	switch a.Op {
	case OpSum, OpAvg:
		if !maybe(t, NumericType|BoolType) {
			return errtype(a, "argument is not a number")
		}
	case OpQuantile:
		if !maybe(t, NumericType) {
			return errtype(a, "argument is not a number")
		}
		if a.Param < 0 || a.Param > 1 {
			return errsyntaxf("quantile %g outside [0, 1]", a.Param)
		}
	}
	return nil
}

func (t *Total) check(h Hint) error {
	if !IsAggregate(t.Inner) {
		return errtype(t, "ALL requires an aggregate argument")
	}
	var nested bool
	Walk(WalkFunc(func(n Node) bool {
		if _, ok := n.(*Total); ok {
			nested = true
		}
		return !nested
	}), t.Inner)
	if nested {
		return errsyntax("cannot nest ALL inside ALL")
	}
	return nil
}

func (a *Arithmetic) check(h Hint) error {
	if !maybe(TypeOf(a.Left, h), NumericType) {
		return errtype(a.Left, "not a number")
	}
	if !maybe(TypeOf(a.Right, h), NumericType) {
		return errtype(a.Right, "not a number")
	}
	return nil
}

// compatible returns whether values of
// types a and b can be compared with each other
func compatible(a, b TypeSet) bool {
	a, b = a.Scalar(), b.Scalar()
	if a == NoType || b == NoType {
		// one side is always NULL
		return true
	}
	if a.AnyOf(b) {
		return true
	}
	if a.AnyOf(NumericType) && b.AnyOf(NumericType) {
		return true
	}
	// timestamps are commonly stored
	// and compared as ISO-8601 strings
	if (a.AnyOf(TimeType) && b.AnyOf(StringType)) || (a.AnyOf(StringType) && b.AnyOf(TimeType)) {
		return true
	}
	// booleans are stored as integers
	// by some databases
	if (a.AnyOf(BoolType) && b.AnyOf(IntegerType)) || (a.AnyOf(IntegerType) && b.AnyOf(BoolType)) {
		return true
	}
	return false
}

func (c *Comparison) check(h Hint) error {
	lt, rt := TypeOf(c.Left, h), TypeOf(c.Right, h)
	if !compatible(lt, rt) {
		return errtype(c, fmt.Sprintf("cannot compare %s with %s", lt, rt))
	}
	return nil
}

func (m *Member) check(h Hint) error {
	lt := TypeOf(m.Arg, h)
	for i := range m.Values {
		if !IsConstant(m.Values[i]) {
			return errsyntaxf("IN list element %s is not a constant", ToString(m.Values[i]))
		}
		if rt := TypeOf(m.Values[i], h); !compatible(lt, rt) {
			return errtype(m, fmt.Sprintf("cannot compare %s with %s", lt, rt))
		}
	}
	return nil
}

func (l *Logical) check(h Hint) error {
	if !maybe(TypeOf(l.Left, h), BoolType) {
		return errtype(l.Left, "not a boolean")
	}
	if !maybe(TypeOf(l.Right, h), BoolType) {
		return errtype(l.Right, "not a boolean")
	}
	return nil
}

func (n *Not) check(h Hint) error {
	if !maybe(TypeOf(n.Expr, h), BoolType) {
		return errtype(n.Expr, "not a boolean")
	}
	return nil
}

func (s *StringMatch) check(h Hint) error {
	if !maybe(TypeOf(s.Expr, h), StringType) {
		return errtype(s.Expr, "not a string")
	}
	return nil
}

func (c *Cast) check(h Hint) error {
	switch c.To {
	case IntegerType, FloatType, StringType:
		return nil
	}
	return errsyntaxf("cannot cast to %s", c.To)
}
