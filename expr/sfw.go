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
	"golang.org/x/exp/slices"
)

// Binding is an expression
// bound to an output name
type Binding struct {
	Expr Node
	As   string
}

// Bind creates a binding from an expression
// and an output binding name
func Bind(e Node, as string) Binding {
	return Binding{Expr: e, As: as}
}

// Identity creates an identity binding from a simple identifier into itself.
func Identity(s string) Binding {
	return Bind(Identifier(s), s)
}

// Result returns the name of
// the result that the binding outputs.
func (b *Binding) Result() string {
	if b.As != "" {
		return b.As
	}
	if id, ok := b.Expr.(Ident); ok {
		return string(id)
	}
	return ""
}

func (b *Binding) text(p *printer) {
	b.Expr.text(p)
	if id, ok := b.Expr.(Ident); ok && string(id) == b.As {
		return
	}
	if b.As != "" {
		p.WriteString(" AS ")
		p.ident(b.As)
	}
}

// Equals returns whether b and o are equivalent.
func (b Binding) Equals(o Binding) bool {
	return b.Result() == o.Result() && b.Expr.Equals(o.Expr)
}

// BindingValues collects all of bind[*].Expr
// and returns them as a slice.
func BindingValues(bind []Binding) []Node {
	out := make([]Node, len(bind))
	for i := range bind {
		out[i] = bind[i].Expr
	}
	return out
}

// From is the FROM clause of a Select
type From interface {
	Printable
	equals(From) bool
}

// TableRef is a reference to a base table,
// optionally qualified with a database name.
type TableRef struct {
	Database string
	Name     string
}

func (t *TableRef) text(p *printer) {
	if t.Database != "" {
		p.ident(t.Database)
		p.WriteByte('.')
	}
	p.ident(t.Name)
}

// String returns the database-qualified name of t.
func (t *TableRef) String() string {
	if t.Database != "" {
		return t.Database + "." + t.Name
	}
	return t.Name
}

func (t *TableRef) equals(f From) bool {
	ft, ok := f.(*TableRef)
	return ok && *ft == *t
}

// DerivedTable is a subquery in a FROM clause
type DerivedTable struct {
	Query *Select
	As    string
}

func (d *DerivedTable) text(p *printer) {
	p.WriteByte('(')
	d.Query.text(p)
	p.WriteString(") AS ")
	p.ident(d.As)
}

func (d *DerivedTable) equals(f From) bool {
	fd, ok := f.(*DerivedTable)
	return ok && fd.As == d.As && d.Query.Equals(fd.Query)
}

// Order represents a single element
// of an ORDER BY clause
type Order struct {
	Column Node
	Desc   bool
}

func (o Order) text(p *printer) {
	o.Column.text(p)
	if o.Desc {
		p.WriteString(" DESC")
	} else {
		p.WriteString(" ASC")
	}
}

// Equals returns whether o and x are equivalent.
func (o Order) Equals(x Order) bool {
	return o.Desc == x.Desc && o.Column.Equals(x.Column)
}

// Select represents a SQL SELECT statement
type Select struct {
	// Distinct, if set, produces SELECT DISTINCT
	Distinct bool
	// Columns is the list of output bindings;
	// an empty list produces SELECT *
	Columns []Binding
	// From is the FROM clause
	From From
	// Where, if non-nil, is the WHERE clause
	Where Node
	// GroupBy, if non-nil, is the GROUP BY clause
	GroupBy []Node
	// OrderBy, if non-nil, is the ORDER BY clause
	OrderBy []Order
	// Limit, if non-nil, is the LIMIT clause
	Limit *Integer
}

func (s *Select) text(p *printer) {
	p.WriteString("SELECT ")
	if s.Distinct {
		p.WriteString("DISTINCT ")
	}
	if len(s.Columns) == 0 {
		p.WriteByte('*')
	}
	for i := range s.Columns {
		if i > 0 {
			p.WriteString(", ")
		}
		s.Columns[i].text(p)
	}
	if s.From != nil {
		p.WriteString(" FROM ")
		s.From.text(p)
	}
	if s.Where != nil {
		p.WriteString(" WHERE ")
		s.Where.text(p)
	}
	if len(s.GroupBy) > 0 {
		p.WriteString(" GROUP BY ")
		for i := range s.GroupBy {
			if i > 0 {
				p.WriteString(", ")
			}
			s.GroupBy[i].text(p)
		}
	}
	if len(s.OrderBy) > 0 {
		p.WriteString(" ORDER BY ")
		for i := range s.OrderBy {
			if i > 0 {
				p.WriteString(", ")
			}
			s.OrderBy[i].text(p)
		}
	}
	if s.Limit != nil {
		p.WriteString(" LIMIT ")
		s.Limit.text(p)
	}
}

// Equals returns whether s and x are equivalent.
func (s *Select) Equals(x *Select) bool {
	if s == nil || x == nil {
		return s == nil && x == nil
	}
	if s.Distinct != x.Distinct || (s.Limit == nil) != (x.Limit == nil) {
		return false
	}
	if s.Limit != nil && *s.Limit != *x.Limit {
		return false
	}
	if (s.From == nil) != (x.From == nil) {
		return false
	}
	if s.From != nil && !s.From.equals(x.From) {
		return false
	}
	return slices.EqualFunc(s.Columns, x.Columns, Binding.Equals) &&
		Equal(s.Where, x.Where) &&
		slices.EqualFunc(s.GroupBy, x.GroupBy, Equal) &&
		slices.EqualFunc(s.OrderBy, x.OrderBy, Order.Equals)
}
