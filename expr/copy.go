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

// Copy returns a deep copy of e
func Copy(e Node) Node {
	switch e := e.(type) {
	case nil:
		return nil
	case *Aggregate:
		return &Aggregate{Op: e.Op, Inner: Copy(e.Inner), Param: e.Param, Filter: Copy(e.Filter)}
	case *Total:
		return &Total{Inner: Copy(e.Inner)}
	case *Subquery:
		return &Subquery{Query: CopySelect(e.Query)}
	case *Comparison:
		return &Comparison{Op: e.Op, Left: Copy(e.Left), Right: Copy(e.Right)}
	case *Logical:
		return &Logical{Op: e.Op, Left: Copy(e.Left), Right: Copy(e.Right)}
	case *Not:
		return &Not{Expr: Copy(e.Expr)}
	case *IsKey:
		return &IsKey{Key: e.Key, Expr: Copy(e.Expr)}
	case *Member:
		return &Member{Arg: Copy(e.Arg), Values: copyList(e.Values)}
	case *StringMatch:
		return &StringMatch{Expr: Copy(e.Expr), Pattern: e.Pattern}
	case *Arithmetic:
		return &Arithmetic{Op: e.Op, Left: Copy(e.Left), Right: Copy(e.Right)}
	case *Cast:
		return &Cast{From: Copy(e.From), To: e.To}
	case *Builtin:
		return &Builtin{Func: e.Func, Args: copyList(e.Args)}
	case Ident, Star, Bool, String, Float, Integer, Timestamp, Null:
		// immutable values
		return e
	default:
		panic(fmt.Sprintf("expr.Copy: unexpected node %T", e))
	}
}

func copyList(lst []Node) []Node {
	if lst == nil {
		return nil
	}
	out := make([]Node, len(lst))
	for i := range lst {
		out[i] = Copy(lst[i])
	}
	return out
}

// CopySelect returns a deep copy of s
func CopySelect(s *Select) *Select {
	if s == nil {
		return nil
	}
	out := &Select{
		Distinct: s.Distinct,
		Where:    Copy(s.Where),
		GroupBy:  copyList(s.GroupBy),
	}
	if s.Limit != nil {
		lim := *s.Limit
		out.Limit = &lim
	}
	if s.Columns != nil {
		out.Columns = make([]Binding, len(s.Columns))
		for i := range s.Columns {
			out.Columns[i] = Bind(Copy(s.Columns[i].Expr), s.Columns[i].As)
		}
	}
	if s.OrderBy != nil {
		out.OrderBy = make([]Order, len(s.OrderBy))
		for i := range s.OrderBy {
			out.OrderBy[i] = Order{Column: Copy(s.OrderBy[i].Column), Desc: s.OrderBy[i].Desc}
		}
	}
	switch f := s.From.(type) {
	case *TableRef:
		ref := *f
		out.From = &ref
	case *DerivedTable:
		out.From = &DerivedTable{Query: CopySelect(f.Query), As: f.As}
	}
	return out
}
