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
	"strings"
	"time"
)

// Dialect describes the flavor of
// SQL produced for a particular database.
type Dialect struct {
	// Name is the name of the dialect
	// (the same name accepted by DialectByName)
	Name string
	// FloatName, IntName, and StringName
	// are the type names used in CAST(... AS ...)
	FloatName, IntName, StringName string
	// Quantile is the name of the continuous
	// quantile aggregate, taking the value and
	// the fraction as arguments. Dialects without
	// a quantile aggregate leave Quantile empty.
	Quantile string
	// AggregateFilter is set when the dialect
	// accepts AGG(x) FILTER (WHERE cond);
	// otherwise filtered aggregates are
	// written with CASE.
	AggregateFilter bool
	// IdentQuote is the character used to
	// quote identifiers.
	IdentQuote byte
	// BackslashEscapes is set when the
	// dialect interprets backslashes inside
	// string literals as escape characters.
	BackslashEscapes bool
	// TimestampKeyword is set when timestamp
	// literals are written as TIMESTAMP '...';
	// otherwise they are written as plain strings.
	TimestampKeyword bool
}

var (
	// DuckDB is the dialect of DuckDB and MotherDuck
	DuckDB = &Dialect{
		Name:             "duckdb",
		FloatName:        "DOUBLE",
		IntName:          "BIGINT",
		StringName:       "VARCHAR",
		Quantile:         "QUANTILE_CONT",
		AggregateFilter:  true,
		IdentQuote:       '"',
		TimestampKeyword: true,
	}
	// SQLite is the dialect of SQLite 3
	SQLite = &Dialect{
		Name:            "sqlite",
		FloatName:       "REAL",
		IntName:         "INTEGER",
		StringName:      "TEXT",
		AggregateFilter: true,
		IdentQuote:      '"',
	}
	// MySQL is the dialect of MySQL 8
	MySQL = &Dialect{
		Name:             "mysql",
		FloatName:        "DOUBLE",
		IntName:          "SIGNED",
		StringName:       "CHAR",
		IdentQuote:       '`',
		BackslashEscapes: true,
		TimestampKeyword: true,
	}

	dialects = []*Dialect{DuckDB, SQLite, MySQL}
)

// DialectByName returns the dialect with the given name.
// The database/sql driver names "sqlite3" and "md"
// are accepted as aliases.
func DialectByName(name string) (*Dialect, error) {
	switch strings.ToLower(name) {
	case "sqlite3":
		return SQLite, nil
	case "md", "motherduck":
		return DuckDB, nil
	}
	for _, d := range dialects {
		if strings.EqualFold(d.Name, name) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("expr: unknown dialect %q", name)
}

func (d *Dialect) String() string { return d.Name }

// UnsupportedError is returned from Render
// when an expression uses a feature that
// the target dialect does not provide.
type UnsupportedError struct {
	Dialect string
	Feature string
}

func (u *UnsupportedError) Error() string {
	return fmt.Sprintf("%s is not supported by the %s dialect", u.Feature, u.Dialect)
}

// printer accumulates query text
// for a particular dialect
type printer struct {
	strings.Builder
	dialect *Dialect
	err     error
}

func (p *printer) errorf(f string, args ...interface{}) {
	if p.err == nil {
		p.err = fmt.Errorf("expr: "+f, args...)
	}
}

func (p *printer) unsupported(feature string) {
	if p.err == nil {
		p.err = &UnsupportedError{Dialect: p.dialect.Name, Feature: feature}
	}
}

func (p *printer) ident(s string) {
	p.WriteString(quoteID(s, p.dialect.IdentQuote))
}

func (p *printer) quote(s string) {
	quote(&p.Builder, s, p.dialect.BackslashEscapes)
}

const timestampLayout = "2006-01-02 15:04:05.999999"

func (p *printer) timestamp(t time.Time) {
	if p.dialect.TimestampKeyword {
		p.WriteString("TIMESTAMP ")
	}
	p.quote(t.UTC().Format(timestampLayout))
}

func (p *printer) quantile(inner Node, q float64) {
	if p.dialect.Quantile == "" {
		p.unsupported("QUANTILE")
	}
	name := p.dialect.Quantile
	if name == "" {
		name = "QUANTILE"
	}
	p.WriteString(name)
	p.WriteByte('(')
	inner.text(p)
	p.WriteString(", ")
	Float(q).text(p)
	p.WriteByte(')')
}

// caseFilter writes AGG(x) FILTER (WHERE cond)
// as AGG(CASE WHEN cond THEN x END); rows that
// fail cond contribute NULL and are ignored
func (p *printer) caseFilter(a *Aggregate) {
	when := func(inner Node) {
		p.WriteString("CASE WHEN ")
		a.Filter.text(p)
		p.WriteString(" THEN ")
		if _, ok := inner.(Star); ok {
			p.WriteString("1")
		} else {
			inner.text(p)
		}
		p.WriteString(" END")
	}
	switch a.Op {
	case OpCountDistinct:
		p.WriteString("COUNT(DISTINCT ")
	case OpQuantile:
		if p.dialect.Quantile == "" {
			p.unsupported("QUANTILE")
		}
		p.WriteString(p.dialect.Quantile)
		p.WriteByte('(')
		when(a.Inner)
		p.WriteString(", ")
		Float(a.Param).text(p)
		p.WriteByte(')')
		return
	default:
		p.WriteString(a.Op.String())
		p.WriteByte('(')
	}
	when(a.Inner)
	p.WriteByte(')')
}

// precedence returns the binding
// strength of the operator at the root of n;
// larger numbers bind more tightly
func precedence(n Node) int {
	switch n := n.(type) {
	case *Logical:
		if n.Op == OpOr {
			return 1
		}
		return 2
	case *Not:
		return 3
	case *Comparison, *IsKey, *Member, *StringMatch:
		return 4
	case *Arithmetic:
		if n.Op == AddOp || n.Op == SubOp {
			return 5
		}
		return 6
	}
	return 10
}

// operand writes child as an operand of parent,
// parenthesizing it when leaving it bare would
// change the meaning of the expression;
// right-hand operands of left-associative
// operators are parenthesized at equal precedence
func (p *printer) operand(parent, child Node, right bool) {
	pp, cp := precedence(parent), precedence(child)
	parens := cp < pp || (right && cp == pp)
	if _, ok := parent.(*Not); ok && cp < 10 {
		parens = true
	}
	if parens {
		p.WriteByte('(')
	}
	child.text(p)
	if parens {
		p.WriteByte(')')
	}
}

func (p *printer) infix(parent, left Node, op string, right Node) {
	p.operand(parent, left, false)
	p.WriteString(op)
	p.operand(parent, right, true)
}

// Render produces the query text for v in
// the given dialect. Render fails if v uses
// a feature that the dialect does not support.
func Render(d *Dialect, v Printable) (string, error) {
	p := &printer{dialect: d}
	v.text(p)
	if p.err != nil {
		return "", p.err
	}
	return p.String(), nil
}

// ToString returns the DuckDB text of v,
// ignoring any rendering errors.
// ToString is intended for diagnostics.
func ToString(v Printable) string {
	p := &printer{dialect: DuckDB}
	v.text(p)
	return p.String()
}
