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
	"strconv"
	"strings"
	"text/scanner"
	"time"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokQuotedIdent
	tokInt
	tokFloat
	tokString
	tokPunct
)

type token struct {
	kind tokKind
	text string
	pos  int
}

func (t *token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokString:
		return Quote(t.text)
	case tokQuotedIdent:
		return QuoteID(t.text)
	}
	return strconv.Quote(t.text)
}

// keywords that may not be used
// as bare identifiers in expressions
var parseKeywords = map[string]bool{
	"AND": true, "OR": true, "NOT": true, "IS": true,
	"NULL": true, "TRUE": true, "FALSE": true, "IN": true,
	"LIKE": true, "BETWEEN": true, "DISTINCT": true, "AS": true,
}

// lex splits text into tokens
func lex(text string) ([]token, error) {
	var s scanner.Scanner
	var serr *SyntaxError
	s.Init(strings.NewReader(text))
	s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats
	s.Error = func(s *scanner.Scanner, msg string) {
		if serr == nil {
			serr = &SyntaxError{Pos: s.Pos().Offset, Msg: msg}
		}
	}
	var out []token
	for {
		tok := s.Scan()
		pos := s.Position.Offset
		if serr != nil {
			return nil, serr
		}
		switch tok {
		case scanner.EOF:
			out = append(out, token{kind: tokEOF, pos: len(text)})
			return out, nil
		case scanner.Ident:
			out = append(out, token{kind: tokIdent, text: s.TokenText(), pos: pos})
		case scanner.Int:
			out = append(out, token{kind: tokInt, text: s.TokenText(), pos: pos})
		case scanner.Float:
			out = append(out, token{kind: tokFloat, text: s.TokenText(), pos: pos})
		case '\'', '"':
			str, ok := lexQuoted(&s, tok)
			if !ok {
				return nil, &SyntaxError{Pos: pos, Msg: "unterminated quoted string"}
			}
			kind := tokString
			if tok == '"' {
				kind = tokQuotedIdent
			}
			out = append(out, token{kind: kind, text: str, pos: pos})
		case '<', '>', '!', '=':
			op := string(tok)
			if next := s.Peek(); next == '=' || (tok == '<' && next == '>') {
				op += string(s.Next())
			}
			out = append(out, token{kind: tokPunct, text: op, pos: pos})
		default:
			out = append(out, token{kind: tokPunct, text: string(tok), pos: pos})
		}
	}
}

// lexQuoted reads the remainder of a quoted
// string; a doubled quote character stands
// for itself
func lexQuoted(s *scanner.Scanner, q rune) (string, bool) {
	var text strings.Builder
	for {
		c := s.Next()
		switch c {
		case scanner.EOF:
			return "", false
		case q:
			if s.Peek() != q {
				return text.String(), true
			}
			s.Next()
		}
		text.WriteRune(c)
	}
}

type parser struct {
	toks []token
	cur  int
}

func (p *parser) peek() *token { return &p.toks[p.cur] }

func (p *parser) next() *token {
	t := &p.toks[p.cur]
	if t.kind != tokEOF {
		p.cur++
	}
	return t
}

func (p *parser) errorf(t *token, f string, args ...interface{}) error {
	return &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf(f, args...)}
}

// keyword returns whether the next token
// is the keyword kw, and consumes it if so
func (p *parser) keyword(kw string) bool {
	t := p.peek()
	if t.kind == tokIdent && strings.EqualFold(t.text, kw) {
		p.cur++
		return true
	}
	return false
}

// punct returns whether the next token
// is one of the punctuation strings in lst,
// and consumes it if so
func (p *parser) punct(lst ...string) (string, bool) {
	t := p.peek()
	if t.kind != tokPunct {
		return "", false
	}
	for _, s := range lst {
		if t.text == s {
			p.cur++
			return s, true
		}
	}
	return "", false
}

func (p *parser) expect(s string) error {
	if _, ok := p.punct(s); !ok {
		return p.errorf(p.peek(), "expected %q but found %s", s, p.peek())
	}
	return nil
}

func (p *parser) expectKeyword(kw string) error {
	if !p.keyword(kw) {
		return p.errorf(p.peek(), "expected %s but found %s", kw, p.peek())
	}
	return nil
}

// Parse parses the text of a single expression.
//
// The accepted syntax is a subset of SQL
// expression syntax: the logical operators
// AND, OR and NOT; comparisons (=, ==, !=, <>,
// <, <=, >, >=); IS [NOT] NULL|TRUE|FALSE;
// [NOT] BETWEEN; [NOT] IN (...); [NOT] LIKE;
// arithmetic; literals (numbers, 'strings',
// TRUE, FALSE, NULL, TIMESTAMP '...'); and
// function calls. The aggregate functions are
// COUNT(), COUNT(*), COUNT(x), COUNT(DISTINCT x),
// COUNT_DISTINCT(x) (alias NUNIQUE), SUM, AVG
// (alias MEAN), MIN, MAX, MEDIAN(x) and QUANTILE(x, q),
// each optionally followed by FILTER (WHERE cond).
// ALL(x) denotes x evaluated over all rows.
// A table qualifier on a column name (t.col, _.col)
// is accepted and discarded.
//
// Errors are returned as *SyntaxError.
func Parse(text string) (Node, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	if p.peek().kind == tokEOF {
		return nil, p.errorf(p.peek(), "empty expression")
	}
	n, err := p.or()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %s", t)
	}
	return n, nil
}

func (p *parser) or() (Node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.keyword("OR") {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = Or(left, right)
	}
	return left, nil
}

func (p *parser) and() (Node, error) {
	left, err := p.not()
	if err != nil {
		return nil, err
	}
	for p.keyword("AND") {
		right, err := p.not()
		if err != nil {
			return nil, err
		}
		left = And(left, right)
	}
	return left, nil
}

func (p *parser) not() (Node, error) {
	if p.keyword("NOT") {
		inner, err := p.not()
		if err != nil {
			return nil, err
		}
		return &Not{Expr: inner}, nil
	}
	return p.predicate()
}

var cmpops = map[string]CmpOp{
	"=":  Equals,
	"==": Equals,
	"!=": NotEquals,
	"<>": NotEquals,
	"<":  Less,
	"<=": LessEquals,
	">":  Greater,
	">=": GreaterEquals,
}

func (p *parser) predicate() (Node, error) {
	left, err := p.additive()
	if err != nil {
		return nil, err
	}
	if op, ok := p.punct("=", "==", "!=", "<>", "<", "<=", ">", ">="); ok {
		right, err := p.additive()
		if err != nil {
			return nil, err
		}
		return Compare(cmpops[op], left, right), nil
	}
	if p.keyword("IS") {
		negate := p.keyword("NOT")
		t := p.next()
		var k Keyword
		switch {
		case t.kind == tokIdent && strings.EqualFold(t.text, "NULL"):
			k = IsNull
		case t.kind == tokIdent && strings.EqualFold(t.text, "TRUE"):
			k = IsTrue
		case t.kind == tokIdent && strings.EqualFold(t.text, "FALSE"):
			k = IsFalse
		default:
			return nil, p.errorf(t, "expected NULL, TRUE or FALSE after IS but found %s", t)
		}
		if negate {
			// IsNotNull, IsNotTrue and IsNotFalse
			// immediately follow their positive forms
			k++
		}
		return Is(left, k), nil
	}
	negate := p.keyword("NOT")
	var out Node
	switch {
	case p.keyword("BETWEEN"):
		lo, err := p.additive()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("AND"); err != nil {
			return nil, err
		}
		hi, err := p.additive()
		if err != nil {
			return nil, err
		}
		out = Between(left, lo, hi)
	case p.keyword("IN"):
		if err := p.expect("("); err != nil {
			return nil, err
		}
		var lst []Node
		for {
			v, err := p.additive()
			if err != nil {
				return nil, err
			}
			lst = append(lst, v)
			if _, ok := p.punct(","); !ok {
				break
			}
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		out = In(left, lst...)
	case p.keyword("LIKE"):
		t := p.next()
		if t.kind != tokString {
			return nil, p.errorf(t, "LIKE requires a string pattern")
		}
		out = Like(left, t.text)
	default:
		if negate {
			return nil, p.errorf(p.peek(), "expected BETWEEN, IN or LIKE after NOT")
		}
		return left, nil
	}
	if negate {
		out = &Not{Expr: out}
	}
	return out, nil
}

func (p *parser) additive() (Node, error) {
	left, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.punct("+", "-")
		if !ok {
			return left, nil
		}
		right, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		if op == "+" {
			left = Add(left, right)
		} else {
			left = Sub(left, right)
		}
	}
}

var arithops = map[string]ArithOp{
	"*": MulOp,
	"/": DivOp,
	"%": ModOp,
}

func (p *parser) multiplicative() (Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.punct("*", "/", "%")
		if !ok {
			return left, nil
		}
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = NewArith(arithops[op], left, right)
	}
}

func (p *parser) unary() (Node, error) {
	if _, ok := p.punct("-"); ok {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		switch n := inner.(type) {
		case Integer:
			return -n, nil
		case Float:
			return -n, nil
		}
		return Sub(Integer(0), inner), nil
	}
	if _, ok := p.punct("+"); ok {
		return p.unary()
	}
	return p.primary()
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func (p *parser) primary() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokInt:
		i, err := strconv.ParseInt(t.text, 0, 64)
		if err != nil {
			return nil, p.errorf(t, "bad integer %s: %s", t.text, err)
		}
		return Integer(i), nil
	case tokFloat:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf(t, "bad number %s: %s", t.text, err)
		}
		return Float(f), nil
	case tokString:
		return String(t.text), nil
	case tokQuotedIdent:
		return Ident(t.text), nil
	case tokPunct:
		if t.text == "(" {
			inner, err := p.or()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return inner, nil
		}
		return nil, p.errorf(t, "unexpected %s", t)
	case tokEOF:
		return nil, p.errorf(t, "unexpected end of input")
	}
	word := strings.ToUpper(t.text)
	switch word {
	case "NULL":
		return Null{}, nil
	case "TRUE":
		return Bool(true), nil
	case "FALSE":
		return Bool(false), nil
	case "TIMESTAMP":
		if s := p.peek(); s.kind == tokString {
			p.next()
			ts, ok := parseTimestamp(s.text)
			if !ok {
				return nil, p.errorf(s, "cannot parse %s as a timestamp", s)
			}
			return Timestamp{Value: ts}, nil
		}
	}
	if _, ok := p.punct("("); ok {
		return p.aggregateFilter(p.call(t, word))
	}
	if parseKeywords[word] {
		return nil, p.errorf(t, "unexpected keyword %s", word)
	}
	if _, ok := p.punct("."); ok {
		col := p.next()
		if col.kind != tokIdent && col.kind != tokQuotedIdent {
			return nil, p.errorf(col, "expected a column name after %s.", t.text)
		}
		return Ident(col.text), nil
	}
	return Ident(t.text), nil
}

// args parses a comma-separated argument
// list up to and including the closing paren
func (p *parser) args() ([]Node, error) {
	if _, ok := p.punct(")"); ok {
		return nil, nil
	}
	var out []Node
	for {
		arg, err := p.or()
		if err != nil {
			return nil, err
		}
		out = append(out, arg)
		if _, ok := p.punct(","); !ok {
			break
		}
	}
	return out, p.expect(")")
}

// aggregateFilter parses an optional
// FILTER (WHERE cond) after an aggregate
func (p *parser) aggregateFilter(n Node, err error) (Node, error) {
	if err != nil {
		return nil, err
	}
	agg, ok := n.(*Aggregate)
	if !ok || !p.keyword("FILTER") {
		return n, nil
	}
	if err := p.expect("("); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	cond, err := p.or()
	if err != nil {
		return nil, err
	}
	return agg.Where(cond), p.expect(")")
}

func (p *parser) call(fn *token, name string) (Node, error) {
	switch name {
	case "COUNT":
		if _, ok := p.punct("*"); ok {
			return CountStar(), p.expect(")")
		}
		if p.keyword("DISTINCT") {
			inner, err := p.or()
			if err != nil {
				return nil, err
			}
			return CountDistinct(inner), p.expect(")")
		}
	case "CAST":
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("AS"); err != nil {
			return nil, err
		}
		tt := p.next()
		to := ParseType(tt.text)
		if tt.kind != tokIdent || !to.Scalar().Only(IntegerType|FloatType|StringType) || to == NoType {
			return nil, p.errorf(tt, "cannot cast to %s", tt)
		}
		return CastTo(inner, to), p.expect(")")
	}
	args, err := p.args()
	if err != nil {
		return nil, err
	}
	one := func() (Node, error) {
		if len(args) != 1 {
			return nil, p.errorf(fn, "%s expects 1 argument, but found %d", name, len(args))
		}
		return args[0], nil
	}
	var agg func(Node) *Aggregate
	switch name {
	case "COUNT":
		if len(args) == 0 {
			return CountStar(), nil
		}
		agg = Count
	case "COUNT_DISTINCT", "NUNIQUE":
		agg = CountDistinct
	case "SUM":
		agg = Sum
	case "AVG", "MEAN":
		agg = Avg
	case "MIN":
		agg = Min
	case "MAX":
		agg = Max
	case "MEDIAN":
		agg = func(n Node) *Aggregate { return Quantile(n, 0.5) }
	case "QUANTILE":
		if len(args) != 2 {
			return nil, p.errorf(fn, "QUANTILE expects 2 arguments, but found %d", len(args))
		}
		var q float64
		switch n := args[1].(type) {
		case Float:
			q = float64(n)
		case Integer:
			q = float64(n)
		default:
			return nil, p.errorf(fn, "QUANTILE requires a constant fraction")
		}
		return Quantile(args[0], q), nil
	case "ALL":
		inner, err := one()
		if err != nil {
			return nil, err
		}
		return All(inner), nil
	default:
		op, ok := builtinByName(name)
		if !ok {
			return nil, p.errorf(fn, "unknown function %s", fn.text)
		}
		return Call(op, args...), nil
	}
	inner, err := one()
	if err != nil {
		return nil, err
	}
	return agg(inner), nil
}
