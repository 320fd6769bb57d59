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
	"errors"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	testcases := []struct {
		in   string
		want Node
	}{
		{"count()", CountStar()},
		{"COUNT(*)", CountStar()},
		{"count(user_id)", Count(Ident("user_id"))},
		{"count(distinct user_id)", CountDistinct(Ident("user_id"))},
		{"nunique(user_id)", CountDistinct(Ident("user_id"))},
		{"sum(session_revenue)", Sum(Ident("session_revenue"))},
		{"mean(has_conversion = true) * 100", Mul(Avg(Compare(Equals, Ident("has_conversion"), Bool(true))), Integer(100))},
		{"avg(x)", Avg(Ident("x"))},
		{"median(session_duration_seconds)", Quantile(Ident("session_duration_seconds"), 0.5)},
		{"quantile(x, 0.9)", Quantile(Ident("x"), 0.9)},
		{"avg(total_events) filter (where session_duration_seconds > 30)", Avg(Ident("total_events")).Where(Compare(Greater, Ident("session_duration_seconds"), Integer(30)))},
		{"count(*) FILTER (WHERE x)", CountStar().Where(Ident("x"))},
		{"total_revenue / total_events", Div(Ident("total_revenue"), Ident("total_events"))},
		{"session_count / all(session_count) * 100", Mul(Div(Ident("session_count"), All(Ident("session_count"))), Integer(100))},
		{"a - b - c", Sub(Sub(Ident("a"), Ident("b")), Ident("c"))},
		{"a + b * c", Add(Ident("a"), Mul(Ident("b"), Ident("c")))},
		{"(a + b) * c", Mul(Add(Ident("a"), Ident("b")), Ident("c"))},
		{"-3", Integer(-3)},
		{"-x", Sub(Integer(0), Ident("x"))},
		{"1.5e3", Float(1500)},
		{"_.plan_tier", Ident("plan_tier")},
		{"t.plan_tier", Ident("plan_tier")},
		{`"order"`, Ident("order")},
		{"plan_tier = 'premium'", Compare(Equals, Ident("plan_tier"), String("premium"))},
		{"name == 'it''s'", Compare(Equals, Ident("name"), String("it's"))},
		{"x <> 1", Compare(NotEquals, Ident("x"), Integer(1))},
		{"x != 1", Compare(NotEquals, Ident("x"), Integer(1))},
		{"x >= 1 and y < 2 or z <= 3", Or(And(Compare(GreaterEquals, Ident("x"), Integer(1)), Compare(Less, Ident("y"), Integer(2))), Compare(LessEquals, Ident("z"), Integer(3)))},
		{"x > 1 and (y or z)", And(Compare(Greater, Ident("x"), Integer(1)), Or(Ident("y"), Ident("z")))},
		{"not has_conversion", &Not{Expr: Ident("has_conversion")}},
		{"x is null", Is(Ident("x"), IsNull)},
		{"x IS NOT NULL", Is(Ident("x"), IsNotNull)},
		{"x is not true", Is(Ident("x"), IsNotTrue)},
		{"x between 1 and 5", Between(Ident("x"), Integer(1), Integer(5))},
		{"x not between 1 and 5", &Not{Expr: Between(Ident("x"), Integer(1), Integer(5))}},
		{"plan_tier in ('trial', 'premium')", In(Ident("plan_tier"), String("trial"), String("premium"))},
		{"plan_tier not in ('trial')", &Not{Expr: In(Ident("plan_tier"), String("trial"))}},
		{"utm_source like 'goo%'", Like(Ident("utm_source"), "goo%")},
		{"coalesce(x, 0)", Call(Coalesce, Ident("x"), Integer(0))},
		{"cast(x as double)", CastTo(Ident("x"), FloatType)},
		{"null", Null{}},
		{
			"session_start_time >= timestamp '2024-01-02 03:04:05'",
			Compare(GreaterEquals, Ident("session_start_time"), Timestamp{Value: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}),
		},
		{
			"first_seen >= timestamp '2024-01-02'",
			Compare(GreaterEquals, Ident("first_seen"), Timestamp{Value: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}),
		},
	}
	for i := range testcases {
		tc := &testcases[i]
		got, err := Parse(tc.in)
		if err != nil {
			t.Errorf("parsing %q: %s", tc.in, err)
			continue
		}
		if !got.Equals(tc.want) {
			t.Errorf("parsing %q: got %s, want %s", tc.in, ToString(got), ToString(tc.want))
		}
	}
}

// rendering the parsed form of
// rendered text yields the same text
func TestParseRoundTrip(t *testing.T) {
	inputs := []string{
		"SUM(session_revenue) + 1",
		"x AND (y OR z)",
		"NOT (x = 1)",
		"plan_tier IN ('trial', 'premium') AND utm_source LIKE 'goo%'",
		"COUNT(DISTINCT user_id)",
		"COALESCE(x, 0) * 2",
	}
	for _, in := range inputs {
		n, err := Parse(in)
		if err != nil {
			t.Errorf("%q: %s", in, err)
			continue
		}
		if got := ToString(n); got != in {
			t.Errorf("got %q, want %q", got, in)
		}
	}
}

func TestParseErrors(t *testing.T) {
	testcases := []struct {
		in  string
		pos int
	}{
		{"", 0},
		{"sum(x", 5},
		{"x +", 3},
		{"x = 'abc", 4},
		{"foo(x)", 0},
		{"x not 3", 6},
		{"x is 3", 5},
		{"a b", 2},
		{"and", 0},
		{"cast(x as bool)", 10},
		{"quantile(x, y)", 0},
		{"timestamp 'yesterday'", 10},
		{"x like y", 7},
	}
	for i := range testcases {
		tc := &testcases[i]
		_, err := Parse(tc.in)
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Errorf("%q: expected *SyntaxError, got %v", tc.in, err)
			continue
		}
		if se.Pos != tc.pos {
			t.Errorf("%q: error %q at offset %d, want %d", tc.in, se.Msg, se.Pos, tc.pos)
		}
	}
}
