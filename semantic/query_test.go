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
	"testing"

	"github.com/SnellerInc/semlayer/expr"
)

// countingExecutor records every
// query it is asked to execute
type countingExecutor struct {
	queries []string
	result  *Result
	err     error
}

func (c *countingExecutor) Dialect() *expr.Dialect { return expr.DuckDB }

func (c *countingExecutor) Execute(ctx context.Context, query string) (*Result, error) {
	c.queries = append(c.queries, query)
	if c.err != nil {
		return nil, c.err
	}
	return c.result, nil
}

// must returns a function that fails
// the test on a builder error, for use as
// must(t)(q.GroupBy(...))
func must(t testing.TB) func(*Query, error) *Query {
	return func(q *Query, err error) *Query {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
		return q
	}
}

func TestQuerySQL(t *testing.T) {
	tbl := testTable(t)
	base := tbl.Query()
	byTier := must(t)(base.GroupBy("plan_tier"))
	testcases := []struct {
		name  string
		build func() (*Query, error)
		want  string
	}{
		{
			name: "group-aggregate",
			build: func() (*Query, error) {
				return byTier.Aggregate([]string{"session_count", "total_revenue"})
			},
			want: "SELECT plan_tier, COUNT(*) AS session_count, SUM(session_revenue) AS total_revenue FROM amplitude.sessions_fct GROUP BY plan_tier",
		},
		{
			name: "whole-table",
			build: func() (*Query, error) {
				return base.Aggregate([]string{"session_count", "revenue_per_event"})
			},
			want: "SELECT COUNT(*) AS session_count, CAST(SUM(session_revenue) AS DOUBLE) / NULLIF(SUM(total_events), 0) AS revenue_per_event FROM amplitude.sessions_fct",
		},
		{
			name: "market-share",
			build: func() (*Query, error) {
				q := must(t)(byTier.Filter(expr.Compare(expr.Greater, expr.Ident("session_revenue"), expr.Integer(0))))
				return q.Aggregate([]string{"market_share"})
			},
			want: "SELECT plan_tier, CAST(COUNT(*) AS DOUBLE) / NULLIF((SELECT COUNT(*) FROM amplitude.sessions_fct WHERE session_revenue > 0), 0) * 100 AS market_share FROM amplitude.sessions_fct WHERE session_revenue > 0 GROUP BY plan_tier",
		},
		{
			name: "filters-conjoined",
			build: func() (*Query, error) {
				q := must(t)(base.Where("plan_tier = 'premium'"))
				q = must(t)(q.Where("has_conversion"))
				return q.Aggregate([]string{"session_count"})
			},
			want: "SELECT COUNT(*) AS session_count FROM amplitude.sessions_fct WHERE plan_tier = 'premium' AND has_conversion",
		},
		{
			name: "inline",
			build: func() (*Query, error) {
				return byTier.Aggregate([]string{"session_count"},
					Inline("revenue_per_session", func(s *Scope) expr.Node {
						return expr.Div(s.Measure("total_revenue"), s.Measure("session_count"))
					}),
					Agg{Name: "max_events", Expr: expr.Max(expr.Ident("total_events"))},
				)
			},
			want: "SELECT plan_tier, COUNT(*) AS session_count, CAST(SUM(session_revenue) AS DOUBLE) / NULLIF(COUNT(*), 0) AS revenue_per_session, MAX(total_events) AS max_events FROM amplitude.sessions_fct GROUP BY plan_tier",
		},
		{
			name: "mutate-filter-order-limit",
			build: func() (*Query, error) {
				q := must(t)(byTier.Aggregate([]string{"session_count", "total_revenue"}))
				q = must(t)(q.Mutate(Derived{
					Name: "revenue_per_session",
					Expr: expr.Div(expr.Ident("total_revenue"), expr.Ident("session_count")),
				}))
				q = must(t)(q.Filter(expr.Compare(expr.Greater, expr.Ident("session_count"), expr.Integer(1))))
				q = must(t)(q.OrderBy("revenue_per_session", Desc))
				return q.Limit(5)
			},
			want: "SELECT plan_tier, session_count, total_revenue, revenue_per_session FROM (" +
				"SELECT plan_tier, session_count, total_revenue, CAST(total_revenue AS DOUBLE) / NULLIF(session_count, 0) AS revenue_per_session FROM (" +
				"SELECT plan_tier, COUNT(*) AS session_count, SUM(session_revenue) AS total_revenue FROM amplitude.sessions_fct GROUP BY plan_tier" +
				") AS q0) AS q1 WHERE session_count > 1 ORDER BY revenue_per_session DESC LIMIT 5",
		},
		{
			name: "order-appends-limit-replaces",
			build: func() (*Query, error) {
				q := must(t)(byTier.Aggregate([]string{"session_count"}))
				q = must(t)(q.OrderBy("session_count", Desc))
				q = must(t)(q.OrderBy("plan_tier", Asc))
				q = must(t)(q.Limit(10))
				return q.Limit(3)
			},
			want: "SELECT plan_tier, COUNT(*) AS session_count FROM amplitude.sessions_fct GROUP BY plan_tier ORDER BY session_count DESC, plan_tier ASC LIMIT 3",
		},
		{
			name: "group-without-measures",
			build: func() (*Query, error) {
				return byTier.Aggregate(nil)
			},
			want: "SELECT plan_tier FROM amplitude.sessions_fct GROUP BY plan_tier",
		},
		{
			name: "distinct-keys",
			build: func() (*Query, error) {
				return byTier.OrderBy("plan_tier", Asc)
			},
			want: "SELECT DISTINCT plan_tier FROM amplitude.sessions_fct ORDER BY plan_tier ASC",
		},
		{
			name: "projection",
			build: func() (*Query, error) {
				return base.Limit(0)
			},
			want: "SELECT session_id, plan_tier, user_id FROM amplitude.sessions_fct LIMIT 0",
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := tc.build()
			if err != nil {
				t.Fatal(err)
			}
			got, err := q.SQL(expr.DuckDB)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Logf("got  %s", got)
				t.Logf("want %s", tc.want)
				t.Error("wrong SQL")
			}
		})
	}
}

func TestQueryImmutable(t *testing.T) {
	tbl := testTable(t)
	base := must(t)(tbl.Query().GroupBy("plan_tier"))
	before := base.String()
	a := must(t)(base.Aggregate([]string{"session_count"}))
	b := must(t)(base.Aggregate([]string{"total_revenue"}))
	_ = must(t)(a.OrderBy("session_count", Desc))
	_ = must(t)(base.Where("total_events > 3"))
	if base.String() != before {
		t.Errorf("base query changed to %s", base.String())
	}
	if got := a.Columns(); !equalStrings(got, []string{"plan_tier", "session_count"}) {
		t.Errorf("a.Columns() = %v", got)
	}
	if got := b.Columns(); !equalStrings(got, []string{"plan_tier", "total_revenue"}) {
		t.Errorf("b.Columns() = %v", got)
	}
	// the same query built twice is the same query
	a2 := must(t)(must(t)(tbl.Query().GroupBy("plan_tier")).Aggregate([]string{"session_count"}))
	if !a.Compile().Equals(a2.Compile()) {
		t.Error("identical queries compiled differently")
	}
}

func TestQueryErrors(t *testing.T) {
	tbl := testTable(t)
	base := tbl.Query()
	agg := must(t)(must(t)(base.GroupBy("plan_tier")).Aggregate([]string{"session_count"}))
	unknown := []struct {
		name string
		err  func() error
	}{
		{"group-measure", func() error { _, err := base.GroupBy("session_count"); return err }},
		{"group-unknown", func() error { _, err := base.GroupBy("nope"); return err }},
		{"aggregate-dimension", func() error { _, err := base.Aggregate([]string{"plan_tier"}); return err }},
		{"aggregate-unknown", func() error { _, err := base.Aggregate([]string{"nope"}); return err }},
		{"inline-unknown", func() error {
			_, err := base.Aggregate(nil, Agg{Name: "x", Expr: expr.Div(expr.Ident("nope"), expr.Ident("session_count"))})
			return err
		}},
		{"filter-unknown", func() error { _, err := base.Where("nope > 1"); return err }},
		{"filter-measure", func() error { _, err := base.Where("session_count > 1"); return err }},
		{"post-filter-column", func() error { _, err := agg.Where("session_revenue > 1"); return err }},
		{"order-unknown", func() error { _, err := agg.OrderBy("total_revenue", Asc); return err }},
		{"order-before-group", func() error {
			// user_id is no longer an output
			// once the query is grouped by plan_tier
			q := must(t)(base.OrderBy("user_id", Asc))
			_, err := q.GroupBy("plan_tier")
			return err
		}},
		{"mutate-unknown", func() error {
			_, err := agg.Mutate(Derived{Name: "x", Expr: expr.Mul(expr.Ident("total_revenue"), expr.Integer(2))})
			return err
		}},
	}
	for _, tc := range unknown {
		err := tc.err()
		var ue *UnknownNameError
		if !errors.As(err, &ue) {
			t.Errorf("%s: expected *UnknownNameError, got %v", tc.name, err)
		}
	}
	if _, err := agg.Limit(-1); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
	if _, err := agg.Aggregate([]string{"total_revenue"}); !errors.Is(err, ErrAggregated) {
		t.Errorf("expected ErrAggregated, got %v", err)
	}
	if _, err := agg.GroupBy("user_id"); !errors.Is(err, ErrAggregated) {
		t.Errorf("expected ErrAggregated, got %v", err)
	}
	if _, err := base.Aggregate(nil); !errors.Is(err, ErrNoMeasures) {
		t.Errorf("expected ErrNoMeasures, got %v", err)
	}
	if _, err := tbl.Request(&Request{Measures: []string{}}); err != nil {
		t.Errorf("empty request: %v", err)
	}
	if _, err := base.Mutate(Derived{Name: "x", Expr: expr.Integer(1)}); !errors.Is(err, ErrNotAggregated) {
		t.Errorf("expected ErrNotAggregated, got %v", err)
	}
	var de *DuplicateNameError
	if _, err := agg.Mutate(Derived{Name: "session_count", Expr: expr.Integer(1)}); !errors.As(err, &de) {
		t.Errorf("expected *DuplicateNameError, got %v", err)
	}
	if _, err := base.Aggregate([]string{"session_count", "session_count"}); !errors.As(err, &de) {
		t.Errorf("expected *DuplicateNameError, got %v", err)
	}
	var te *expr.TypeError
	if _, err := base.Where("plan_tier"); !errors.As(err, &te) {
		t.Errorf("expected *expr.TypeError for a non-boolean filter, got %v", err)
	}
	if _, err := base.Filter(expr.Compare(expr.Greater, expr.CountStar(), expr.Integer(1))); !errors.As(err, &te) {
		t.Errorf("expected *expr.TypeError for an aggregate filter, got %v", err)
	}
	var se *expr.SyntaxError
	if _, err := base.Where("plan_tier = "); !errors.As(err, &se) {
		t.Errorf("expected *expr.SyntaxError, got %v", err)
	}
}

func TestUnknownNameNeverExecutes(t *testing.T) {
	tbl := testTable(t)
	ex := &countingExecutor{result: &Result{}}
	run := func() error {
		q, err := tbl.Query().GroupBy("plan_tier")
		if err != nil {
			return err
		}
		q, err = q.Aggregate([]string{"session_count", "no_such_measure"})
		if err != nil {
			return err
		}
		_, err = q.Execute(context.Background(), ex)
		return err
	}
	var ue *UnknownNameError
	if err := run(); !errors.As(err, &ue) {
		t.Fatalf("expected *UnknownNameError, got %v", err)
	}
	if len(ex.queries) != 0 {
		t.Fatalf("executor received %d queries", len(ex.queries))
	}
	_, err := tbl.Request(&Request{Dimensions: []string{"plan_tier"}, Measures: []string{"nope"}})
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnknownNameError, got %v", err)
	}
}

func TestExecutionError(t *testing.T) {
	tbl := testTable(t)
	cause := errors.New("connection reset")
	ex := &countingExecutor{err: cause}
	q := must(t)(tbl.Query().Aggregate([]string{"session_count"}))
	_, err := q.Execute(context.Background(), ex)
	var ee *ExecutionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *ExecutionError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("ExecutionError does not wrap its cause")
	}
	if len(ex.queries) != 1 || ee.SQL != ex.queries[0] {
		t.Errorf("unexpected queries %v", ex.queries)
	}
	want := &Result{Columns: []string{"session_count"}, Rows: [][]any{{int64(3)}}}
	ex = &countingExecutor{result: want}
	got, err := q.Execute(context.Background(), ex)
	if err != nil || got != want {
		t.Fatalf("Execute = %v, %v", got, err)
	}
}

func TestQuantileDialect(t *testing.T) {
	tbl := testTable(t)
	err := tbl.RegisterMeasure("median_duration", func(s *Scope) expr.Node {
		return s.Col("session_duration_seconds").Median()
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	q := must(t)(tbl.Query().Aggregate([]string{"median_duration"}))
	got, err := q.SQL(expr.DuckDB)
	if err != nil {
		t.Fatal(err)
	}
	if want := "SELECT QUANTILE_CONT(session_duration_seconds, 0.5) AS median_duration FROM amplitude.sessions_fct"; got != want {
		t.Errorf("got %s", got)
	}
	var ue *expr.UnsupportedError
	if _, err := q.SQL(expr.SQLite); !errors.As(err, &ue) {
		t.Errorf("expected *expr.UnsupportedError, got %v", err)
	}
}

func TestRequest(t *testing.T) {
	tbl := testTable(t)
	q, err := tbl.Request(&Request{
		Dimensions: []string{"plan_tier"},
		Measures:   []string{"session_count", "conversion_rate"},
		Filters:    []string{"total_events >= 1"},
		OrderBy:    []OrderKey{{Name: "conversion_rate", Dir: Desc}},
		Limit:      10,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "SELECT plan_tier, COUNT(*) AS session_count, AVG(CAST(has_conversion = TRUE AS BIGINT)) * 100 AS conversion_rate FROM amplitude.sessions_fct WHERE total_events >= 1 GROUP BY plan_tier ORDER BY conversion_rate DESC LIMIT 10"
	if got := q.String(); got != want {
		t.Errorf("got  %s", got)
		t.Errorf("want %s", want)
	}
	if _, err := tbl.Request(&Request{Limit: -1}); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"": Asc, "ASC": Asc, "desc": Desc, "Descending": Desc} {
		got, err := ParseDirection(in)
		if err != nil || got != want {
			t.Errorf("ParseDirection(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Error("expected an error")
	}
}
