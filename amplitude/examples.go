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

package amplitude

import (
	"fmt"
	"time"

	"github.com/SnellerInc/semlayer/expr"
	"github.com/SnellerInc/semlayer/semantic"

	"golang.org/x/exp/slices"
)

// Example is a named query over the
// entities of Registry.
type Example struct {
	// Name is a short identifier
	Name string
	// Title is a one-line description
	Title string
	// Entity is the entity queried
	Entity string
	// Build constructs the query. Examples that
	// depend on the current time take it from now.
	Build func(t *semantic.Table, now time.Time) (*semantic.Query, error)
}

// Query builds the example against the
// matching entity in r.
func (e *Example) Query(r *semantic.Registry, now time.Time) (*semantic.Query, error) {
	t, err := r.Table(e.Entity)
	if err != nil {
		return nil, err
	}
	q, err := e.Build(t, now)
	if err != nil {
		return nil, fmt.Errorf("example %s: %w", e.Name, err)
	}
	return q, nil
}

// step is one builder call in a chain
type step func(q *semantic.Query) (*semantic.Query, error)

func chain(steps ...step) func(*semantic.Table, time.Time) (*semantic.Query, error) {
	return func(t *semantic.Table, _ time.Time) (*semantic.Query, error) {
		return apply(t.Query(), steps)
	}
}

func apply(q *semantic.Query, steps []step) (*semantic.Query, error) {
	var err error
	for _, s := range steps {
		q, err = s(q)
		if err != nil {
			return nil, err
		}
	}
	return q, nil
}

func where(text string) step {
	return func(q *semantic.Query) (*semantic.Query, error) { return q.Where(text) }
}

func groupBy(names ...string) step {
	return func(q *semantic.Query) (*semantic.Query, error) { return q.GroupBy(names...) }
}

func aggregate(names []string, inline ...semantic.Agg) step {
	return func(q *semantic.Query) (*semantic.Query, error) { return q.Aggregate(names, inline...) }
}

func mutate(d ...semantic.Derived) step {
	return func(q *semantic.Query) (*semantic.Query, error) { return q.Mutate(d...) }
}

func desc(name string) step {
	return func(q *semantic.Query) (*semantic.Query, error) { return q.OrderBy(name, semantic.Desc) }
}

func limit(n int) step {
	return func(q *semantic.Query) (*semantic.Query, error) { return q.Limit(n) }
}

func request(req *semantic.Request) func(*semantic.Table, time.Time) (*semantic.Query, error) {
	return func(t *semantic.Table, _ time.Time) (*semantic.Query, error) {
		return t.Request(req)
	}
}

func names(lst ...string) []string { return lst }

func ratio(num, den string) semantic.MeasureFunc {
	return func(s *semantic.Scope) expr.Node {
		return expr.Div(s.Measure(num), s.Measure(den))
	}
}

func pct(num, den string) semantic.MeasureFunc {
	return func(s *semantic.Scope) expr.Node {
		return expr.Mul(expr.Div(s.Measure(num), s.Measure(den)), expr.Integer(100))
	}
}

func alias(m string) semantic.MeasureFunc {
	return func(s *semantic.Scope) expr.Node { return s.Measure(m) }
}

var examples = []Example{
	{
		Name:   "overall",
		Title:  "Overall session metrics (no grouping)",
		Entity: "sessions",
		Build: chain(
			aggregate(names("session_count", "total_revenue", "conversion_rate", "bounce_rate")),
		),
	},
	{
		Name:   "by-plan-tier",
		Title:  "Sessions by plan tier",
		Entity: "sessions",
		Build: chain(
			groupBy("plan_tier"),
			aggregate(names("session_count", "avg_session_duration", "conversion_rate", "market_share")),
			desc("session_count"),
		),
	},
	{
		Name:   "high-value",
		Title:  "High-value sessions (revenue > 100)",
		Entity: "sessions",
		Build: chain(
			where("session_revenue > 100"),
			groupBy("plan_tier"),
			aggregate(names("session_count", "total_revenue", "avg_revenue_per_session")),
			desc("total_revenue"),
		),
	},
	{
		Name:   "engaged",
		Title:  "Engaged sessions (duration > 60s, more than 3 events)",
		Entity: "sessions",
		Build: chain(
			where("session_duration_seconds > 60"),
			where("total_events > 3"),
			groupBy("traffic_source"),
			aggregate(names("session_count", "avg_events_per_session", "conversion_rate")),
			limit(10),
		),
	},
	{
		Name:   "funnel",
		Title:  "Conversion funnel by plan tier and lifecycle stage",
		Entity: "sessions",
		Build: chain(
			groupBy("plan_tier", "max_lifecycle_stage"),
			aggregate(names("session_count", "conversion_rate", "avg_funnel_depth")),
			desc("session_count"),
			limit(15),
		),
	},
	{
		Name:   "attribution",
		Title:  "Attribution by UTM source and medium",
		Entity: "sessions",
		Build: chain(
			where("utm_source IS NOT NULL"),
			groupBy("utm_source", "utm_medium"),
			aggregate(names("session_count", "total_revenue", "conversion_rate", "market_share")),
			desc("session_count"),
			limit(10),
		),
	},
	{
		Name:   "inline",
		Title:  "Calculations defined inline in the aggregation",
		Entity: "sessions",
		Build: chain(
			groupBy("plan_tier"),
			aggregate(names("session_count", "total_revenue"),
				semantic.Inline("revenue_per_session", ratio("total_revenue", "session_count")),
				semantic.Inline("high_value_pct", func(s *semantic.Scope) expr.Node {
					return expr.Mul(s.Col("session_revenue").Gt(50).Mean(), expr.Integer(100))
				}),
				semantic.Inline("engaged_events", func(s *semantic.Scope) expr.Node {
					return s.Col("total_events").Where(s.Col("session_duration_seconds").Gt(30)).Mean()
				}),
			),
			desc("total_revenue"),
		),
	},
	{
		Name:   "lifecycle-events",
		Title:  "Lifecycle event distribution",
		Entity: "sessions",
		Build: chain(
			aggregate(names("session_count", "awareness_events", "interest_events",
				"consideration_events", "trial_events", "activation_events",
				"retention_events", "expansion_events", "churn_risk_events")),
		),
	},
	{
		Name:   "lifecycle-progression",
		Title:  "Lifecycle stage progression by plan",
		Entity: "sessions",
		Build: chain(
			groupBy("plan_tier"),
			aggregate(names("session_count", "avg_funnel_depth", "activation_rate"),
				semantic.Inline("events_per_step", func(s *semantic.Scope) expr.Node {
					return expr.Div(s.Col("total_events").Sum(), s.Col("max_funnel_step").Sum())
				}),
			),
			desc("avg_funnel_depth"),
		),
	},
	{
		Name:   "user-engagement",
		Title:  "User engagement overview",
		Entity: "users",
		Build: chain(
			aggregate(names("user_count", "active_users_7d", "active_users_30d", "paying_customers",
				"retention_rate_7d", "retention_rate_30d", "stickiness_30d")),
		),
	},
	{
		Name:   "user-cohorts",
		Title:  "User cohorts by engagement",
		Entity: "users",
		Build: chain(
			aggregate(names("user_count", "power_users", "casual_users", "at_risk_users"),
				semantic.Inline("power_user_pct", pct("power_users", "user_count")),
				semantic.Inline("casual_pct", pct("casual_users", "user_count")),
				semantic.Inline("at_risk_pct", pct("at_risk_users", "user_count")),
			),
		),
	},
	{
		Name:   "user-revenue",
		Title:  "Revenue by current plan tier",
		Entity: "users",
		Build: chain(
			where("current_plan_tier IS NOT NULL"),
			groupBy("current_plan_tier"),
			aggregate(names("user_count", "paying_customers", "total_ltv", "avg_ltv",
				"avg_revenue_30d", "market_share")),
			desc("total_ltv"),
		),
	},
	{
		Name:   "user-retention",
		Title:  "Retention by lifecycle stage",
		Entity: "users",
		Build: chain(
			where("max_lifecycle_stage_name IS NOT NULL"),
			groupBy("max_lifecycle_stage_name"),
			aggregate(names("user_count", "retention_rate_7d", "retention_rate_30d",
				"avg_events_30d", "avg_revenue_30d")),
			desc("user_count"),
		),
	},
	{
		Name:   "first-touch",
		Title:  "First-touch attribution",
		Entity: "users",
		Build: chain(
			where("first_touch_utm_source IS NOT NULL"),
			groupBy("first_touch_utm_source", "first_touch_utm_medium"),
			aggregate(names("user_count", "activated_users", "paying_customers", "total_ltv", "avg_ltv"),
				semantic.Inline("activation_cvr", alias("activation_rate")),
				semantic.Inline("customer_cvr", alias("paying_rate")),
			),
			desc("total_ltv"),
			limit(10),
		),
	},
	{
		Name:   "quality-score",
		Title:  "Session quality score computed after aggregation",
		Entity: "sessions",
		Build: chain(
			groupBy("plan_tier"),
			aggregate(names("session_count", "avg_session_duration", "avg_events_per_session", "conversion_rate")),
			mutate(semantic.Derived{
				Name: "quality_score",
				Expr: expr.Add(
					expr.Add(
						expr.Mul(expr.Div(expr.Ident("avg_session_duration"), expr.Integer(100)), expr.Float(0.3)),
						expr.Mul(expr.Ident("avg_events_per_session"), expr.Float(0.4))),
					expr.Mul(expr.Ident("conversion_rate"), expr.Float(0.3))),
			}),
			desc("quality_score"),
		),
	},
	{
		Name:   "recent",
		Title:  "Activity in the last 7 days",
		Entity: "sessions",
		Build: func(t *semantic.Table, now time.Time) (*semantic.Query, error) {
			since := expr.Timestamp{Value: now.AddDate(0, 0, -7)}
			q, err := t.Query().Filter(expr.Compare(expr.GreaterEquals, expr.Ident("session_start_time"), since))
			if err != nil {
				return nil, err
			}
			return apply(q, []step{
				groupBy("plan_tier"),
				aggregate(names("session_count", "total_revenue", "conversion_rate")),
				desc("session_count"),
			})
		},
	},
	{
		Name:   "top-tiers",
		Title:  "Top plan tiers by session count",
		Entity: "sessions",
		Build: chain(
			groupBy("plan_tier"),
			aggregate(names("session_count", "total_revenue", "conversion_rate")),
			desc("session_count"),
			limit(5),
		),
	},
	{
		Name:   "volume-by-tier",
		Title:  "Session volume by plan tier",
		Entity: "sessions",
		Build: request(&semantic.Request{
			Dimensions: []string{"plan_tier"},
			Measures:   []string{"session_count", "avg_session_duration", "avg_events_per_session"},
			OrderBy:    []semantic.OrderKey{{Name: "session_count", Dir: semantic.Desc}},
		}),
	},
	{
		Name:   "funnel-by-stage",
		Title:  "Conversion funnel by lifecycle stage",
		Entity: "sessions",
		Build: request(&semantic.Request{
			Dimensions: []string{"max_lifecycle_stage"},
			Measures:   []string{"session_count", "conversion_rate", "activation_rate", "avg_funnel_depth"},
			OrderBy:    []semantic.OrderKey{{Name: "session_count", Dir: semantic.Desc}},
		}),
	},
	{
		Name:   "revenue-by-source",
		Title:  "Revenue by traffic source",
		Entity: "sessions",
		Build: request(&semantic.Request{
			Dimensions: []string{"traffic_source"},
			Measures:   []string{"session_count", "total_revenue", "avg_revenue_per_session", "conversion_rate"},
			OrderBy:    []semantic.OrderKey{{Name: "total_revenue", Dir: semantic.Desc}},
			Limit:      10,
		}),
	},
	{
		Name:   "campaign-quality",
		Title:  "Session quality by UTM campaign",
		Entity: "sessions",
		Build: request(&semantic.Request{
			Dimensions: []string{"utm_campaign"},
			Measures:   []string{"session_count", "bounce_rate", "engaged_session_rate", "avg_session_duration"},
			OrderBy:    []semantic.OrderKey{{Name: "session_count", Dir: semantic.Desc}},
			Limit:      10,
		}),
	},
}

// Examples returns the example catalogue.
func Examples() []Example {
	return slices.Clone(examples)
}

// ExampleByName returns the example with
// the given name.
func ExampleByName(name string) (Example, bool) {
	i := slices.IndexFunc(examples, func(e Example) bool { return e.Name == name })
	if i < 0 {
		return Example{}, false
	}
	return examples[i], true
}
