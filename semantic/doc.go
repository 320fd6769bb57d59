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

// Package semantic implements a semantic layer:
// named dimensions and measures defined over
// base tables, and queries over those names
// that compile into SQL.
//
// An entity is a Table. Dimensions are
// expressions over the columns of the base table;
// measures are aggregate expressions that may
// also refer to other measures. Every name in a
// definition is resolved when the definition is
// registered, and every name in a query is resolved
// when the query is built, so errors are reported
// by the call that caused them rather than by Execute.
//
// A measure that refers to other measures is expanded
// into a single expression over the base table, so
// ratios such as revenue per event are computed in the
// same aggregation pass (and over the same groups) as
// their operands. Division by zero yields NULL.
// A measure wrapped in All (see Scope.All) is computed
// over every filtered row regardless of grouping, which
// is how shares of a total are expressed.
package semantic
