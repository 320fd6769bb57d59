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

// OrderKey is a sort key of a Request.
type OrderKey struct {
	Name string
	Dir  Direction
}

// Request is the declarative form of a query:
// the rows for which every filter holds, grouped
// by Dimensions, with Measures computed for
// each group.
type Request struct {
	Dimensions []string
	Measures   []string
	// Filters are parsed with expr.Parse
	// and apply to the base table.
	Filters []string
	OrderBy []OrderKey
	// Limit, if positive, limits
	// the number of rows returned.
	Limit int
}

// Request builds the Query described by req.
// A request without measures returns the
// distinct values of its dimensions.
func (t *Table) Request(req *Request) (*Query, error) {
	q := t.Query()
	var err error
	for _, f := range req.Filters {
		q, err = q.Where(f)
		if err != nil {
			return nil, err
		}
	}
	if len(req.Dimensions) > 0 {
		q, err = q.GroupBy(req.Dimensions...)
		if err != nil {
			return nil, err
		}
	}
	if len(req.Measures) > 0 {
		q, err = q.Aggregate(req.Measures)
		if err != nil {
			return nil, err
		}
	}
	for _, o := range req.OrderBy {
		q, err = q.OrderBy(o.Name, o.Dir)
		if err != nil {
			return nil, err
		}
	}
	if req.Limit < 0 {
		return nil, ErrInvalidLimit
	}
	if req.Limit > 0 {
		q, err = q.Limit(req.Limit)
		if err != nil {
			return nil, err
		}
	}
	return q, nil
}
