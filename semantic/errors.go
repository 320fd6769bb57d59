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
	"errors"
	"fmt"
)

var (
	// ErrInvalidLimit is returned from Query.Limit
	// when the requested limit is negative.
	ErrInvalidLimit = errors.New("semantic: limit must not be negative")
	// ErrAggregated is returned when a query
	// is grouped or aggregated a second time.
	ErrAggregated = errors.New("semantic: query is already aggregated")
	// ErrNotAggregated is returned from Query.Mutate
	// when the query has not been aggregated.
	ErrNotAggregated = errors.New("semantic: query has not been aggregated")
	// ErrNoMeasures is returned from Query.Aggregate
	// when an ungrouped query is aggregated
	// without any measures.
	ErrNoMeasures = errors.New("semantic: aggregate of an ungrouped query needs at least one measure")
)

// DuplicateNameError is returned when a
// name is registered twice in the same scope.
// The registration is rejected and the
// registry is left unchanged.
type DuplicateNameError struct {
	Entity string
	// Kind is what the name was
	// being registered as
	Kind string
	Name string
}

func (d *DuplicateNameError) Error() string {
	if d.Entity == "" {
		return fmt.Sprintf("%s %q is already defined", d.Kind, d.Name)
	}
	return fmt.Sprintf("%s: %s %q is already defined", d.Entity, d.Kind, d.Name)
}

// UnresolvedReferenceError is returned when
// the definition of a dimension or measure
// refers to a name that is not (yet) registered.
type UnresolvedReferenceError struct {
	Entity string
	// Name is the dimension or
	// measure being defined
	Name string
	// Ref is the name that
	// could not be resolved
	Ref string
	// Want describes what Ref
	// was expected to be
	Want string
}

func (u *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("%s: definition of %q references %q, which is not a known %s", u.Entity, u.Name, u.Ref, u.Want)
}

// AmbiguousReferenceError is returned when a
// measure uses the same name both as a base
// column and as a dimension defined by a
// different expression.
type AmbiguousReferenceError struct {
	Entity string
	Name   string
	Ref    string
}

func (a *AmbiguousReferenceError) Error() string {
	return fmt.Sprintf("%s: definition of %q uses %q both as a column and as a dimension", a.Entity, a.Name, a.Ref)
}

// UnknownNameError is returned when a query
// refers to a name that is not available
// at that point in the query.
type UnknownNameError struct {
	Entity string
	Kind   string
	Name   string
	// Suggest, if set, is a known name
	// that is spelled similarly to Name
	Suggest string
}

func (u *UnknownNameError) Error() string {
	msg := fmt.Sprintf("unknown %s %q", u.Kind, u.Name)
	if u.Entity != "" {
		msg = u.Entity + ": " + msg
	}
	if u.Suggest != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", u.Suggest)
	}
	return msg
}

// ExecutionError wraps an error
// returned from an Executor.
type ExecutionError struct {
	// SQL is the text of the query
	// that the executor was given
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	return "semantic: executing query: " + e.Err.Error()
}

func (e *ExecutionError) Unwrap() error { return e.Err }
