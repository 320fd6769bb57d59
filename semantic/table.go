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
	"fmt"
	"sync"

	"github.com/SnellerInc/semlayer/expr"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Dimension is a named attribute
// of an entity that can be used
// as a grouping key or in a filter.
type Dimension struct {
	Name string
	// Source is the expression
	// as it was registered
	Source expr.Node
	// Expr is Source with every
	// reference resolved to a base column
	Expr        expr.Node
	Type        expr.TypeSet
	Description string
}

// Measure is a named aggregate of an entity.
type Measure struct {
	Name string
	// Source is the expression as it was
	// registered; it may refer to other
	// measures by name.
	Source expr.Node
	// Expr is Source with every measure
	// reference expanded and every column
	// reference resolved, so that Expr can be
	// evaluated in a single aggregation pass.
	Expr        expr.Node
	Type        expr.TypeSet
	Description string
}

// MeasureFunc produces the expression
// for a measure. It is invoked exactly
// once, at registration time.
type MeasureFunc func(s *Scope) expr.Node

// DimensionDef is the definition of a dimension
// used by Table.WithDimensions.
type DimensionDef struct {
	Name string
	// Expr defaults to the column
	// with the same name as the dimension
	Expr        expr.Node
	Description string
}

// MeasureDef is the definition of a measure
// used by Table.WithMeasures. Exactly one of
// Func and Expr should be set.
type MeasureDef struct {
	Name        string
	Func        MeasureFunc
	Expr        expr.Node
	Description string
}

// defs is the set of definitions of an entity
type defs struct {
	dims      map[string]*Dimension
	measures  map[string]*Measure
	dimOrder  []string
	measOrder []string
}

func (d *defs) clone() *defs {
	return &defs{
		dims:      maps.Clone(d.dims),
		measures:  maps.Clone(d.measures),
		dimOrder:  slices.Clone(d.dimOrder),
		measOrder: slices.Clone(d.measOrder),
	}
}

// Table is an entity: a set of named
// dimensions and measures defined over
// a base table.
//
// Definitions are usually registered once
// at startup. A Table is safe for concurrent use,
// and queries built from a Table capture the
// definitions they use at the time they are built.
type Table struct {
	name string
	base *BaseTable

	lock sync.RWMutex
	defs *defs
}

// NewTable creates an entity named name
// over the base table base.
func NewTable(name string, base *BaseTable) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("semantic: entity name must not be empty")
	}
	if base == nil || base.Ref.Name == "" {
		return nil, fmt.Errorf("semantic: entity %s: missing base table", name)
	}
	if err := base.validate(); err != nil {
		return nil, err
	}
	return &Table{
		name: name,
		base: base,
		defs: &defs{
			dims:     make(map[string]*Dimension),
			measures: make(map[string]*Measure),
		},
	}, nil
}

// Name returns the name of the entity.
func (t *Table) Name() string { return t.name }

// Base returns the base table of the entity.
func (t *Table) Base() *BaseTable { return t.base }

func (t *Table) snapshot() *defs {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.defs
}

// update applies fn to a copy of the current
// definitions and installs the copy only
// if fn succeeds
func (t *Table) update(fn func(ns *namespace) error) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	ns := &namespace{entity: t.name, base: t.base, defs: t.defs.clone()}
	if err := fn(ns); err != nil {
		return err
	}
	t.defs = ns.defs
	return nil
}

// RegisterDimension registers a dimension.
// If e is nil, the dimension refers to the
// base column with the same name.
// The name must not already be used by a
// dimension or measure of the entity, and
// every name in e must refer to a base column
// or a previously registered dimension.
func (t *Table) RegisterDimension(name string, e expr.Node, description string) error {
	return t.update(func(ns *namespace) error {
		return ns.addDimension(name, e, description)
	})
}

// RegisterMeasure registers a measure whose
// expression is produced by fn.
//
// Within the expression, identifiers that appear
// inside an aggregate refer to dimensions, or to
// base columns where no dimension has the name;
// handles from Scope.Col always refer to base
// columns. Identifiers that appear outside any
// aggregate refer to previously registered
// measures. A measure must contain at least
// one aggregate.
func (t *Table) RegisterMeasure(name string, fn MeasureFunc, description string) error {
	return t.update(func(ns *namespace) error {
		return ns.addMeasureFunc(name, fn, description)
	})
}

// RegisterMeasureExpr is like RegisterMeasure,
// but takes an expression that has already been built.
func (t *Table) RegisterMeasureExpr(name string, e expr.Node, description string) error {
	return t.update(func(ns *namespace) error {
		return ns.addMeasure(name, e, description)
	})
}

// WithDimensions registers each of lst in order.
// If any definition is rejected, none of
// them are registered.
func (t *Table) WithDimensions(lst ...DimensionDef) error {
	return t.update(func(ns *namespace) error {
		for i := range lst {
			if err := ns.addDimension(lst[i].Name, lst[i].Expr, lst[i].Description); err != nil {
				return err
			}
		}
		return nil
	})
}

// WithMeasures registers each of lst in order;
// later definitions may refer to earlier ones.
// If any definition is rejected, none of
// them are registered.
func (t *Table) WithMeasures(lst ...MeasureDef) error {
	return t.update(func(ns *namespace) error {
		for i := range lst {
			if err := ns.addMeasureDef(&lst[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Dimension returns the dimension with the given name.
func (t *Table) Dimension(name string) (*Dimension, bool) {
	d, ok := t.snapshot().dims[name]
	return d, ok
}

// Measure returns the measure with the given name.
func (t *Table) Measure(name string) (*Measure, bool) {
	m, ok := t.snapshot().measures[name]
	return m, ok
}

// Dimensions returns the dimensions
// of the entity in registration order.
func (t *Table) Dimensions() []*Dimension {
	d := t.snapshot()
	out := make([]*Dimension, len(d.dimOrder))
	for i, name := range d.dimOrder {
		out[i] = d.dims[name]
	}
	return out
}

// Measures returns the measures
// of the entity in registration order.
func (t *Table) Measures() []*Measure {
	d := t.snapshot()
	out := make([]*Measure, len(d.measOrder))
	for i, name := range d.measOrder {
		out[i] = d.measures[name]
	}
	return out
}

// Resolve returns the resolved expression
// of each of the named dimensions or measures.
func (t *Table) Resolve(names ...string) (map[string]expr.Node, error) {
	d := t.snapshot()
	out := make(map[string]expr.Node, len(names))
	for _, name := range names {
		if dim, ok := d.dims[name]; ok {
			out[name] = expr.Copy(dim.Expr)
		} else if m, ok := d.measures[name]; ok {
			out[name] = expr.Copy(m.Expr)
		} else {
			known := append(slices.Clone(d.dimOrder), d.measOrder...)
			return nil, &UnknownNameError{Entity: t.name, Kind: "dimension or measure", Name: name, Suggest: suggest(name, known)}
		}
	}
	return out, nil
}

// Query returns an empty query over the entity:
// an ungrouped, unfiltered projection of
// every dimension.
func (t *Table) Query() *Query {
	return &Query{
		table: t,
		ns:    &namespace{entity: t.name, base: t.base, defs: t.snapshot()},
	}
}
