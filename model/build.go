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

package model

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/SnellerInc/semlayer/expr"
	"github.com/SnellerInc/semlayer/semantic"
)

// Describer determines the columns of a
// base table, typically by asking the database.
type Describer interface {
	Describe(ctx context.Context, ref expr.TableRef) (*semantic.BaseTable, error)
}

// EntityError is returned from Build
// when an entity cannot be built.
type EntityError struct {
	Entity string
	// Field is the position of the offending
	// definition, e.g. "measures[3] (revenue_per_event)"
	Field string
	Err   error
}

func (e *EntityError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("entity %s: %s", e.Entity, e.Err)
	}
	return fmt.Sprintf("entity %s: %s: %s", e.Entity, e.Field, e.Err)
}

func (e *EntityError) Unwrap() error { return e.Err }

func (e *Entity) base(ctx context.Context, d Describer) (*semantic.BaseTable, error) {
	ref := expr.TableRef{Database: e.Table.Database, Name: e.Table.Name}
	if len(e.Columns) == 0 {
		if d == nil {
			return nil, fmt.Errorf("no columns defined for %s and no describer", ref.String())
		}
		return d.Describe(ctx, ref)
	}
	bt := &semantic.BaseTable{Ref: ref}
	for i := range e.Columns {
		t := expr.AnyType
		if e.Columns[i].Type != "" {
			t = expr.ParseType(e.Columns[i].Type)
		}
		bt.Columns = append(bt.Columns, semantic.Column{Name: e.Columns[i].Name, Type: t})
	}
	return bt, nil
}

// Build builds the entity described by e.
// If e does not list its columns, they are
// determined with d.
func (e *Entity) Build(ctx context.Context, d Describer) (*semantic.Table, error) {
	fail := func(field string, err error) error {
		return &EntityError{Entity: e.Name, Field: field, Err: err}
	}
	base, err := e.base(ctx, d)
	if err != nil {
		return nil, fail("table", err)
	}
	t, err := semantic.NewTable(e.Name, base)
	if err != nil {
		return nil, fail("", err)
	}
	for i := range e.Dimensions {
		def := &e.Dimensions[i]
		field := fmt.Sprintf("dimensions[%d] (%s)", i, def.Name)
		var node expr.Node
		if def.Expr != "" {
			node, err = expr.Parse(def.Expr)
			if err != nil {
				return nil, fail(field, err)
			}
		}
		if err := t.RegisterDimension(def.Name, node, def.Description); err != nil {
			return nil, fail(field, err)
		}
	}
	for i := range e.Measures {
		def := &e.Measures[i]
		field := fmt.Sprintf("measures[%d] (%s)", i, def.Name)
		if def.Expr == "" {
			return nil, fail(field, fmt.Errorf("missing expr"))
		}
		node, err := expr.Parse(def.Expr)
		if err != nil {
			return nil, fail(field, err)
		}
		if err := t.RegisterMeasureExpr(def.Name, node, def.Description); err != nil {
			return nil, fail(field, err)
		}
	}
	return t, nil
}

// Build builds a registry containing every entity in m.
// Entities without columns are described with d,
// which may be nil if every entity lists its columns.
func Build(ctx context.Context, m *Model, d Describer) (*semantic.Registry, error) {
	r := semantic.NewRegistry()
	for i := range m.Entities {
		t, err := m.Entities[i].Build(ctx, d)
		if err != nil {
			return nil, err
		}
		if err := r.Add(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Load opens the model file at p
// within s and builds it.
func Load(ctx context.Context, s fs.FS, p string, d Describer) (*semantic.Registry, error) {
	m, err := Open(s, p)
	if err != nil {
		return nil, err
	}
	return Build(ctx, m, d)
}
