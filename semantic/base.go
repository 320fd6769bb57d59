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
	"github.com/SnellerInc/semlayer/expr"
)

// Column is a typed column of a base table.
type Column struct {
	Name string
	Type expr.TypeSet
}

// BaseTable describes the physical
// table an entity is defined over.
type BaseTable struct {
	Ref     expr.TableRef
	Columns []Column
}

// NewBaseTable constructs a BaseTable.
func NewBaseTable(database, name string, cols ...Column) *BaseTable {
	return &BaseTable{
		Ref:     expr.TableRef{Database: database, Name: name},
		Columns: cols,
	}
}

// Lookup returns the column with the given name.
func (b *BaseTable) Lookup(name string) (Column, error) {
	for i := range b.Columns {
		if b.Columns[i].Name == name {
			return b.Columns[i], nil
		}
	}
	return Column{}, &UnknownNameError{Entity: b.Ref.String(), Kind: "column", Name: name}
}

func (b *BaseTable) has(name string) bool {
	_, err := b.Lookup(name)
	return err == nil
}

func (b *BaseTable) validate() error {
	seen := make(map[string]struct{}, len(b.Columns))
	for i := range b.Columns {
		name := b.Columns[i].Name
		if _, ok := seen[name]; ok {
			return &DuplicateNameError{Entity: b.Ref.String(), Kind: "column", Name: name}
		}
		seen[name] = struct{}{}
	}
	return nil
}

// TypeOf implements expr.Hint by
// typing identifiers that name columns.
func (b *BaseTable) TypeOf(e expr.Node) expr.TypeSet {
	if id, ok := e.(expr.Ident); ok {
		if c, err := b.Lookup(string(id)); err == nil && c.Type != expr.NoType {
			return c.Type
		}
	}
	return expr.AnyType
}
