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

// Package model implements declarative
// semantic models: files that define entities,
// their dimensions and their measures as data,
// in YAML (or JSON) or TOML.
//
// A model is turned into a semantic.Registry
// by Build, which applies exactly the validation
// that programmatic registration applies.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/exp/slices"
	"sigs.k8s.io/yaml"
)

// TableRef names the base table of an entity.
type TableRef struct {
	Database string `json:"database,omitempty" toml:"database,omitempty"`
	Name     string `json:"name" toml:"name"`
}

// ColumnDef is a column of a base table.
type ColumnDef struct {
	Name string `json:"name" toml:"name"`
	// Type is a type name accepted by expr.ParseType.
	// An empty Type accepts values of any type.
	Type string `json:"type,omitempty" toml:"type,omitempty"`
}

// DimensionDef is the definition of a dimension.
type DimensionDef struct {
	Name string `json:"name" toml:"name"`
	// Expr is parsed with expr.Parse;
	// if Expr is empty, the dimension is the
	// column with the same name
	Expr        string `json:"expr,omitempty" toml:"expr,omitempty"`
	Description string `json:"description,omitempty" toml:"description,omitempty"`
}

// MeasureDef is the definition of a measure.
type MeasureDef struct {
	Name string `json:"name" toml:"name"`
	// Expr is parsed with expr.Parse
	Expr        string `json:"expr" toml:"expr"`
	Description string `json:"description,omitempty" toml:"description,omitempty"`
}

// Entity is the definition of one entity.
type Entity struct {
	Name        string   `json:"name" toml:"name"`
	Description string   `json:"description,omitempty" toml:"description,omitempty"`
	Table       TableRef `json:"table" toml:"table"`
	// Columns, if empty, are determined
	// by describing the table; see Build.
	Columns    []ColumnDef    `json:"columns,omitempty" toml:"columns,omitempty"`
	Dimensions []DimensionDef `json:"dimensions,omitempty" toml:"dimensions,omitempty"`
	Measures   []MeasureDef   `json:"measures,omitempty" toml:"measures,omitempty"`
}

// Equal returns whether e and o are equivalent.
func (e *Entity) Equal(o *Entity) bool {
	return e.Name == o.Name &&
		e.Description == o.Description &&
		e.Table == o.Table &&
		slices.Equal(e.Columns, o.Columns) &&
		slices.Equal(e.Dimensions, o.Dimensions) &&
		slices.Equal(e.Measures, o.Measures)
}

// Model is a set of entity definitions.
type Model struct {
	Entities []Entity `json:"entities" toml:"entities"`
}

// Entity returns the entity with the given name.
func (m *Model) Entity(name string) (*Entity, bool) {
	for i := range m.Entities {
		if m.Entities[i].Name == name {
			return &m.Entities[i], true
		}
	}
	return nil, false
}

// Equal returns whether m and o are
// equivalent. Equivalent models have
// the same hash.
func (m *Model) Equal(o *Model) bool {
	if m == nil || o == nil {
		return m == nil && o == nil
	}
	return slices.EqualFunc(m.Entities, o.Entities, func(a, b Entity) bool {
		return a.Equal(&b)
	})
}

// Hash returns a hash of the model
// that can be used to detect changes.
// The hash does not depend on the
// format that the model was decoded from.
func (m *Model) Hash() []byte {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic("model: blake2b.New256: " + err.Error())
	}
	err = json.NewEncoder(h).Encode(m)
	if err != nil {
		panic("model: failed to hash model: " + err.Error())
	}
	return h.Sum(nil)
}

// Format is a model file format.
type Format string

const (
	// YAML is YAML or JSON
	YAML Format = "yaml"
	TOML Format = "toml"
)

// FormatOf returns the format of
// the model file at the given path,
// based on its extension.
func FormatOf(p string) (Format, error) {
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml", ".json":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return "", fmt.Errorf("model: cannot determine the format of %q", p)
}

// just pick an upper limit to prevent DoS
const maxModelSize = 1024 * 1024

// Decode decodes a model from src.
// Unknown fields are rejected.
//
// See also: Open
func Decode(src io.Reader, format Format) (*Model, error) {
	buf, err := io.ReadAll(io.LimitReader(src, maxModelSize+1))
	if err != nil {
		return nil, err
	}
	if len(buf) > maxModelSize {
		return nil, fmt.Errorf("model: definition beyond size limit %d", maxModelSize)
	}
	m := new(Model)
	switch format {
	case YAML:
		err = yaml.UnmarshalStrict(buf, m)
	case TOML:
		var md toml.MetaData
		md, err = toml.NewDecoder(bytes.NewReader(buf)).Decode(m)
		if err == nil {
			if extra := md.Undecoded(); len(extra) > 0 {
				err = fmt.Errorf("unknown field %q", extra[0].String())
			}
		}
	default:
		return nil, fmt.Errorf("model: unknown format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("model: decoding %s: %w", format, err)
	}
	return m, nil
}

func checkSize(f fs.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() > maxModelSize {
		return fmt.Errorf("model: definition of size %d beyond limit %d", info.Size(), maxModelSize)
	}
	return nil
}

// Open opens and decodes the model
// file at p within s. The format is
// determined by the extension of p.
func Open(s fs.FS, p string) (*Model, error) {
	format, err := FormatOf(p)
	if err != nil {
		return nil, err
	}
	f, err := s.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := checkSize(f); err != nil {
		return nil, err
	}
	m, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return m, nil
}

// Encode writes m to dst in the given format.
func Encode(dst io.Writer, m *Model, format Format) error {
	switch format {
	case YAML:
		buf, err := yaml.Marshal(m)
		if err != nil {
			return err
		}
		_, err = dst.Write(buf)
		return err
	case TOML:
		return toml.NewEncoder(dst).Encode(m)
	}
	return fmt.Errorf("model: unknown format %q", format)
}
