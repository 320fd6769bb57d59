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
	"sync"
)

// Registry is a set of entities.
type Registry struct {
	lock   sync.RWMutex
	tables map[string]*Table
	order  []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]*Table)}
}

// Add adds an entity to the registry.
func (r *Registry) Add(t *Table) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.tables[t.name]; ok {
		return &DuplicateNameError{Kind: "entity", Name: t.name}
	}
	r.tables[t.name] = t
	r.order = append(r.order, t.name)
	return nil
}

// Table returns the entity with the given name.
func (r *Registry) Table(name string) (*Table, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	t, ok := r.tables[name]
	if !ok {
		return nil, &UnknownNameError{Kind: "entity", Name: name, Suggest: suggest(name, r.order)}
	}
	return t, nil
}

// Tables returns the entities of r
// in the order they were added.
func (r *Registry) Tables() []*Table {
	r.lock.RLock()
	defer r.lock.RUnlock()
	out := make([]*Table, len(r.order))
	for i, name := range r.order {
		out[i] = r.tables[name]
	}
	return out
}
