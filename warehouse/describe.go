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

package warehouse

import (
	"context"
	"fmt"

	"github.com/SnellerInc/semlayer/expr"
	"github.com/SnellerInc/semlayer/semantic"
)

// describeQuery returns the query that lists the
// columns of ref, in order, as (name, type) pairs
func describeQuery(d *expr.Dialect, ref *expr.TableRef) (string, []any) {
	switch d {
	case expr.SQLite:
		schema := ref.Database
		if schema == "" {
			schema = "main"
		}
		return "SELECT name, type FROM pragma_table_info(?, ?) ORDER BY cid", []any{ref.Name, schema}
	case expr.DuckDB:
		// a qualified DuckDB name refers to
		// a database (catalog), not a schema
		if ref.Database == "" {
			return "SELECT column_name, data_type FROM information_schema.columns " +
				"WHERE table_catalog = current_database() AND table_name = ? ORDER BY ordinal_position", []any{ref.Name}
		}
		return "SELECT column_name, data_type FROM information_schema.columns " +
			"WHERE table_catalog = ? AND table_name = ? ORDER BY ordinal_position", []any{ref.Database, ref.Name}
	}
	if ref.Database == "" {
		return "SELECT column_name, data_type FROM information_schema.columns " +
			"WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position", []any{ref.Name}
	}
	return "SELECT column_name, data_type FROM information_schema.columns " +
		"WHERE table_schema = ? AND table_name = ? ORDER BY ordinal_position", []any{ref.Database, ref.Name}
}

// Describe returns the columns of the table ref
// with their SQL types mapped onto expression types.
func (w *Warehouse) Describe(ctx context.Context, ref expr.TableRef) (*semantic.BaseTable, error) {
	query, args := describeQuery(w.dialect, &ref)
	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("warehouse: describe %s: %w", ref.String(), err)
	}
	defer rows.Close()
	var cols []semantic.Column
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, fmt.Errorf("warehouse: describe %s: %w", ref.String(), err)
		}
		cols = append(cols, semantic.Column{Name: name, Type: expr.ParseType(typ)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("warehouse: describe %s: %w", ref.String(), err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("warehouse: table %s not found", ref.String())
	}
	w.logger.Debug().Str("table", ref.String()).Int("columns", len(cols)).Msg("described")
	return semantic.NewBaseTable(ref.Database, ref.Name, cols...), nil
}
