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

package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/SnellerInc/semlayer/amplitude"
	"github.com/SnellerInc/semlayer/expr"
	"github.com/SnellerInc/semlayer/model"
	"github.com/SnellerInc/semlayer/semantic"

	"github.com/urfave/cli/v3"
)

func requestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "entity",
			Aliases:  []string{"e"},
			Usage:    "entity to query",
			Required: true,
		},
		&cli.StringSliceFlag{
			Name:    "dim",
			Aliases: []string{"d"},
			Usage:   "group by this dimension (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:    "measure",
			Aliases: []string{"m"},
			Usage:   "compute this measure (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:    "filter",
			Aliases: []string{"w"},
			Usage:   "filter rows with this expression before grouping (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:    "order",
			Aliases: []string{"s"},
			Usage:   "order by output column; name or name:desc (repeatable)",
		},
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"n"},
			Usage:   "maximum number of rows",
		},
	}
}

func parseOrder(lst []string) ([]semantic.OrderKey, error) {
	out := make([]semantic.OrderKey, 0, len(lst))
	for _, s := range lst {
		name, dir, _ := strings.Cut(s, ":")
		d, err := semantic.ParseDirection(dir)
		if err != nil {
			return nil, err
		}
		out = append(out, semantic.OrderKey{Name: name, Dir: d})
	}
	return out, nil
}

func buildQuery(cmd *cli.Command, r *semantic.Registry) (*semantic.Query, error) {
	t, err := r.Table(cmd.String("entity"))
	if err != nil {
		return nil, err
	}
	order, err := parseOrder(cmd.StringSlice("order"))
	if err != nil {
		return nil, err
	}
	return t.Request(&semantic.Request{
		Dimensions: cmd.StringSlice("dim"),
		Measures:   cmd.StringSlice("measure"),
		Filters:    cmd.StringSlice("filter"),
		OrderBy:    order,
		Limit:      int(cmd.Int("limit")),
	})
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "file for output (default is stdout); a .zst suffix compresses with zstd",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "output format: table, json or ndjson",
			Value:   formatTable,
		},
	}
}

// run executes q and writes the result
// according to the output flags
func run(ctx context.Context, cmd *cli.Command, e *env, q *semantic.Query, ex semantic.Executor) error {
	timeout, err := e.cfg.timeout()
	if err != nil {
		return err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	res, err := q.Execute(ctx, ex)
	if err != nil {
		return err
	}
	e.logger.Info().Int("rows", res.Len()).Dur("elapsed", time.Since(start)).Msg("query complete")
	out, err := openOutput(cmd.String("output"))
	if err != nil {
		return err
	}
	if err := writeResult(out, res, cmd.String("format")); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func sqlCmd() *cli.Command {
	return &cli.Command{
		Name:  "sql",
		Usage: "print the SQL of a query without executing it",
		Flags: requestFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			r, err := e.registry(ctx, nil)
			if err != nil {
				return err
			}
			q, err := buildQuery(cmd, r)
			if err != nil {
				return err
			}
			d, err := e.dialect()
			if err != nil {
				return err
			}
			text, err := q.SQL(d)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.Root().Writer, text)
			return err
		},
	}
}

func queryCmd() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "execute a query against the warehouse",
		Flags: append(requestFlags(), outputFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			w, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer w.Close()
			r, err := e.registry(ctx, w)
			if err != nil {
				return err
			}
			q, err := buildQuery(cmd, r)
			if err != nil {
				return err
			}
			return run(ctx, cmd, e, q, w)
		},
	}
}

type definition struct {
	Entity      string `json:"entity"`
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Expr        string `json:"expr"`
	Description string `json:"description,omitempty"`
}

func definitions(t *semantic.Table) []definition {
	var out []definition
	for _, d := range t.Dimensions() {
		out = append(out, definition{
			Entity: t.Name(), Kind: "dimension", Name: d.Name,
			Type: d.Type.String(), Expr: expr.ToString(d.Expr), Description: d.Description,
		})
	}
	for _, m := range t.Measures() {
		out = append(out, definition{
			Entity: t.Name(), Kind: "measure", Name: m.Name,
			Type: m.Type.String(), Expr: expr.ToString(m.Source), Description: m.Description,
		})
	}
	return out
}

func describeCmd() *cli.Command {
	return &cli.Command{
		Name:      "describe",
		Usage:     "list the dimensions and measures of the model",
		ArgsUsage: "[entity...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "output format: table or json",
				Value:   formatTable,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			r, err := e.registry(ctx, nil)
			if err != nil {
				return err
			}
			tables := r.Tables()
			if cmd.Args().Present() {
				tables = tables[:0]
				for _, name := range cmd.Args().Slice() {
					t, err := r.Table(name)
					if err != nil {
						return err
					}
					tables = append(tables, t)
				}
			}
			var defs []definition
			for _, t := range tables {
				defs = append(defs, definitions(t)...)
			}
			w := cmd.Root().Writer
			switch cmd.String("format") {
			case formatJSON:
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(defs)
			case formatTable:
				rows := make([][]string, len(defs))
				for i, d := range defs {
					rows[i] = []string{d.Entity, d.Kind, d.Name, d.Type, d.Expr, d.Description}
				}
				return writeTable(w, []string{"entity", "kind", "name", "type", "expr", "description"}, rows)
			}
			return fmt.Errorf("unknown output format %q", cmd.String("format"))
		},
	}
}

func examplesCmd() *cli.Command {
	return &cli.Command{
		Name:  "examples",
		Usage: "list, print or run the example queries of the Amplitude model",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "sql",
				Usage: "print the SQL of the named example",
			},
			&cli.StringFlag{
				Name:  "run",
				Usage: "execute the named example against the warehouse",
			},
		}, outputFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			lookup := func(name string) (amplitude.Example, error) {
				ex, ok := amplitude.ExampleByName(name)
				if !ok {
					return ex, fmt.Errorf("no example named %q", name)
				}
				return ex, nil
			}
			switch {
			case cmd.IsSet("sql"):
				ex, err := lookup(cmd.String("sql"))
				if err != nil {
					return err
				}
				r, err := e.registry(ctx, nil)
				if err != nil {
					return err
				}
				q, err := ex.Query(r, time.Now())
				if err != nil {
					return err
				}
				d, err := e.dialect()
				if err != nil {
					return err
				}
				text, err := q.SQL(d)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.Root().Writer, text)
				return err
			case cmd.IsSet("run"):
				ex, err := lookup(cmd.String("run"))
				if err != nil {
					return err
				}
				w, err := e.open(ctx)
				if err != nil {
					return err
				}
				defer w.Close()
				r, err := e.registry(ctx, w)
				if err != nil {
					return err
				}
				q, err := ex.Query(r, time.Now())
				if err != nil {
					return err
				}
				return run(ctx, cmd, e, q, w)
			}
			var rows [][]string
			for _, ex := range amplitude.Examples() {
				rows = append(rows, []string{ex.Name, ex.Entity, ex.Title})
			}
			return writeTable(cmd.Root().Writer, []string{"name", "entity", "title"}, rows)
		},
	}
}

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "validate a model definition",
		ArgsUsage: "[model]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "describe",
				Usage: "read missing column lists from the warehouse",
			},
			&cli.StringFlag{
				Name:  "emit",
				Usage: "write the decoded model in this format (yaml or toml)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			path := cmd.Args().First()
			if path == "" {
				path = e.cfg.Model
			}
			var m *model.Model
			if path == "" {
				m, err = amplitude.Model()
				path = amplitude.ModelFile
			} else {
				m, err = openModel(path)
			}
			if err != nil {
				return err
			}
			var d model.Describer
			if cmd.Bool("describe") {
				w, err := e.open(ctx)
				if err != nil {
					return err
				}
				defer w.Close()
				d = w
			}
			r, err := model.Build(ctx, m, d)
			if err != nil {
				return err
			}
			w := cmd.Root().Writer
			if f := cmd.String("emit"); f != "" {
				return model.Encode(w, m, model.Format(f))
			}
			return report(w, path, m, r)
		},
	}
}

func openModel(path string) (*model.Model, error) {
	format, err := model.FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return model.Decode(f, format)
}

func report(w io.Writer, path string, m *model.Model, r *semantic.Registry) error {
	fmt.Fprintf(w, "%s: ok (blake2b-256 %s)\n", path, hex.EncodeToString(m.Hash()))
	rows := make([][]string, 0, len(r.Tables()))
	for _, t := range r.Tables() {
		rows = append(rows, []string{
			t.Name(),
			t.Base().Ref.String(),
			fmt.Sprint(len(t.Base().Columns)),
			fmt.Sprint(len(t.Dimensions())),
			fmt.Sprint(len(t.Measures())),
		})
	}
	return writeTable(w, []string{"entity", "table", "columns", "dimensions", "measures"}, rows)
}
