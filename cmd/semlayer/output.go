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
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/SnellerInc/semlayer/semantic"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/klauspost/compress/zstd"
)

// output is the destination of command output;
// Close flushes any buffered or compressed data
type output struct {
	w       *bufio.Writer
	closers []io.Closer
}

func (o *output) Write(p []byte) (int, error) { return o.w.Write(p) }

func (o *output) Close() error {
	err := o.w.Flush()
	for i := len(o.closers) - 1; i >= 0; i-- {
		if e := o.closers[i].Close(); err == nil {
			err = e
		}
	}
	return err
}

// openOutput opens path for writing, or stdout
// when path is empty or "-". Paths ending in
// .zst are compressed with zstd.
func openOutput(path string) (*output, error) {
	if path == "" || path == "-" {
		return &output{w: bufio.NewWriter(os.Stdout)}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	o := &output{closers: []io.Closer{f}}
	var dst io.Writer = f
	if strings.HasSuffix(path, ".zst") {
		enc, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		o.closers = append(o.closers, enc)
		dst = enc
	}
	o.w = bufio.NewWriter(dst)
	return o, nil
}

const (
	formatTable  = "table"
	formatJSON   = "json"
	formatNDJSON = "ndjson"
)

func writeResult(w io.Writer, res *semantic.Result, format string) error {
	switch format {
	case "", formatTable:
		return writeTable(w, res.Columns, stringRows(res))
	case formatJSON:
		return writeJSON(w, res)
	case formatNDJSON:
		return writeNDJSON(w, res)
	}
	return fmt.Errorf("unknown output format %q", format)
}

func stringRows(res *semantic.Result) [][]string {
	rows := make([][]string, len(res.Rows))
	for i := range res.Rows {
		rows[i] = make([]string, len(res.Columns))
		for j, c := range res.Columns {
			rows[i][j] = res.String(i, c)
		}
	}
	return rows
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func writeTable(w io.Writer, headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Faint(true)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// record writes row i of res as a JSON
// object with keys in column order
func record(dst []byte, res *semantic.Result, i int) ([]byte, error) {
	dst = append(dst, '{')
	for j, c := range res.Columns {
		if j > 0 {
			dst = append(dst, ',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(res.Rows[i][j])
		if err != nil {
			return nil, err
		}
		dst = append(dst, k...)
		dst = append(dst, ':')
		dst = append(dst, v...)
	}
	return append(dst, '}'), nil
}

func writeNDJSON(w io.Writer, res *semantic.Result) error {
	var buf []byte
	for i := range res.Rows {
		var err error
		buf, err = record(buf[:0], res, i)
		if err != nil {
			return err
		}
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, res *semantic.Result) error {
	buf := []byte{'['}
	for i := range res.Rows {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '\n', ' ', ' ')
		var err error
		buf, err = record(buf, res, i)
		if err != nil {
			return err
		}
	}
	if len(res.Rows) > 0 {
		buf = append(buf, '\n')
	}
	buf = append(buf, ']', '\n')
	_, err := w.Write(buf)
	return err
}
