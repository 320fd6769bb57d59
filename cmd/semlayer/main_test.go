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
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SnellerInc/semlayer/amplitude"
	"github.com/SnellerInc/semlayer/model"
	"github.com/SnellerInc/semlayer/semantic"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runApp(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	c := app()
	c.Writer = &buf
	c.ErrWriter = &buf
	err := c.Run(context.Background(), append([]string{"semlayer"}, args...))
	require.NoError(t, err, buf.String())
	return buf.String()
}

func TestSQLCommand(t *testing.T) {
	out := runApp(t, "sql", "-e", "sessions", "-d", "plan_tier",
		"-m", "session_count", "-m", "total_revenue",
		"-w", "session_revenue > 0", "-s", "session_count:desc", "-n", "5")
	want := "SELECT plan_tier, COUNT(*) AS session_count, SUM(session_revenue) AS total_revenue " +
		"FROM amplitude.sessions_fct WHERE session_revenue > 0 GROUP BY plan_tier " +
		"ORDER BY session_count DESC LIMIT 5\n"
	assert.Equal(t, want, out)

	out = runApp(t, "--dialect", "mysql", "sql", "-e", "sessions", "-m", "revenue_per_event")
	assert.Contains(t, out, "CAST(SUM(session_revenue) AS DOUBLE) / NULLIF(SUM(total_events), 0)")
	assert.Contains(t, out, "FROM amplitude.sessions_fct")
}

func TestSQLCommandErrors(t *testing.T) {
	for _, args := range [][]string{
		{"sql", "-e", "orders", "-m", "session_count"},
		{"sql", "-e", "sessions", "-m", "no_such_measure"},
		{"sql", "-e", "sessions", "-m", "session_count", "-s", "session_count:sideways"},
		{"sql", "-e", "sessions", "-m", "session_count", "--limit=-1"},
		{"--dialect", "sqlite", "sql", "-e", "sessions", "-m", "median_session_duration"},
	} {
		c := app()
		var buf bytes.Buffer
		c.Writer = &buf
		c.ErrWriter = &buf
		err := c.Run(context.Background(), append([]string{"semlayer"}, args...))
		assert.Error(t, err, "%v", args)
	}
}

func TestDescribeCommand(t *testing.T) {
	out := runApp(t, "describe", "-f", "json", "users")
	var defs []definition
	require.NoError(t, json.Unmarshal([]byte(out), &defs))
	r, err := amplitude.Registry(nil, nil)
	require.NoError(t, err)
	users, err := r.Table("users")
	require.NoError(t, err)
	assert.Len(t, defs, len(users.Dimensions())+len(users.Measures()))
	assert.Equal(t, definition{
		Entity: "users", Kind: "dimension", Name: "user_key", Type: "string", Expr: "user_key",
	}, defs[0])

	out = runApp(t, "describe")
	assert.Contains(t, out, "market_share")
	assert.Contains(t, out, "Percentage of total sessions")
}

func TestExamplesCommand(t *testing.T) {
	out := runApp(t, "examples")
	for _, ex := range amplitude.Examples() {
		assert.Contains(t, out, ex.Name)
	}
	out = runApp(t, "examples", "--sql", "top-tiers")
	assert.True(t, strings.HasSuffix(out, "ORDER BY session_count DESC LIMIT 5\n"), out)
}

func TestCheckCommand(t *testing.T) {
	out := runApp(t, "check")
	assert.Contains(t, out, "amplitude.yaml: ok")
	assert.Contains(t, out, "sessions_fct")

	// the built-in model survives conversion to TOML
	text := runApp(t, "check", "--emit", "toml")
	m, err := model.Decode(strings.NewReader(text), model.TOML)
	require.NoError(t, err)
	orig, err := amplitude.Model()
	require.NoError(t, err)
	assert.True(t, m.Equal(orig))

	path := filepath.Join(t.TempDir(), "model.toml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	out = runApp(t, "check", path)
	assert.Contains(t, out, "model.toml: ok")
}

func TestQueryCommand(t *testing.T) {
	dir := t.TempDir()
	dbpath := filepath.Join(dir, "warehouse.db")
	db, err := sql.Open("sqlite", dbpath)
	require.NoError(t, err)
	for _, stmt := range []string{
		"CREATE TABLE sessions_fct (plan_tier TEXT, session_revenue DOUBLE, has_conversion BOOLEAN)",
		"INSERT INTO sessions_fct VALUES ('free', 0, 0), ('free', 0, 1), ('premium', 20, 1)",
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	// columns are read from the warehouse
	modelpath := filepath.Join(dir, "model.yaml")
	require.NoError(t, os.WriteFile(modelpath, []byte(`
entities:
  - name: sessions
    table: {name: sessions_fct}
    dimensions:
      - name: plan_tier
    measures:
      - name: session_count
        expr: count()
      - name: conversion_rate
        expr: mean(has_conversion = true) * 100
`), 0644))

	cfgpath := filepath.Join(dir, "semlayer.toml")
	require.NoError(t, os.WriteFile(cfgpath, []byte(`
model = "`+filepath.ToSlash(modelpath)+`"
timeout = "30s"

[warehouse]
driver = "sqlite"
dsn = "`+filepath.ToSlash(dbpath)+`"
connect_timeout = "2s"
`), 0644))

	outpath := filepath.Join(dir, "result.ndjson.zst")
	runApp(t, "--config", cfgpath, "query", "-e", "sessions", "-d", "plan_tier",
		"-m", "session_count", "-m", "conversion_rate", "-s", "plan_tier",
		"-f", "ndjson", "-o", outpath)

	f, err := os.Open(outpath)
	require.NoError(t, err)
	defer f.Close()
	dec, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer dec.Close()
	var lines []string
	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(dec)
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		`{"plan_tier":"free","session_count":2,"conversion_rate":50}`,
		`{"plan_tier":"premium","session_count":1,"conversion_rate":100}`,
	}, lines)
}

func TestWriteResult(t *testing.T) {
	res := &semantic.Result{
		Columns: []string{"b", "a"},
		Rows:    [][]any{{"x", int64(1)}, {nil, 2.5}},
	}
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, res, formatJSON))
	assert.Equal(t, "[\n  {\"b\":\"x\",\"a\":1},\n  {\"b\":null,\"a\":2.5}\n]\n", buf.String())

	buf.Reset()
	require.NoError(t, writeResult(&buf, &semantic.Result{Columns: []string{"a"}}, formatJSON))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, writeResult(&buf, res, formatTable))
	assert.Contains(t, buf.String(), "2.5")

	assert.Error(t, writeResult(&buf, res, "xml"))
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("modle = \"x\"\n"), 0644))
	_, err := loadConfig(path)
	assert.ErrorContains(t, err, "unknown key")

	cfg, err := loadConfig("")
	require.NoError(t, err)
	d, err := cfg.timeout()
	require.NoError(t, err)
	assert.Zero(t, d)
}
