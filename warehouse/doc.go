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

// Package warehouse implements semantic.Executor
// on top of database/sql.
//
// A Warehouse owns a connection pool and a dialect.
// Each call to Execute is a single blocking query
// that is materialized in memory; cancellation and
// timeouts come from the caller's context.
package warehouse
