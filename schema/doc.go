// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package schema checks generated Cypher against the graph schema and caches
// the schema between requests.
//
// The Validator is the safety boundary of the structured pipeline. A
// statement only reaches the database when:
//
//   - it is a single read-only statement (no CREATE, MERGE, SET, DELETE,
//     REMOVE, DROP, FOREACH, LOAD CSV or write procedures)
//   - every node label and relationship type it names exists
//   - every property read through a labelled variable exists on that label
//   - every directed relationship pattern matches a schema triple, possibly
//     after reversing its direction
//
// Violations are reported as core.ErrQueryGeneration.
//
// The Cache holds the last schema read from the database. It is refreshed
// when older than the configured interval or after Invalidate is called, and
// concurrent refreshes collapse into one database round trip.
package schema
