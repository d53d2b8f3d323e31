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


// Package structured answers questions from the graph by generating Cypher.
//
// The model sees the schema, a handful of example statements and the
// question. Its reply is cleaned of code fences and checked by
// schema.Validator before anything runs; rejected statements surface as
// core.ErrQueryGeneration. Accepted statements run in a read transaction.
//
// Rows are returned as the answer by default (core.ShapeRaw): a single value
// is rendered bare, e.g. "3", and anything larger as JSON. With
// core.ShapeNarrated the rows are summarised by the model instead.
package structured
