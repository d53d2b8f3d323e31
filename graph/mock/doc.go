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


// Package mock provides an in-memory graph.Database for tests.
//
// MockDatabase keeps nodes and vector indexes in memory, answers vector
// searches with exact cosine similarity and records every call so tests can
// assert which operations ran:
//
//	db := mock.NewMockDatabase()
//	db.AddNode("Chunk", map[string]any{"text": "Apple makes phones"})
//	// ... exercise code ...
//	if db.CreateCount() != 1 { ... }
//
// Generated statements are not interpreted; set QueryFunc to return rows.
package mock
