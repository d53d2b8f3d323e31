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


// Package graph defines the graph database capability consumed by the
// retrieval pipelines and the index provisioner.
//
// Implementations report failures as *core.Error values:
//
//   - bad credentials: core.ErrDatabaseConnection wrapping core.ErrAuthentication
//   - unreachable database: core.ErrDatabaseConnection wrapping core.ErrServiceUnavailable
//   - syntax or access-mode errors from RunReadQuery: core.ErrQueryGeneration
//   - any other statement failure: core.ErrQueryExecution
//
// All implementations must be safe for concurrent use.
package graph

import (
	"context"

	"github.com/poiesic/graphqa/core"
)

// NodeText is a node awaiting an embedding.
type NodeText struct {
	ID   string
	Text string
}

// NodeEmbedding is a computed vector for a node.
type NodeEmbedding struct {
	ID     string
	Vector []float32
}

// SchemaReader introspects the live schema.
type SchemaReader interface {
	RefreshSchema(ctx context.Context) (*core.GraphSchema, error)
}

// QueryRunner executes statements in read-only transactions.
type QueryRunner interface {
	RunReadQuery(ctx context.Context, statement string, params map[string]any) ([]core.Row, error)
}

// VectorSearcher queries a registered vector index.
type VectorSearcher interface {
	// VectorSearch returns up to k passages nearest to vector, best first.
	VectorSearch(ctx context.Context, index *core.IndexHandle, vector []float32, k int) ([]core.Passage, error)
}

// IndexManager attaches to and builds vector indexes.
type IndexManager interface {
	// AttachVectorIndex looks up the index named spec.Name. Absence is
	// reported as core.StatusNotFound, never as an error.
	AttachVectorIndex(ctx context.Context, spec core.IndexSpec) (core.AttachResult, error)

	// CreateVectorIndex registers the index and waits for it to come online.
	CreateVectorIndex(ctx context.Context, spec core.IndexSpec) error

	// CountUnembedded counts nodes of spec.NodeLabel with text but no embedding.
	CountUnembedded(ctx context.Context, spec core.IndexSpec) (int, error)

	// ScanUnembedded returns up to limit nodes of spec.NodeLabel with text
	// but no embedding.
	ScanUnembedded(ctx context.Context, spec core.IndexSpec, limit int) ([]NodeText, error)

	// WriteEmbeddings stores vectors under spec.EmbeddingProperty.
	WriteEmbeddings(ctx context.Context, spec core.IndexSpec, embeddings []NodeEmbedding) error
}

// Database is the full capability set.
type Database interface {
	SchemaReader
	QueryRunner
	VectorSearcher
	IndexManager
	Close(ctx context.Context) error
}
