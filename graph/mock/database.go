package mock

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/poiesic/graphqa/core"
	"github.com/poiesic/graphqa/graph"
)

// Node is a node held by MockDatabase.
type Node struct {
	ID         string
	Label      string
	Properties map[string]any
}

// MockDatabase is a test double for graph.Database. It is safe for
// concurrent use.
type MockDatabase struct {
	// Schema is returned by RefreshSchema. Nil returns an empty schema.
	Schema *core.GraphSchema

	// QueryFunc is called by RunReadQuery if set. If nil, no rows are returned.
	QueryFunc func(ctx context.Context, statement string, params map[string]any) ([]core.Row, error)

	// SearchFunc is called by VectorSearch if set. If nil, nodes are ranked
	// by cosine similarity.
	SearchFunc func(ctx context.Context, index *core.IndexHandle, vector []float32, k int) ([]core.Passage, error)

	// Errors returned by the matching operation when set.
	SchemaErr error
	AttachErr error
	CreateErr error
	WriteErr  error

	// Delay is applied to RunReadQuery and VectorSearch. The wait ends early
	// when the context is cancelled.
	Delay time.Duration

	mu         sync.Mutex
	nodes      []*Node
	nextID     int
	indexes    map[string]core.IndexHandle
	statements []string
	attaches   int
	creates    int
	queries    int
	searches   int
	writes     int
	refreshes  int
	closed     bool
}

var _ graph.Database = (*MockDatabase)(nil)

// NewMockDatabase creates an empty database.
// Note: Returns concrete type to allow test assertions.
func NewMockDatabase() *MockDatabase {
	return &MockDatabase{indexes: make(map[string]core.IndexHandle)}
}

// AddNode stores a node and returns its id.
func (m *MockDatabase) AddNode(label string, props map[string]any) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	n := &Node{
		ID:         fmt.Sprintf("4:mock:%d", m.nextID),
		Label:      label,
		Properties: make(map[string]any, len(props)),
	}
	for k, v := range props {
		n.Properties[k] = v
	}
	m.nodes = append(m.nodes, n)
	return n.ID
}

// AddIndex registers an existing vector index.
func (m *MockDatabase) AddIndex(h core.IndexHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexes[h.Name] = h
}

// Node returns a copy of the node with id.
func (m *MockDatabase) Node(id string) (Node, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.nodes {
		if n.ID == id {
			cp := *n
			cp.Properties = make(map[string]any, len(n.Properties))
			for k, v := range n.Properties {
				cp.Properties[k] = v
			}
			return cp, true
		}
	}
	return Node{}, false
}

// RefreshSchema implements graph.SchemaReader.
func (m *MockDatabase) RefreshSchema(ctx context.Context) (*core.GraphSchema, error) {
	m.mu.Lock()
	m.refreshes++
	schema, err := m.Schema, m.SchemaErr
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if schema == nil {
		return core.NewGraphSchema(), nil
	}
	return schema, nil
}

// RunReadQuery implements graph.QueryRunner.
func (m *MockDatabase) RunReadQuery(ctx context.Context, statement string, params map[string]any) ([]core.Row, error) {
	m.mu.Lock()
	m.queries++
	m.statements = append(m.statements, statement)
	fn := m.QueryFunc
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if fn != nil {
		return fn(ctx, statement, params)
	}
	return nil, nil
}

// VectorSearch implements graph.VectorSearcher.
func (m *MockDatabase) VectorSearch(ctx context.Context, index *core.IndexHandle, vector []float32, k int) ([]core.Passage, error) {
	m.mu.Lock()
	m.searches++
	fn := m.SearchFunc
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if fn != nil {
		return fn(ctx, index, vector, k)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var passages []core.Passage
	for _, n := range m.nodes {
		if n.Label != index.NodeLabel {
			continue
		}
		emb, ok := n.Properties[index.EmbeddingProperty].([]float32)
		if !ok {
			continue
		}
		text, _ := n.Properties[index.TextProperty].(string)
		source, _ := n.Properties["source"].(string)
		passages = append(passages, core.Passage{
			NodeID: n.ID,
			Text:   text,
			Name:   source,
			Score:  cosine(vector, emb),
		})
	}
	slices.SortStableFunc(passages, func(a, b core.Passage) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(passages) > k {
		passages = passages[:k]
	}
	return passages, nil
}

// AttachVectorIndex implements graph.IndexManager.
func (m *MockDatabase) AttachVectorIndex(ctx context.Context, spec core.IndexSpec) (core.AttachResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attaches++
	if m.AttachErr != nil {
		return core.AttachResult{}, m.AttachErr
	}
	h, ok := m.indexes[spec.Name]
	if !ok {
		return core.NotFound(fmt.Sprintf("no vector index named %q", spec.Name)), nil
	}
	return core.Attached(&h), nil
}

// CreateVectorIndex implements graph.IndexManager.
func (m *MockDatabase) CreateVectorIndex(ctx context.Context, spec core.IndexSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.creates++
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if _, ok := m.indexes[spec.Name]; ok {
		return nil
	}
	m.indexes[spec.Name] = core.IndexHandle{
		Name:              spec.Name,
		NodeLabel:         spec.NodeLabel,
		TextProperty:      spec.TextProperty,
		EmbeddingProperty: spec.EmbeddingProperty,
		Dimensions:        spec.Dimensions,
		Similarity:        spec.Similarity,
	}
	return nil
}

// CountUnembedded implements graph.IndexManager.
func (m *MockDatabase) CountUnembedded(ctx context.Context, spec core.IndexSpec) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.unembedded(spec, -1)), nil
}

// ScanUnembedded implements graph.IndexManager.
func (m *MockDatabase) ScanUnembedded(ctx context.Context, spec core.IndexSpec, limit int) ([]graph.NodeText, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unembedded(spec, limit), nil
}

func (m *MockDatabase) unembedded(spec core.IndexSpec, limit int) []graph.NodeText {
	var out []graph.NodeText
	for _, n := range m.nodes {
		if limit >= 0 && len(out) >= limit {
			break
		}
		if n.Label != spec.NodeLabel {
			continue
		}
		text, _ := n.Properties[spec.TextProperty].(string)
		if text == "" {
			continue
		}
		if _, ok := n.Properties[spec.EmbeddingProperty]; ok {
			continue
		}
		out = append(out, graph.NodeText{ID: n.ID, Text: text})
	}
	return out
}

// WriteEmbeddings implements graph.IndexManager.
func (m *MockDatabase) WriteEmbeddings(ctx context.Context, spec core.IndexSpec, embeddings []graph.NodeEmbedding) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writes++
	if m.WriteErr != nil {
		return m.WriteErr
	}
	for _, e := range embeddings {
		for _, n := range m.nodes {
			if n.ID == e.ID {
				n.Properties[spec.EmbeddingProperty] = e.Vector
			}
		}
	}
	return nil
}

// Close implements graph.Database.
func (m *MockDatabase) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockDatabase) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// AttachCount returns the number of AttachVectorIndex calls.
func (m *MockDatabase) AttachCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attaches
}

// CreateCount returns the number of CreateVectorIndex calls.
func (m *MockDatabase) CreateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates
}

// QueryCount returns the number of RunReadQuery calls.
func (m *MockDatabase) QueryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries
}

// Statements returns every statement passed to RunReadQuery, in call order.
func (m *MockDatabase) Statements() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.statements...)
}

// SearchCount returns the number of VectorSearch calls.
func (m *MockDatabase) SearchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searches
}

// WriteCount returns the number of WriteEmbeddings calls.
func (m *MockDatabase) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// RefreshCount returns the number of RefreshSchema calls.
func (m *MockDatabase) RefreshCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshes
}

// Closed reports whether Close was called.
func (m *MockDatabase) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Reset clears counters and recorded statements. Nodes and indexes are kept.
func (m *MockDatabase) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statements = nil
	m.attaches, m.creates, m.queries, m.searches, m.writes, m.refreshes = 0, 0, 0, 0, 0, 0
}

func cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
