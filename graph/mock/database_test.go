package mock

import (
	"context"
	"testing"

	"github.com/poiesic/graphqa/core"
	"github.com/poiesic/graphqa/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockDatabase_IndexLifecycle(t *testing.T) {
	ctx := context.Background()
	db := NewMockDatabase()
	spec := core.DefaultIndexSpec()
	spec.Dimensions = 2

	a := db.AddNode("Chunk", map[string]any{"text": "alpha", "source": "a.txt"})
	b := db.AddNode("Chunk", map[string]any{"text": "beta"})
	db.AddNode("Chunk", map[string]any{"text": ""})
	db.AddNode("Company", map[string]any{"text": "not a chunk"})

	res, err := db.AttachVectorIndex(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, core.StatusNotFound, res.Status)

	n, err := db.CountUnembedded(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	page, err := db.ScanUnembedded(ctx, spec, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, a, page[0].ID)

	require.NoError(t, db.WriteEmbeddings(ctx, spec, []graph.NodeEmbedding{
		{ID: a, Vector: []float32{1, 0}},
		{ID: b, Vector: []float32{0, 1}},
	}))
	n, err = db.CountUnembedded(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, db.CreateVectorIndex(ctx, spec))
	res, err = db.AttachVectorIndex(ctx, spec)
	require.NoError(t, err)
	require.Equal(t, core.StatusAttached, res.Status)

	passages, err := db.VectorSearch(ctx, res.Handle, []float32{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, passages, 2)
	assert.Equal(t, "alpha", passages[0].Text)
	assert.Equal(t, "a.txt", passages[0].Name)
	assert.Greater(t, passages[0].Score, passages[1].Score)

	assert.Equal(t, 1, db.CreateCount())
	assert.Equal(t, 1, db.WriteCount())
	assert.Equal(t, 1, db.SearchCount())
}

func TestMockDatabase_RunReadQuery(t *testing.T) {
	db := NewMockDatabase()
	db.QueryFunc = func(ctx context.Context, statement string, params map[string]any) ([]core.Row, error) {
		return []core.Row{{"n": int64(3)}}, nil
	}

	rows, err := db.RunReadQuery(context.Background(), "MATCH (n) RETURN count(n) AS n", nil)
	require.NoError(t, err)
	assert.Equal(t, []core.Row{{"n": int64(3)}}, rows)
	assert.Equal(t, []string{"MATCH (n) RETURN count(n) AS n"}, db.Statements())

	db.Reset()
	assert.Equal(t, 0, db.QueryCount())
	assert.Empty(t, db.Statements())
}

func TestMockDatabase_DelayHonoursCancellation(t *testing.T) {
	db := NewMockDatabase()
	db.Delay = 1 << 40

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := db.RunReadQuery(ctx, "RETURN 1", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
