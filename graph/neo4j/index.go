package neo4j

import (
	"context"
	"errors"
	"fmt"

	"github.com/poiesic/graphqa/core"
	"github.com/poiesic/graphqa/graph"
)

const showIndexQuery = `SHOW INDEXES
YIELD name, type, state, entityType, labelsOrTypes, properties, options
WHERE type = 'VECTOR' AND name = $name
RETURN name, state, entityType, labelsOrTypes, properties, options`

var errIndexFailed = errors.New("index is in FAILED state")

// AttachVectorIndex looks up a vector index by name.
func (d *Database) AttachVectorIndex(ctx context.Context, spec core.IndexSpec) (core.AttachResult, error) {
	rows, err := d.collect(ctx, showIndexQuery, map[string]any{"name": spec.Name})
	if err != nil {
		return core.AttachResult{}, classify(err, "attach index", core.KindIndexUnavailable)
	}
	if len(rows) == 0 {
		return core.NotFound(fmt.Sprintf("no vector index named %q", spec.Name)), nil
	}

	row := rows[0]
	if state, _ := row["state"].(string); state == "FAILED" {
		return core.AttachResult{}, core.NewError(core.KindIndexUnavailable, core.PipelineSimilarity, "attach index", errIndexFailed)
	}

	handle := &core.IndexHandle{
		Name:         spec.Name,
		TextProperty: spec.TextProperty,
		Similarity:   spec.Similarity,
	}
	if labels := stringList(row["labelsOrTypes"]); len(labels) > 0 {
		handle.NodeLabel = labels[0]
	}
	if props := stringList(row["properties"]); len(props) > 0 {
		handle.EmbeddingProperty = props[0]
	}
	if options, ok := row["options"].(map[string]any); ok {
		if cfg, ok := options["indexConfig"].(map[string]any); ok {
			if dims, err := toInt(cfg["vector.dimensions"]); err == nil {
				handle.Dimensions = dims
			}
			if sim, ok := cfg["vector.similarity_function"].(string); ok {
				handle.Similarity = sim
			}
		}
	}

	d.logger.Debug("attached vector index", "name", handle.Name, "label", handle.NodeLabel, "dimensions", handle.Dimensions)
	return core.Attached(handle), nil
}

// CreateVectorIndex registers a node vector index and waits until it is online.
func (d *Database) CreateVectorIndex(ctx context.Context, spec core.IndexSpec) error {
	if err := validateSpec(spec); err != nil {
		return err
	}
	if spec.Dimensions <= 0 {
		return core.NewError(core.KindIndexUnavailable, core.PipelineSimilarity, "create index",
			fmt.Errorf("%w: dimensions must be known before creating the index", core.ErrInvalidIndexSpec))
	}

	statement := fmt.Sprintf(
		"CREATE VECTOR INDEX %s IF NOT EXISTS FOR (n:%s) ON (n.%s) "+
			"OPTIONS {indexConfig: {`vector.dimensions`: %d, `vector.similarity_function`: '%s'}}",
		quote(spec.Name), quote(spec.NodeLabel), quote(spec.EmbeddingProperty), spec.Dimensions, spec.Similarity)

	if err := d.exec(ctx, statement, nil); err != nil {
		return classify(err, "create index", core.KindIndexUnavailable)
	}
	if err := d.exec(ctx, "CALL db.awaitIndex($name, $timeout)", map[string]any{
		"name":    spec.Name,
		"timeout": d.awaitIndexSecs,
	}); err != nil {
		return classify(err, "await index", core.KindIndexUnavailable)
	}
	d.logger.Info("created vector index", "name", spec.Name, "label", spec.NodeLabel, "dimensions", spec.Dimensions)
	return nil
}

func unembeddedMatch(spec core.IndexSpec) string {
	return fmt.Sprintf("MATCH (n:%s) WHERE n.%s IS NOT NULL AND n.%s <> '' AND n.%s IS NULL",
		quote(spec.NodeLabel), quote(spec.TextProperty), quote(spec.TextProperty), quote(spec.EmbeddingProperty))
}

// CountUnembedded counts nodes still missing an embedding.
func (d *Database) CountUnembedded(ctx context.Context, spec core.IndexSpec) (int, error) {
	if err := validateSpec(spec); err != nil {
		return 0, err
	}
	rows, err := d.collect(ctx, unembeddedMatch(spec)+" RETURN count(n) AS c", nil)
	if err != nil {
		return 0, classify(err, "count nodes", core.KindIndexUnavailable)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return toInt(rows[0]["c"])
}

// ScanUnembedded returns a page of nodes still missing an embedding.
func (d *Database) ScanUnembedded(ctx context.Context, spec core.IndexSpec, limit int) ([]graph.NodeText, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}
	statement := unembeddedMatch(spec) +
		fmt.Sprintf(" RETURN elementId(n) AS id, n.%s AS text LIMIT $limit", quote(spec.TextProperty))

	rows, err := d.collect(ctx, statement, map[string]any{"limit": limit})
	if err != nil {
		return nil, classify(err, "scan nodes", core.KindIndexUnavailable)
	}
	nodes := make([]graph.NodeText, 0, len(rows))
	for _, row := range rows {
		id, _ := row["id"].(string)
		text, _ := row["text"].(string)
		nodes = append(nodes, graph.NodeText{ID: id, Text: text})
	}
	return nodes, nil
}

// WriteEmbeddings stores vectors on their nodes in a single transaction.
func (d *Database) WriteEmbeddings(ctx context.Context, spec core.IndexSpec, embeddings []graph.NodeEmbedding) error {
	if err := validateSpec(spec); err != nil {
		return err
	}
	if len(embeddings) == 0 {
		return nil
	}

	rows := make([]map[string]any, 0, len(embeddings))
	for _, e := range embeddings {
		rows = append(rows, map[string]any{"id": e.ID, "vector": toFloat64s(e.Vector)})
	}
	statement := fmt.Sprintf(
		"UNWIND $rows AS row MATCH (n) WHERE elementId(n) = row.id SET n.%s = row.vector",
		quote(spec.EmbeddingProperty))

	if err := d.exec(ctx, statement, map[string]any{"rows": rows}); err != nil {
		return classify(err, "write embeddings", core.KindIndexUnavailable)
	}
	return nil
}

// VectorSearch queries the index and returns passages best first.
func (d *Database) VectorSearch(ctx context.Context, index *core.IndexHandle, vector []float32, k int) ([]core.Passage, error) {
	if index == nil || !core.IsIdentifier(index.TextProperty) {
		return nil, core.NewError(core.KindIndexUnavailable, core.PipelineSimilarity, "vector search", errors.New("no usable index handle"))
	}
	statement := fmt.Sprintf(`CALL db.index.vector.queryNodes($index, $k, $vector) YIELD node, score
RETURN elementId(node) AS id, node.%s AS text, node.source AS source, score
ORDER BY score DESC`, quote(index.TextProperty))

	rows, err := d.collect(ctx, statement, map[string]any{
		"index":  index.Name,
		"k":      k,
		"vector": toFloat64s(vector),
	})
	if err != nil {
		return nil, classify(err, "vector search", core.KindIndexUnavailable)
	}

	passages := make([]core.Passage, 0, len(rows))
	for _, row := range rows {
		p := core.Passage{}
		p.NodeID, _ = row["id"].(string)
		p.Text, _ = row["text"].(string)
		p.Name, _ = row["source"].(string)
		p.Score, _ = row["score"].(float64)
		passages = append(passages, p)
	}
	return passages, nil
}
