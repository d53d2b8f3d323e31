package neo4j

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/graphqa/core"
)

const (
	nodePropertiesQuery = `CALL db.schema.nodeTypeProperties()
YIELD nodeLabels, propertyName, propertyTypes
RETURN nodeLabels, propertyName, propertyTypes`

	relPropertiesQuery = `CALL db.schema.relTypeProperties()
YIELD relType, propertyName, propertyTypes
RETURN relType, propertyName, propertyTypes`

	relationshipsQuery = `MATCH (a)-[r]->(b)
WITH labels(a) AS starts, type(r) AS relType, labels(b) AS ends
UNWIND starts AS start
UNWIND ends AS end
RETURN DISTINCT start, relType, end
LIMIT $limit`
)

// RefreshSchema introspects labels, relationship types, properties and the
// relationship patterns present in the graph.
func (d *Database) RefreshSchema(ctx context.Context) (*core.GraphSchema, error) {
	schema := core.NewGraphSchema()

	nodeRows, err := d.collect(ctx, nodePropertiesQuery, nil)
	if err != nil {
		return nil, classify(err, "refresh schema", core.KindQueryExecution)
	}
	for _, row := range nodeRows {
		labels := stringList(row["nodeLabels"])
		name, _ := row["propertyName"].(string)
		for _, label := range labels {
			if _, ok := schema.NodeProperties[label]; !ok {
				schema.NodeProperties[label] = nil
			}
			if name != "" {
				schema.NodeProperties[label] = append(schema.NodeProperties[label], core.Property{
					Name: name,
					Type: propertyType(row["propertyTypes"]),
				})
			}
		}
	}

	relRows, err := d.collect(ctx, relPropertiesQuery, nil)
	if err != nil {
		return nil, classify(err, "refresh schema", core.KindQueryExecution)
	}
	for _, row := range relRows {
		raw, _ := row["relType"].(string)
		relType := trimRelType(raw)
		if relType == "" {
			continue
		}
		if _, ok := schema.RelationshipProperties[relType]; !ok {
			schema.RelationshipProperties[relType] = nil
		}
		if name, _ := row["propertyName"].(string); name != "" {
			schema.RelationshipProperties[relType] = append(schema.RelationshipProperties[relType], core.Property{
				Name: name,
				Type: propertyType(row["propertyTypes"]),
			})
		}
	}

	tripleRows, err := d.collect(ctx, relationshipsQuery, map[string]any{"limit": d.tripleLimit})
	if err != nil {
		return nil, classify(err, "refresh schema", core.KindQueryExecution)
	}
	for _, row := range tripleRows {
		start, _ := row["start"].(string)
		relType, _ := row["relType"].(string)
		end, _ := row["end"].(string)
		schema.Relationships = append(schema.Relationships, core.RelationshipTriple{
			Start: start, Type: relType, End: end,
		})
	}

	d.logger.Debug("schema refreshed",
		"labels", len(schema.NodeProperties),
		"relationship_types", len(schema.RelationshipProperties),
		"patterns", len(schema.Relationships))
	return schema, nil
}

// trimRelType turns ":`OWNS_STOCK_IN`" into "OWNS_STOCK_IN".
func trimRelType(s string) string {
	s = strings.TrimPrefix(s, ":")
	return strings.Trim(s, "`")
}

func stringList(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func propertyType(v any) string {
	types := stringList(v)
	if len(types) == 0 {
		return "ANY"
	}
	for i, t := range types {
		types[i] = strings.ToUpper(t)
	}
	return strings.Join(types, "|")
}

func quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func validateSpec(spec core.IndexSpec) error {
	if err := core.ValidateIndexSpec(spec); err != nil {
		return core.NewError(core.KindIndexUnavailable, core.PipelineSimilarity, "validate index spec", err)
	}
	return nil
}

func toFloat64s(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case int:
		return n, nil
	case float64:
		return int(n), nil
	}
	return 0, fmt.Errorf("unexpected numeric type %T", v)
}
