package structured

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/poiesic/graphqa/core"
)

// maxListSize is the longest list kept in a row. Longer lists are usually
// embeddings and only add noise.
const maxListSize = 128

func sanitizeRows(rows []core.Row) []core.Row {
	out := make([]core.Row, 0, len(rows))
	for _, row := range rows {
		clean := make(core.Row, len(row))
		for k, v := range row {
			if s, ok := sanitizeValue(v); ok {
				clean[k] = s
			}
		}
		out = append(out, clean)
	}
	return out
}

func sanitizeValue(v any) (any, bool) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			if s, ok := sanitizeValue(item); ok {
				out[k] = s
			}
		}
		return out, true
	case []any:
		if len(t) > maxListSize {
			return nil, false
		}
		out := make([]any, 0, len(t))
		for _, item := range t {
			if s, ok := sanitizeValue(item); ok {
				out = append(out, s)
			}
		}
		return out, true
	case []float64:
		return t, len(t) <= maxListSize
	case []float32:
		return t, len(t) <= maxListSize
	}
	return v, true
}

// renderRows formats rows as the answer text. A single value is rendered
// bare, anything else as JSON.
func renderRows(rows []core.Row) string {
	if len(rows) == 1 && len(rows[0]) == 1 {
		for _, v := range rows[0] {
			return formatValue(v)
		}
	}
	if len(rows) == 1 {
		return toJSON(rows[0])
	}
	return toJSON(rows)
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return toJSON(v)
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
