package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/vecsql/internal/domain"
	"github.com/kailas-cloud/vecsql/internal/sqlbuild"
)

// parseVector decodes the engine's vector literal back to floats.
func parseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return []float32{}, nil
	}
	parts := strings.Split(s, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("parse vector element %d: %w", i, err)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

// FromRow normalizes one result row into a domain Record by column
// name. Ids arrive as fixed-width binary and are trimmed of right
// padding. Unknown columns are ignored, so it also fits rows produced
// by server-generated search SQL.
func FromRow(columns []string, row []any) (domain.Record, error) {
	var rec domain.Record
	for i, col := range columns {
		if i >= len(row) || row[i] == nil {
			continue
		}
		switch col {
		case sqlbuild.ColID:
			s, ok := row[i].(string)
			if !ok {
				return domain.Record{}, fmt.Errorf("id column has type %T", row[i])
			}
			rec.ID = strings.TrimRight(s, "\x00")
		case sqlbuild.ColDocument:
			if s, ok := row[i].(string); ok {
				doc := s
				rec.Document = &doc
			}
		case sqlbuild.ColMetadata:
			s, ok := row[i].(string)
			if !ok || s == "" {
				continue
			}
			if err := json.Unmarshal([]byte(s), &rec.Metadata); err != nil {
				return domain.Record{}, fmt.Errorf("decode metadata: %w", err)
			}
		case sqlbuild.ColEmbedding:
			s, ok := row[i].(string)
			if !ok {
				continue
			}
			vec, err := parseVector(s)
			if err != nil {
				return domain.Record{}, err
			}
			rec.Embedding = vec
		case "distance", "score", "_score":
			d, err := toFloat(row[i])
			if err != nil {
				return domain.Record{}, fmt.Errorf("decode %s: %w", col, err)
			}
			rec.Distance = &d
		}
	}
	return rec, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("unexpected numeric type %T", v)
	}
}
