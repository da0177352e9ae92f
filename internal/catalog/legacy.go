package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kailas-cloud/vecsql/internal/domain"
)

// Legacy (v1) collections predate the catalog: the table is addressed
// by name alone and its configuration must be introspected out of the
// physical schema.

var vectorTypeRegex = regexp.MustCompile(`(?i)^vector\((\d+)\)`)

// vectorColumnDimension finds the vector-typed column in DESCRIBE
// output and returns its declared width. DESCRIBE rows are
// (Field, Type, Null, Key, Default, Extra).
func vectorColumnDimension(rows [][]any) (int, error) {
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		colType, ok := row[1].(string)
		if !ok {
			continue
		}
		if m := vectorTypeRegex.FindStringSubmatch(strings.TrimSpace(colType)); m != nil {
			dim, err := strconv.Atoi(m[1])
			if err != nil || dim <= 0 {
				return 0, fmt.Errorf("invalid vector width %q", m[1])
			}
			return dim, nil
		}
	}
	return 0, fmt.Errorf("no vector column found")
}

// The distance metric of a legacy collection is not exposed as a
// queryable column; it only appears as text inside the vector index
// options of the table definition. Extracting it by pattern is fragile
// to any change in how the engine renders that clause, which is why the
// dependency is confined to this one function.
var distanceOptionRegex = regexp.MustCompile(`(?i)distance\s*=\s*'?([a-z0-9_]+)'?`)

// parseDistanceFromDDL extracts the distance metric from a table
// definition text.
func parseDistanceFromDDL(ddl string) (domain.Distance, error) {
	m := distanceOptionRegex.FindStringSubmatch(ddl)
	if m == nil {
		return "", fmt.Errorf("no distance option in table definition")
	}
	metric := domain.Distance(strings.ToLower(m[1]))
	if !metric.IsValid() {
		return "", fmt.Errorf("unknown distance metric %q in table definition", m[1])
	}
	return metric, nil
}
