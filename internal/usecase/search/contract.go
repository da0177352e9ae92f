package search

import (
	"context"

	"github.com/kailas-cloud/vecsql/internal/domain"
	repo "github.com/kailas-cloud/vecsql/internal/repository/record"
	"github.com/kailas-cloud/vecsql/internal/searchspec"
	"github.com/kailas-cloud/vecsql/internal/sqlbuild"
)

// Scanner defines the direct table scan contracts used for vector
// queries and for the client-side hybrid fallback.
type Scanner interface {
	Query(ctx context.Context, table string, metric domain.Distance, vec []float32, k int, f repo.Filter, cols sqlbuild.Columns) ([]domain.Record, error)
	TextSearch(ctx context.Context, table, query string, k int, f repo.Filter, cols sqlbuild.Columns) ([]domain.Record, error)
}

// HybridSearcher defines the server-side hybrid search contract.
type HybridSearcher interface {
	Search(ctx context.Context, table string, spec *searchspec.Spec) ([]domain.Record, error)
}
