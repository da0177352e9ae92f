package record

import (
	"context"

	"github.com/kailas-cloud/vecsql/internal/domain"
	repo "github.com/kailas-cloud/vecsql/internal/repository/record"
	"github.com/kailas-cloud/vecsql/internal/sqlbuild"
)

// Records defines the storage contract for record operations.
type Records interface {
	Insert(ctx context.Context, table string, records []domain.Record) error
	Upsert(ctx context.Context, table string, records []domain.Record) error
	Update(ctx context.Context, table string, records []domain.Record) error
	Select(ctx context.Context, table string, f repo.Filter, cols sqlbuild.Columns, limit, offset int) ([]domain.Record, error)
	Count(ctx context.Context, table string) (int, error)
	Delete(ctx context.Context, table string, f repo.Filter) error
}
