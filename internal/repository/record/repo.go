package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/vecsql/internal/db"
	"github.com/kailas-cloud/vecsql/internal/domain"
	"github.com/kailas-cloud/vecsql/internal/domain/where"
	"github.com/kailas-cloud/vecsql/internal/sqlbuild"
)

// Filter narrows an operation to a subset of a collection's records.
// Zero value matches everything.
type Filter struct {
	IDs      []string
	Where    where.Where
	Document where.Document
}

func (f Filter) predicates() ([]sqlbuild.Predicate, error) {
	wp, err := sqlbuild.CompileWhere(f.Where, sqlbuild.ColMetadata)
	if err != nil {
		return nil, err
	}
	dp, err := sqlbuild.CompileWhereDocument(f.Document, sqlbuild.ColDocument)
	if err != nil {
		return nil, err
	}
	return []sqlbuild.Predicate{wp, dp}, nil
}

// Repository executes record operations against one collection table.
type Repository struct {
	exec db.Executor
}

func New(exec db.Executor) *Repository {
	return &Repository{exec: exec}
}

// Insert writes the given records. Ids that already exist fail the
// whole statement with domain.ErrAlreadyExists.
func (r *Repository) Insert(ctx context.Context, table string, records []domain.Record) error {
	stmt, err := sqlbuild.InsertRecords(table, records)
	if err != nil {
		return err
	}
	if _, err := r.exec.Execute(ctx, stmt.SQL, stmt.Params...); err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: duplicate record id", domain.ErrAlreadyExists)
		}
		return fmt.Errorf("insert records: %w", err)
	}
	return nil
}

// Upsert writes the given records, replacing the payload of any id
// that already exists.
func (r *Repository) Upsert(ctx context.Context, table string, records []domain.Record) error {
	stmt, err := sqlbuild.UpsertRecords(table, records)
	if err != nil {
		return err
	}
	if _, err := r.exec.Execute(ctx, stmt.SQL, stmt.Params...); err != nil {
		return fmt.Errorf("upsert records: %w", err)
	}
	return nil
}

// Update patches the provided fields of each record in place. A missing
// id is not an error; the statement simply affects zero rows.
func (r *Repository) Update(ctx context.Context, table string, records []domain.Record) error {
	for _, rec := range records {
		stmt, err := sqlbuild.UpdateRecord(table, rec)
		if err != nil {
			return err
		}
		if _, err := r.exec.Execute(ctx, stmt.SQL, stmt.Params...); err != nil {
			return fmt.Errorf("update record %q: %w", rec.ID, err)
		}
	}
	return nil
}

// Select reads records matching the filter. limit <= 0 reads everything.
func (r *Repository) Select(ctx context.Context, table string, f Filter, cols sqlbuild.Columns, limit, offset int) ([]domain.Record, error) {
	preds, err := f.predicates()
	if err != nil {
		return nil, err
	}
	stmt := sqlbuild.SelectRecords(table, cols, f.IDs, limit, offset, preds...)
	res, err := r.exec.Execute(ctx, stmt.SQL, stmt.Params...)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	return recordsFromResult(res)
}

// Count returns the number of records in the collection.
func (r *Repository) Count(ctx context.Context, table string) (int, error) {
	stmt := sqlbuild.CountRecords(table)
	res, err := r.exec.Execute(ctx, stmt.SQL, stmt.Params...)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	if len(res.Rows) == 0 || len(res.Rows[0]) == 0 {
		return 0, fmt.Errorf("count records: empty result")
	}
	n, err := toFloat(res.Rows[0][0])
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return int(n), nil
}

// Delete removes records matching the filter. An empty filter is
// rejected; wiping a collection is a catalog operation, not a delete.
func (r *Repository) Delete(ctx context.Context, table string, f Filter) error {
	preds, err := f.predicates()
	if err != nil {
		return err
	}
	stmt, err := sqlbuild.DeleteRecords(table, f.IDs, preds...)
	if err != nil {
		return err
	}
	if _, err := r.exec.Execute(ctx, stmt.SQL, stmt.Params...); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	return nil
}

// Query runs an approximate-nearest-neighbor scan and returns the k
// closest records with their distances.
func (r *Repository) Query(ctx context.Context, table string, metric domain.Distance, vec []float32, k int, f Filter, cols sqlbuild.Columns) ([]domain.Record, error) {
	preds, err := f.predicates()
	if err != nil {
		return nil, err
	}
	stmt := sqlbuild.AnnSearch(table, metric, vec, k, cols, preds...)
	res, err := r.exec.Execute(ctx, stmt.SQL, stmt.Params...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	return recordsFromResult(res)
}

// TextSearch runs a relevance-ordered full-text scan and returns the k
// best matches with their scores in the Distance field.
func (r *Repository) TextSearch(ctx context.Context, table, query string, k int, f Filter, cols sqlbuild.Columns) ([]domain.Record, error) {
	preds, err := f.predicates()
	if err != nil {
		return nil, err
	}
	stmt := sqlbuild.FullTextSearch(table, query, k, cols, preds...)
	res, err := r.exec.Execute(ctx, stmt.SQL, stmt.Params...)
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	return recordsFromResult(res)
}

func recordsFromResult(res *db.Result) ([]domain.Record, error) {
	records := make([]domain.Record, 0, len(res.Rows))
	for _, row := range res.Rows {
		rec, err := FromRow(res.Columns, row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, db.ErrDuplicate)
}
