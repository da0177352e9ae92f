package hybrid

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecsql/internal/db"
	"github.com/kailas-cloud/vecsql/internal/domain"
	"github.com/kailas-cloud/vecsql/internal/repository/record"
	"github.com/kailas-cloud/vecsql/internal/searchspec"
	"github.com/kailas-cloud/vecsql/internal/sqlbuild"
	"github.com/kailas-cloud/vecsql/internal/sqlguard"
)

// Repository runs hybrid searches through the server-side SQL
// generator. The whole exchange is pinned to one session because the
// search specification travels in a session variable.
type Repository struct {
	sess   db.Sessioner
	logger *zap.Logger
}

func New(sess db.Sessioner, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{sess: sess, logger: logger}
}

// Search serializes the spec, asks the server to translate it into a
// query, validates the returned text and executes it, all on one
// pinned connection. A server that produces no query reports
// domain.ErrNotSupported so callers can fall back.
func (r *Repository) Search(ctx context.Context, table string, spec *searchspec.Spec) ([]domain.Record, error) {
	specJSON, err := spec.JSON()
	if err != nil {
		return nil, fmt.Errorf("encode search spec: %w", err)
	}

	var records []domain.Record
	err = r.sess.Session(ctx, func(exec db.Executor) error {
		set := sqlbuild.SetSearchParam(specJSON)
		if _, err := exec.Execute(ctx, set.SQL, set.Params...); err != nil {
			return fmt.Errorf("set search parameter: %w", err)
		}

		gen := sqlbuild.HybridSearchSQL(table)
		res, err := exec.Execute(ctx, gen.SQL, gen.Params...)
		if err != nil {
			return fmt.Errorf("generate search sql: %w", err)
		}
		querySQL, err := generatedSQL(res)
		if err != nil {
			return err
		}
		if err := sqlguard.Validate(querySQL); err != nil {
			r.logger.Warn("rejected generated search sql",
				zap.String("table", table), zap.Error(err))
			return err
		}

		rows, err := exec.Execute(ctx, querySQL)
		if err != nil {
			return fmt.Errorf("execute search sql: %w", err)
		}
		records, err = recordsFromResult(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// generatedSQL extracts the query text from the generator's result row.
func generatedSQL(res *db.Result) (string, error) {
	if len(res.Rows) == 0 || len(res.Rows[0]) == 0 {
		return "", fmt.Errorf("%w: server returned no search query", domain.ErrNotSupported)
	}
	s, ok := res.Rows[0][0].(string)
	if !ok {
		return "", fmt.Errorf("generated query has type %T", res.Rows[0][0])
	}
	return s, nil
}

func recordsFromResult(res *db.Result) ([]domain.Record, error) {
	records := make([]domain.Record, 0, len(res.Rows))
	for _, row := range res.Rows {
		rec, err := record.FromRow(res.Columns, row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
