// Package catalog reconciles the two physical collection layouts: the
// current catalog/id-encoded layout (v2) backed by a shared metadata
// table, and the older name-encoded layout (v1) with no catalog record.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecsql/internal/db"
	"github.com/kailas-cloud/vecsql/internal/domain"
	"github.com/kailas-cloud/vecsql/internal/sqlbuild"
)

// Resolver maps collection names to descriptors and owns collection
// lifecycle against the catalog and the physical tables.
type Resolver struct {
	exec   db.Executor
	logger *zap.Logger
}

// NewResolver creates a catalog resolver.
func NewResolver(exec db.Executor, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{exec: exec, logger: logger}
}

// EnsureMetadataTable creates the shared catalog table if missing.
func (r *Resolver) EnsureMetadataTable(ctx context.Context) error {
	if _, err := r.exec.Execute(ctx, sqlbuild.CreateMetadataTable()); err != nil {
		return fmt.Errorf("ensure metadata table: %w", err)
	}
	return nil
}

// Resolve builds a fresh Descriptor for a collection name, preferring
// the catalog (v2) record and falling back to legacy introspection.
func (r *Resolver) Resolve(ctx context.Context, name string) (domain.Descriptor, error) {
	if err := domain.ValidateName(name); err != nil {
		return domain.Descriptor{}, err
	}

	rec, found, err := r.lookupMetadata(ctx, name)
	if err != nil {
		return domain.Descriptor{}, err
	}
	if found {
		return domain.NewDescriptor(
			rec.CollectionName, rec.CollectionID,
			rec.Settings.Configuration.Dimension,
			rec.Settings.Configuration.Distance,
			rec.Settings.Embedder,
		)
	}
	return r.resolveLegacy(ctx, name)
}

func (r *Resolver) lookupMetadata(ctx context.Context, name string) (domain.MetadataRecord, bool, error) {
	stmt := sqlbuild.SelectMetadataByName(name)
	res, err := r.exec.Execute(ctx, stmt.SQL, stmt.Params...)
	if err != nil {
		if errors.Is(err, db.ErrTableNotFound) {
			// catalog table not created yet: only legacy collections can exist
			return domain.MetadataRecord{}, false, nil
		}
		return domain.MetadataRecord{}, false, fmt.Errorf("lookup collection %s: %w", name, err)
	}
	if len(res.Rows) == 0 {
		return domain.MetadataRecord{}, false, nil
	}
	rec, err := metadataFromRow(res.Rows[0])
	if err != nil {
		return domain.MetadataRecord{}, false, fmt.Errorf("parse metadata for %s: %w", name, err)
	}
	return rec, true, nil
}

func metadataFromRow(row []any) (domain.MetadataRecord, error) {
	if len(row) < 3 {
		return domain.MetadataRecord{}, fmt.Errorf("metadata row has %d columns, want 3", len(row))
	}
	name, _ := row[0].(string)
	id, _ := row[1].(string)
	rec := domain.MetadataRecord{CollectionName: name, CollectionID: id}
	if settings, ok := row[2].(string); ok && settings != "" {
		if err := json.Unmarshal([]byte(settings), &rec.Settings); err != nil {
			return domain.MetadataRecord{}, fmt.Errorf("decode settings: %w", err)
		}
	}
	return rec, nil
}

// resolveLegacy introspects a name-encoded physical table: the vector
// column width gives the dimension, the table definition text gives the
// distance metric.
func (r *Resolver) resolveLegacy(ctx context.Context, name string) (domain.Descriptor, error) {
	table := "c_" + name

	probe := sqlbuild.ShowTablesLike(table)
	res, err := r.exec.Execute(ctx, probe.SQL, probe.Params...)
	if err != nil {
		return domain.Descriptor{}, fmt.Errorf("probe table %s: %w", table, err)
	}
	if len(res.Rows) == 0 {
		return domain.Descriptor{}, fmt.Errorf("collection %s: %w", name, domain.ErrNotFound)
	}

	desc := sqlbuild.DescribeTable(table)
	res, err = r.exec.Execute(ctx, desc.SQL, desc.Params...)
	if err != nil {
		return domain.Descriptor{}, fmt.Errorf("describe table %s: %w", table, err)
	}
	dimension, err := vectorColumnDimension(res.Rows)
	if err != nil {
		return domain.Descriptor{}, fmt.Errorf("introspect %s: %w", table, err)
	}

	show := sqlbuild.ShowCreateTable(table)
	res, err = r.exec.Execute(ctx, show.SQL, show.Params...)
	if err != nil {
		return domain.Descriptor{}, fmt.Errorf("show create table %s: %w", table, err)
	}
	if len(res.Rows) == 0 || len(res.Rows[0]) < 2 {
		return domain.Descriptor{}, fmt.Errorf("show create table %s: empty result", table)
	}
	ddl, _ := res.Rows[0][1].(string)
	distance, err := parseDistanceFromDDL(ddl)
	if err != nil {
		return domain.Descriptor{}, fmt.Errorf("introspect %s: %w", table, err)
	}

	return domain.NewLegacyDescriptor(name, dimension, distance)
}

// Create mints a collection id, inserts the metadata record, then
// creates the physical table. Table-creation failure triggers a
// best-effort metadata delete; a compensation failure is logged and
// swallowed so the original error always propagates. Concurrent creates
// of one name are left to the catalog's uniqueness constraint.
func (r *Resolver) Create(
	ctx context.Context, name string, dimension int, distance domain.Distance,
	embedder *domain.EmbedderDescriptor,
) (domain.Descriptor, error) {
	id := mintCollectionID()
	descriptor, err := domain.NewDescriptor(name, id, dimension, distance, embedder)
	if err != nil {
		return domain.Descriptor{}, err
	}

	rec := domain.MetadataRecord{
		CollectionName: name,
		CollectionID:   id,
		Settings: domain.Settings{
			Configuration: domain.Configuration{Dimension: dimension, Distance: distance},
			Embedder:      embedder,
		},
	}
	ins, err := sqlbuild.InsertMetadata(rec)
	if err != nil {
		return domain.Descriptor{}, err
	}
	if _, err := r.exec.Execute(ctx, ins.SQL, ins.Params...); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return domain.Descriptor{}, fmt.Errorf("collection %s: %w", name, domain.ErrAlreadyExists)
		}
		return domain.Descriptor{}, fmt.Errorf("insert metadata for %s: %w", name, err)
	}

	ddl := sqlbuild.CreateCollectionTable(descriptor.TableName(), dimension, distance)
	if _, err := r.exec.Execute(ctx, ddl); err != nil {
		r.compensateCreate(ctx, name)
		return domain.Descriptor{}, fmt.Errorf("create table for %s: %w", name, err)
	}

	return descriptor, nil
}

// compensateCreate undoes the metadata insert after a failed table
// create. Best effort: failure is logged, never re-raised.
func (r *Resolver) compensateCreate(ctx context.Context, name string) {
	del := sqlbuild.DeleteMetadata(name)
	if _, err := r.exec.Execute(ctx, del.SQL, del.Params...); err != nil {
		r.logger.Warn("failed to compensate metadata insert after table creation failure",
			zap.String("collection", name), zap.Error(err))
	}
}

// Delete drops the physical table and, for catalog collections, deletes
// the metadata record after the table is gone.
func (r *Resolver) Delete(ctx context.Context, name string) error {
	if err := domain.ValidateName(name); err != nil {
		return err
	}

	rec, found, err := r.lookupMetadata(ctx, name)
	if err != nil {
		return err
	}
	if found {
		descriptor, err := domain.NewDescriptor(
			rec.CollectionName, rec.CollectionID,
			rec.Settings.Configuration.Dimension,
			rec.Settings.Configuration.Distance,
			rec.Settings.Embedder,
		)
		if err != nil {
			return err
		}
		if _, err := r.exec.Execute(ctx, sqlbuild.DropTable(descriptor.TableName())); err != nil {
			return fmt.Errorf("drop table for %s: %w", name, err)
		}
		del := sqlbuild.DeleteMetadata(name)
		if _, err := r.exec.Execute(ctx, del.SQL, del.Params...); err != nil {
			return fmt.Errorf("delete metadata for %s: %w", name, err)
		}
		return nil
	}

	// legacy collection: name-addressed table only
	table := "c_" + name
	probe := sqlbuild.ShowTablesLike(table)
	res, err := r.exec.Execute(ctx, probe.SQL, probe.Params...)
	if err != nil {
		return fmt.Errorf("probe table %s: %w", table, err)
	}
	if len(res.Rows) == 0 {
		return fmt.Errorf("collection %s: %w", name, domain.ErrNotFound)
	}
	if _, err := r.exec.Execute(ctx, sqlbuild.DropTable(table)); err != nil {
		return fmt.Errorf("drop table %s: %w", table, err)
	}
	return nil
}

// List returns descriptors for all catalog-addressed collections.
// Legacy collections are not enumerable without scanning all tables.
func (r *Resolver) List(ctx context.Context) ([]domain.Descriptor, error) {
	stmt := sqlbuild.ListMetadata()
	res, err := r.exec.Execute(ctx, stmt.SQL, stmt.Params...)
	if err != nil {
		if errors.Is(err, db.ErrTableNotFound) {
			return []domain.Descriptor{}, nil
		}
		return nil, fmt.Errorf("list collections: %w", err)
	}
	descriptors := make([]domain.Descriptor, 0, len(res.Rows))
	for _, row := range res.Rows {
		rec, err := metadataFromRow(row)
		if err != nil {
			return nil, err
		}
		descriptor, err := domain.NewDescriptor(
			rec.CollectionName, rec.CollectionID,
			rec.Settings.Configuration.Dimension,
			rec.Settings.Configuration.Distance,
			rec.Settings.Embedder,
		)
		if err != nil {
			return nil, fmt.Errorf("parse collection %s: %w", rec.CollectionName, err)
		}
		descriptors = append(descriptors, descriptor)
	}
	return descriptors, nil
}

// mintCollectionID returns a fresh 32-hex-character collection id.
func mintCollectionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
