package chi

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vecsql/internal/domain"
	repo "github.com/kailas-cloud/vecsql/internal/repository/record"
	"github.com/kailas-cloud/vecsql/internal/searchspec"
	"github.com/kailas-cloud/vecsql/internal/sqlbuild"
)

type fakeCatalog struct {
	collections map[string]domain.Descriptor
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{collections: make(map[string]domain.Descriptor)}
}

func (c *fakeCatalog) EnsureMetadataTable(_ context.Context) error { return nil }

func (c *fakeCatalog) Resolve(_ context.Context, name string) (domain.Descriptor, error) {
	desc, ok := c.collections[name]
	if !ok {
		return domain.Descriptor{}, fmt.Errorf("%w: collection %q", domain.ErrNotFound, name)
	}
	return desc, nil
}

func (c *fakeCatalog) Create(
	_ context.Context, name string, dimension int,
	distance domain.Distance, embedder *domain.EmbedderDescriptor,
) (domain.Descriptor, error) {
	if _, ok := c.collections[name]; ok {
		return domain.Descriptor{}, fmt.Errorf("%w: collection %q", domain.ErrAlreadyExists, name)
	}
	desc, err := domain.NewDescriptor(name, "00000000000000000000000000000001", dimension, distance, embedder)
	if err != nil {
		return domain.Descriptor{}, err
	}
	c.collections[name] = desc
	return desc, nil
}

func (c *fakeCatalog) Delete(_ context.Context, name string) error {
	if _, ok := c.collections[name]; !ok {
		return fmt.Errorf("%w: collection %q", domain.ErrNotFound, name)
	}
	delete(c.collections, name)
	return nil
}

func (c *fakeCatalog) List(_ context.Context) ([]domain.Descriptor, error) {
	out := make([]domain.Descriptor, 0, len(c.collections))
	for _, d := range c.collections {
		out = append(out, d)
	}
	return out, nil
}

type fakeRecords struct {
	inserted []domain.Record
	upserted []domain.Record
	deleted  []repo.Filter
	selected []domain.Record
	count    int
	err      error
}

func (f *fakeRecords) Insert(_ context.Context, _ string, records []domain.Record) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, records...)
	return nil
}

func (f *fakeRecords) Upsert(_ context.Context, _ string, records []domain.Record) error {
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, records...)
	return nil
}

func (f *fakeRecords) Update(_ context.Context, _ string, _ []domain.Record) error {
	return f.err
}

func (f *fakeRecords) Select(
	_ context.Context, _ string, _ repo.Filter, _ sqlbuild.Columns, _, _ int,
) ([]domain.Record, error) {
	return f.selected, f.err
}

func (f *fakeRecords) Count(_ context.Context, _ string) (int, error) {
	return f.count, f.err
}

func (f *fakeRecords) Delete(_ context.Context, _ string, filter repo.Filter) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, filter)
	return nil
}

type fakeScanner struct {
	queryResult []domain.Record
	textResult  []domain.Record
	err         error
}

func (f *fakeScanner) Query(
	_ context.Context, _ string, _ domain.Distance, _ []float32,
	_ int, _ repo.Filter, _ sqlbuild.Columns,
) ([]domain.Record, error) {
	return f.queryResult, f.err
}

func (f *fakeScanner) TextSearch(
	_ context.Context, _, _ string, _ int, _ repo.Filter, _ sqlbuild.Columns,
) ([]domain.Record, error) {
	return f.textResult, f.err
}

type fakeHybrid struct {
	result []domain.Record
	err    error
}

func (f *fakeHybrid) Search(_ context.Context, _ string, _ *searchspec.Spec) ([]domain.Record, error) {
	return f.result, f.err
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(_ context.Context) error { return f.err }

type fakeEmbedder struct {
	dim   int
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dim)
		out[i][0] = float32(i + 1)
	}
	return out, nil
}

func (f *fakeEmbedder) Name() string { return "fake" }

func (f *fakeEmbedder) Config() map[string]any { return map[string]any{"dim": f.dim} }
