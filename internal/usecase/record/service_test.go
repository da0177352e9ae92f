package record

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kailas-cloud/vecsql/internal/domain"
	"github.com/kailas-cloud/vecsql/internal/domain/where"
	repo "github.com/kailas-cloud/vecsql/internal/repository/record"
	"github.com/kailas-cloud/vecsql/internal/sqlbuild"
)

type fakeRecords struct {
	inserted []domain.Record
	upserted []domain.Record
	updated  []domain.Record
	deleted  []repo.Filter
	selected []domain.Record
	count    int
	err      error
}

func (f *fakeRecords) Insert(_ context.Context, _ string, recs []domain.Record) error {
	f.inserted = append(f.inserted, recs...)
	return f.err
}

func (f *fakeRecords) Upsert(_ context.Context, _ string, recs []domain.Record) error {
	f.upserted = append(f.upserted, recs...)
	return f.err
}

func (f *fakeRecords) Update(_ context.Context, _ string, recs []domain.Record) error {
	f.updated = append(f.updated, recs...)
	return f.err
}

func (f *fakeRecords) Select(_ context.Context, _ string, _ repo.Filter, _ sqlbuild.Columns, _, _ int) ([]domain.Record, error) {
	return f.selected, f.err
}

func (f *fakeRecords) Count(_ context.Context, _ string) (int, error) {
	return f.count, f.err
}

func (f *fakeRecords) Delete(_ context.Context, _ string, flt repo.Filter) error {
	f.deleted = append(f.deleted, flt)
	return f.err
}

type fakeEmbedder struct {
	calls [][]string
	fn    func(texts []string) ([][]float32, error)
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.fn != nil {
		return f.fn(texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

func (f *fakeEmbedder) Name() string           { return "fake" }
func (f *fakeEmbedder) Config() map[string]any { return nil }

func testDescriptor(t *testing.T, dim int) domain.Descriptor {
	t.Helper()
	desc, err := domain.NewDescriptor("docs", "0123456789abcdef0123456789abcdef", dim, domain.DistanceL2, nil)
	if err != nil {
		t.Fatalf("descriptor: %v", err)
	}
	return desc
}

func strPtr(s string) *string { return &s }

func TestAddEmbedsDocuments(t *testing.T) {
	store := &fakeRecords{}
	emb := &fakeEmbedder{}
	svc := New(store, 0)
	desc := testDescriptor(t, 3)

	err := svc.Add(context.Background(), desc, emb, Batch{
		IDs:       []string{"a", "b"},
		Documents: []*string{strPtr("one"), strPtr("two")},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(emb.calls) != 1 || !reflect.DeepEqual(emb.calls[0], []string{"one", "two"}) {
		t.Fatalf("embedder calls: %v", emb.calls)
	}
	if len(store.inserted) != 2 {
		t.Fatalf("inserted %d records", len(store.inserted))
	}
	if !reflect.DeepEqual(store.inserted[0].Embedding, []float32{1, 2, 3}) {
		t.Fatalf("embedding not attached: %v", store.inserted[0])
	}
}

func TestAddWithoutEmbedderNeedsEmbeddings(t *testing.T) {
	svc := New(&fakeRecords{}, 0)
	desc := testDescriptor(t, 3)

	err := svc.Add(context.Background(), desc, nil, Batch{
		IDs:       []string{"a"},
		Documents: []*string{strPtr("one")},
	})
	if !errors.Is(err, domain.ErrEmbedderRequired) {
		t.Fatalf("expected ErrEmbedderRequired, got %v", err)
	}
}

func TestAddChecksDimensions(t *testing.T) {
	svc := New(&fakeRecords{}, 0)
	desc := testDescriptor(t, 3)

	err := svc.Add(context.Background(), desc, nil, Batch{
		IDs:        []string{"a"},
		Embeddings: [][]float32{{1, 2}},
	})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestBatchValidation(t *testing.T) {
	svc := New(&fakeRecords{}, 2)
	desc := testDescriptor(t, 3)
	ctx := context.Background()

	tests := []struct {
		name string
		b    Batch
	}{
		{"no ids", Batch{}},
		{"duplicate ids", Batch{IDs: []string{"a", "a"}, Embeddings: [][]float32{{1, 2, 3}, {1, 2, 3}}}},
		{"length mismatch", Batch{IDs: []string{"a"}, Documents: []*string{strPtr("x"), strPtr("y")}}},
		{"over batch limit", Batch{IDs: []string{"a", "b", "c"}, Embeddings: [][]float32{{1, 2, 3}, {1, 2, 3}, {1, 2, 3}}}},
	}
	for _, tc := range tests {
		if err := svc.Add(ctx, desc, nil, tc.b); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", tc.name, err)
		}
	}
}

func TestUpdateMetadataOnlySkipsEmbedder(t *testing.T) {
	store := &fakeRecords{}
	emb := &fakeEmbedder{}
	svc := New(store, 0)
	desc := testDescriptor(t, 3)

	err := svc.Update(context.Background(), desc, emb, Batch{
		IDs:       []string{"a"},
		Metadatas: []map[string]any{{"k": "v"}},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(emb.calls) != 0 {
		t.Fatalf("metadata-only update should not embed: %v", emb.calls)
	}
	if len(store.updated) != 1 || store.updated[0].Embedding != nil {
		t.Fatalf("unexpected update payload: %+v", store.updated)
	}
}

func TestUpdateDocumentReembeds(t *testing.T) {
	store := &fakeRecords{}
	emb := &fakeEmbedder{}
	svc := New(store, 0)
	desc := testDescriptor(t, 3)

	err := svc.Update(context.Background(), desc, emb, Batch{
		IDs:       []string{"a"},
		Documents: []*string{strPtr("fresh text")},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(emb.calls) != 1 {
		t.Fatalf("document update should re-embed, calls: %v", emb.calls)
	}
	if store.updated[0].Embedding == nil {
		t.Fatal("new embedding missing from update")
	}
}

func TestDeleteForwardsFilter(t *testing.T) {
	store := &fakeRecords{}
	svc := New(store, 0)
	desc := testDescriptor(t, 3)

	err := svc.Delete(context.Background(), desc, []string{"a", "b"}, where.Where{}, where.Document{})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.deleted) != 1 || !reflect.DeepEqual(store.deleted[0].IDs, []string{"a", "b"}) {
		t.Fatalf("filter not forwarded: %+v", store.deleted)
	}
}
