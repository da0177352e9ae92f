package collection

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/vecsql/internal/domain"
)

type fakeCatalog struct {
	resolveFn func(name string) (domain.Descriptor, error)
	createFn  func(name string, dim int, dist domain.Distance, emb *domain.EmbedderDescriptor) (domain.Descriptor, error)
	deleted   []string
	ensured   bool
}

func (f *fakeCatalog) EnsureMetadataTable(context.Context) error {
	f.ensured = true
	return nil
}

func (f *fakeCatalog) Resolve(_ context.Context, name string) (domain.Descriptor, error) {
	if f.resolveFn != nil {
		return f.resolveFn(name)
	}
	return domain.Descriptor{}, domain.ErrNotFound
}

func (f *fakeCatalog) Create(_ context.Context, name string, dim int, dist domain.Distance, emb *domain.EmbedderDescriptor) (domain.Descriptor, error) {
	if f.createFn != nil {
		return f.createFn(name, dim, dist, emb)
	}
	return domain.NewDescriptor(name, "0123456789abcdef0123456789abcdef", dim, dist, emb)
}

func (f *fakeCatalog) Delete(_ context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	return nil
}

func (f *fakeCatalog) List(context.Context) ([]domain.Descriptor, error) {
	return nil, nil
}

func TestCreateDefaultsDistance(t *testing.T) {
	var gotDist domain.Distance
	cat := &fakeCatalog{createFn: func(name string, dim int, dist domain.Distance, emb *domain.EmbedderDescriptor) (domain.Descriptor, error) {
		gotDist = dist
		return domain.NewDescriptor(name, "0123456789abcdef0123456789abcdef", dim, dist, emb)
	}}
	svc := New(cat)

	_, err := svc.Create(context.Background(), CreateParams{Name: "docs", Dimension: 3})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if gotDist != domain.DistanceL2 {
		t.Fatalf("expected l2 default, got %q", gotDist)
	}
	if !cat.ensured {
		t.Fatal("catalog table was not ensured before create")
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc := New(&fakeCatalog{})
	ctx := context.Background()

	tests := []struct {
		name string
		p    CreateParams
	}{
		{"empty name", CreateParams{Dimension: 3}},
		{"zero dimension", CreateParams{Name: "docs"}},
		{"unknown distance", CreateParams{Name: "docs", Dimension: 3, Distance: "hamming"}},
	}
	for _, tc := range tests {
		if _, err := svc.Create(ctx, tc.p); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", tc.name, err)
		}
	}
}

func TestGetOrCreateReturnsExisting(t *testing.T) {
	existing, err := domain.NewDescriptor("docs", "0123456789abcdef0123456789abcdef", 5, domain.DistanceCosine, nil)
	if err != nil {
		t.Fatalf("descriptor: %v", err)
	}
	created := false
	cat := &fakeCatalog{
		resolveFn: func(string) (domain.Descriptor, error) { return existing, nil },
		createFn: func(string, int, domain.Distance, *domain.EmbedderDescriptor) (domain.Descriptor, error) {
			created = true
			return domain.Descriptor{}, nil
		},
	}
	svc := New(cat)

	desc, err := svc.GetOrCreate(context.Background(), CreateParams{Name: "docs", Dimension: 5})
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if created {
		t.Fatal("existing collection should not be recreated")
	}
	if desc.Dimension() != 5 || desc.Distance() != domain.DistanceCosine {
		t.Fatalf("unexpected descriptor: %+v", desc)
	}
}

func TestGetOrCreateLosesRaceGracefully(t *testing.T) {
	existing, err := domain.NewDescriptor("docs", "0123456789abcdef0123456789abcdef", 5, domain.DistanceL2, nil)
	if err != nil {
		t.Fatalf("descriptor: %v", err)
	}
	resolved := 0
	cat := &fakeCatalog{
		resolveFn: func(string) (domain.Descriptor, error) {
			resolved++
			if resolved == 1 {
				return domain.Descriptor{}, domain.ErrNotFound
			}
			return existing, nil
		},
		createFn: func(string, int, domain.Distance, *domain.EmbedderDescriptor) (domain.Descriptor, error) {
			return domain.Descriptor{}, domain.ErrAlreadyExists
		},
	}
	svc := New(cat)

	desc, err := svc.GetOrCreate(context.Background(), CreateParams{Name: "docs", Dimension: 5})
	if err != nil {
		t.Fatalf("get or create after lost race: %v", err)
	}
	if desc.Name() != "docs" {
		t.Fatalf("unexpected descriptor: %+v", desc)
	}
}

func TestDeleteValidatesName(t *testing.T) {
	cat := &fakeCatalog{}
	svc := New(cat)

	if err := svc.Delete(context.Background(), ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err := svc.Delete(context.Background(), "docs"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(cat.deleted) != 1 || cat.deleted[0] != "docs" {
		t.Fatalf("delete not forwarded: %v", cat.deleted)
	}
}
