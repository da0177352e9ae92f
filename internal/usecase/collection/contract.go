package collection

import (
	"context"

	"github.com/kailas-cloud/vecsql/internal/domain"
)

// Catalog defines the collection addressing contract.
type Catalog interface {
	EnsureMetadataTable(ctx context.Context) error
	Resolve(ctx context.Context, name string) (domain.Descriptor, error)
	Create(ctx context.Context, name string, dimension int, distance domain.Distance, embedder *domain.EmbedderDescriptor) (domain.Descriptor, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]domain.Descriptor, error)
}
