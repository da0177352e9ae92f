package domain

import (
	"context"
	"fmt"
)

// Embedder is the shared text vectorization contract between layers.
// Implementations vectorize a batch of texts in one provider call and
// expose their construction properties for catalog persistence.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
	Config() map[string]any
}

// Disposer releases provider resources. Optional on Embedder implementations.
type Disposer interface {
	Dispose() error
}

// Describe captures an embedder as a persistable descriptor.
func Describe(e Embedder) *EmbedderDescriptor {
	if e == nil {
		return nil
	}
	return &EmbedderDescriptor{Name: e.Name(), Properties: e.Config()}
}

// CheckDimensions verifies every vector matches the collection width.
func CheckDimensions(vectors [][]float32, dimension int) error {
	for i, v := range vectors {
		if len(v) != dimension {
			return fmt.Errorf("%w: vector %d has %d dimensions, collection expects %d",
				ErrDimensionMismatch, i, len(v), dimension)
		}
	}
	return nil
}
