package vecsql

import (
	"context"
	"fmt"
	"sync"

	"github.com/kailas-cloud/vecsql/internal/domain"
)

// Embedder converts texts to vector embeddings. Name identifies the
// provider; it is persisted with collections so a later GetCollection
// can rebuild the same embedding function.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// EmbedderFactory builds an embedder from the properties persisted in
// a collection's metadata.
type EmbedderFactory func(properties map[string]any) (Embedder, error)

var embedderRegistry = struct {
	mu        sync.RWMutex
	factories map[string]EmbedderFactory
}{factories: make(map[string]EmbedderFactory)}

// RegisterEmbedder registers a named embedder factory. Registration
// usually happens in a provider package's init.
func RegisterEmbedder(name string, factory EmbedderFactory) {
	embedderRegistry.mu.Lock()
	defer embedderRegistry.mu.Unlock()
	embedderRegistry.factories[name] = factory
}

func lookupEmbedderFactory(name string) (EmbedderFactory, bool) {
	embedderRegistry.mu.RLock()
	defer embedderRegistry.mu.RUnlock()
	f, ok := embedderRegistry.factories[name]
	return f, ok
}

// embedderAdapter lifts a public Embedder into the domain contract,
// carrying the properties it was built with.
type embedderAdapter struct {
	inner      Embedder
	properties map[string]any
}

func adaptEmbedder(e Embedder, properties map[string]any) domain.Embedder {
	if e == nil {
		return nil
	}
	return &embedderAdapter{inner: e, properties: properties}
}

func (a *embedderAdapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := a.inner.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return vectors, nil
}

func (a *embedderAdapter) Name() string { return a.inner.Name() }

func (a *embedderAdapter) Config() map[string]any { return a.properties }

// buildEmbedder rebuilds a persisted embedding function through the
// registry. A nil descriptor yields nil; an unregistered name is an
// error, since records would otherwise be embedded inconsistently.
func buildEmbedder(desc *domain.EmbedderDescriptor) (domain.Embedder, error) {
	if desc == nil {
		return nil, nil
	}
	factory, ok := lookupEmbedderFactory(desc.Name)
	if !ok {
		return nil, fmt.Errorf("%w: embedding function %q is not registered", domain.ErrEmbedderRequired, desc.Name)
	}
	e, err := factory(desc.Properties)
	if err != nil {
		return nil, fmt.Errorf("build embedding function %q: %w", desc.Name, err)
	}
	return adaptEmbedder(e, desc.Properties), nil
}
