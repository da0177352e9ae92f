package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/vecsql/internal/domain"
)

func isNotFound(err error) bool      { return errors.Is(err, domain.ErrNotFound) }
func isAlreadyExists(err error) bool { return errors.Is(err, domain.ErrAlreadyExists) }

// Service handles collection lifecycle operations.
type Service struct {
	catalog Catalog
}

// New creates a collection service.
func New(catalog Catalog) *Service {
	return &Service{catalog: catalog}
}

// CreateParams carries collection creation inputs. Distance defaults
// to l2 when empty.
type CreateParams struct {
	Name      string
	Dimension int
	Distance  domain.Distance
	Embedder  *domain.EmbedderDescriptor
}

// Create validates the parameters and registers a new collection.
func (s *Service) Create(ctx context.Context, p CreateParams) (domain.Descriptor, error) {
	if err := domain.ValidateName(p.Name); err != nil {
		return domain.Descriptor{}, err
	}
	if p.Distance == "" {
		p.Distance = domain.DistanceL2
	}
	if !p.Distance.IsValid() {
		return domain.Descriptor{}, fmt.Errorf("%w: unknown distance metric %q", domain.ErrValidation, p.Distance)
	}
	if p.Dimension <= 0 {
		return domain.Descriptor{}, fmt.Errorf("%w: dimension must be positive", domain.ErrValidation)
	}
	if p.Embedder != nil {
		if err := p.Embedder.Validate(); err != nil {
			return domain.Descriptor{}, err
		}
	}
	if err := s.catalog.EnsureMetadataTable(ctx); err != nil {
		return domain.Descriptor{}, fmt.Errorf("ensure catalog: %w", err)
	}
	desc, err := s.catalog.Create(ctx, p.Name, p.Dimension, p.Distance, p.Embedder)
	if err != nil {
		return domain.Descriptor{}, fmt.Errorf("create collection: %w", err)
	}
	return desc, nil
}

// Get resolves a collection by name, catalog entries first, legacy
// tables second.
func (s *Service) Get(ctx context.Context, name string) (domain.Descriptor, error) {
	if err := domain.ValidateName(name); err != nil {
		return domain.Descriptor{}, err
	}
	desc, err := s.catalog.Resolve(ctx, name)
	if err != nil {
		return domain.Descriptor{}, fmt.Errorf("get collection: %w", err)
	}
	return desc, nil
}

// GetOrCreate resolves a collection, creating it when absent.
func (s *Service) GetOrCreate(ctx context.Context, p CreateParams) (domain.Descriptor, error) {
	desc, err := s.Get(ctx, p.Name)
	if err == nil {
		return desc, nil
	}
	if !isNotFound(err) {
		return domain.Descriptor{}, err
	}
	desc, err = s.Create(ctx, p)
	if err == nil {
		return desc, nil
	}
	// lost a create race; the existing collection wins
	if isAlreadyExists(err) {
		return s.Get(ctx, p.Name)
	}
	return domain.Descriptor{}, err
}

// List returns all catalog-registered collections.
func (s *Service) List(ctx context.Context) ([]domain.Descriptor, error) {
	descs, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return descs, nil
}

// Delete removes a collection and its data.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := domain.ValidateName(name); err != nil {
		return err
	}
	if err := s.catalog.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return nil
}
