package record

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vecsql/internal/domain"
	"github.com/kailas-cloud/vecsql/internal/domain/where"
	repo "github.com/kailas-cloud/vecsql/internal/repository/record"
	"github.com/kailas-cloud/vecsql/internal/sqlbuild"
)

// DefaultMaxBatchSize caps how many records one write may carry.
const DefaultMaxBatchSize = 1000

// Service handles record reads and writes for one collection store.
type Service struct {
	repo         Records
	maxBatchSize int
}

// New creates a record service. maxBatchSize <= 0 uses the default.
func New(records Records, maxBatchSize int) *Service {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	return &Service{repo: records, maxBatchSize: maxBatchSize}
}

// Batch is a columnar record batch. IDs is required; the other columns
// are optional but must match its length when present.
type Batch struct {
	IDs        []string
	Documents  []*string
	Metadatas  []map[string]any
	Embeddings [][]float32
}

func (b Batch) validate(maxBatchSize int) error {
	if err := domain.ValidateIDs(b.IDs); err != nil {
		return err
	}
	if len(b.IDs) > maxBatchSize {
		return fmt.Errorf("%w: batch of %d exceeds maximum of %d", domain.ErrValidation, len(b.IDs), maxBatchSize)
	}
	n := len(b.IDs)
	if b.Documents != nil && len(b.Documents) != n {
		return fmt.Errorf("%w: %d documents for %d ids", domain.ErrValidation, len(b.Documents), n)
	}
	if b.Metadatas != nil && len(b.Metadatas) != n {
		return fmt.Errorf("%w: %d metadatas for %d ids", domain.ErrValidation, len(b.Metadatas), n)
	}
	if b.Embeddings != nil && len(b.Embeddings) != n {
		return fmt.Errorf("%w: %d embeddings for %d ids", domain.ErrValidation, len(b.Embeddings), n)
	}
	for _, id := range b.IDs {
		if err := domain.ValidateID(id); err != nil {
			return err
		}
	}
	for i, doc := range b.Documents {
		if doc != nil && len(*doc) > domain.MaxDocumentSize {
			return fmt.Errorf("%w: document %d exceeds %d bytes", domain.ErrValidation, i, domain.MaxDocumentSize)
		}
	}
	return nil
}

// assemble turns the columnar batch into records, embedding documents
// when no embeddings were supplied. requireEmbedding distinguishes full
// writes from partial updates.
func (s *Service) assemble(ctx context.Context, desc domain.Descriptor, embedder domain.Embedder, b Batch, requireEmbedding bool) ([]domain.Record, error) {
	embeddings := b.Embeddings
	if embeddings == nil && b.Documents != nil && requireEmbedding {
		if embedder == nil {
			return nil, domain.ErrEmbedderRequired
		}
		texts := make([]string, len(b.Documents))
		for i, doc := range b.Documents {
			if doc == nil {
				return nil, fmt.Errorf("%w: document %d is missing and no embedding was given", domain.ErrValidation, i)
			}
			texts[i] = *doc
		}
		var err error
		embeddings, err = embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingProviderError, err)
		}
		if len(embeddings) != len(texts) {
			return nil, fmt.Errorf("%w: embedder returned %d vectors for %d documents",
				domain.ErrEmbeddingProviderError, len(embeddings), len(texts))
		}
	}
	if embeddings == nil && requireEmbedding {
		return nil, fmt.Errorf("%w: records need embeddings or documents to embed", domain.ErrValidation)
	}
	if embeddings != nil {
		if err := domain.CheckDimensions(embeddings, desc.Dimension()); err != nil {
			return nil, err
		}
	}

	records := make([]domain.Record, len(b.IDs))
	for i, id := range b.IDs {
		rec := domain.Record{ID: id}
		if b.Documents != nil {
			rec.Document = b.Documents[i]
		}
		if b.Metadatas != nil {
			rec.Metadata = b.Metadatas[i]
		}
		if embeddings != nil {
			rec.Embedding = embeddings[i]
		}
		records[i] = rec
	}
	return records, nil
}

// Add inserts new records. Existing ids fail the whole batch.
func (s *Service) Add(ctx context.Context, desc domain.Descriptor, embedder domain.Embedder, b Batch) error {
	if err := b.validate(s.maxBatchSize); err != nil {
		return err
	}
	records, err := s.assemble(ctx, desc, embedder, b, true)
	if err != nil {
		return err
	}
	return s.repo.Insert(ctx, desc.TableName(), records)
}

// Upsert inserts records, replacing any that already exist.
func (s *Service) Upsert(ctx context.Context, desc domain.Descriptor, embedder domain.Embedder, b Batch) error {
	if err := b.validate(s.maxBatchSize); err != nil {
		return err
	}
	records, err := s.assemble(ctx, desc, embedder, b, true)
	if err != nil {
		return err
	}
	return s.repo.Upsert(ctx, desc.TableName(), records)
}

// Update patches existing records in place. A document update without
// an explicit embedding re-embeds when an embedder is available.
func (s *Service) Update(ctx context.Context, desc domain.Descriptor, embedder domain.Embedder, b Batch) error {
	if err := b.validate(s.maxBatchSize); err != nil {
		return err
	}
	requireEmbedding := b.Documents != nil && b.Embeddings == nil && embedder != nil
	records, err := s.assemble(ctx, desc, embedder, b, requireEmbedding)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, desc.TableName(), records)
}

// GetParams narrows and shapes a read.
type GetParams struct {
	IDs      []string
	Where    where.Where
	Document where.Document
	Limit    int
	Offset   int
	Columns  sqlbuild.Columns
}

// Get reads records matching the params.
func (s *Service) Get(ctx context.Context, desc domain.Descriptor, p GetParams) ([]domain.Record, error) {
	f := repo.Filter{IDs: p.IDs, Where: p.Where, Document: p.Document}
	return s.repo.Select(ctx, desc.TableName(), f, p.Columns, p.Limit, p.Offset)
}

// Count returns the number of records in the collection.
func (s *Service) Count(ctx context.Context, desc domain.Descriptor) (int, error) {
	return s.repo.Count(ctx, desc.TableName())
}

// Delete removes records by ids or filter. Deleting everything takes an
// explicit filter; an empty one is rejected downstream.
func (s *Service) Delete(ctx context.Context, desc domain.Descriptor, ids []string, w where.Where, d where.Document) error {
	if ids != nil {
		if err := domain.ValidateIDs(ids); err != nil {
			return err
		}
	}
	return s.repo.Delete(ctx, desc.TableName(), repo.Filter{IDs: ids, Where: w, Document: d})
}
