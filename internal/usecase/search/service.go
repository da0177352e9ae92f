package search

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecsql/internal/domain"
	"github.com/kailas-cloud/vecsql/internal/domain/where"
	repo "github.com/kailas-cloud/vecsql/internal/repository/record"
	"github.com/kailas-cloud/vecsql/internal/searchspec"
	"github.com/kailas-cloud/vecsql/internal/sqlbuild"
)

// DefaultK is the result count when a query does not set one.
const DefaultK = 10

// Service handles vector queries and hybrid searches.
type Service struct {
	scanner Scanner
	hybrid  HybridSearcher
	logger  *zap.Logger
}

// New creates a search service. hybrid may be nil when the store offers
// no server-side search generation; searches then always use the
// client-side path.
func New(scanner Scanner, hybrid HybridSearcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{scanner: scanner, hybrid: hybrid, logger: logger}
}

// QueryParams shapes a nearest-neighbor query. Each vector in
// Embeddings produces one independent result list.
type QueryParams struct {
	Embeddings [][]float32
	K          int
	Where      where.Where
	Document   where.Document
	Columns    sqlbuild.Columns
}

// Query runs one ANN scan per query embedding.
func (s *Service) Query(ctx context.Context, desc domain.Descriptor, p QueryParams) ([][]domain.Record, error) {
	if len(p.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: query requires at least one embedding", domain.ErrValidation)
	}
	if err := domain.CheckDimensions(p.Embeddings, desc.Dimension()); err != nil {
		return nil, err
	}
	k := p.K
	if k <= 0 {
		k = DefaultK
	}
	f := repo.Filter{Where: p.Where, Document: p.Document}
	out := make([][]domain.Record, len(p.Embeddings))
	for i, vec := range p.Embeddings {
		recs, err := s.scanner.Query(ctx, desc.TableName(), desc.Distance(), vec, k, f, p.Columns)
		if err != nil {
			return nil, fmt.Errorf("query embedding %d: %w", i, err)
		}
		out[i] = recs
	}
	return out, nil
}

// HybridParams shapes a hybrid search. The document filter doubles as
// the text query; at least one of it or Vector is required.
type HybridParams struct {
	Vector   []float32
	K        int
	Where    where.Where
	Document where.Document
	RRF      *searchspec.RRFParams
	Size     int
}

// Hybrid runs a hybrid search through the server-side generator,
// falling back to a client-side scan-and-fuse when the server cannot
// produce a query for the specification.
func (s *Service) Hybrid(ctx context.Context, desc domain.Descriptor, p HybridParams) ([]domain.Record, error) {
	if len(p.Vector) > 0 {
		if err := domain.CheckDimensions([][]float32{p.Vector}, desc.Dimension()); err != nil {
			return nil, err
		}
	}
	if p.K <= 0 && len(p.Vector) > 0 {
		p.K = DefaultK
	}

	spec, err := searchspec.Compile(searchspec.Params{
		Where:    p.Where,
		Document: p.Document,
		Vector:   p.Vector,
		K:        p.K,
		RRF:      p.RRF,
		Size:     p.Size,
	})
	if err != nil {
		return nil, err
	}

	if s.hybrid != nil {
		recs, err := s.hybrid.Search(ctx, desc.TableName(), spec)
		if err == nil {
			return recs, nil
		}
		if !errors.Is(err, domain.ErrNotSupported) {
			return nil, err
		}
		s.logger.Debug("server-side search unavailable, using client-side fusion",
			zap.String("collection", desc.Name()))
	}

	return s.hybridFallback(ctx, desc, p)
}

// hybridFallback runs the vector and full-text legs separately and
// fuses them by reciprocal rank.
func (s *Service) hybridFallback(ctx context.Context, desc domain.Descriptor, p HybridParams) ([]domain.Record, error) {
	topK := p.Size
	if topK <= 0 {
		topK = p.K
	}
	if topK <= 0 {
		topK = DefaultK
	}
	window := topK
	rankConstant := 0
	if p.RRF != nil {
		if p.RRF.RankWindowSize > window {
			window = p.RRF.RankWindowSize
		}
		rankConstant = p.RRF.RankConstant
	}

	f := repo.Filter{Where: p.Where}
	cols := sqlbuild.Columns{Document: true, Metadata: true}

	// A regex document filter has no full-text form; it becomes a
	// predicate on the vector leg instead.
	query, err := searchspec.QueryText(p.Document)
	if err != nil {
		if len(p.Vector) == 0 {
			return nil, err
		}
		f.Document = p.Document
		query = ""
	}

	var knn []domain.Record
	if len(p.Vector) > 0 {
		recs, err := s.scanner.Query(ctx, desc.TableName(), desc.Distance(), p.Vector, window, f, cols)
		if err != nil {
			return nil, fmt.Errorf("vector leg: %w", err)
		}
		knn = recs
	}

	var text []domain.Record
	if query != "" {
		recs, err := s.scanner.TextSearch(ctx, desc.TableName(), query, window, f, cols)
		if err != nil {
			return nil, fmt.Errorf("text leg: %w", err)
		}
		text = recs
	}

	switch {
	case knn == nil && text == nil:
		return nil, fmt.Errorf("%w: search requires a document query or a query vector", domain.ErrValidation)
	case knn == nil:
		return capResults(text, topK), nil
	case text == nil:
		return capResults(knn, topK), nil
	}
	return fuseRRF(knn, text, topK, rankConstant), nil
}

func capResults(recs []domain.Record, topK int) []domain.Record {
	if len(recs) > topK {
		return recs[:topK]
	}
	return recs
}
