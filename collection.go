package vecsql

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/vecsql/internal/domain"
	"github.com/kailas-cloud/vecsql/internal/domain/where"
	"github.com/kailas-cloud/vecsql/internal/searchspec"
	"github.com/kailas-cloud/vecsql/internal/sqlbuild"
	recorduc "github.com/kailas-cloud/vecsql/internal/usecase/record"
	searchuc "github.com/kailas-cloud/vecsql/internal/usecase/search"
)

// Collection is a handle to one collection. Handles are cheap and safe
// for concurrent use.
type Collection struct {
	client   *Client
	desc     domain.Descriptor
	embedder domain.Embedder
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.desc.Name() }

// Dimension returns the vector dimension records must carry.
func (c *Collection) Dimension() int { return c.desc.Dimension() }

// Metric returns the collection's distance metric.
func (c *Collection) Metric() DistanceMetric { return DistanceMetric(c.desc.Distance()) }

// Add inserts new records. Existing ids fail the whole batch with
// ErrAlreadyExists.
func (c *Collection) Add(ctx context.Context, p AddParams) (err error) {
	start := time.Now()
	defer func() { c.client.obs.observe("record.add", start, err) }()

	return c.client.recSvc.Add(ctx, c.desc, c.embedder, toBatch(p))
}

// Upsert inserts records, replacing any that already exist.
func (c *Collection) Upsert(ctx context.Context, p AddParams) (err error) {
	start := time.Now()
	defer func() { c.client.obs.observe("record.upsert", start, err) }()

	return c.client.recSvc.Upsert(ctx, c.desc, c.embedder, toBatch(p))
}

// Update patches existing records. Only the supplied columns change; a
// document update without an embedding is re-embedded when an
// embedding function is available.
func (c *Collection) Update(ctx context.Context, p AddParams) (err error) {
	start := time.Now()
	defer func() { c.client.obs.observe("record.update", start, err) }()

	return c.client.recSvc.Update(ctx, c.desc, c.embedder, toBatch(p))
}

// Get reads records by ids and filters.
func (c *Collection) Get(ctx context.Context, p GetParams) (recs []Record, err error) {
	start := time.Now()
	defer func() { c.client.obs.observe("record.get", start, err) }()

	w, d, err := parseFilters(p.Where, p.WhereDocument)
	if err != nil {
		return nil, err
	}
	got, err := c.client.recSvc.Get(ctx, c.desc, recorduc.GetParams{
		IDs:      p.IDs,
		Where:    w,
		Document: d,
		Limit:    p.Limit,
		Offset:   p.Offset,
		Columns: sqlbuild.Columns{
			Document:  true,
			Metadata:  true,
			Embedding: p.IncludeEmbeddings,
		},
	})
	if err != nil {
		return nil, err
	}
	return fromRecords(got), nil
}

// Delete removes records by ids or filters. An empty selection is
// rejected; dropping everything is DeleteCollection's job.
func (c *Collection) Delete(ctx context.Context, p DeleteParams) (err error) {
	start := time.Now()
	defer func() { c.client.obs.observe("record.delete", start, err) }()

	w, d, err := parseFilters(p.Where, p.WhereDocument)
	if err != nil {
		return err
	}
	return c.client.recSvc.Delete(ctx, c.desc, p.IDs, w, d)
}

// Count returns the number of records in the collection.
func (c *Collection) Count(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { c.client.obs.observe("record.count", start, err) }()

	return c.client.recSvc.Count(ctx, c.desc)
}

// Query runs a nearest-neighbor scan per query embedding or text and
// returns one distance-ordered result list for each.
func (c *Collection) Query(ctx context.Context, p QueryParams) (results [][]Record, err error) {
	start := time.Now()
	defer func() { c.client.obs.observe("search.query", start, err) }()

	embeddings := p.QueryEmbeddings
	if len(p.QueryTexts) > 0 {
		if len(embeddings) > 0 {
			return nil, fmt.Errorf("%w: set QueryEmbeddings or QueryTexts, not both", domain.ErrValidation)
		}
		if c.embedder == nil {
			return nil, domain.ErrEmbedderRequired
		}
		embeddings, err = c.embedder.Embed(ctx, p.QueryTexts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingProviderError, err)
		}
	}

	w, d, err := parseFilters(p.Where, p.WhereDocument)
	if err != nil {
		return nil, err
	}
	got, err := c.client.searchSvc.Query(ctx, c.desc, searchuc.QueryParams{
		Embeddings: embeddings,
		K:          p.NResults,
		Where:      w,
		Document:   d,
		Columns: sqlbuild.Columns{
			Document:  true,
			Metadata:  true,
			Embedding: p.IncludeEmbeddings,
		},
	})
	if err != nil {
		return nil, err
	}
	results = make([][]Record, len(got))
	for i, recs := range got {
		results[i] = fromRecords(recs)
	}
	return results, nil
}

// HybridSearch combines full-text relevance and vector proximity in
// one ranked result list. QueryText feeds the text leg; QueryVector
// feeds the vector leg; either alone degrades to a single-leg search.
func (c *Collection) HybridSearch(ctx context.Context, p SearchParams) (recs []Record, err error) {
	start := time.Now()
	defer func() { c.client.obs.observe("search.hybrid", start, err) }()

	w, d, err := parseFilters(p.Where, p.WhereDocument)
	if err != nil {
		return nil, err
	}
	if p.QueryText != "" {
		d, err = mergeQueryText(d, p.QueryText)
		if err != nil {
			return nil, err
		}
	}

	var rrf *searchspec.RRFParams
	if p.RRF != nil {
		rrf = &searchspec.RRFParams{
			RankWindowSize: p.RRF.RankWindowSize,
			RankConstant:   p.RRF.RankConstant,
		}
	}
	got, err := c.client.searchSvc.Hybrid(ctx, c.desc, searchuc.HybridParams{
		Vector:   p.QueryVector,
		K:        p.K,
		Where:    w,
		Document: d,
		RRF:      rrf,
		Size:     p.Size,
	})
	if err != nil {
		return nil, err
	}
	return fromRecords(got), nil
}

// parseFilters parses the public filter maps into validated trees.
func parseFilters(w Where, d WhereDocument) (where.Where, where.Document, error) {
	pw, err := where.ParseWhere(w)
	if err != nil {
		return where.Where{}, where.Document{}, err
	}
	pd, err := where.ParseDocument(d)
	if err != nil {
		return where.Where{}, where.Document{}, err
	}
	return pw, pd, nil
}

// mergeQueryText folds a plain text query into the document filter as
// a $contains condition.
func mergeQueryText(d where.Document, text string) (where.Document, error) {
	cond, err := where.ParseDocument(map[string]any{"$contains": text})
	if err != nil {
		return where.Document{}, err
	}
	if d.IsEmpty() {
		return cond, nil
	}
	return where.AndDocuments(cond, d), nil
}

func toBatch(p AddParams) recorduc.Batch {
	var docs []*string
	if p.Documents != nil {
		docs = make([]*string, len(p.Documents))
		for i := range p.Documents {
			docs[i] = &p.Documents[i]
		}
	}
	return recorduc.Batch{
		IDs:        p.IDs,
		Documents:  docs,
		Metadatas:  p.Metadatas,
		Embeddings: p.Embeddings,
	}
}

func fromRecords(recs []domain.Record) []Record {
	out := make([]Record, len(recs))
	for i, r := range recs {
		rec := Record{
			ID:        r.ID,
			Metadata:  r.Metadata,
			Embedding: r.Embedding,
		}
		if r.Document != nil {
			rec.Document = *r.Document
		}
		if r.Distance != nil {
			rec.Distance = *r.Distance
		}
		out[i] = rec
	}
	return out
}
