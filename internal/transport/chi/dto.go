package chi

import (
	"github.com/kailas-cloud/vecsql/internal/domain"
	"github.com/kailas-cloud/vecsql/internal/sqlbuild"
	recorduc "github.com/kailas-cloud/vecsql/internal/usecase/record"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type createCollectionRequest struct {
	Name        string `json:"name"`
	Dimension   int    `json:"dimension,omitempty"`
	Metric      string `json:"metric,omitempty"`
	GetOrCreate bool   `json:"get_or_create,omitempty"`
}

type collectionResponse struct {
	Name        string `json:"name"`
	Dimension   int    `json:"dimension"`
	Metric      string `json:"metric"`
	Embedder    string `json:"embedder,omitempty"`
	RecordCount *int   `json:"record_count,omitempty"`
}

type collectionListResponse struct {
	Items []collectionResponse `json:"items"`
}

type countResponse struct {
	Count int `json:"count"`
}

type recordBatchRequest struct {
	IDs        []string         `json:"ids"`
	Documents  []*string        `json:"documents,omitempty"`
	Metadatas  []map[string]any `json:"metadatas,omitempty"`
	Embeddings [][]float32      `json:"embeddings,omitempty"`
}

func (r recordBatchRequest) toBatch() recorduc.Batch {
	return recorduc.Batch{
		IDs:        r.IDs,
		Documents:  r.Documents,
		Metadatas:  r.Metadatas,
		Embeddings: r.Embeddings,
	}
}

type getRecordsRequest struct {
	IDs           []string       `json:"ids,omitempty"`
	Where         map[string]any `json:"where,omitempty"`
	WhereDocument map[string]any `json:"where_document,omitempty"`
	Limit         int            `json:"limit,omitempty"`
	Offset        int            `json:"offset,omitempty"`
	Include       []string       `json:"include,omitempty"`
}

type deleteRecordsRequest struct {
	IDs           []string       `json:"ids,omitempty"`
	Where         map[string]any `json:"where,omitempty"`
	WhereDocument map[string]any `json:"where_document,omitempty"`
}

type queryRequest struct {
	QueryEmbeddings [][]float32    `json:"query_embeddings,omitempty"`
	QueryTexts      []string       `json:"query_texts,omitempty"`
	NResults        int            `json:"n_results,omitempty"`
	Where           map[string]any `json:"where,omitempty"`
	WhereDocument   map[string]any `json:"where_document,omitempty"`
	Include         []string       `json:"include,omitempty"`
}

type queryResponse struct {
	Results []columnarRecords `json:"results"`
}

type rrfRequest struct {
	RankWindowSize int `json:"rank_window_size,omitempty"`
	RankConstant   int `json:"rank_constant,omitempty"`
}

type hybridSearchRequest struct {
	QueryText     string         `json:"query_text,omitempty"`
	QueryVector   []float32      `json:"query_vector,omitempty"`
	K             int            `json:"k,omitempty"`
	Size          int            `json:"size,omitempty"`
	Where         map[string]any `json:"where,omitempty"`
	WhereDocument map[string]any `json:"where_document,omitempty"`
	RRF           *rrfRequest    `json:"rrf,omitempty"`
}

// columnarRecords is the wire shape for record reads: parallel columns
// indexed by position.
type columnarRecords struct {
	IDs        []string         `json:"ids"`
	Documents  []*string        `json:"documents,omitempty"`
	Metadatas  []map[string]any `json:"metadatas,omitempty"`
	Embeddings [][]float32      `json:"embeddings,omitempty"`
	Distances  []*float64       `json:"distances,omitempty"`
}

func descriptorToResponse(d domain.Descriptor) collectionResponse {
	resp := collectionResponse{
		Name:      d.Name(),
		Dimension: d.Dimension(),
		Metric:    string(d.Distance()),
	}
	if e := d.Embedder(); e != nil {
		resp.Embedder = e.Name
	}
	return resp
}

// columnsFromInclude maps include names to payload columns. An empty
// include selects documents and metadata, matching the read defaults.
func columnsFromInclude(include []string) sqlbuild.Columns {
	if len(include) == 0 {
		return sqlbuild.Columns{Document: true, Metadata: true}
	}
	var cols sqlbuild.Columns
	for _, name := range include {
		switch name {
		case "documents":
			cols.Document = true
		case "metadatas":
			cols.Metadata = true
		case "embeddings":
			cols.Embedding = true
		}
	}
	return cols
}

func recordsToColumnar(recs []domain.Record) columnarRecords {
	out := columnarRecords{IDs: make([]string, len(recs))}
	var hasDoc, hasMeta, hasEmb, hasDist bool
	for _, rec := range recs {
		hasDoc = hasDoc || rec.Document != nil
		hasMeta = hasMeta || rec.Metadata != nil
		hasEmb = hasEmb || rec.Embedding != nil
		hasDist = hasDist || rec.Distance != nil
	}
	if hasDoc {
		out.Documents = make([]*string, len(recs))
	}
	if hasMeta {
		out.Metadatas = make([]map[string]any, len(recs))
	}
	if hasEmb {
		out.Embeddings = make([][]float32, len(recs))
	}
	if hasDist {
		out.Distances = make([]*float64, len(recs))
	}
	for i, rec := range recs {
		out.IDs[i] = rec.ID
		if hasDoc {
			out.Documents[i] = rec.Document
		}
		if hasMeta {
			out.Metadatas[i] = rec.Metadata
		}
		if hasEmb {
			out.Embeddings[i] = rec.Embedding
		}
		if hasDist {
			out.Distances[i] = rec.Distance
		}
	}
	return out
}
