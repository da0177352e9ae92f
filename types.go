package vecsql

// DistanceMetric selects how vector similarity is measured.
type DistanceMetric string

// Distance metric constants.
const (
	DistanceL2           DistanceMetric = "l2"
	DistanceCosine       DistanceMetric = "cosine"
	DistanceInnerProduct DistanceMetric = "inner_product"
)

// Where is a metadata filter expression. Keys are field names or the
// logical operators $and/$or; comparison operators are $eq, $ne, $gt,
// $gte, $lt, $lte, $in and $nin. A bare {"field": value} means $eq.
type Where = map[string]any

// WhereDocument is a document content filter built from $contains,
// $regex, $and and $or.
type WhereDocument = map[string]any

// CollectionInfo describes a collection.
type CollectionInfo struct {
	Name      string
	Dimension int
	Metric    DistanceMetric
	// EmbedderName is the registered embedding function persisted with
	// the collection, empty when none was recorded.
	EmbedderName string
}

// Record is one stored item. Document and Metadata are empty when not
// requested or not set. Distance is populated by Query and
// HybridSearch, zero otherwise.
type Record struct {
	ID        string
	Document  string
	Metadata  map[string]any
	Embedding []float32
	Distance  float64
}

// AddParams is a columnar write batch. IDs is required; Documents,
// Metadatas and Embeddings must match its length when present. When
// Embeddings is omitted the documents are embedded automatically.
type AddParams struct {
	IDs        []string
	Documents  []string
	Metadatas  []map[string]any
	Embeddings [][]float32
}

// GetParams narrows and shapes a read. Zero limit reads everything.
type GetParams struct {
	IDs               []string
	Where             Where
	WhereDocument     WhereDocument
	Limit             int
	Offset            int
	IncludeEmbeddings bool
}

// DeleteParams selects records to remove. At least one of IDs, Where
// or WhereDocument must be set.
type DeleteParams struct {
	IDs           []string
	Where         Where
	WhereDocument WhereDocument
}

// QueryParams shapes a nearest-neighbor query. Exactly one of
// QueryEmbeddings or QueryTexts must be set; each entry produces one
// result list.
type QueryParams struct {
	QueryEmbeddings   [][]float32
	QueryTexts        []string
	NResults          int
	Where             Where
	WhereDocument     WhereDocument
	IncludeEmbeddings bool
}

// RRFOptions tunes reciprocal-rank fusion of hybrid search results.
// Zero values keep the server defaults.
type RRFOptions struct {
	RankWindowSize int
	RankConstant   int
}

// SearchParams shapes a hybrid search. At least one of QueryText and
// QueryVector is required; QueryText may also be supplied through
// WhereDocument.
type SearchParams struct {
	QueryText     string
	QueryVector   []float32
	K             int
	Where         Where
	WhereDocument WhereDocument
	RRF           *RRFOptions
	Size          int
}
