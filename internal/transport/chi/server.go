package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecsql/internal/domain"
	"github.com/kailas-cloud/vecsql/internal/domain/where"
	logpkg "github.com/kailas-cloud/vecsql/internal/logger"
	"github.com/kailas-cloud/vecsql/internal/metrics"
	"github.com/kailas-cloud/vecsql/internal/searchspec"
	collectionuc "github.com/kailas-cloud/vecsql/internal/usecase/collection"
	recorduc "github.com/kailas-cloud/vecsql/internal/usecase/record"
	searchuc "github.com/kailas-cloud/vecsql/internal/usecase/search"
)

// Pinger reports storage liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the collection, record and search usecases over HTTP.
type Server struct {
	collections   *collectionuc.Service
	records       *recorduc.Service
	search        *searchuc.Service
	embedder      domain.Embedder
	pinger        Pinger
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. embedder may be nil when the
// deployment has no configured vectorizer; text inputs then require
// client-supplied embeddings.
func NewServer(
	collections *collectionuc.Service,
	records *recorduc.Service,
	search *searchuc.Service,
	embedder domain.Embedder,
	pinger Pinger,
	logger *zap.Logger,
) *Server {
	s := &Server{
		collections: collections,
		records:     records,
		search:      search,
		embedder:    embedder,
		pinger:      pinger,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, "collection_not_found"),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, "collection_already_exists"),
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, "validation_failed"),
		sentinelHandler(domain.ErrInvalidFilter, http.StatusBadRequest, "invalid_filter"),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusBadRequest, "vector_dim_mismatch"),
		sentinelHandler(domain.ErrEmbedderRequired, http.StatusBadRequest, "embedder_required"),
		sentinelHandler(domain.ErrNotSupported, http.StatusNotImplemented, "not_supported"),
		sentinelHandler(domain.ErrUnsafeSQL, http.StatusBadGateway, "unsafe_generated_sql"),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_provider_error"),
	}
	return s
}

// Router builds the chi router with all API routes mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger())
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/v1/collections", func(r chi.Router) {
		r.Post("/", s.CreateCollection)
		r.Get("/", s.ListCollections)
		r.Route("/{collection}", func(r chi.Router) {
			r.Get("/", s.GetCollection)
			r.Delete("/", s.DeleteCollection)
			r.Get("/count", s.CountRecords)
			r.Post("/records", s.AddRecords)
			r.Put("/records", s.UpsertRecords)
			r.Patch("/records", s.UpdateRecords)
			r.Post("/records/get", s.GetRecords)
			r.Post("/records/delete", s.DeleteRecords)
			r.Post("/query", s.QueryRecords)
			r.Post("/search", s.HybridSearch)
		})
	})

	return r
}

// CreateCollection handles POST /v1/collections.
func (s *Server) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	params := collectionuc.CreateParams{
		Name:      req.Name,
		Dimension: req.Dimension,
		Distance:  domain.Distance(req.Metric),
	}
	if req.Dimension <= 0 && s.embedder != nil {
		dim, err := probeDimension(r.Context(), s.embedder)
		if err != nil {
			s.handleDomainError(r.Context(), w, err)
			return
		}
		params.Dimension = dim
		params.Embedder = domain.Describe(s.embedder)
	}

	var (
		desc domain.Descriptor
		err  error
	)
	if req.GetOrCreate {
		desc, err = s.collections.GetOrCreate(r.Context(), params)
	} else {
		desc, err = s.collections.Create(r.Context(), params)
	}
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, descriptorToResponse(desc))
}

// ListCollections handles GET /v1/collections.
func (s *Server) ListCollections(w http.ResponseWriter, r *http.Request) {
	descs, err := s.collections.List(r.Context())
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	items := make([]collectionResponse, len(descs))
	for i, d := range descs {
		items[i] = descriptorToResponse(d)
	}
	writeJSON(w, http.StatusOK, collectionListResponse{Items: items})
}

// GetCollection handles GET /v1/collections/{collection}.
func (s *Server) GetCollection(w http.ResponseWriter, r *http.Request) {
	desc, ok := s.resolve(w, r)
	if !ok {
		return
	}

	resp := descriptorToResponse(desc)
	if count, err := s.records.Count(r.Context(), desc); err == nil {
		resp.RecordCount = &count
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteCollection handles DELETE /v1/collections/{collection}.
func (s *Server) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := s.collections.Delete(r.Context(), chi.URLParam(r, "collection")); err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CountRecords handles GET /v1/collections/{collection}/count.
func (s *Server) CountRecords(w http.ResponseWriter, r *http.Request) {
	desc, ok := s.resolve(w, r)
	if !ok {
		return
	}

	count, err := s.records.Count(r.Context(), desc)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: count})
}

// AddRecords handles POST /v1/collections/{collection}/records.
func (s *Server) AddRecords(w http.ResponseWriter, r *http.Request) {
	s.writeBatch(w, r, s.records.Add, http.StatusCreated)
}

// UpsertRecords handles PUT /v1/collections/{collection}/records.
func (s *Server) UpsertRecords(w http.ResponseWriter, r *http.Request) {
	s.writeBatch(w, r, s.records.Upsert, http.StatusOK)
}

// UpdateRecords handles PATCH /v1/collections/{collection}/records.
func (s *Server) UpdateRecords(w http.ResponseWriter, r *http.Request) {
	s.writeBatch(w, r, s.records.Update, http.StatusOK)
}

type batchOp func(ctx context.Context, desc domain.Descriptor, embedder domain.Embedder, b recorduc.Batch) error

func (s *Server) writeBatch(w http.ResponseWriter, r *http.Request, op batchOp, okStatus int) {
	desc, ok := s.resolve(w, r)
	if !ok {
		return
	}

	var req recordBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	if err := op(r.Context(), desc, s.embedder, req.toBatch()); err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	w.WriteHeader(okStatus)
}

// GetRecords handles POST /v1/collections/{collection}/records/get.
func (s *Server) GetRecords(w http.ResponseWriter, r *http.Request) {
	desc, ok := s.resolve(w, r)
	if !ok {
		return
	}

	var req getRecordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	wh, doc, err := parseFilters(req.Where, req.WhereDocument)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	recs, err := s.records.Get(r.Context(), desc, recorduc.GetParams{
		IDs:      req.IDs,
		Where:    wh,
		Document: doc,
		Limit:    req.Limit,
		Offset:   req.Offset,
		Columns:  columnsFromInclude(req.Include),
	})
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, recordsToColumnar(recs))
}

// DeleteRecords handles POST /v1/collections/{collection}/records/delete.
func (s *Server) DeleteRecords(w http.ResponseWriter, r *http.Request) {
	desc, ok := s.resolve(w, r)
	if !ok {
		return
	}

	var req deleteRecordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	wh, doc, err := parseFilters(req.Where, req.WhereDocument)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	if err := s.records.Delete(r.Context(), desc, req.IDs, wh, doc); err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// QueryRecords handles POST /v1/collections/{collection}/query.
func (s *Server) QueryRecords(w http.ResponseWriter, r *http.Request) {
	desc, ok := s.resolve(w, r)
	if !ok {
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	embeddings := req.QueryEmbeddings
	if len(req.QueryTexts) > 0 {
		if len(embeddings) > 0 {
			writeError(w, http.StatusBadRequest, "validation_failed",
				"query_texts and query_embeddings are mutually exclusive")
			return
		}
		if s.embedder == nil {
			s.handleDomainError(r.Context(), w, domain.ErrEmbedderRequired)
			return
		}
		var err error
		embeddings, err = s.embedder.Embed(r.Context(), req.QueryTexts)
		if err != nil {
			s.handleDomainError(r.Context(), w, err)
			return
		}
	}

	wh, doc, err := parseFilters(req.Where, req.WhereDocument)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	results, err := s.search.Query(r.Context(), desc, searchuc.QueryParams{
		Embeddings: embeddings,
		K:          req.NResults,
		Where:      wh,
		Document:   doc,
		Columns:    columnsFromInclude(req.Include),
	})
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	resp := queryResponse{Results: make([]columnarRecords, len(results))}
	for i, recs := range results {
		resp.Results[i] = recordsToColumnar(recs)
	}
	writeJSON(w, http.StatusOK, resp)
}

// HybridSearch handles POST /v1/collections/{collection}/search.
func (s *Server) HybridSearch(w http.ResponseWriter, r *http.Request) {
	desc, ok := s.resolve(w, r)
	if !ok {
		return
	}

	var req hybridSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	wh, doc, err := parseFilters(req.Where, req.WhereDocument)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	if req.QueryText != "" {
		contains, perr := where.ParseDocument(map[string]any{"$contains": req.QueryText})
		if perr != nil {
			s.handleDomainError(r.Context(), w, perr)
			return
		}
		doc = where.AndDocuments(doc, contains)
	}

	params := searchuc.HybridParams{
		Vector:   req.QueryVector,
		K:        req.K,
		Where:    wh,
		Document: doc,
		Size:     req.Size,
	}
	if req.RRF != nil {
		params.RRF = &searchspec.RRFParams{
			RankWindowSize: req.RRF.RankWindowSize,
			RankConstant:   req.RRF.RankConstant,
		}
	}

	recs, err := s.search.Hybrid(r.Context(), desc, params)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordsToColumnar(recs))
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"database": "ok"}
	status := "healthy"
	httpStatus := http.StatusOK

	if err := s.pinger.Ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		checks["database"] = "unavailable"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{Status: status, Checks: checks})
}

// requestLogger stores a request-scoped logger in the context so
// downstream error paths carry the request id.
func (s *Server) requestLogger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := s.logger
			if reqID := middleware.GetReqID(r.Context()); reqID != "" {
				log = log.With(zap.String("request_id", reqID))
			}
			next.ServeHTTP(w, r.WithContext(logpkg.ContextWithLogger(r.Context(), log)))
		})
	}
}

// resolve loads the collection named in the URL, writing the error
// response itself on failure.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) (domain.Descriptor, bool) {
	desc, err := s.collections.Get(r.Context(), chi.URLParam(r, "collection"))
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return domain.Descriptor{}, false
	}
	return desc, true
}

func parseFilters(rawWhere, rawDoc map[string]any) (where.Where, where.Document, error) {
	wh, err := where.ParseWhere(rawWhere)
	if err != nil {
		return where.Where{}, where.Document{}, err
	}
	doc, err := where.ParseDocument(rawDoc)
	if err != nil {
		return where.Where{}, where.Document{}, err
	}
	return wh, doc, nil
}

func probeDimension(ctx context.Context, e domain.Embedder) (int, error) {
	vecs, err := e.Embed(ctx, []string{"dimension probe"})
	if err != nil {
		return 0, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return 0, domain.ErrEmbeddingProviderError
	}
	return len(vecs[0]), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrAlreadyExists,
		domain.ErrValidation,
		domain.ErrInvalidFilter,
		domain.ErrDimensionMismatch,
		domain.ErrEmbedderRequired,
		domain.ErrNotSupported,
		domain.ErrUnsafeSQL,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logpkg.FromContext(ctx)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
