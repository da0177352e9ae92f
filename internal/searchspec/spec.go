// Package searchspec compiles filter trees and vector parameters into
// the JSON search specification consumed by the server-side hybrid
// search procedure. The output is never executed directly: the server
// translates it to SQL text, which the client re-validates before use.
package searchspec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/vecsql/internal/domain"
	"github.com/kailas-cloud/vecsql/internal/domain/where"
)

// DocumentField is the logical field name document queries address.
const DocumentField = "document"

// Spec is the serialized hybrid search request.
type Spec struct {
	Query map[string]any `json:"query,omitempty"`
	KNN   *KNN           `json:"knn,omitempty"`
	Rank  *Rank          `json:"rank,omitempty"`
	Size  int            `json:"size,omitempty"`
}

// KNN is the vector clause of a hybrid search.
type KNN struct {
	Field       string         `json:"field"`
	K           int            `json:"k"`
	QueryVector []float32      `json:"query_vector"`
	Filter      map[string]any `json:"filter,omitempty"`
}

// Rank selects the result fusion strategy.
type Rank struct {
	RRF *RRF `json:"rrf,omitempty"`
}

// RRF holds reciprocal-rank-fusion tuning, snake-cased for the server.
type RRF struct {
	RankWindowSize *int `json:"rank_window_size,omitempty"`
	RankConstant   *int `json:"rank_constant,omitempty"`
}

// JSON serializes the specification.
func (s *Spec) JSON() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal search spec: %w", err)
	}
	return data, nil
}

// RRFParams is the caller-facing rank tuning (zero values mean unset).
type RRFParams struct {
	RankWindowSize int
	RankConstant   int
}

// Params is the input to Compile.
type Params struct {
	Where    where.Where
	Document where.Document
	Vector   []float32
	K        int
	RRF      *RRFParams
	Size     int
}

// Compile builds a search specification from filters and vector/rank
// parameters. At least one of a document query or a vector is required.
func Compile(p Params) (*Spec, error) {
	spec := &Spec{}

	filters, err := compileWhere(p.Where)
	if err != nil {
		return nil, err
	}

	docQuery, err := compileDocument(p.Document)
	if err != nil {
		return nil, err
	}

	switch {
	case docQuery != nil && len(filters) > 0:
		spec.Query = map[string]any{"bool": map[string]any{
			"must":   []any{docQuery},
			"filter": toAnySlice(filters),
		}}
	case docQuery != nil:
		spec.Query = docQuery
	case len(filters) > 0 && len(p.Vector) == 0:
		// Pure metadata query with no vector clause.
		spec.Query = wrapFilters(filters)
	}

	if len(p.Vector) > 0 {
		if p.K <= 0 {
			return nil, fmt.Errorf("%w: k must be positive for a vector search", domain.ErrValidation)
		}
		knn := &KNN{Field: "embedding", K: p.K, QueryVector: p.Vector}
		if len(filters) > 0 && spec.Query == nil {
			knn.Filter = wrapFilters(filters)
		}
		spec.KNN = knn
	}

	if spec.Query == nil && spec.KNN == nil {
		return nil, fmt.Errorf("%w: search requires a document query or a query vector", domain.ErrValidation)
	}

	if p.RRF != nil {
		rrf := &RRF{}
		if p.RRF.RankWindowSize > 0 {
			v := p.RRF.RankWindowSize
			rrf.RankWindowSize = &v
		}
		if p.RRF.RankConstant > 0 {
			v := p.RRF.RankConstant
			rrf.RankConstant = &v
		}
		spec.Rank = &Rank{RRF: rrf}
	}

	if p.Size < 0 {
		return nil, fmt.Errorf("%w: size must be positive", domain.ErrValidation)
	}
	if p.Size > 0 {
		spec.Size = p.Size
	}

	return spec, nil
}

// wrapFilters emits a single condition unwrapped and wraps multiple
// conditions in a bool filter.
func wrapFilters(filters []map[string]any) map[string]any {
	if len(filters) == 1 {
		return filters[0]
	}
	return map[string]any{"bool": map[string]any{"filter": toAnySlice(filters)}}
}

func toAnySlice(filters []map[string]any) []any {
	out := make([]any, len(filters))
	for i, f := range filters {
		out[i] = f
	}
	return out
}

// compileWhere compiles a metadata filter into a flat condition list.
// A top-level $and contributes one condition per child; anything else
// is a single condition.
func compileWhere(w where.Where) ([]map[string]any, error) {
	if w.IsEmpty() {
		return nil, nil
	}
	if children := w.And(); len(children) > 0 {
		out := make([]map[string]any, 0, len(children))
		for _, child := range children {
			node, err := compileWhereNode(child)
			if err != nil {
				return nil, err
			}
			out = append(out, node)
		}
		return out, nil
	}
	node, err := compileWhereNode(w)
	if err != nil {
		return nil, err
	}
	return []map[string]any{node}, nil
}

func compileWhereNode(w where.Where) (map[string]any, error) {
	switch {
	case len(w.And()) > 0:
		nodes, err := compileWhereChildren(w.And())
		if err != nil {
			return nil, err
		}
		return map[string]any{"bool": map[string]any{"filter": nodes}}, nil
	case len(w.Or()) > 0:
		nodes, err := compileWhereChildren(w.Or())
		if err != nil {
			return nil, err
		}
		return map[string]any{"bool": map[string]any{"should": nodes}}, nil
	case w.Cond() != nil:
		return compileLeaf(w.Cond())
	default:
		return nil, fmt.Errorf("%w: empty node inside filter group", domain.ErrInvalidFilter)
	}
}

func compileWhereChildren(children []where.Where) ([]any, error) {
	nodes := make([]any, 0, len(children))
	for _, child := range children {
		node, err := compileWhereNode(child)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

var rangeOps = map[where.Operator]string{
	where.OpGt:  "gt",
	where.OpGte: "gte",
	where.OpLt:  "lt",
	where.OpLte: "lte",
}

func compileLeaf(c *where.Condition) (map[string]any, error) {
	switch c.Op {
	case where.OpEq:
		return map[string]any{"term": map[string]any{c.Field: c.Value}}, nil
	case where.OpNe:
		return mustNot(map[string]any{"term": map[string]any{c.Field: c.Value}}), nil
	case where.OpIn:
		return map[string]any{"terms": map[string]any{c.Field: c.Values}}, nil
	case where.OpNin:
		return mustNot(map[string]any{"terms": map[string]any{c.Field: c.Values}}), nil
	default:
		op, ok := rangeOps[c.Op]
		if !ok {
			return nil, fmt.Errorf("%w: unknown operator %q", domain.ErrInvalidFilter, c.Op)
		}
		return map[string]any{"range": map[string]any{c.Field: map[string]any{op: c.Value}}}, nil
	}
}

func mustNot(inner map[string]any) map[string]any {
	return map[string]any{"bool": map[string]any{"must_not": []any{inner}}}
}

// compileDocument compiles a document filter into one query node.
//
// The underlying full-text engine does not support arbitrary boolean
// nesting over query_string, so $and/$or trees of $contains terms are
// flattened into a single query: terms joined by a space under AND
// semantics and by " OR " under OR semantics. This intentionally
// loosens exact-match semantics versus a true nested boolean query;
// the behavior is inherited and documented, not fixed.
func compileDocument(d where.Document) (map[string]any, error) {
	if d.IsEmpty() {
		return nil, nil
	}
	if c := d.Cond(); c != nil && c.Regex != "" {
		return map[string]any{"regexp": map[string]any{DocumentField: c.Regex}}, nil
	}
	text, err := flattenContains(d)
	if err != nil {
		return nil, err
	}
	return map[string]any{"query_string": map[string]any{
		"fields": []any{DocumentField},
		"query":  text,
	}}, nil
}

// QueryText flattens a document filter into the text a full-text
// search would receive. Empty filters flatten to the empty string.
func QueryText(d where.Document) (string, error) {
	if d.IsEmpty() {
		return "", nil
	}
	return flattenContains(d)
}

func flattenContains(d where.Document) (string, error) {
	switch {
	case d.Cond() != nil:
		if d.Cond().Regex != "" {
			return "", fmt.Errorf("%w: $regex cannot be combined with other document conditions in a search", domain.ErrInvalidFilter)
		}
		return d.Cond().Contains, nil
	case len(d.And()) > 0:
		return joinContains(d.And(), " ")
	case len(d.Or()) > 0:
		return joinContains(d.Or(), " OR ")
	default:
		return "", fmt.Errorf("%w: empty node inside document filter group", domain.ErrInvalidFilter)
	}
}

func joinContains(children []where.Document, sep string) (string, error) {
	parts := make([]string, 0, len(children))
	for _, child := range children {
		text, err := flattenContains(child)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, sep), nil
}
