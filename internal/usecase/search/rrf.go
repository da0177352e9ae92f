package search

import (
	"sort"

	"github.com/kailas-cloud/vecsql/internal/domain"
)

// defaultRankConstant is the Reciprocal Rank Fusion constant (standard
// value from Cormack et al. 2009).
const defaultRankConstant = 60

// fuseRRF merges a vector ranking and a full-text ranking via
// Reciprocal Rank Fusion. score(d) = sum of 1/(k + rank_i(d)) for each
// ranking where d appears. When a record appears in both lists the
// vector result is kept, since it may carry the embedding.
func fuseRRF(knn, text []domain.Record, topK, rankConstant int) []domain.Record {
	if rankConstant <= 0 {
		rankConstant = defaultRankConstant
	}

	type scored struct {
		rec   domain.Record
		score float64
	}
	merged := make(map[string]*scored)

	for rank, r := range knn {
		merged[r.ID] = &scored{rec: r, score: 1.0 / float64(rankConstant+rank+1)}
	}
	for rank, r := range text {
		s := 1.0 / float64(rankConstant+rank+1)
		if existing, ok := merged[r.ID]; ok {
			existing.score += s
		} else {
			merged[r.ID] = &scored{rec: r, score: s}
		}
	}

	results := make([]domain.Record, 0, len(merged))
	for _, s := range merged {
		rec := s.rec
		score := s.score
		rec.Distance = &score
		results = append(results, rec)
	}

	sort.Slice(results, func(i, j int) bool {
		if *results[i].Distance != *results[j].Distance {
			return *results[i].Distance > *results[j].Distance
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}
