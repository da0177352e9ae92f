package search

import (
	"math"
	"testing"

	"github.com/kailas-cloud/vecsql/internal/domain"
)

func recs(ids ...string) []domain.Record {
	out := make([]domain.Record, len(ids))
	for i, id := range ids {
		out[i] = domain.Record{ID: id}
	}
	return out
}

func TestFuseRRF_BothListsBoostSharedRecords(t *testing.T) {
	knn := recs("a", "b", "c")
	text := recs("b", "d")

	fused := fuseRRF(knn, text, 10, 0)
	if len(fused) != 4 {
		t.Fatalf("expected 4 fused records, got %d", len(fused))
	}
	if fused[0].ID != "b" {
		t.Fatalf("record in both lists should rank first, got %q", fused[0].ID)
	}

	// b: 1/(60+2) + 1/(60+1)
	want := 1.0/62 + 1.0/61
	if math.Abs(*fused[0].Distance-want) > 1e-12 {
		t.Fatalf("score = %v, want %v", *fused[0].Distance, want)
	}
}

func TestFuseRRF_KeepsVectorSideRecord(t *testing.T) {
	doc := "from knn"
	knn := []domain.Record{{ID: "a", Document: &doc, Embedding: []float32{1, 2}}}
	text := recs("a")

	fused := fuseRRF(knn, text, 10, 0)
	if len(fused) != 1 {
		t.Fatalf("expected 1 record, got %d", len(fused))
	}
	if fused[0].Document == nil || *fused[0].Document != "from knn" {
		t.Fatal("vector-side payload should win for shared ids")
	}
	if fused[0].Embedding == nil {
		t.Fatal("embedding lost in fusion")
	}
}

func TestFuseRRF_TopKCapsOutput(t *testing.T) {
	fused := fuseRRF(recs("a", "b", "c"), recs("d", "e"), 2, 0)
	if len(fused) != 2 {
		t.Fatalf("expected 2 records, got %d", len(fused))
	}
}

func TestFuseRRF_CustomRankConstant(t *testing.T) {
	fused := fuseRRF(recs("a"), nil, 10, 1)
	want := 1.0 / 2
	if math.Abs(*fused[0].Distance-want) > 1e-12 {
		t.Fatalf("score = %v, want %v", *fused[0].Distance, want)
	}
}
