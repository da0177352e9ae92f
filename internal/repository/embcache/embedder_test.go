package embcache

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestEmbed_CacheMissThenHit(t *testing.T) {
	inner := &mockEmbedder{}
	ce, err := New(inner, 8, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	first, err := ce.Embed(ctx, []string{"alpha"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.calls) != 1 {
		t.Fatalf("expected 1 inner call, got %d", len(inner.calls))
	}

	second, err := ce.Embed(ctx, []string{"alpha"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.calls) != 1 {
		t.Fatalf("cache hit should not call inner, got %d calls", len(inner.calls))
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("cached result differs: %v vs %v", first, second)
	}
}

func TestEmbed_PartialHitEmbedsOnlyMisses(t *testing.T) {
	inner := &mockEmbedder{fn: func(texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, s := range texts {
			out[i] = []float32{float32(len(s))}
		}
		return out, nil
	}}
	ce, err := New(inner, 8, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if _, err := ce.Embed(ctx, []string{"aa"}); err != nil {
		t.Fatalf("warm: %v", err)
	}

	out, err := ce.Embed(ctx, []string{"bbb", "aa", "cccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.calls) != 2 {
		t.Fatalf("expected 2 inner calls, got %d", len(inner.calls))
	}
	if !reflect.DeepEqual(inner.calls[1], []string{"bbb", "cccc"}) {
		t.Fatalf("inner should only see misses: %v", inner.calls[1])
	}
	want := [][]float32{{3}, {2}, {4}}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("output order broken: %v", out)
	}
}

func TestEmbed_InnerErrorPropagates(t *testing.T) {
	boom := errors.New("provider down")
	inner := &mockEmbedder{fn: func([]string) ([][]float32, error) {
		return nil, boom
	}}
	ce, err := New(inner, 8, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	_, err = ce.Embed(context.Background(), []string{"alpha"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}

func TestEmbed_CountMismatchFails(t *testing.T) {
	inner := &mockEmbedder{fn: func([]string) ([][]float32, error) {
		return [][]float32{}, nil
	}}
	ce, err := New(inner, 8, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := ce.Embed(context.Background(), []string{"alpha"}); err == nil {
		t.Fatal("expected error on vector count mismatch")
	}
}

func TestCacheKeyIncludesEmbedderName(t *testing.T) {
	a := &mockEmbedder{name: "model-a"}
	b := &mockEmbedder{name: "model-b"}
	ca, _ := New(a, 8, nil)
	cb, _ := New(b, 8, nil)

	if ca.cacheKey("text") == cb.cacheKey("text") {
		t.Fatal("different models must not share cache keys")
	}
}
