package where

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/vecsql/internal/domain"
)

func TestParseWhere_Empty(t *testing.T) {
	w, err := ParseWhere(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.IsEmpty() {
		t.Error("expected empty filter")
	}

	w, err = ParseWhere(map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.IsEmpty() {
		t.Error("expected empty filter")
	}
}

func TestParseWhere_BareEqualitySugar(t *testing.T) {
	bare, err := ParseWhere(map[string]any{"color": "red"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	explicit, err := ParseWhere(map[string]any{"color": map[string]any{"$eq": "red"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, w := range []Where{bare, explicit} {
		cond := w.Cond()
		if cond == nil {
			t.Fatal("expected leaf condition")
		}
		if cond.Field != "color" || cond.Op != OpEq || cond.Value != "red" {
			t.Errorf("condition = %+v", cond)
		}
	}
}

func TestParseWhere_Operators(t *testing.T) {
	tests := []struct {
		op    string
		value any
	}{
		{"$eq", 1},
		{"$ne", "x"},
		{"$gt", 1.5},
		{"$gte", 0},
		{"$lt", 10},
		{"$lte", 10},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			w, err := ParseWhere(map[string]any{"n": map[string]any{tt.op: tt.value}})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := w.Cond().Op; got != Operator(tt.op) {
				t.Errorf("op = %q, want %q", got, tt.op)
			}
		})
	}
}

func TestParseWhere_InRequiresSequence(t *testing.T) {
	w, err := ParseWhere(map[string]any{"tag": map[string]any{"$in": []any{"a", "b"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(w.Cond().Values); got != 2 {
		t.Errorf("values = %d, want 2", got)
	}

	_, err = ParseWhere(map[string]any{"tag": map[string]any{"$in": "a"}})
	if !errors.Is(err, domain.ErrInvalidFilter) {
		t.Errorf("expected ErrInvalidFilter, got %v", err)
	}

	_, err = ParseWhere(map[string]any{"tag": map[string]any{"$nin": 5}})
	if !errors.Is(err, domain.ErrInvalidFilter) {
		t.Errorf("expected ErrInvalidFilter, got %v", err)
	}
}

func TestParseWhere_UnknownOperator(t *testing.T) {
	_, err := ParseWhere(map[string]any{"n": map[string]any{"$near": 1}})
	if !errors.Is(err, domain.ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
	if !strings.Contains(err.Error(), "$near") {
		t.Errorf("error should name the operator: %v", err)
	}

	_, err = ParseWhere(map[string]any{"$not": []any{}})
	if !errors.Is(err, domain.ErrInvalidFilter) {
		t.Errorf("expected ErrInvalidFilter for unknown logical key, got %v", err)
	}
}

func TestParseWhere_LogicalGroups(t *testing.T) {
	w, err := ParseWhere(map[string]any{"$and": []any{
		map[string]any{"a": 1},
		map[string]any{"b": map[string]any{"$gt": 2}},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	children := w.And()
	if len(children) != 2 {
		t.Fatalf("and children = %d, want 2", len(children))
	}
	if children[0].Cond().Field != "a" || children[1].Cond().Field != "b" {
		t.Error("children out of input order")
	}

	w, err = ParseWhere(map[string]any{"$or": []map[string]any{{"a": 1}, {"b": 2}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.Or()) != 2 {
		t.Errorf("or children = %d, want 2", len(w.Or()))
	}
}

func TestParseWhere_GroupShapeErrors(t *testing.T) {
	cases := []map[string]any{
		{"$and": "nope"},
		{"$and": []any{}},
		{"$or": []any{"scalar"}},
		{"a": 1, "b": 2}, // two keys in one node
		{"n": map[string]any{"$eq": 1, "$ne": 2}},
	}
	for i, raw := range cases {
		if _, err := ParseWhere(raw); !errors.Is(err, domain.ErrInvalidFilter) {
			t.Errorf("case %d: expected ErrInvalidFilter, got %v", i, err)
		}
	}
}

func TestParseDocument(t *testing.T) {
	d, err := ParseDocument(map[string]any{"$contains": "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Cond().Contains != "hello" {
		t.Errorf("contains = %q", d.Cond().Contains)
	}

	d, err = ParseDocument(map[string]any{"$regex": "^abc.*"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Cond().Regex != "^abc.*" {
		t.Errorf("regex = %q", d.Cond().Regex)
	}

	d, err = ParseDocument(map[string]any{"$or": []any{
		map[string]any{"$contains": "a"},
		map[string]any{"$contains": "b"},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.Or()) != 2 {
		t.Errorf("or children = %d, want 2", len(d.Or()))
	}
}

func TestParseDocument_Errors(t *testing.T) {
	cases := []map[string]any{
		{"$contains": ""},
		{"$contains": 5},
		{"$regex": ""},
		{"$like": "x"},
		{"field": "value"},
	}
	for i, raw := range cases {
		if _, err := ParseDocument(raw); !errors.Is(err, domain.ErrInvalidFilter) {
			t.Errorf("case %d: expected ErrInvalidFilter, got %v", i, err)
		}
	}
}

func TestAndDocuments(t *testing.T) {
	a, err := ParseDocument(map[string]any{"$contains": "alpha"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := ParseDocument(map[string]any{"$contains": "beta"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	joined := AndDocuments(a, b)
	if len(joined.And()) != 2 {
		t.Fatalf("and children = %d, want 2", len(joined.And()))
	}

	single := AndDocuments(a, Document{})
	if single.Cond() == nil || single.Cond().Contains != "alpha" {
		t.Errorf("single surviving filter should pass through, got %+v", single)
	}

	if !AndDocuments(Document{}, Document{}).IsEmpty() {
		t.Error("all-empty join should be empty")
	}
}
