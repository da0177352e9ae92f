// Package where models metadata and document filters as tagged trees.
//
// Filters arrive in the portable map form ({field: value},
// {field: {$op: value}}, {$and: [...]}, {$or: [...]}) and are parsed
// into explicit variants once, so the relational and search-spec
// compilers share identical validation semantics.
package where

import (
	"fmt"

	"github.com/kailas-cloud/vecsql/internal/domain"
)

// Operator is a comparison operator on a metadata field.
type Operator string

// Metadata filter operators.
const (
	OpEq  Operator = "$eq"
	OpNe  Operator = "$ne"
	OpGt  Operator = "$gt"
	OpGte Operator = "$gte"
	OpLt  Operator = "$lt"
	OpLte Operator = "$lte"
	OpIn  Operator = "$in"
	OpNin Operator = "$nin"
)

// Logical group keys.
const (
	keyAnd = "$and"
	keyOr  = "$or"
)

// Document filter operators.
const (
	keyContains = "$contains"
	keyRegex    = "$regex"
)

var comparisonOps = map[Operator]bool{
	OpEq: true, OpNe: true, OpGt: true, OpGte: true,
	OpLt: true, OpLte: true, OpIn: true, OpNin: true,
}

// Condition is one metadata leaf: field, operator and operand.
// Values holds the operand list for $in/$nin, Value the scalar otherwise.
type Condition struct {
	Field  string
	Op     Operator
	Value  any
	Values []any
}

// Where is a metadata filter node: exactly one of And, Or or Cond is set,
// or none for the empty filter.
type Where struct {
	and  []Where
	or   []Where
	cond *Condition
}

// IsEmpty reports whether the node carries no conditions.
func (w Where) IsEmpty() bool { return w.cond == nil && len(w.and) == 0 && len(w.or) == 0 }

// And returns the conjunction children, nil if this is not an $and node.
func (w Where) And() []Where { return w.and }

// Or returns the disjunction children, nil if this is not an $or node.
func (w Where) Or() []Where { return w.or }

// Cond returns the leaf condition, nil if this is a group node.
func (w Where) Cond() *Condition { return w.cond }

// ParseWhere converts the portable map form into a Where tree.
// A bare {field: value} entry is normalized to {field: {$eq: value}}.
func ParseWhere(raw map[string]any) (Where, error) {
	if len(raw) == 0 {
		return Where{}, nil
	}
	if len(raw) > 1 {
		return Where{}, fmt.Errorf("%w: where node must have exactly one key, got %d", domain.ErrInvalidFilter, len(raw))
	}
	for key, value := range raw {
		switch key {
		case keyAnd, keyOr:
			children, err := parseGroup(key, value, ParseWhere)
			if err != nil {
				return Where{}, err
			}
			if key == keyAnd {
				return Where{and: children}, nil
			}
			return Where{or: children}, nil
		default:
			cond, err := parseCondition(key, value)
			if err != nil {
				return Where{}, err
			}
			return Where{cond: &cond}, nil
		}
	}
	return Where{}, nil
}

func parseGroup[T any](key string, value any, parse func(map[string]any) (T, error)) ([]T, error) {
	items, ok := value.([]any)
	if !ok {
		if typed, okTyped := value.([]map[string]any); okTyped {
			items = make([]any, len(typed))
			for i, m := range typed {
				items[i] = m
			}
		} else {
			return nil, fmt.Errorf("%w: %s expects a list of filters", domain.ErrInvalidFilter, key)
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s requires at least one child filter", domain.ErrInvalidFilter, key)
	}
	children := make([]T, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s child %d is not a filter object", domain.ErrInvalidFilter, key, i)
		}
		child, err := parse(m)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

func parseCondition(field string, value any) (Condition, error) {
	if field == "" {
		return Condition{}, fmt.Errorf("%w: empty field name", domain.ErrInvalidFilter)
	}
	if field[0] == '$' {
		return Condition{}, fmt.Errorf("%w: unknown operator %q", domain.ErrInvalidFilter, field)
	}

	opMap, ok := value.(map[string]any)
	if !ok {
		// Bare {field: value} is sugar for equality.
		if err := checkScalar(field, value); err != nil {
			return Condition{}, err
		}
		return Condition{Field: field, Op: OpEq, Value: value}, nil
	}

	if len(opMap) != 1 {
		return Condition{}, fmt.Errorf("%w: field %q expects exactly one operator, got %d", domain.ErrInvalidFilter, field, len(opMap))
	}
	for opKey, operand := range opMap {
		op := Operator(opKey)
		if !comparisonOps[op] {
			return Condition{}, fmt.Errorf("%w: unknown operator %q for field %q", domain.ErrInvalidFilter, opKey, field)
		}
		if op == OpIn || op == OpNin {
			values, err := toSequence(operand)
			if err != nil {
				return Condition{}, fmt.Errorf("%w: %s for field %q requires a sequence of values", domain.ErrInvalidFilter, op, field)
			}
			if len(values) == 0 {
				return Condition{}, fmt.Errorf("%w: %s for field %q requires a non-empty sequence", domain.ErrInvalidFilter, op, field)
			}
			for _, v := range values {
				if err := checkScalar(field, v); err != nil {
					return Condition{}, err
				}
			}
			return Condition{Field: field, Op: op, Values: values}, nil
		}
		if err := checkScalar(field, operand); err != nil {
			return Condition{}, err
		}
		return Condition{Field: field, Op: op, Value: operand}, nil
	}
	return Condition{}, fmt.Errorf("%w: field %q has no operator", domain.ErrInvalidFilter, field)
}

func toSequence(operand any) ([]any, error) {
	switch v := operand.(type) {
	case []any:
		return v, nil
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	case []float64:
		out := make([]any, len(v))
		for i, f := range v {
			out[i] = f
		}
		return out, nil
	case []int:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("not a sequence")
	}
}

func checkScalar(field string, value any) error {
	switch value.(type) {
	case string, bool, float32, float64, int, int32, int64:
		return nil
	default:
		return fmt.Errorf("%w: field %q has non-scalar value %T", domain.ErrInvalidFilter, field, value)
	}
}

// DocCondition is one document leaf: a containment term or a regex pattern.
type DocCondition struct {
	Contains string
	Regex    string
}

// Document is a document-body filter node: exactly one of And, Or or
// Cond is set, or none for the empty filter.
type Document struct {
	and  []Document
	or   []Document
	cond *DocCondition
}

// IsEmpty reports whether the node carries no conditions.
func (d Document) IsEmpty() bool { return d.cond == nil && len(d.and) == 0 && len(d.or) == 0 }

// And returns the conjunction children, nil if this is not an $and node.
func (d Document) And() []Document { return d.and }

// Or returns the disjunction children, nil if this is not an $or node.
func (d Document) Or() []Document { return d.or }

// Cond returns the leaf condition, nil if this is a group node.
func (d Document) Cond() *DocCondition { return d.cond }

// AndDocuments joins document filters into one conjunction, skipping
// empty nodes. A single surviving filter is returned as-is.
func AndDocuments(docs ...Document) Document {
	var kept []Document
	for _, d := range docs {
		if !d.IsEmpty() {
			kept = append(kept, d)
		}
	}
	switch len(kept) {
	case 0:
		return Document{}
	case 1:
		return kept[0]
	}
	return Document{and: kept}
}

// ParseDocument converts the portable map form of a document filter
// ({$contains: text}, {$regex: pattern}, {$and/$or: [...]}) into a tree.
func ParseDocument(raw map[string]any) (Document, error) {
	if len(raw) == 0 {
		return Document{}, nil
	}
	if len(raw) > 1 {
		return Document{}, fmt.Errorf("%w: where_document node must have exactly one key, got %d", domain.ErrInvalidFilter, len(raw))
	}
	for key, value := range raw {
		switch key {
		case keyAnd, keyOr:
			children, err := parseGroup(key, value, ParseDocument)
			if err != nil {
				return Document{}, err
			}
			if key == keyAnd {
				return Document{and: children}, nil
			}
			return Document{or: children}, nil
		case keyContains:
			text, ok := value.(string)
			if !ok || text == "" {
				return Document{}, fmt.Errorf("%w: $contains expects a non-empty string", domain.ErrInvalidFilter)
			}
			return Document{cond: &DocCondition{Contains: text}}, nil
		case keyRegex:
			pattern, ok := value.(string)
			if !ok || pattern == "" {
				return Document{}, fmt.Errorf("%w: $regex expects a non-empty pattern", domain.ErrInvalidFilter)
			}
			return Document{cond: &DocCondition{Regex: pattern}}, nil
		default:
			return Document{}, fmt.Errorf("%w: unknown document operator %q", domain.ErrInvalidFilter, key)
		}
	}
	return Document{}, nil
}
