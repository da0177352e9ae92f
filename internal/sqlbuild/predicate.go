// Package sqlbuild assembles parameterized SQL for collection operations:
// boolean predicates compiled from filter trees and full CRUD/ANN/catalog
// statements. Everything here is pure and deterministic; no user value is
// ever interpolated into SQL text, only validated identifiers.
package sqlbuild

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/vecsql/internal/domain"
	"github.com/kailas-cloud/vecsql/internal/domain/where"
)

// TautologyClause is the sentinel clause for an empty filter. Callers
// must elide it instead of concatenating it with other fragments, and
// must never use it as the sole WHERE clause of a destructive statement.
const TautologyClause = "1=1"

// Predicate is a parameterized boolean SQL fragment. The number of `?`
// placeholders in Clause always equals len(Params).
type Predicate struct {
	Clause string
	Params []any
}

// IsTautology reports whether the predicate is the empty-filter sentinel.
func (p Predicate) IsTautology() bool { return p.Clause == TautologyClause }

// Tautology returns the empty-filter sentinel predicate.
func Tautology() Predicate { return Predicate{Clause: TautologyClause} }

var opSQL = map[where.Operator]string{
	where.OpEq:  "=",
	where.OpNe:  "<>",
	where.OpGt:  ">",
	where.OpGte: ">=",
	where.OpLt:  "<",
	where.OpLte: "<=",
}

// CompileWhere compiles a metadata filter against the JSON metadata
// column. An empty filter compiles to the tautology sentinel.
func CompileWhere(w where.Where, column string) (Predicate, error) {
	if w.IsEmpty() {
		return Tautology(), nil
	}
	var sb strings.Builder
	var params []any
	if err := compileWhereNode(w, column, &sb, &params); err != nil {
		return Predicate{}, err
	}
	return Predicate{Clause: sb.String(), Params: params}, nil
}

func compileWhereNode(w where.Where, column string, sb *strings.Builder, params *[]any) error {
	switch {
	case len(w.And()) > 0:
		return compileWhereGroup(w.And(), " AND ", column, sb, params)
	case len(w.Or()) > 0:
		return compileWhereGroup(w.Or(), " OR ", column, sb, params)
	case w.Cond() != nil:
		return compileCondition(w.Cond(), column, sb, params)
	default:
		return fmt.Errorf("%w: empty node inside filter group", domain.ErrInvalidFilter)
	}
}

func compileWhereGroup(children []where.Where, sep, column string, sb *strings.Builder, params *[]any) error {
	sb.WriteString("(")
	for i, child := range children {
		if i > 0 {
			sb.WriteString(sep)
		}
		if err := compileWhereNode(child, column, sb, params); err != nil {
			return err
		}
	}
	sb.WriteString(")")
	return nil
}

func compileCondition(c *where.Condition, column string, sb *strings.Builder, params *[]any) error {
	switch c.Op {
	case where.OpIn, where.OpNin:
		keyword := "IN"
		if c.Op == where.OpNin {
			keyword = "NOT IN"
		}
		sb.WriteString(metadataExpr(column, c.Field, c.Values[0]))
		sb.WriteString(" " + keyword + " (")
		for i, v := range c.Values {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("?")
			*params = append(*params, metadataParam(v))
		}
		sb.WriteString(")")
		return nil
	default:
		op, ok := opSQL[c.Op]
		if !ok {
			return fmt.Errorf("%w: unknown operator %q", domain.ErrInvalidFilter, c.Op)
		}
		sb.WriteString(metadataExpr(column, c.Field, c.Value))
		sb.WriteString(" " + op + " ?")
		*params = append(*params, metadataParam(c.Value))
		return nil
	}
}

// metadataExpr builds the extraction expression for one metadata field.
// Numeric operands cast the extracted text so comparisons are numeric,
// everything else compares the unquoted JSON text.
func metadataExpr(column, field string, operand any) string {
	path := jsonPath(field)
	expr := fmt.Sprintf("%s->>'%s'", QuoteIdent(column), path)
	if isNumeric(operand) {
		return fmt.Sprintf("CAST(%s AS DOUBLE)", expr)
	}
	return expr
}

// metadataParam normalizes an operand to match the extracted JSON text.
// JSON booleans extract as the literals "true"/"false".
func metadataParam(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return "true"
		}
		return "false"
	}
	return v
}

func isNumeric(v any) bool {
	switch v.(type) {
	case float32, float64, int, int32, int64:
		return true
	default:
		return false
	}
}

// jsonPath renders a field name as a quoted JSON path, escaping the
// characters that terminate a path string literal.
func jsonPath(field string) string {
	escaped := strings.ReplaceAll(field, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, `'`, `''`)
	return `$."` + escaped + `"`
}

// CompileWhereDocument compiles a document-body filter against the raw
// document column. An empty filter compiles to the tautology sentinel.
func CompileWhereDocument(d where.Document, column string) (Predicate, error) {
	if d.IsEmpty() {
		return Tautology(), nil
	}
	var sb strings.Builder
	var params []any
	if err := compileDocumentNode(d, column, &sb, &params); err != nil {
		return Predicate{}, err
	}
	return Predicate{Clause: sb.String(), Params: params}, nil
}

func compileDocumentNode(d where.Document, column string, sb *strings.Builder, params *[]any) error {
	switch {
	case len(d.And()) > 0:
		return compileDocumentGroup(d.And(), " AND ", column, sb, params)
	case len(d.Or()) > 0:
		return compileDocumentGroup(d.Or(), " OR ", column, sb, params)
	case d.Cond() != nil:
		c := d.Cond()
		if c.Regex != "" {
			sb.WriteString(QuoteIdent(column) + " REGEXP ?")
			*params = append(*params, c.Regex)
			return nil
		}
		sb.WriteString(QuoteIdent(column) + " LIKE CONCAT('%', ?, '%')")
		*params = append(*params, c.Contains)
		return nil
	default:
		return fmt.Errorf("%w: empty node inside document filter group", domain.ErrInvalidFilter)
	}
}

func compileDocumentGroup(children []where.Document, sep, column string, sb *strings.Builder, params *[]any) error {
	sb.WriteString("(")
	for i, child := range children {
		if i > 0 {
			sb.WriteString(sep)
		}
		if err := compileDocumentNode(child, column, sb, params); err != nil {
			return err
		}
	}
	sb.WriteString(")")
	return nil
}
