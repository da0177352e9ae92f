package sqlbuild

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/vecsql/internal/domain"
)

// Physical column names of a collection table.
const (
	ColID        = "id"
	ColDocument  = "document"
	ColMetadata  = "metadata"
	ColEmbedding = "embedding"
)

// MetadataTable is the shared catalog table holding one record per
// catalog-addressed collection. The schema is a compatibility surface.
const MetadataTable = "_collection_metadata"

// idPlaceholder is the bound form of a record id. The engine binds these
// as fixed-width binary, so the CAST marker must be preserved verbatim.
const idPlaceholder = "CAST(? AS BINARY)"

// Statement is one executable SQL statement with positional parameters.
type Statement struct {
	SQL    string
	Params []any
}

// QuoteIdent quotes a table or column identifier with backticks.
// Embedded backticks are doubled. Values never go through here.
func QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// VectorLiteral renders a float vector in the engine's literal syntax.
func VectorLiteral(vec []float32) string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, f := range vec {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	sb.WriteString("]")
	return sb.String()
}

// EncodeMetadata serializes structured metadata into its storage encoding.
// Nil metadata encodes as SQL NULL.
func EncodeMetadata(md map[string]any) (any, error) {
	if md == nil {
		return nil, nil
	}
	data, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata not JSON-serializable: %v", domain.ErrValidation, err)
	}
	return string(data), nil
}

// distanceFuncs maps the recorded metric to the engine's distance function.
var distanceFuncs = map[domain.Distance]string{
	domain.DistanceL2:           "l2_distance",
	domain.DistanceCosine:       "cosine_distance",
	domain.DistanceInnerProduct: "inner_product",
}

// distanceExpr builds the ordering expression for an ANN scan. Inner
// product is a similarity, so it is negated to keep ascending order.
func distanceExpr(metric domain.Distance, vec []float32) string {
	fn := distanceFuncs[metric]
	expr := fmt.Sprintf("%s(%s, '%s')", fn, QuoteIdent(ColEmbedding), VectorLiteral(vec))
	if metric == domain.DistanceInnerProduct {
		return "-" + expr
	}
	return expr
}

// Columns selects which payload columns a read returns. ID is always included.
type Columns struct {
	Document  bool
	Metadata  bool
	Embedding bool
}

// Names returns the selected column list in storage order.
func (c Columns) Names() []string {
	names := []string{ColID}
	if c.Document {
		names = append(names, ColDocument)
	}
	if c.Metadata {
		names = append(names, ColMetadata)
	}
	if c.Embedding {
		names = append(names, ColEmbedding)
	}
	return names
}

func selectList(c Columns) string {
	quoted := make([]string, 0, 4)
	for _, n := range c.Names() {
		quoted = append(quoted, QuoteIdent(n))
	}
	return strings.Join(quoted, ", ")
}

// whereFragment merges compiled predicates with an optional id list.
// Ids are ORed internally (one IN list) and ANDed with the rest.
// Tautology sentinels are elided; an empty result means no WHERE clause.
func whereFragment(ids []string, preds ...Predicate) (string, []any) {
	var parts []string
	var params []any
	for _, p := range preds {
		if p.Clause == "" || p.IsTautology() {
			continue
		}
		parts = append(parts, p.Clause)
		params = append(params, p.Params...)
	}
	if len(ids) > 0 {
		placeholders := make([]string, len(ids))
		for i, id := range ids {
			placeholders[i] = idPlaceholder
			params = append(params, id)
		}
		parts = append(parts, fmt.Sprintf("%s IN (%s)", QuoteIdent(ColID), strings.Join(placeholders, ",")))
	}
	if len(parts) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(parts, " AND "), params
}

// InsertRecords builds a multi-row INSERT, one value tuple per record.
func InsertRecords(table string, records []domain.Record) (Statement, error) {
	if len(records) == 0 {
		return Statement{}, fmt.Errorf("%w: no records to insert", domain.ErrValidation)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s, %s, %s, %s) VALUES ",
		QuoteIdent(table), QuoteIdent(ColID), QuoteIdent(ColDocument),
		QuoteIdent(ColMetadata), QuoteIdent(ColEmbedding))

	params := make([]any, 0, len(records)*4)
	for i, rec := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(" + idPlaceholder + ", ?, ?, ?)")
		params = append(params, rec.ID)

		if rec.Document != nil {
			params = append(params, *rec.Document)
		} else {
			params = append(params, nil)
		}
		md, err := EncodeMetadata(rec.Metadata)
		if err != nil {
			return Statement{}, err
		}
		params = append(params, md)
		params = append(params, VectorLiteral(rec.Embedding))
	}
	return Statement{SQL: sb.String(), Params: params}, nil
}

// UpsertRecords builds a multi-row INSERT that replaces the payload
// columns of any row whose id already exists.
func UpsertRecords(table string, records []domain.Record) (Statement, error) {
	stmt, err := InsertRecords(table, records)
	if err != nil {
		return Statement{}, err
	}
	stmt.SQL += fmt.Sprintf(" ON DUPLICATE KEY UPDATE %s = VALUES(%s), %s = VALUES(%s), %s = VALUES(%s)",
		QuoteIdent(ColDocument), QuoteIdent(ColDocument),
		QuoteIdent(ColMetadata), QuoteIdent(ColMetadata),
		QuoteIdent(ColEmbedding), QuoteIdent(ColEmbedding))
	return stmt, nil
}

// SelectRecords builds a filtered SELECT over the collection table.
// limit <= 0 means no LIMIT clause; offset applies only with a limit.
func SelectRecords(table string, cols Columns, ids []string, limit, offset int, preds ...Predicate) Statement {
	whereSQL, params := whereFragment(ids, preds...)
	sql := fmt.Sprintf("SELECT %s FROM %s%s", selectList(cols), QuoteIdent(table), whereSQL)
	if limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", limit)
		if offset > 0 {
			sql += fmt.Sprintf(" OFFSET %d", offset)
		}
	}
	return Statement{SQL: sql, Params: params}
}

// CountRecords builds a row count statement.
func CountRecords(table string) Statement {
	return Statement{SQL: fmt.Sprintf("SELECT COUNT(*) FROM %s", QuoteIdent(table))}
}

// UpdateRecord builds a single-row UPDATE setting only the provided
// fields. At least one field must be present.
func UpdateRecord(table string, rec domain.Record) (Statement, error) {
	var sets []string
	var params []any
	if rec.Document != nil {
		sets = append(sets, QuoteIdent(ColDocument)+" = ?")
		params = append(params, *rec.Document)
	}
	if rec.Metadata != nil {
		md, err := EncodeMetadata(rec.Metadata)
		if err != nil {
			return Statement{}, err
		}
		sets = append(sets, QuoteIdent(ColMetadata)+" = ?")
		params = append(params, md)
	}
	if rec.Embedding != nil {
		sets = append(sets, QuoteIdent(ColEmbedding)+" = ?")
		params = append(params, VectorLiteral(rec.Embedding))
	}
	if len(sets) == 0 {
		return Statement{}, fmt.Errorf("%w: update for id %q has no fields to set", domain.ErrValidation, rec.ID)
	}
	params = append(params, rec.ID)
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		QuoteIdent(table), strings.Join(sets, ", "), QuoteIdent(ColID), idPlaceholder)
	return Statement{SQL: sql, Params: params}, nil
}

// DeleteRecords builds a filtered DELETE. A delete with no ids and only
// tautology predicates would wipe the table, so it is rejected here;
// full truncation must be expressed deliberately by the caller.
func DeleteRecords(table string, ids []string, preds ...Predicate) (Statement, error) {
	whereSQL, params := whereFragment(ids, preds...)
	if whereSQL == "" {
		return Statement{}, fmt.Errorf("%w: delete requires ids or a non-empty filter", domain.ErrValidation)
	}
	sql := fmt.Sprintf("DELETE FROM %s%s", QuoteIdent(table), whereSQL)
	return Statement{SQL: sql, Params: params}, nil
}

// AnnSearch builds the approximate-nearest-neighbor SELECT, ordered by
// the distance function recorded for the collection.
func AnnSearch(table string, metric domain.Distance, vec []float32, k int, cols Columns, preds ...Predicate) Statement {
	whereSQL, params := whereFragment(nil, preds...)
	dist := distanceExpr(metric, vec)
	sql := fmt.Sprintf("SELECT %s, %s AS %s FROM %s%s ORDER BY %s APPROXIMATE LIMIT %d",
		selectList(cols), dist, QuoteIdent("distance"),
		QuoteIdent(table), whereSQL, dist, k)
	return Statement{SQL: sql, Params: params}
}

// FullTextSearch builds a relevance-ordered full-text scan over the
// document column. Rows that do not match score zero and are excluded.
func FullTextSearch(table, query string, k int, cols Columns, preds ...Predicate) Statement {
	match := fmt.Sprintf("MATCH(%s) AGAINST (? IN NATURAL LANGUAGE MODE)", QuoteIdent(ColDocument))
	whereSQL, params := whereFragment(nil, preds...)
	if whereSQL == "" {
		whereSQL = " WHERE " + match
	} else {
		whereSQL += " AND " + match
	}
	sql := fmt.Sprintf("SELECT %s, %s AS %s FROM %s%s ORDER BY %s DESC LIMIT %d",
		selectList(cols), match, QuoteIdent("score"),
		QuoteIdent(table), whereSQL, QuoteIdent("score"), k)
	// the MATCH expression binds twice: once in the select list, once in the filter
	return Statement{SQL: sql, Params: append([]any{query}, append(params, query)...)}
}

// Hybrid search protocol: a session variable carries the serialized
// search specification, then a server procedure translates it to SQL.
const (
	searchParamVar  = "@search_parm"
	hybridProcedure = "DBMS_HYBRID_VECTOR.GET_SQL"
)

// SetSearchParam builds the session-variable assignment for a hybrid search.
func SetSearchParam(specJSON []byte) Statement {
	return Statement{
		SQL:    "SET " + searchParamVar + " = ?",
		Params: []any{string(specJSON)},
	}
}

// HybridSearchSQL asks the server procedure to translate the session's
// search specification into SQL text for the given table. The returned
// text must pass sqlguard validation before it is executed.
func HybridSearchSQL(table string) Statement {
	return Statement{
		SQL:    fmt.Sprintf("SELECT %s(?, %s) AS query_sql", hybridProcedure, searchParamVar),
		Params: []any{table},
	}
}

// CreateCollectionTable builds the physical table DDL: binary primary
// key, document text, JSON metadata, vector column, one fulltext index
// and one vector index carrying the distance metric in its options.
func CreateCollectionTable(table string, dimension int, metric domain.Distance) string {
	return fmt.Sprintf(
		"CREATE TABLE %s ("+
			"%s VARBINARY(512) NOT NULL, "+
			"%s LONGTEXT, "+
			"%s JSON, "+
			"%s VECTOR(%d) NOT NULL, "+
			"PRIMARY KEY (%s), "+
			"FULLTEXT KEY %s (%s), "+
			"VECTOR KEY %s (%s) WITH (distance=%s, type=hnsw))",
		QuoteIdent(table),
		QuoteIdent(ColID),
		QuoteIdent(ColDocument),
		QuoteIdent(ColMetadata),
		QuoteIdent(ColEmbedding), dimension,
		QuoteIdent(ColID),
		QuoteIdent("ft_"+ColDocument), QuoteIdent(ColDocument),
		QuoteIdent("vidx_"+ColEmbedding), QuoteIdent(ColEmbedding), metric)
}

// DropTable builds the physical table drop statement.
func DropTable(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", QuoteIdent(table))
}

// CreateMetadataTable builds the shared catalog table DDL.
func CreateMetadataTable() string {
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s ("+
			"%s VARCHAR(512) NOT NULL, "+
			"%s CHAR(32) NOT NULL, "+
			"%s JSON, "+
			"PRIMARY KEY (%s), "+
			"UNIQUE KEY %s (%s))",
		QuoteIdent(MetadataTable),
		QuoteIdent("collection_name"),
		QuoteIdent("collection_id"),
		QuoteIdent("settings"),
		QuoteIdent("collection_id"),
		QuoteIdent("uniq_collection_name"), QuoteIdent("collection_name"))
}

// InsertMetadata builds the catalog insert for a new collection.
func InsertMetadata(rec domain.MetadataRecord) (Statement, error) {
	settings, err := json.Marshal(rec.Settings)
	if err != nil {
		return Statement{}, fmt.Errorf("%w: settings not JSON-serializable: %v", domain.ErrValidation, err)
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s, %s, %s) VALUES (?, ?, ?)",
		QuoteIdent(MetadataTable),
		QuoteIdent("collection_name"), QuoteIdent("collection_id"), QuoteIdent("settings"))
	return Statement{SQL: sql, Params: []any{rec.CollectionName, rec.CollectionID, string(settings)}}, nil
}

// SelectMetadataByName builds the catalog lookup by collection name.
func SelectMetadataByName(name string) Statement {
	sql := fmt.Sprintf("SELECT %s, %s, %s FROM %s WHERE %s = ?",
		QuoteIdent("collection_name"), QuoteIdent("collection_id"), QuoteIdent("settings"),
		QuoteIdent(MetadataTable), QuoteIdent("collection_name"))
	return Statement{SQL: sql, Params: []any{name}}
}

// ListMetadata builds the catalog listing statement.
func ListMetadata() Statement {
	sql := fmt.Sprintf("SELECT %s, %s, %s FROM %s ORDER BY %s",
		QuoteIdent("collection_name"), QuoteIdent("collection_id"), QuoteIdent("settings"),
		QuoteIdent(MetadataTable), QuoteIdent("collection_name"))
	return Statement{SQL: sql}
}

// DeleteMetadata builds the catalog delete by collection name.
func DeleteMetadata(name string) Statement {
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s = ?",
		QuoteIdent(MetadataTable), QuoteIdent("collection_name"))
	return Statement{SQL: sql, Params: []any{name}}
}

// DescribeTable builds the column introspection statement.
func DescribeTable(table string) Statement {
	return Statement{SQL: fmt.Sprintf("DESCRIBE %s", QuoteIdent(table))}
}

// ShowCreateTable builds the table definition text statement.
func ShowCreateTable(table string) Statement {
	return Statement{SQL: fmt.Sprintf("SHOW CREATE TABLE %s", QuoteIdent(table))}
}

// ShowTablesLike builds the table existence probe.
func ShowTablesLike(table string) Statement {
	return Statement{SQL: "SHOW TABLES LIKE ?", Params: []any{table}}
}
