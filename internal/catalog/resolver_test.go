package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kailas-cloud/vecsql/internal/db"
	"github.com/kailas-cloud/vecsql/internal/domain"
)

const testID = "0123456789abcdef0123456789abcdef"

func metadataRow(name, id string, settings string) []any {
	return []any{name, id, settings}
}

func TestResolve_CatalogPath(t *testing.T) {
	settings := `{"configuration":{"dimension":128,"distance":"l2"},` +
		`"embedding_function":{"name":"openai","properties":{"model":"text-embedding-3-small"}}}`
	exec := &mockExecutor{handler: func(sql string, args []any) (*db.Result, error) {
		if strings.HasPrefix(sql, "SELECT `collection_name`") {
			if args[0] != "docs" {
				return nil, fmt.Errorf("unexpected name %v", args[0])
			}
			return &db.Result{Rows: [][]any{metadataRow("docs", testID, settings)}}, nil
		}
		return &db.Result{}, nil
	}}

	r := NewResolver(exec, nil)
	desc, err := r.Resolve(context.Background(), "docs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if desc.Addressing() != domain.AddressingCatalog {
		t.Errorf("addressing = %q", desc.Addressing())
	}
	if desc.Dimension() != 128 || desc.Distance() != domain.DistanceL2 {
		t.Errorf("dimension = %d, distance = %q", desc.Dimension(), desc.Distance())
	}
	if desc.TableName() != "c_docs_"+testID {
		t.Errorf("table = %q", desc.TableName())
	}
	if desc.Embedder() == nil || desc.Embedder().Name != "openai" {
		t.Errorf("embedder = %+v", desc.Embedder())
	}
}

func TestResolve_LegacyPath(t *testing.T) {
	ddl := "CREATE TABLE `c_old` (\n" +
		"  `id` varbinary(512) NOT NULL,\n" +
		"  `embedding` vector(3) NOT NULL,\n" +
		"  VECTOR KEY `vidx` (`embedding`) WITH (distance=cosine, type=hnsw)\n)"
	exec := &mockExecutor{handler: func(sql string, args []any) (*db.Result, error) {
		switch {
		case strings.HasPrefix(sql, "SELECT `collection_name`"):
			return &db.Result{}, nil // no catalog record
		case strings.HasPrefix(sql, "SHOW TABLES LIKE"):
			return &db.Result{Rows: [][]any{{"c_old"}}}, nil
		case strings.HasPrefix(sql, "DESCRIBE"):
			return &db.Result{Rows: [][]any{
				{"id", "varbinary(512)", "NO", "PRI", nil, ""},
				{"document", "longtext", "YES", "", nil, ""},
				{"embedding", "VECTOR(3)", "NO", "", nil, ""},
			}}, nil
		case strings.HasPrefix(sql, "SHOW CREATE TABLE"):
			return &db.Result{Rows: [][]any{{"c_old", ddl}}}, nil
		}
		return &db.Result{}, nil
	}}

	r := NewResolver(exec, nil)
	desc, err := r.Resolve(context.Background(), "old")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if desc.Addressing() != domain.AddressingLegacy {
		t.Errorf("addressing = %q", desc.Addressing())
	}
	if desc.Dimension() != 3 {
		t.Errorf("dimension = %d, want 3", desc.Dimension())
	}
	if desc.Distance() != domain.DistanceCosine {
		t.Errorf("distance = %q, want cosine", desc.Distance())
	}
	if desc.ID() != "" {
		t.Errorf("legacy descriptor has id %q", desc.ID())
	}
	if desc.TableName() != "c_old" {
		t.Errorf("table = %q", desc.TableName())
	}
}

func TestResolve_NotFound(t *testing.T) {
	exec := &mockExecutor{handler: func(sql string, args []any) (*db.Result, error) {
		return &db.Result{}, nil
	}}
	r := NewResolver(exec, nil)
	_, err := r.Resolve(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreate_InsertsMetadataBeforeTable(t *testing.T) {
	exec := &mockExecutor{}
	r := NewResolver(exec, nil)

	desc, err := r.Create(context.Background(), "docs", 128, domain.DistanceL2, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(desc.ID()) != 32 {
		t.Errorf("minted id = %q", desc.ID())
	}

	var insertIdx, createIdx = -1, -1
	for i, sql := range exec.executed {
		if strings.HasPrefix(sql, "INSERT INTO `_collection_metadata`") {
			insertIdx = i
		}
		if strings.HasPrefix(sql, "CREATE TABLE") {
			createIdx = i
		}
	}
	if insertIdx < 0 || createIdx < 0 || insertIdx > createIdx {
		t.Errorf("statement order = %v", exec.executed)
	}
}

func TestCreate_CompensatesOnTableFailure(t *testing.T) {
	tableErr := errors.New("engine exploded")
	var deleted bool
	exec := &mockExecutor{handler: func(sql string, args []any) (*db.Result, error) {
		if strings.HasPrefix(sql, "CREATE TABLE") {
			return nil, tableErr
		}
		if strings.HasPrefix(sql, "DELETE FROM `_collection_metadata`") {
			deleted = true
		}
		return &db.Result{}, nil
	}}

	r := NewResolver(exec, nil)
	_, err := r.Create(context.Background(), "docs", 128, domain.DistanceL2, nil)
	if !errors.Is(err, tableErr) {
		t.Fatalf("original error must propagate, got %v", err)
	}
	if !deleted {
		t.Error("metadata compensation did not run")
	}
}

func TestCreate_CompensationFailureDoesNotMaskOriginal(t *testing.T) {
	tableErr := errors.New("engine exploded")
	exec := &mockExecutor{handler: func(sql string, args []any) (*db.Result, error) {
		if strings.HasPrefix(sql, "CREATE TABLE") {
			return nil, tableErr
		}
		if strings.HasPrefix(sql, "DELETE FROM `_collection_metadata`") {
			return nil, errors.New("compensation also failed")
		}
		return &db.Result{}, nil
	}}

	r := NewResolver(exec, nil)
	_, err := r.Create(context.Background(), "docs", 128, domain.DistanceL2, nil)
	if !errors.Is(err, tableErr) {
		t.Fatalf("original error must propagate unmasked, got %v", err)
	}
}

func TestCreate_DuplicateName(t *testing.T) {
	exec := &mockExecutor{handler: func(sql string, args []any) (*db.Result, error) {
		if strings.HasPrefix(sql, "INSERT INTO `_collection_metadata`") {
			return nil, &db.Error{Op: db.OpExecute, Err: db.ErrDuplicate}
		}
		return &db.Result{}, nil
	}}
	r := NewResolver(exec, nil)
	_, err := r.Create(context.Background(), "docs", 128, domain.DistanceL2, nil)
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestDelete_CatalogDropsTableThenRecord(t *testing.T) {
	settings := `{"configuration":{"dimension":8,"distance":"l2"}}`
	exec := &mockExecutor{handler: func(sql string, args []any) (*db.Result, error) {
		if strings.HasPrefix(sql, "SELECT `collection_name`") {
			return &db.Result{Rows: [][]any{metadataRow("docs", testID, settings)}}, nil
		}
		return &db.Result{}, nil
	}}

	r := NewResolver(exec, nil)
	if err := r.Delete(context.Background(), "docs"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var dropIdx, deleteIdx = -1, -1
	for i, sql := range exec.executed {
		if strings.HasPrefix(sql, "DROP TABLE IF EXISTS `c_docs_"+testID+"`") {
			dropIdx = i
		}
		if strings.HasPrefix(sql, "DELETE FROM `_collection_metadata`") {
			deleteIdx = i
		}
	}
	if dropIdx < 0 || deleteIdx < 0 || dropIdx > deleteIdx {
		t.Errorf("statement order = %v", exec.executed)
	}
}

func TestDelete_LegacyDropsNameTable(t *testing.T) {
	exec := &mockExecutor{handler: func(sql string, args []any) (*db.Result, error) {
		switch {
		case strings.HasPrefix(sql, "SELECT `collection_name`"):
			return &db.Result{}, nil
		case strings.HasPrefix(sql, "SHOW TABLES LIKE"):
			return &db.Result{Rows: [][]any{{"c_old"}}}, nil
		}
		return &db.Result{}, nil
	}}
	r := NewResolver(exec, nil)
	if err := r.Delete(context.Background(), "old"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, sql := range exec.executed {
		if sql == "DROP TABLE IF EXISTS `c_old`" {
			found = true
		}
	}
	if !found {
		t.Errorf("legacy drop missing from %v", exec.executed)
	}
}

func TestList(t *testing.T) {
	settings := `{"configuration":{"dimension":8,"distance":"cosine"}}`
	exec := &mockExecutor{handler: func(sql string, args []any) (*db.Result, error) {
		if strings.HasPrefix(sql, "SELECT `collection_name`") {
			return &db.Result{Rows: [][]any{
				metadataRow("a", testID, settings),
				metadataRow("b", strings.Repeat("f", 32), settings),
			}}, nil
		}
		return &db.Result{}, nil
	}}
	r := NewResolver(exec, nil)
	descs, err := r.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(descs) != 2 || descs[0].Name() != "a" || descs[1].Name() != "b" {
		t.Errorf("descriptors = %+v", descs)
	}
}

func TestCreateThenRetryAfterFailure(t *testing.T) {
	// after a failed create with successful compensation, a second
	// create with the same name must succeed
	inserted := map[string]bool{}
	failCreate := true
	exec := &mockExecutor{handler: func(sql string, args []any) (*db.Result, error) {
		switch {
		case strings.HasPrefix(sql, "INSERT INTO `_collection_metadata`"):
			name := args[0].(string)
			if inserted[name] {
				return nil, &db.Error{Op: db.OpExecute, Err: db.ErrDuplicate}
			}
			inserted[name] = true
			return &db.Result{}, nil
		case strings.HasPrefix(sql, "DELETE FROM `_collection_metadata`"):
			delete(inserted, args[0].(string))
			return &db.Result{}, nil
		case strings.HasPrefix(sql, "CREATE TABLE"):
			if failCreate {
				failCreate = false
				return nil, errors.New("transient ddl failure")
			}
			return &db.Result{}, nil
		}
		return &db.Result{}, nil
	}}

	r := NewResolver(exec, nil)
	if _, err := r.Create(context.Background(), "docs", 8, domain.DistanceL2, nil); err == nil {
		t.Fatal("first create should fail")
	}
	if _, err := r.Create(context.Background(), "docs", 8, domain.DistanceL2, nil); err != nil {
		t.Fatalf("retry after compensation failed: %v", err)
	}
}
