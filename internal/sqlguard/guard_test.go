package sqlguard

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/vecsql/internal/domain"
)

func TestValidate_AcceptsSingleSelect(t *testing.T) {
	valid := []string{
		"SELECT 1",
		"select id, document from `c_docs` where `id` = 'x'",
		"SELECT * FROM t ORDER BY score LIMIT 10;",
		"  \n\tSELECT 1",
		"SELECT /* hint */ id FROM t",
	}
	for _, sql := range valid {
		if err := Validate(sql); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", sql, err)
		}
	}
}

func TestValidate_EmptyIsNotSupportedSentinel(t *testing.T) {
	for _, sql := range []string{"", "   ", "\n\t"} {
		err := Validate(sql)
		if !errors.Is(err, domain.ErrNotSupported) {
			t.Errorf("Validate(%q) = %v, want ErrNotSupported", sql, err)
		}
		if errors.Is(err, domain.ErrUnsafeSQL) {
			t.Errorf("sentinel must not be a security error: %v", err)
		}
	}
}

func TestValidate_RejectsNonSelect(t *testing.T) {
	invalid := []string{
		"UPDATE x SET y=1",
		"SHOW TABLES",
		"WITH q AS (SELECT 1) SELECT * FROM q", // prefix rule is strict
		"-- only a comment",
		"/* only a comment */",
	}
	for _, sql := range invalid {
		err := Validate(sql)
		if !errors.Is(err, domain.ErrUnsafeSQL) {
			t.Errorf("Validate(%q) = %v, want ErrUnsafeSQL", sql, err)
		}
	}
}

func TestValidate_RejectsBlockedKeywords(t *testing.T) {
	invalid := []string{
		"SELECT 1; DROP TABLE x",
		"SELECT * FROM t WHERE id IN (SELECT id FROM u); DELETE FROM t",
		"SELECT load_file('/etc/passwd')",
		"SELECT 1 INTO OUTFILE '/tmp/x'",
		"SELECT truncate_helper()", // no: whole-word rule should NOT catch this
	}
	for i, sql := range invalid[:4] {
		if err := Validate(sql); !errors.Is(err, domain.ErrUnsafeSQL) {
			t.Errorf("case %d: Validate(%q) = %v, want ErrUnsafeSQL", i, sql, err)
		}
	}
	// underscore continues the word, so this is allowed
	if err := Validate(invalid[4]); err != nil {
		t.Errorf("whole-word match too eager: %v", err)
	}
}

func TestValidate_RejectsMultipleStatements(t *testing.T) {
	err := Validate("SELECT 1; SELECT 2")
	if !errors.Is(err, domain.ErrUnsafeSQL) {
		t.Fatalf("expected ErrUnsafeSQL, got %v", err)
	}

	// trailing semicolon is one statement
	if err := Validate("SELECT 1;"); err != nil {
		t.Errorf("trailing semicolon rejected: %v", err)
	}

	// semicolon inside a string literal is not a statement boundary
	if err := Validate("SELECT 'a;b' FROM t"); err != nil {
		t.Errorf("semicolon in literal rejected: %v", err)
	}
}

func TestValidate_CommentsStrippedForAnalysisOnly(t *testing.T) {
	// keyword hidden behind comments must still be caught once stripped
	err := Validate("SELECT 1 /* x */; DROP /* y */ TABLE t")
	if !errors.Is(err, domain.ErrUnsafeSQL) {
		t.Errorf("expected ErrUnsafeSQL, got %v", err)
	}

	// the blocklist scans string literals too: fail closed
	if err := Validate("SELECT 'drop me' FROM t"); !errors.Is(err, domain.ErrUnsafeSQL) {
		t.Errorf("expected fail-closed rejection, got %v", err)
	}
}
