// Package sqlguard validates SQL text returned by the server-side
// hybrid-search procedure before the client executes it. The text is
// untrusted input: validation fails closed, and nothing is executed on
// rejection. Comment stripping is for analysis only; the validated
// original text is what gets executed.
package sqlguard

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/vecsql/internal/domain"
)

// blockedKeywords are mutating or side-effecting keywords that must not
// appear anywhere in engine-returned SQL, as whole words.
var blockedKeywords = []string{
	"DROP", "DELETE", "UPDATE", "INSERT", "ALTER", "CREATE",
	"GRANT", "REVOKE", "TRUNCATE", "REPLACE", "RENAME",
	"LOAD_FILE", "OUTFILE", "DUMPFILE", "CALL", "LOAD",
}

var blockedRegex = regexp.MustCompile(`(?i)\b(?:` + strings.Join(blockedKeywords, "|") + `)\b`)

// Validate checks engine-returned SQL text.
//
// An empty string is the engine's "feature not supported" sentinel and
// reports domain.ErrNotSupported, a soft failure distinct from a
// security rejection. Everything else must be a single SELECT statement
// free of blocked keywords; violations report domain.ErrUnsafeSQL.
func Validate(sql string) error {
	if strings.TrimSpace(sql) == "" {
		return domain.ErrNotSupported
	}

	analysis := strings.TrimSpace(stripComments(sql))
	if analysis == "" {
		return fmt.Errorf("%w: statement is comments only", domain.ErrUnsafeSQL)
	}

	if !hasSelectPrefix(analysis) {
		return fmt.Errorf("%w: statement does not start with SELECT", domain.ErrUnsafeSQL)
	}

	if match := blockedRegex.FindString(analysis); match != "" {
		return fmt.Errorf("%w: blocked keyword %q", domain.ErrUnsafeSQL, strings.ToUpper(match))
	}

	if n := countStatements(analysis); n > 1 {
		return fmt.Errorf("%w: %d statements in one payload", domain.ErrUnsafeSQL, n)
	}

	return nil
}

func hasSelectPrefix(sql string) bool {
	return len(sql) >= 6 && strings.EqualFold(sql[:6], "SELECT")
}

// countStatements counts non-empty ;-delimited statements, ignoring
// semicolons inside quoted strings.
func countStatements(sql string) int {
	count := 0
	current := strings.Builder{}
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case quote != 0:
			current.WriteByte(c)
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
			current.WriteByte(c)
		case c == ';':
			if strings.TrimSpace(current.String()) != "" {
				count++
			}
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		count++
	}
	return count
}

// stripComments removes /* */, -- and # comments, preserving quoted
// string contents.
func stripComments(sql string) string {
	var sb strings.Builder
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if quote != 0 {
			sb.WriteByte(c)
			if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case c == '\'' || c == '"' || c == '`':
			quote = c
			sb.WriteByte(c)
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return sb.String()
			}
			sb.WriteByte(' ')
			i += 2 + end + 1
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			i = skipLine(sql, i)
			sb.WriteByte('\n')
		case c == '#':
			i = skipLine(sql, i)
			sb.WriteByte('\n')
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func skipLine(sql string, i int) int {
	for ; i < len(sql); i++ {
		if sql[i] == '\n' {
			return i
		}
	}
	return i
}
