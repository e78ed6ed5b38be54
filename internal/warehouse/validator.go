package warehouse

import (
	"fmt"
	"regexp"
	"strings"
)

// Statement patterns blocked on every engine. The safety gate upstream
// already rejects these on the raw query text; this layer re-checks the
// rewritten statement so an adapter is never one refactor away from
// executing a write.
var commonBlockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bINSERT\b`),
	regexp.MustCompile(`(?i)\bUPDATE\b`),
	regexp.MustCompile(`(?i)\bDELETE\b`),
	regexp.MustCompile(`(?i)\bDROP\b`),
	regexp.MustCompile(`(?i)\bTRUNCATE\b`),
	regexp.MustCompile(`(?i)\bALTER\b`),
	regexp.MustCompile(`(?i)\bCREATE\b`),
	regexp.MustCompile(`(?i)\bGRANT\b`),
	regexp.MustCompile(`(?i)\bREVOKE\b`),
	regexp.MustCompile(`(?i)\bEXEC\b`),
	regexp.MustCompile(`(?i)\bEXECUTE\b`),
	regexp.MustCompile(`(?i)\bINTO\s+OUTFILE\b`),
	regexp.MustCompile(`(?i)\bINTO\s+DUMPFILE\b`),
	regexp.MustCompile(`(?i)\bLOAD_FILE\b`),
	regexp.MustCompile(`(?i)\bLOAD\s+DATA\b`),
}

// PostgresBlockedPatterns blocks PostgreSQL server-side file and
// foreign-connection functions.
var PostgresBlockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)pg_read_file`),
	regexp.MustCompile(`(?i)pg_write_file`),
	regexp.MustCompile(`(?i)pg_ls_dir`),
	regexp.MustCompile(`(?i)lo_import`),
	regexp.MustCompile(`(?i)lo_export`),
	regexp.MustCompile(`(?i)\bCOPY\b`),
	regexp.MustCompile(`(?i)dblink`),
}

// ClickhouseBlockedPatterns blocks ClickHouse table functions that read
// local files or reach out to other servers.
var ClickhouseBlockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)file\s*\(`),
	regexp.MustCompile(`(?i)url\s*\(`),
	regexp.MustCompile(`(?i)remote\s*\(`),
	regexp.MustCompile(`(?i)mysql\s*\(`),
	regexp.MustCompile(`(?i)postgresql\s*\(`),
}

// MysqlBlockedPatterns blocks MySQL file read/write primitives.
var MysqlBlockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)LOAD_FILE`),
	regexp.MustCompile(`(?i)INTO\s+OUTFILE`),
	regexp.MustCompile(`(?i)INTO\s+DUMPFILE`),
}

// SqliteBlockedPatterns blocks SQLite database attachment and native
// extension loading.
var SqliteBlockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bATTACH\b`),
	regexp.MustCompile(`(?i)\bDETACH\b`),
	regexp.MustCompile(`(?i)load_extension`),
}

// ValidateStatement is the adapter-level backstop run on the rewritten
// statement immediately before execution.
func ValidateStatement(sql string, enginePatterns []*regexp.Regexp) error {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return fmt.Errorf("empty SQL statement")
	}

	// One trailing semicolon is tolerated; anything beyond that means
	// multiple statements.
	if strings.Count(strings.TrimSuffix(sql, ";"), ";") > 0 {
		return fmt.Errorf("multiple statements not allowed")
	}

	// The gate only admits plain SELECT, so anything else reaching this
	// point is a bug or a bypass attempt.
	if !strings.HasPrefix(strings.ToUpper(sql), "SELECT") {
		return fmt.Errorf("only SELECT statements allowed")
	}

	for _, pattern := range commonBlockedPatterns {
		if pattern.MatchString(sql) {
			return fmt.Errorf("blocked SQL pattern detected")
		}
	}

	for _, pattern := range enginePatterns {
		if pattern.MatchString(sql) {
			return fmt.Errorf("blocked SQL pattern detected")
		}
	}

	return nil
}

// EnsureLimit appends a LIMIT clause when the statement has none. The
// gate normally rewrites limits itself; this keeps a bare adapter safe
// if called directly.
func EnsureLimit(sql string, maxRows int) string {
	if strings.Contains(strings.ToUpper(sql), "LIMIT") {
		return sql
	}

	sql = strings.TrimSuffix(strings.TrimSpace(sql), ";")

	return fmt.Sprintf("%s LIMIT %d", sql, maxRows)
}
