package query

import (
	"regexp"
	"strings"

	"github.com/vibesql/queryrunner/internal/database"
)

var (
	whereClausePattern     = regexp.MustCompile(`\bWHERE\b`)
	returningClausePattern = regexp.MustCompile(`\bRETURNING\b`)
	singleLineComment      = regexp.MustCompile(`--[^\n]*`)
	multiLineComment       = regexp.MustCompile(`/\*[\s\S]*?\*/`)
	stringLiteral          = regexp.MustCompile(`'(?:[^']|'')*'`)
)

// CheckSafety refuses UPDATE and DELETE statements that would touch every row.
func CheckSafety(sql string) error {
	upperSQL := strings.ToUpper(strings.TrimSpace(sql))

	// Check UPDATE without WHERE
	if strings.HasPrefix(upperSQL, "UPDATE") && !hasClause(sql, whereClausePattern) {
		return database.NewError(
			database.ErrorCodeUnsafeQuery,
			"unsafe query: UPDATE without WHERE clause (use 'WHERE 1=1' to update all rows explicitly)",
		)
	}

	// Check DELETE without WHERE
	if strings.HasPrefix(upperSQL, "DELETE") && !hasClause(sql, whereClausePattern) {
		return database.NewError(
			database.ErrorCodeUnsafeQuery,
			"unsafe query: DELETE without WHERE clause (use 'WHERE 1=1' to delete all rows explicitly)",
		)
	}

	return nil
}

// hasClause reports whether the keyword matched by pattern appears outside
// comments and string literals.
func hasClause(sql string, pattern *regexp.Regexp) bool {
	sql = removeComments(sql)

	// e.g., UPDATE users SET note = 'WHERE is my data' should not match
	sql = removeStringLiterals(sql)

	return pattern.MatchString(strings.ToUpper(sql))
}

// removeComments removes SQL comments from the query
// Note: Nested /* */ comments are not fully supported
func removeComments(sql string) string {
	sql = singleLineComment.ReplaceAllString(sql, "")
	sql = multiLineComment.ReplaceAllString(sql, "")

	return sql
}

// removeStringLiterals removes SQL string literals from the query
// Handles doubled single quotes: 'can''t'
func removeStringLiterals(sql string) string {
	return stringLiteral.ReplaceAllString(sql, "''")
}
