package query

import (
	"fmt"
	"strings"

	"github.com/vibesql/queryrunner/internal/database"
)

const (
	// DefaultMaxStatementSize is the default maximum statement length (1MB).
	DefaultMaxStatementSize = 1024 * 1024
)

// ValidateStatement checks a statement before it is sent to the database.
// A maxSize of zero disables the size check. Syntax validation is left to
// the database engine, whose diagnostics are reported verbatim.
func ValidateStatement(sql string, maxSize int) error {
	if strings.TrimSpace(sql) == "" {
		return database.NewError(database.ErrorCodeInvalidSQL, "statement is empty")
	}

	if maxSize > 0 && len(sql) > maxSize {
		return database.NewError(
			database.ErrorCodeQueryTooLarge,
			fmt.Sprintf("statement is %d bytes, exceeding the maximum allowed size of %d bytes", len(sql), maxSize),
		)
	}

	return nil
}
