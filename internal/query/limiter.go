package query

import (
	"fmt"

	"github.com/vibesql/queryrunner/internal/database"
)

// CheckRowLimit fails once a result grows past maxRows. Zero means unlimited.
func CheckRowLimit(currentRowCount int, maxRows int) error {
	if maxRows > 0 && currentRowCount >= maxRows {
		return database.NewError(
			database.ErrorCodeResultTooLarge,
			fmt.Sprintf("query returned more than the maximum allowed %d rows", maxRows),
		)
	}

	return nil
}
