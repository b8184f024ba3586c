package runner

import (
	"errors"
	"fmt"

	"github.com/vibesql/queryrunner/internal/query"
)

var (
	// ErrNoStatements is returned when the input holds nothing to execute.
	ErrNoStatements = errors.New("no executable statements found")

	// ErrOutputUnavailable is returned when the output directory cannot be created.
	ErrOutputUnavailable = errors.New("output directory unavailable")
)

// ExecutionError is a statement rejected by the database (or refused before
// being sent). Message is the diagnostic text, verbatim.
type ExecutionError struct {
	Statement query.Statement
	Code      string
	Message   string
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("statement %d failed: %s", e.Statement.Index, e.Message)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
