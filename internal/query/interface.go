package query

import (
	"context"
)

// QueryExecutor defines the interface for executing SQL statements
type QueryExecutor interface {
	Execute(ctx context.Context, sql string) (*ExecutionResult, error)
}

// Ensure Executor implements QueryExecutor
var _ QueryExecutor = (*Executor)(nil)
