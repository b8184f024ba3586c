package query

import (
	"context"
	"database/sql"
	"slices"
	"strings"
	"time"

	"github.com/vibesql/queryrunner/internal/database"
)

// execKeywords are the leading keywords of statements that never produce a
// result set unless they carry a RETURNING clause. Anything else is run as a
// query so that no rows are lost.
var execKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "REPLACE", "MERGE",
	"CREATE", "ALTER", "DROP", "TRUNCATE", "RENAME", "COMMENT",
	"SET", "USE", "GRANT", "REVOKE", "LOCK", "UNLOCK",
	"BEGIN", "START", "COMMIT", "ROLLBACK", "SAVEPOINT", "RELEASE",
}

// dmlKeywords are the statements whose affected-row count is meaningful.
// Some drivers (sqlite) report the count of the last data change for DDL.
var dmlKeywords = []string{"INSERT", "UPDATE", "DELETE", "REPLACE", "MERGE"}

// Queryer is the narrow database capability the executor needs. Both
// *sql.DB and *sql.Conn satisfy it.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ExecutionResult is a fully buffered statement result. Statements that do
// not return rows have no columns and report RowsAffected instead.
type ExecutionResult struct {
	Columns       []string
	Rows          [][]any
	RowCount      int
	RowsAffected  int64
	ExecutionTime time.Duration
}

// Executor runs statements one at a time against a single database session.
type Executor struct {
	db      Queryer
	timeout time.Duration
	maxRows int
}

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout bounds every statement's execution time. Zero disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(e *Executor) {
		e.timeout = timeout
	}
}

// WithMaxRows fails statements returning more than maxRows rows. Zero disables it.
func WithMaxRows(maxRows int) Option {
	return func(e *Executor) {
		e.maxRows = maxRows
	}
}

func NewExecutor(db Queryer, opts ...Option) *Executor {
	e := &Executor{db: db}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Execute runs sql and buffers its complete result. Errors are returned as
// *database.Error carrying the driver's message.
func (e *Executor) Execute(ctx context.Context, sql string) (*ExecutionResult, error) {
	startTime := time.Now()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var (
		result *ExecutionResult
		err    error
	)

	if ReturnsRows(sql) {
		result, err = e.query(ctx, sql)
	} else {
		result, err = e.exec(ctx, sql)
	}

	if err != nil {
		return nil, database.TranslateError(err)
	}

	result.ExecutionTime = time.Since(startTime)

	return result, nil
}

func (e *Executor) query(ctx context.Context, sql string) (*ExecutionResult, error) {
	rows, err := e.db.QueryContext(ctx, sql)
	if err != nil {
		return nil, err
	}

	defer func() { _ = rows.Close() }()

	return parseRows(rows, e.maxRows)
}

func (e *Executor) exec(ctx context.Context, sql string) (*ExecutionResult, error) {
	res, err := e.db.ExecContext(ctx, sql)
	if err != nil {
		return nil, err
	}

	// Not every driver reports affected rows.
	affected, err := res.RowsAffected()
	if err != nil || affected < 0 || !slices.Contains(dmlKeywords, leadingKeyword(sql)) {
		affected = 0
	}

	return &ExecutionResult{
		Columns:      []string{},
		Rows:         [][]any{},
		RowCount:     int(affected),
		RowsAffected: affected,
	}, nil
}

func parseRows(rows *sql.Rows, maxRows int) (*ExecutionResult, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	results := [][]any{}

	for rows.Next() {
		err := CheckRowLimit(len(results), maxRows)
		if err != nil {
			return nil, err
		}

		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		err = rows.Scan(valuePtrs...)
		if err != nil {
			return nil, err
		}

		for i, val := range values {
			if b, ok := val.([]byte); ok {
				values[i] = string(b)
			}
		}

		results = append(results, values)
	}

	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return &ExecutionResult{
		Columns:  columns,
		Rows:     results,
		RowCount: len(results),
	}, nil
}

// ReturnsRows reports whether a statement has to be run as a query. Only
// statements known to produce no result set, judging by their leading keyword,
// are run as plain executions, and a RETURNING clause always makes a query.
func ReturnsRows(sql string) bool {
	if !slices.Contains(execKeywords, leadingKeyword(sql)) {
		return true
	}

	return hasClause(sql, returningClausePattern)
}

// leadingKeyword returns the first word of a statement in upper case.
func leadingKeyword(sql string) string {
	trimmed := strings.TrimLeft(sql, " \t\r\n(")
	end := strings.IndexFunc(trimmed, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})

	if end < 0 {
		end = len(trimmed)
	}

	return strings.ToUpper(trimmed[:end])
}
