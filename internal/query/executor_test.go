package query

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/vibesql/queryrunner/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	// Every connection to :memory: is its own database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, email TEXT, score REAL);
		INSERT INTO users (id, name, email, score) VALUES
			(1, 'alice', 'alice@example.com', 9.5),
			(2, 'bob', NULL, 7.25),
			(3, 'carol, jr', 'carol@example.com', NULL);
	`)
	require.NoError(t, err)

	return db
}

func TestNewExecutor(t *testing.T) {
	executor := NewExecutor(nil)
	require.NotNil(t, executor)
	assert.Nil(t, executor.db)
	assert.Zero(t, executor.timeout)
	assert.Zero(t, executor.maxRows)

	executor = NewExecutor(nil, WithTimeout(5*time.Second), WithMaxRows(10))
	assert.Equal(t, 5*time.Second, executor.timeout)
	assert.Equal(t, 10, executor.maxRows)
}

func TestExecutor_Execute_Select(t *testing.T) {
	executor := NewExecutor(setupTestDB(t))

	result, err := executor.Execute(context.Background(), "SELECT id, name, email FROM users ORDER BY id")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "email"}, result.Columns)
	assert.Equal(t, 3, result.RowCount)
	require.Len(t, result.Rows, 3)
	assert.Equal(t, []any{int64(1), "alice", "alice@example.com"}, result.Rows[0])
	assert.Equal(t, []any{int64(2), "bob", nil}, result.Rows[1])
	assert.Positive(t, result.ExecutionTime)
}

func TestExecutor_Execute_RowsAlignedWithColumns(t *testing.T) {
	executor := NewExecutor(setupTestDB(t))

	result, err := executor.Execute(context.Background(), "SELECT * FROM users")
	require.NoError(t, err)

	for _, row := range result.Rows {
		assert.Len(t, row, len(result.Columns))
	}
}

func TestExecutor_Execute_EmptyResult(t *testing.T) {
	executor := NewExecutor(setupTestDB(t))

	result, err := executor.Execute(context.Background(), "SELECT id, name FROM users WHERE id > 100")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name"}, result.Columns)
	assert.Empty(t, result.Rows)
	assert.Zero(t, result.RowCount)
}

func TestExecutor_Execute_Statements(t *testing.T) {
	executor := NewExecutor(setupTestDB(t))
	ctx := context.Background()

	result, err := executor.Execute(ctx, "CREATE TABLE audit (id INTEGER, note TEXT)")
	require.NoError(t, err)
	assert.Empty(t, result.Columns)
	assert.Empty(t, result.Rows)
	assert.Zero(t, result.RowCount)

	result, err = executor.Execute(ctx, "INSERT INTO audit VALUES (1, 'a'), (2, 'b')")
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.RowsAffected)
	assert.Equal(t, 2, result.RowCount)

	result, err = executor.Execute(ctx, "UPDATE users SET score = 0 WHERE id < 3")
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount)

	// sqlite keeps reporting the last data change for schema statements.
	result, err = executor.Execute(ctx, "CREATE INDEX audit_id ON audit (id)")
	require.NoError(t, err)
	assert.Zero(t, result.RowsAffected)
	assert.Zero(t, result.RowCount)

	result, err = executor.Execute(ctx, "DROP TABLE audit")
	require.NoError(t, err)
	assert.Zero(t, result.RowCount)
}

func TestExecutor_Execute_UnlistedStatementKeepsRows(t *testing.T) {
	executor := NewExecutor(setupTestDB(t))

	result, err := executor.Execute(context.Background(), "PRAGMA table_info(users)")
	require.NoError(t, err)

	assert.Contains(t, result.Columns, "name")
	assert.NotEmpty(t, result.Rows)
	assert.Equal(t, len(result.Rows), result.RowCount)
}

func TestExecutor_Execute_Returning(t *testing.T) {
	executor := NewExecutor(setupTestDB(t))

	result, err := executor.Execute(context.Background(), "INSERT INTO users (id, name) VALUES (4, 'dave') RETURNING id, name")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name"}, result.Columns)
	assert.Equal(t, [][]any{{int64(4), "dave"}}, result.Rows)
}

func TestExecutor_Execute_InvalidSQL(t *testing.T) {
	executor := NewExecutor(setupTestDB(t))

	tests := []struct {
		name string
		sql  string
	}{
		{name: "missing table", sql: "SELECT * FROM nonexistent"},
		{name: "syntax error", sql: "SELEC 1"},
		{name: "missing column", sql: "SELECT nope FROM users"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := executor.Execute(context.Background(), tt.sql)
			assert.Nil(t, result)

			var dbErr *database.Error
			require.ErrorAs(t, err, &dbErr)
			assert.Equal(t, database.ErrorCodeInvalidSQL, dbErr.Code)
			assert.NotEmpty(t, dbErr.Message)
		})
	}
}

func TestExecutor_Execute_ResultTooLarge(t *testing.T) {
	executor := NewExecutor(setupTestDB(t), WithMaxRows(2))

	_, err := executor.Execute(context.Background(), "SELECT * FROM users")

	var dbErr *database.Error
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, database.ErrorCodeResultTooLarge, dbErr.Code)
}

func TestExecutor_Execute_ExactlyMaxRows(t *testing.T) {
	executor := NewExecutor(setupTestDB(t), WithMaxRows(3))

	result, err := executor.Execute(context.Background(), "SELECT * FROM users")
	require.NoError(t, err)
	assert.Equal(t, 3, result.RowCount)
}

func TestExecutor_Execute_Canceled(t *testing.T) {
	executor := NewExecutor(setupTestDB(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := executor.Execute(ctx, "SELECT 1")

	var dbErr *database.Error
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, database.ErrorCodeCanceled, dbErr.Code)
}

type blockingQueryer struct{}

func (blockingQueryer) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, errors.New("not implemented")
}

func (blockingQueryer) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestExecutor_Execute_Timeout(t *testing.T) {
	executor := NewExecutor(blockingQueryer{}, WithTimeout(20*time.Millisecond))

	startTime := time.Now()
	_, err := executor.Execute(context.Background(), "DELETE FROM slow WHERE 1=1")
	elapsed := time.Since(startTime)

	var dbErr *database.Error
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, database.ErrorCodeQueryTimeout, dbErr.Code)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, elapsed, 5*time.Second)
}

func TestReturnsRows(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{sql: "SELECT 1", want: true},
		{sql: "select * from t", want: true},
		{sql: "  (SELECT 1) UNION (SELECT 2)", want: true},
		{sql: "WITH x AS (SELECT 1) SELECT * FROM x", want: true},
		{sql: "SHOW TABLES", want: true},
		{sql: "DESC users", want: true},
		{sql: "EXPLAIN SELECT 1", want: true},
		{sql: "PRAGMA table_info(users)", want: true},
		{sql: "VALUES (1), (2)", want: true},
		{sql: "SELECT\n1", want: true},
		{sql: "INSERT INTO t VALUES (1) RETURNING id", want: true},
		{sql: "INSERT INTO t VALUES ('RETURNING')", want: false},
		{sql: "INSERT INTO t VALUES (1)", want: false},
		{sql: "UPDATE t SET a = 1 WHERE id = 2", want: false},
		{sql: "CREATE TABLE selections (id INT)", want: false},
		{sql: "SELECTED", want: true},
		{sql: "CHECK TABLE orders", want: true},
		{sql: "ANALYZE TABLE orders", want: true},
		{sql: "EXECUTE report_stmt", want: true},
		{sql: "FETCH ALL FROM cur", want: true},
		{sql: "HANDLER t READ FIRST", want: true},
		{sql: "CALL monthly_report()", want: true},
		{sql: "DELETE FROM t WHERE id = 1 RETURNING *", want: true},
		{sql: "DROP TABLE t", want: false},
		{sql: "USE reports", want: false},
		{sql: "SET NAMES utf8mb4", want: false},
		{sql: "TRUNCATE TABLE t", want: false},
		{sql: "GRANT SELECT ON t TO bob", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			assert.Equal(t, tt.want, ReturnsRows(tt.sql))
		})
	}
}
