package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateError_NilError(t *testing.T) {
	assert.Nil(t, TranslateError(nil))
}

func TestTranslateError_AlreadyClassified(t *testing.T) {
	original := NewError(ErrorCodeUnsafeQuery, "refusing to run")

	result := TranslateError(fmt.Errorf("wrapped: %w", original))

	assert.Same(t, original, result)
}

func TestTranslateError_PQ(t *testing.T) {
	tests := []struct {
		name     string
		code     pq.ErrorCode
		wantCode string
	}{
		{"syntax error", "42601", ErrorCodeInvalidSQL},
		{"undefined column", "42703", ErrorCodeInvalidSQL},
		{"undefined table", "42P01", ErrorCodeInvalidSQL},
		{"insufficient privilege", "42501", ErrorCodePermissionDenied},
		{"unique violation", "23505", ErrorCodeConstraintViolation},
		{"query canceled", "57014", ErrorCodeQueryTimeout},
		{"admin shutdown", "57P01", ErrorCodeDatabaseUnavailable},
		{"connection failure", "08006", ErrorCodeDatabaseUnavailable},
		{"out of memory", "53200", ErrorCodeDatabaseUnavailable},
		{"statement too complex", "54001", ErrorCodeQueryTooLarge},
		{"unknown class", "XX000", ErrorCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pqErr := &pq.Error{Code: tt.code, Message: "something went wrong"}

			result := TranslateError(pqErr)

			require.NotNil(t, result)
			assert.Equal(t, tt.wantCode, result.Code)
			assert.Equal(t, string(tt.code), result.SQLState)
			assert.Equal(t, pqErr.Error(), result.Error())
			assert.ErrorIs(t, result, pqErr)
		})
	}
}

func TestTranslateError_MySQL(t *testing.T) {
	tests := []struct {
		name     string
		err      *mysql.MySQLError
		wantCode string
	}{
		{
			name:     "parse error",
			err:      &mysql.MySQLError{Number: 1064, SQLState: [5]byte{'4', '2', '0', '0', '0'}, Message: "You have an error in your SQL syntax"},
			wantCode: ErrorCodeInvalidSQL,
		},
		{
			name:     "missing table",
			err:      &mysql.MySQLError{Number: 1146, SQLState: [5]byte{'4', '2', 'S', '0', '2'}, Message: "Table 'shop.nope' doesn't exist"},
			wantCode: ErrorCodeInvalidSQL,
		},
		{
			name:     "table access denied",
			err:      &mysql.MySQLError{Number: 1142, SQLState: [5]byte{'4', '2', '0', '0', '0'}, Message: "SELECT command denied to user"},
			wantCode: ErrorCodePermissionDenied,
		},
		{
			name:     "max execution time",
			err:      &mysql.MySQLError{Number: 3024, Message: "Query execution was interrupted, maximum statement execution time exceeded"},
			wantCode: ErrorCodeQueryTimeout,
		},
		{
			name:     "unknown number falls back to sqlstate",
			err:      &mysql.MySQLError{Number: 9999, SQLState: [5]byte{'2', '3', '0', '0', '0'}, Message: "constraint"},
			wantCode: ErrorCodeConstraintViolation,
		},
		{
			name:     "unknown number without sqlstate",
			err:      &mysql.MySQLError{Number: 9999, Message: "mystery"},
			wantCode: ErrorCodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TranslateError(tt.err)

			require.NotNil(t, result)
			assert.Equal(t, tt.wantCode, result.Code)
			assert.Equal(t, tt.err.Error(), result.Message)
		})
	}
}

func TestTranslateError_Context(t *testing.T) {
	result := TranslateError(fmt.Errorf("query: %w", context.DeadlineExceeded))
	assert.Equal(t, ErrorCodeQueryTimeout, result.Code)
	assert.Equal(t, "query: context deadline exceeded", result.Message)

	result = TranslateError(fmt.Errorf("query: %w", context.Canceled))
	assert.Equal(t, ErrorCodeCanceled, result.Code)
	assert.ErrorIs(t, result, context.Canceled)
}

func TestTranslateError_BadConn(t *testing.T) {
	result := TranslateError(driver.ErrBadConn)
	assert.Equal(t, ErrorCodeDatabaseUnavailable, result.Code)

	result = TranslateError(mysql.ErrInvalidConn)
	assert.Equal(t, ErrorCodeDatabaseUnavailable, result.Code)
}

func TestTranslateError_Unknown(t *testing.T) {
	err := errors.New("driver exploded")

	result := TranslateError(err)

	assert.Equal(t, ErrorCodeInternalError, result.Code)
	assert.Equal(t, "driver exploded", result.Message)
	assert.ErrorIs(t, result, err)
}
