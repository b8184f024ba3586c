package database

import (
	"context"
	"database/sql/driver"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Error codes used to classify driver failures.
const (
	ErrorCodeInvalidSQL          = "INVALID_SQL"
	ErrorCodePermissionDenied    = "PERMISSION_DENIED"
	ErrorCodeConstraintViolation = "CONSTRAINT_VIOLATION"
	ErrorCodeUnsafeQuery         = "UNSAFE_QUERY"
	ErrorCodeQueryTimeout        = "QUERY_TIMEOUT"
	ErrorCodeCanceled            = "CANCELED"
	ErrorCodeQueryTooLarge       = "QUERY_TOO_LARGE"
	ErrorCodeResultTooLarge      = "RESULT_TOO_LARGE"
	ErrorCodeDatabaseUnavailable = "DATABASE_UNAVAILABLE"
	ErrorCodeInternalError       = "INTERNAL_ERROR"
)

// Error is a classified database failure. Message always carries the
// diagnostic text produced by the driver, unmodified.
type Error struct {
	Code     string
	Message  string
	SQLState string
	Err      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new classified error without an underlying driver error.
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// SQLSTATE classes and codes (PostgreSQL and MySQL share the standard ones).
var sqlStateToCode = map[string]string{
	"42501": ErrorCodePermissionDenied, // insufficient_privilege
	"28000": ErrorCodePermissionDenied, // invalid_authorization_specification
	"28P01": ErrorCodePermissionDenied, // invalid_password
	"57014": ErrorCodeQueryTimeout,     // query_canceled
}

var sqlStateClassToCode = map[string]string{
	"42": ErrorCodeInvalidSQL,          // syntax error or access rule violation
	"22": ErrorCodeInvalidSQL,          // data exception
	"23": ErrorCodeConstraintViolation, // integrity constraint violation
	"08": ErrorCodeDatabaseUnavailable, // connection exception
	"53": ErrorCodeDatabaseUnavailable, // insufficient resources
	"57": ErrorCodeDatabaseUnavailable, // operator intervention
	"54": ErrorCodeQueryTooLarge,       // program limit exceeded
}

// MySQL server error numbers.
var mysqlNumberToCode = map[uint16]string{
	1044: ErrorCodePermissionDenied,    // ER_DBACCESS_DENIED_ERROR
	1045: ErrorCodePermissionDenied,    // ER_ACCESS_DENIED_ERROR
	1142: ErrorCodePermissionDenied,    // ER_TABLEACCESS_DENIED_ERROR
	1143: ErrorCodePermissionDenied,    // ER_COLUMNACCESS_DENIED_ERROR
	1227: ErrorCodePermissionDenied,    // ER_SPECIFIC_ACCESS_DENIED_ERROR
	1054: ErrorCodeInvalidSQL,          // ER_BAD_FIELD_ERROR
	1064: ErrorCodeInvalidSQL,          // ER_PARSE_ERROR
	1146: ErrorCodeInvalidSQL,          // ER_NO_SUCH_TABLE
	1048: ErrorCodeConstraintViolation, // ER_BAD_NULL_ERROR
	1062: ErrorCodeConstraintViolation, // ER_DUP_ENTRY
	1451: ErrorCodeConstraintViolation, // ER_ROW_IS_REFERENCED_2
	1452: ErrorCodeConstraintViolation, // ER_NO_REFERENCED_ROW_2
	1317: ErrorCodeQueryTimeout,        // ER_QUERY_INTERRUPTED
	3024: ErrorCodeQueryTimeout,        // ER_QUERY_TIMEOUT
	1040: ErrorCodeDatabaseUnavailable, // ER_CON_COUNT_ERROR
	1153: ErrorCodeQueryTooLarge,       // ER_NET_PACKET_TOO_LARGE
}

// SQLite primary result codes.
var sqliteResultToCode = map[int]string{
	sqlite3.SQLITE_ERROR:      ErrorCodeInvalidSQL,
	sqlite3.SQLITE_PERM:       ErrorCodePermissionDenied,
	sqlite3.SQLITE_AUTH:       ErrorCodePermissionDenied,
	sqlite3.SQLITE_READONLY:   ErrorCodePermissionDenied,
	sqlite3.SQLITE_CONSTRAINT: ErrorCodeConstraintViolation,
	sqlite3.SQLITE_BUSY:       ErrorCodeDatabaseUnavailable,
	sqlite3.SQLITE_LOCKED:     ErrorCodeDatabaseUnavailable,
	sqlite3.SQLITE_CANTOPEN:   ErrorCodeDatabaseUnavailable,
	sqlite3.SQLITE_INTERRUPT:  ErrorCodeQueryTimeout,
	sqlite3.SQLITE_TOOBIG:     ErrorCodeQueryTooLarge,
}

// TranslateError classifies a driver error. The returned error keeps the
// driver's message verbatim and unwraps to the original error.
func TranslateError(err error) *Error {
	if err == nil {
		return nil
	}

	// Check if it's already classified
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return dbErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: ErrorCodeQueryTimeout, Message: err.Error(), Err: err}
	}

	if errors.Is(err, context.Canceled) {
		return &Error{Code: ErrorCodeCanceled, Message: err.Error(), Err: err}
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return &Error{Code: ErrorCodeDatabaseUnavailable, Message: err.Error(), Err: err}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return translatePQError(pqErr, err)
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return translateMySQLError(mysqlErr, err)
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code, found := sqliteResultToCode[sqliteErr.Code()&0xff]
		if !found {
			code = ErrorCodeInternalError
		}

		return &Error{Code: code, Message: err.Error(), Err: err}
	}

	return &Error{Code: ErrorCodeInternalError, Message: err.Error(), Err: err}
}

func translatePQError(pqErr *pq.Error, err error) *Error {
	sqlState := string(pqErr.Code)

	return &Error{
		Code:     codeForSQLState(sqlState),
		Message:  err.Error(),
		SQLState: sqlState,
		Err:      err,
	}
}

func translateMySQLError(mysqlErr *mysql.MySQLError, err error) *Error {
	sqlState := string(mysqlErr.SQLState[:])
	if sqlState == "\x00\x00\x00\x00\x00" {
		sqlState = ""
	}

	code, found := mysqlNumberToCode[mysqlErr.Number]
	if !found {
		code = codeForSQLState(sqlState)
	}

	return &Error{
		Code:     code,
		Message:  err.Error(),
		SQLState: sqlState,
		Err:      err,
	}
}

func codeForSQLState(sqlState string) string {
	if code, found := sqlStateToCode[sqlState]; found {
		return code
	}

	if len(sqlState) == 5 {
		if code, found := sqlStateClassToCode[sqlState[:2]]; found {
			return code
		}
	}

	return ErrorCodeInternalError
}
