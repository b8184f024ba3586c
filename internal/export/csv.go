// Package export persists statement results as CSV files.
package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/vibesql/queryrunner/internal/query"
)

// WriteError reports a failure to persist a result. Nothing is left at Path
// when it is returned.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// WriteCSV writes result to path as UTF-8 CSV with a header row and returns
// the number of data rows written. The file is assembled under a temporary
// name in the same directory and renamed into place once complete.
func WriteCSV(result *query.ExecutionResult, path string) (int, error) {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, &WriteError{Path: path, Err: err}
	}

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	count, err := encode(tmp, result)
	if err != nil {
		return 0, &WriteError{Path: path, Err: err}
	}

	err = tmp.Sync()
	if err != nil {
		return 0, &WriteError{Path: path, Err: err}
	}

	err = tmp.Close()
	if err != nil {
		return 0, &WriteError{Path: path, Err: err}
	}

	// CreateTemp uses 0600, match what os.Create would have produced.
	err = os.Chmod(tmp.Name(), 0o644)
	if err != nil {
		return 0, &WriteError{Path: path, Err: err}
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		return 0, &WriteError{Path: path, Err: err}
	}

	success = true

	return count, nil
}

func encode(f *os.File, result *query.ExecutionResult) (int, error) {
	buf := bufio.NewWriter(f)
	w := csv.NewWriter(buf)

	err := w.Write(result.Columns)
	if err != nil {
		return 0, err
	}

	record := make([]string, len(result.Columns))
	for i, row := range result.Rows {
		if len(row) != len(result.Columns) {
			return 0, fmt.Errorf("row %d has %d values for %d columns", i+1, len(row), len(result.Columns))
		}

		for j, value := range row {
			record[j] = FormatValue(value)
		}

		err = w.Write(record)
		if err != nil {
			return 0, err
		}
	}

	w.Flush()
	err = w.Error()
	if err != nil {
		return 0, err
	}

	err = buf.Flush()
	if err != nil {
		return 0, err
	}

	return len(result.Rows), nil
}

// FormatValue renders a scalar database value as a CSV field. NULL becomes
// an empty field.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case time.Time:
		if v.Nanosecond() != 0 {
			return v.Format("2006-01-02 15:04:05.999999")
		}

		return v.Format(time.DateTime)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
