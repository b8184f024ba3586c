// Package sqlfile locates and loads SQL input files.
package sqlfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/fvbommel/sortorder"
)

// Extension is the suffix used to discover SQL files.
const Extension = ".sql"

// ErrNotFound is returned when discovery finds no SQL file.
var ErrNotFound = errors.New("no SQL files found")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Find returns the SQL files in dir, in natural order (query2.sql before query10.sql).
func Find(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	names := []string{}
	for _, entry := range entries {
		if !entry.Type().IsRegular() && entry.Type()&os.ModeSymlink == 0 {
			continue
		}

		if strings.EqualFold(filepath.Ext(entry.Name()), Extension) {
			names = append(names, entry.Name())
		}
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNotFound, dir)
	}

	slices.SortFunc(names, func(a, b string) int {
		switch {
		case sortorder.NaturalLess(a, b):
			return -1
		case sortorder.NaturalLess(b, a):
			return 1
		default:
			return 0
		}
	})

	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, filepath.Join(dir, name))
	}

	return paths, nil
}

// Read loads a UTF-8 SQL file, dropping a leading byte order mark.
func Read(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("SQL file not found: %s", path)
		}

		return "", err
	}

	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("SQL file %s is not a regular file", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	content = bytes.TrimPrefix(content, utf8BOM)

	if !utf8.Valid(content) {
		return "", fmt.Errorf("SQL file %s is not valid UTF-8", path)
	}

	return string(content), nil
}
