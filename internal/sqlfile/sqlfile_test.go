package sqlfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFind_NaturalOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"report10.sql", "report2.sql", "notes.txt", "Report1.SQL", "report2.sql.bak"} {
		touch(t, filepath.Join(dir, name), "SELECT 1;")
	}

	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.sql"), 0o755))

	paths, err := Find(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "Report1.SQL"),
		filepath.Join(dir, "report2.sql"),
		filepath.Join(dir, "report10.sql"),
	}, paths)
}

func TestFind_None(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "readme.md"), "")

	_, err := Find(dir)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFind_MissingDirectory(t *testing.T) {
	_, err := Find(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "q.sql")
	touch(t, path, "\xEF\xBB\xBFSELECT 'é';")

	content, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 'é';", content)
}

func TestRead_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Read(filepath.Join(dir, "missing.sql"))
	assert.ErrorContains(t, err, "SQL file not found")

	_, err = Read(dir)
	assert.ErrorContains(t, err, "not a regular file")

	bad := filepath.Join(dir, "bad.sql")
	touch(t, bad, "SELECT '\xff';")
	_, err = Read(bad)
	assert.ErrorContains(t, err, "not valid UTF-8")
}
