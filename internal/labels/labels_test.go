package labels

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLabels(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSkipsBlankLines(t *testing.T) {
	path := writeLabels(t, "\xef\xbb\xbfKawung\n\n  Parang \r\nMega Mendung\n")

	l, err := Load(path, "Batik Pattern")
	require.NoError(t, err)

	assert.Equal(t, []string{"Kawung", "Parang", "Mega Mendung"}, l.Names())
	assert.Equal(t, 3, l.Len())
	assert.False(t, l.Generated())
	assert.Equal(t, path, l.Source())
}

func TestLoadEmptyFile(t *testing.T) {
	_, err := Load(writeLabels(t, "\n\n"), "Class")
	assert.Error(t, err)
}

func TestLoadOrGenerateFallsBack(t *testing.T) {
	l, err := LoadOrGenerate(filepath.Join(t.TempDir(), "missing.txt"), 60, "Batik Pattern")

	assert.Error(t, err)
	require.NotNil(t, l)
	assert.True(t, l.Generated())
	assert.Equal(t, 60, l.Len())
	assert.Equal(t, "Batik Pattern 1", l.Name(0))
	assert.Equal(t, "Batik Pattern 60", l.Name(59))
}

func TestNameOutOfRange(t *testing.T) {
	l := New([]string{"a", "b"}, "Class")

	assert.Equal(t, "b", l.Name(1))
	assert.Equal(t, "Class 3", l.Name(2))
	assert.Equal(t, "Class 100", l.Name(99))
}

func TestNamesReturnsCopy(t *testing.T) {
	l := New([]string{"a"}, "Class")
	names := l.Names()
	names[0] = "mutated"

	assert.Equal(t, "a", l.Name(0))
}
