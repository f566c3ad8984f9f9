package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "up"), filepath.Join(dir, "out"))
	require.NoError(t, err)

	for _, d := range []string{store.UploadDir, store.OutputDir} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestReadCSV(t *testing.T) {
	dir := t.TempDir()

	t.Run("header and rows", func(t *testing.T) {
		path := filepath.Join(dir, "ok.csv")
		require.NoError(t, os.WriteFile(path, []byte("user_id,amount\nu1,10.50\nu2,20\n"), 0o644))

		header, rows, err := ReadCSV(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"user_id", "amount"}, header)
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"u1", "10.50"}, rows[0])
	})

	t.Run("ragged rows tolerated", func(t *testing.T) {
		path := filepath.Join(dir, "ragged.csv")
		require.NoError(t, os.WriteFile(path, []byte("a,b,c\n1,2\n3,4,5,6\n"), 0o644))

		_, rows, err := ReadCSV(path)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
		assert.Len(t, rows[0], 2)
		assert.Len(t, rows[1], 4)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.csv")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		_, _, err := ReadCSV(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := ReadCSV(filepath.Join(dir, "nope.csv"))
		assert.Error(t, err)
	})
}

func TestOutputPathRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "up"), filepath.Join(dir, "out"))
	require.NoError(t, err)

	path, err := store.OutputPath("run_risk_light.png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, store.OutputDir))

	for _, bad := range []string{"../escape.png", "a/b.png", "..", "."} {
		_, err := store.OutputPath(bad)
		assert.Error(t, err, "filename %q should be rejected", bad)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"transactions.csv", "transactions.csv"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\x\data.csv`, "data.csv"},
		{"my file (1).csv", "my_file__1_.csv"},
		{"", "upload.csv"},
		{"..", "upload.csv"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), "input %q", tt.in)
	}
}

func TestNewRunIDUnique(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
