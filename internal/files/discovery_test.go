package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string, mod time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	require.NoError(t, os.Chtimes(path, mod, mod))
	return path
}

func TestFindWorkbooks(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		expected []string
	}{
		{
			name:     "only workbooks",
			files:    []string{"a.xlsx", "b.XLSX"},
			expected: []string{"a.xlsx", "b.XLSX"},
		},
		{
			name:     "mixed file types",
			files:    []string{"prices.xlsx", "prices.csv", "notes.txt", "old.xls"},
			expected: []string{"prices.xlsx"},
		},
		{
			name:     "lock files are skipped",
			files:    []string{"~$prices.xlsx", "prices.xlsx"},
			expected: []string{"prices.xlsx"},
		},
		{
			name:     "empty directory",
			files:    nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			base := time.Now().Add(-time.Hour)
			for i, f := range tt.files {
				touch(t, dir, f, base.Add(time.Duration(i)*time.Minute))
			}

			found, err := NewDiscovery("").FindWorkbooks(dir)
			require.NoError(t, err)

			var names []string
			for _, f := range found {
				names = append(names, f.Name)
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestResolveWorkbook(t *testing.T) {
	t.Run("file path is returned unchanged", func(t *testing.T) {
		dir := t.TempDir()
		path := touch(t, dir, "prices.xlsx", time.Now())

		got, err := NewDiscovery("").ResolveWorkbook(path)
		require.NoError(t, err)
		assert.Equal(t, path, got)
	})

	t.Run("missing path is returned for later validation", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "absent.xlsx")

		got, err := NewDiscovery("").ResolveWorkbook(path)
		require.NoError(t, err)
		assert.Equal(t, path, got)
	})

	t.Run("relative path joins base", func(t *testing.T) {
		base := t.TempDir()
		touch(t, base, "prices.xlsx", time.Now())

		got, err := NewDiscovery(base).ResolveWorkbook("prices.xlsx")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(base, "prices.xlsx"), got)
	})

	t.Run("directory resolves to newest workbook", func(t *testing.T) {
		dir := t.TempDir()
		now := time.Now()
		touch(t, dir, "2023.xlsx", now.Add(-2*time.Hour))
		newest := touch(t, dir, "2024.xlsx", now.Add(-time.Hour))
		touch(t, dir, "2025.csv", now)

		got, err := NewDiscovery("").ResolveWorkbook(dir)
		require.NoError(t, err)
		assert.Equal(t, newest, got)
	})

	t.Run("directory without workbook", func(t *testing.T) {
		_, err := NewDiscovery("").ResolveWorkbook(t.TempDir())
		assert.ErrorIs(t, err, ErrNoWorkbook)
	})
}

func TestGetLatestFile(t *testing.T) {
	now := time.Now()
	files := []FileInfo{
		{Name: "a", ModTime: now.Add(-time.Hour)},
		{Name: "b", ModTime: now},
		{Name: "c", ModTime: now.Add(-2 * time.Hour)},
	}

	latest, ok := GetLatestFile(files)
	assert.True(t, ok)
	assert.Equal(t, "b", latest.Name)

	_, ok = GetLatestFile(nil)
	assert.False(t, ok)
}
