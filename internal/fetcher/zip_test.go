package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestZIP(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bundle.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtractZIP(t *testing.T) {
	zipPath := writeTestZIP(t, map[string]string{
		"parcels/PARCELS.SHP": "shp",
		"parcels/PARCELS.dbf": "dbf",
		"parcels/":            "",
	})
	dest := t.TempDir()

	paths, err := ExtractZIP(zipPath, dest)
	require.NoError(t, err)
	assert.Len(t, paths, 2)

	shp, ok := FindByExt(paths, ".shp")
	require.True(t, ok)
	data, err := os.ReadFile(shp)
	require.NoError(t, err)
	assert.Equal(t, "shp", string(data))

	_, ok = FindByExt(paths, ".prj")
	assert.False(t, ok)
}

func TestExtractZIP_ZipSlip(t *testing.T) {
	zipPath := writeTestZIP(t, map[string]string{"../evil.txt": "x"})
	_, err := ExtractZIP(zipPath, t.TempDir())
	assert.Error(t, err)
}

func TestExtractZIP_NotZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.zip")
	require.NoError(t, writeTestFile(path, "not a zip"))
	_, err := ExtractZIP(path, t.TempDir())
	assert.Error(t, err)
}
