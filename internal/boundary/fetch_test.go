package boundary

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestFetch_Archive(t *testing.T) {
	archive := zipArchive(t, map[string]string{
		"Final Recs Shapefiles/region.shp": "shp",
		"Final Recs Shapefiles/region.dbf": "dbf",
	})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	dataDir := t.TempDir()
	src := Source{Name: "wales", URL: srv.URL, Archive: true, Dir: "wales", Path: "Final Recs Shapefiles/region.shp"}

	path, err := Fetch(context.Background(), srv.Client(), dataDir, src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataDir, "wales", "Final Recs Shapefiles", "region.shp"), path)
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "shp", string(body))

	_, err = Fetch(context.Background(), srv.Client(), dataDir, src)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "second fetch reuses the extracted archive")

	leftovers, err := filepath.Glob(filepath.Join(dataDir, "*.zip"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFetch_File(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("gpkg"))
	}))
	defer srv.Close()

	dataDir := t.TempDir()
	src := Source{Name: "wards", URL: srv.URL, Dir: "wards", Path: "wards.gpkg"}

	path, err := Fetch(context.Background(), srv.Client(), dataDir, src)
	require.NoError(t, err)
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "gpkg", string(body))
}

func TestFetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dataDir := t.TempDir()
	src := Source{Name: "wards", URL: srv.URL, Dir: "wards", Path: "wards.gpkg"}

	_, err := Fetch(context.Background(), srv.Client(), dataDir, src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.NoFileExists(t, filepath.Join(dataDir, "wards", "wards.gpkg"))
}

func TestFetch_MissingWithoutURL(t *testing.T) {
	_, err := Fetch(context.Background(), nil, t.TempDir(), Source{Name: "x", Dir: "x", Path: "x.shp"})
	assert.Error(t, err)
}

func TestExtractZIP_RejectsEscape(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	require.NoError(t, os.WriteFile(zipPath, zipArchive(t, map[string]string{"../evil.txt": "x"}), 0o644))

	err := extractZIP(zipPath, filepath.Join(dir, "out"))
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "evil.txt"))
}
