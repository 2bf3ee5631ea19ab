package boundary

import (
	"context"
	"database/sql"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
)

func gpkgBlob(t *testing.T, g geom.T, envelope bool) []byte {
	t.Helper()
	body, err := wkb.Marshal(g, wkb.NDR)
	require.NoError(t, err)

	header := make([]byte, 8)
	header[0], header[1] = 'G', 'P'
	header[3] = 0x01
	binary.LittleEndian.PutUint32(header[4:], 27700)
	if envelope {
		header[3] |= 1 << 1
		header = append(header, make([]byte, 32)...)
	}
	return append(header, body...)
}

func writeGeoPackage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wards.gpkg")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	_, err = db.Exec(`
		CREATE TABLE gpkg_contents (table_name TEXT PRIMARY KEY, data_type TEXT NOT NULL);
		CREATE TABLE gpkg_geometry_columns (table_name TEXT NOT NULL, column_name TEXT NOT NULL);
		CREATE TABLE wards (fid INTEGER PRIMARY KEY, WD24CD TEXT, WD24NM TEXT, shape BLOB);
		INSERT INTO gpkg_contents VALUES ('wards', 'features');
		INSERT INTO gpkg_geometry_columns VALUES ('wards', 'shape');
	`)
	require.NoError(t, err)

	square := geom.NewPolygonFlat(geom.XY, []float64{0, 0, 10, 0, 10, 10, 0, 10, 0, 0}, []int{10})
	multi := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, multi.Push(square))
	point := geom.NewPointFlat(geom.XY, []float64{1, 1})

	for _, row := range []struct {
		code, name string
		blob       []byte
	}{
		{"E05000001", "Aldersgate", gpkgBlob(t, square, false)},
		{"E05000002", "Aldgate", gpkgBlob(t, multi, true)},
		{"E05000003", "Point Ward", gpkgBlob(t, point, false)},
	} {
		_, err := db.Exec(`INSERT INTO wards (WD24CD, WD24NM, shape) VALUES (?, ?, ?)`, row.code, row.name, row.blob)
		require.NoError(t, err)
	}
	return path
}

func TestReadGeoPackage(t *testing.T) {
	path := writeGeoPackage(t)

	for _, layer := range []string{"wards", ""} {
		regions, err := ReadGeoPackage(context.Background(), path, layer, []string{"WD24CD", "WD24NM"})
		require.NoError(t, err)
		require.Len(t, regions, 2, "points are skipped")
		assert.Equal(t, "E05000001 Aldersgate", regions[0].Name)
		assert.Equal(t, "E05000002 Aldgate", regions[1].Name)
		assert.InDelta(t, 100, regions[0].Geometry.Area(), 1e-9)
		assert.InDelta(t, 100, regions[1].Geometry.Area(), 1e-9)
	}
}

func TestReadGeoPackage_UnknownLayer(t *testing.T) {
	_, err := ReadGeoPackage(context.Background(), writeGeoPackage(t), "parishes", []string{"WD24CD"})
	assert.Error(t, err)
}

func TestDecodeGeoPackageGeometry(t *testing.T) {
	_, err := decodeGeoPackageGeometry([]byte("nope"))
	assert.Error(t, err)

	empty := []byte{'G', 'P', 0, 0x01 | 0x10, 0, 0, 0, 0}
	mp, err := decodeGeoPackageGeometry(empty)
	require.NoError(t, err)
	assert.Nil(t, mp)

	bad := []byte{'G', 'P', 0, 0x0F, 0, 0, 0, 0}
	_, err = decodeGeoPackageGeometry(bad)
	assert.Error(t, err)
}
