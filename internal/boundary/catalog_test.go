package boundary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bubble-cli/internal/model"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog(model.RegionConstituencies)
	require.NoError(t, err)
	assert.Equal(t, model.RegionConstituencies, c.RegionType)
	require.Len(t, c.Sources, 3)
	for _, s := range c.Sources {
		assert.True(t, s.Archive)
		assert.Equal(t, FormatShapefile, s.Format)
		assert.Len(t, s.KeyFields, 1)
	}

	c, err = DefaultCatalog(model.RegionWards)
	require.NoError(t, err)
	require.Len(t, c.Sources, 1)
	assert.Equal(t, FormatGeoPackage, c.Sources[0].Format)
	assert.Equal(t, []string{"WD24CD", "WD24NM"}, c.Sources[0].KeyFields)

	_, err = DefaultCatalog("parishes")
	assert.Error(t, err)
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
region_type: wards
sources:
  - name: local
    dir: local
    path: wards.gpkg
    format: gpkg
    layer: wards
    key_fields: [WD24CD, WD24NM]
`), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, model.RegionWards, c.RegionType)
	require.Len(t, c.Sources, 1)
	assert.Equal(t, "wards", c.Sources[0].Layer)
	assert.False(t, c.Sources[0].Archive)
}

func TestLoadCatalog_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "region_type: [unclosed"},
		{"unknown type", "region_type: parishes\n"},
		{"missing key fields", "region_type: wards\nsources:\n  - name: x\n    path: a.shp\n    format: shp\n"},
		{"unknown format", "region_type: wards\nsources:\n  - name: x\n    path: a.kml\n    format: kml\n    key_fields: [N]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))
			_, err := LoadCatalog(path)
			assert.Error(t, err)
		})
	}

	_, err := LoadCatalog(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
