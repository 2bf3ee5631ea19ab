package render

import (
	"bytes"
	"image/jpeg"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/bubble-cli/internal/geometry"
)

func square(size float64) *geom.MultiPolygon {
	return geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{{{
		{0, 0}, {size, 0}, {size, size}, {0, size}, {0, 0},
	}}})
}

func scene(t *testing.T) Scene {
	t.Helper()
	c := geometry.NewCircle(geom.Coord{2000, 2000}, 1500, geometry.DefaultQuadrantSegments)
	return Scene{Title: "Ashfield", Net: 44.4, Region: square(4000), Inclusion: []*geom.Polygon{c}}
}

func TestCaption(t *testing.T) {
	assert.Equal(t, "Coverage: 44%", Scene{Net: 44.4}.Caption())
	assert.Equal(t, "Coverage: 100%", Scene{Net: 99.6}.Caption())
}

func TestDraw(t *testing.T) {
	img, err := Draw(scene(t))
	require.NoError(t, err)
	assert.Equal(t, Width, img.Bounds().Dx())
	assert.Equal(t, Height, img.Bounds().Dy())

	// Right panel centre sits inside the filled bubble.
	panelW := (Width - 3*margin) / 2
	cx := 2*margin + panelW + panelW/2
	cy := header + margin + (Height-header-2*margin)/2
	fillPx := img.RGBAAt(cx, cy)
	assert.Greater(t, int(fillPx.G), int(fillPx.R)+40)
	assert.Less(t, int(fillPx.G), 0xff)

	// Left panel centre is only outlined, so it stays white.
	lx := margin + panelW/2
	leftPx := img.RGBAAt(lx, cy)
	assert.Equal(t, uint8(0xff), leftPx.R)
	assert.Equal(t, uint8(0xff), leftPx.G)

	// Corner is background.
	corner := img.RGBAAt(1, Height-2)
	assert.Equal(t, uint8(0xff), corner.B)
}

func TestDraw_EmptyRegion(t *testing.T) {
	_, err := Draw(Scene{Region: geom.NewMultiPolygon(geom.XY)})
	assert.Error(t, err)
	_, err = Draw(Scene{})
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, scene(t)))

	img, err := jpeg.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, Width, img.Bounds().Dx())
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.jpg")
	require.NoError(t, WriteFile(path, scene(t)))
	assert.FileExists(t, path)

	assert.Error(t, WriteFile(filepath.Join(t.TempDir(), "missing", "a.jpg"), scene(t)))
}
