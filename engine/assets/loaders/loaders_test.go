package loaders

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

const sceneSource = `
[camera]
position = [0.0, 2.0, 6.0]
target = [0.0, 0.0, 0.0]

[[texture]]
name = "checker"
color = [1.0, 0.0, 0.0, 1.0]
size = 2

[[material]]
name = "red"
albedo = "checker"
roughness = 0.4

[[prim]]
name = "box"
shape = "cube"
material = "red"
position = [1.0, 0.0, 0.0]

[[prim]]
shape = "plane"
size = [10.0, 10.0, 0.0]
segments = [4, 4]

[[light]]
type = "directional"
direction = [0.0, -1.0, 0.0]
`

func TestParseSceneFile(t *testing.T) {
	sf, err := ParseSceneFile(strings.NewReader(sceneSource))
	require.NoError(t, err)

	require.Len(t, sf.Textures, 1)
	require.Len(t, sf.Materials, 1)
	require.Len(t, sf.Prims, 2)
	require.Len(t, sf.Lights, 1)
	require.NotNil(t, sf.Camera)

	assert.Equal(t, float32(45), sf.Camera.Fov)
	assert.Equal(t, [3]float32{1, 1, 1}, sf.Materials[0].Color)
	assert.Equal(t, [3]float32{1, 1, 1}, sf.Prims[0].Scale)
	assert.Equal(t, ShapePlane, sf.Prims[1].Shape)
	assert.True(t, strings.HasPrefix(sf.Prims[1].Name, "prim-"))
	assert.True(t, strings.HasPrefix(sf.Lights[0].Name, "light-"))
	assert.Equal(t, float32(1), sf.Lights[0].Intensity)
}

func TestParseSceneFileRejects(t *testing.T) {
	cases := map[string]string{
		"unknown texture":  "[[material]]\nname = \"m\"\nalbedo = \"nope\"\n",
		"unknown material": "[[prim]]\nmaterial = \"nope\"\n",
		"unknown shape":    "[[prim]]\nshape = \"torus\"\n",
		"duplicate prim":   "[[prim]]\nname = \"a\"\n[[prim]]\nname = \"a\"\n",
		"light type":       "[[light]]\ntype = \"area\"\n",
		"camera":           "[camera]\nposition = [1.0, 1.0, 1.0]\ntarget = [1.0, 1.0, 1.0]\n",
	}
	for name, src := range cases {
		_, err := ParseSceneFile(strings.NewReader(src))
		assert.True(t, errors.Is(err, ErrInvalidSceneFile), name)
	}

	_, err := ParseSceneFile(strings.NewReader("[[prim]]\ncolour = 1\n"))
	assert.Error(t, err)
}

func TestSolidTexture(t *testing.T) {
	tex := SolidTexture(2, [4]float32{1, 0.5, 0, 2})
	assert.Equal(t, uint32(2), tex.Width)
	require.Len(t, tex.Pixels, 16)
	assert.Equal(t, []byte{255, 128, 0, 255}, tex.Pixels[:4])
	assert.Equal(t, tex.Pixels[:4], tex.Pixels[12:])
}

func writeBMP(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tex.bmp")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, bmp.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestLoadTexture(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 3))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 2, color.NRGBA{B: 255, A: 255})

	tex, err := LoadTexture(writeBMP(t, img), 0, false)
	require.NoError(t, err)
	assert.Equal(t, "bmp", tex.Format)
	assert.Equal(t, uint32(2), tex.Width)
	assert.Equal(t, uint32(3), tex.Height)
	assert.Equal(t, []byte{255, 0, 0, 255}, tex.Pixels[0:4])
	last := len(tex.Pixels) - 4
	assert.Equal(t, []byte{0, 0, 255, 255}, tex.Pixels[last:])

	flipped, err := LoadTexture(writeBMP(t, img), 0, true)
	require.NoError(t, err)
	// Row 2 is now row 0.
	assert.Equal(t, []byte{0, 0, 255, 255}, flipped.Pixels[4:8])

	_, err = LoadTexture(filepath.Join(t.TempDir(), "missing.png"), 0, false)
	assert.Error(t, err)
}

func TestFromImageDownscales(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 16))
	tex := FromImage(img, 32, false)
	assert.Equal(t, uint32(32), tex.Width)
	assert.Equal(t, uint32(8), tex.Height)
	assert.Len(t, tex.Pixels, 32*8*4)
}
