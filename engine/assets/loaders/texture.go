package loaders

import (
	"bufio"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/onyx/engine/math"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxTextureSize bounds the larger side of loaded textures.
const DefaultMaxTextureSize = 4096

// TextureData is decoded RGBA8 pixel data.
type TextureData struct {
	Width, Height uint32
	Pixels        []byte
	// Format is the name of the decoder that read the file.
	Format string
}

// LoadTexture decodes a png, jpeg, bmp, tiff or webp file. Images larger
// than maxSize on either side are scaled down, keeping the aspect ratio.
func LoadTexture(path string, maxSize int, flipY bool) (*TextureData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening texture %s", path)
	}
	defer f.Close()

	img, format, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "decoding texture %s", path)
	}
	tex := FromImage(img, maxSize, flipY)
	tex.Format = format
	return tex, nil
}

// FromImage converts img to tightly packed RGBA8.
func FromImage(img image.Image, maxSize int, flipY bool) *TextureData {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSize > 0 && (w > maxSize || h > maxSize) {
		if w >= h {
			w, h = maxSize, max(h*maxSize/w, 1)
		} else {
			w, h = max(w*maxSize/h, 1), maxSize
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	}

	if flipY {
		row := make([]byte, dst.Stride)
		for y := 0; y < h/2; y++ {
			top := dst.Pix[y*dst.Stride : (y+1)*dst.Stride]
			bottom := dst.Pix[(h-1-y)*dst.Stride : (h-y)*dst.Stride]
			copy(row, top)
			copy(top, bottom)
			copy(bottom, row)
		}
	}

	return &TextureData{Width: uint32(w), Height: uint32(h), Pixels: dst.Pix}
}

// SolidTexture returns a size x size texture filled with one colour.
func SolidTexture(size uint32, rgba [4]float32) *TextureData {
	if size == 0 {
		size = 1
	}
	texel := [4]byte{}
	for i, c := range rgba {
		texel[i] = byte(math.Clamp(c, 0, 1)*255 + 0.5)
	}
	pixels := make([]byte, 0, size*size*4)
	for i := uint32(0); i < size*size; i++ {
		pixels = append(pixels, texel[:]...)
	}
	return &TextureData{Width: size, Height: size, Pixels: pixels, Format: "solid"}
}
