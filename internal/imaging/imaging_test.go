package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/gmsas95/idscan/internal/errors"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func TestDecodeBytes_PNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(40, 20)))

	img, format, err := DecodeBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 40, img.Bounds().Dx())
}

func TestDecodeBytes_Garbage(t *testing.T) {
	_, _, err := DecodeBytes([]byte("not an image"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrImageUnreadable.Code, apperrors.GetCode(err))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card.png")
	data, err := EncodePNG(testImage(30, 10))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	img, info, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, info.Width)
	assert.Equal(t, 10, info.Height)
	assert.Equal(t, "png", info.Format)
	assert.Equal(t, int64(len(data)), info.Size)
	assert.NotNil(t, img)

	_, _, err = Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.True(t, apperrors.IsAppError(err))
}

func TestResizeToWidth(t *testing.T) {
	img := testImage(1600, 1000)
	out := ResizeToWidth(img, 800)
	assert.Equal(t, 800, out.Bounds().Dx())
	assert.Equal(t, 500, out.Bounds().Dy())

	small := testImage(400, 300)
	up := ResizeToWidth(small, 800)
	assert.Equal(t, 600, up.Bounds().Dy())

	same := ResizeToWidth(img, 1600)
	assert.Same(t, img, same)
}

func TestGrayAndScale(t *testing.T) {
	g := Gray(testImage(100, 50))
	assert.Equal(t, image.Rect(0, 0, 100, 50), g.Bounds())

	half := ScaleGray(g, 0.5)
	assert.Equal(t, image.Rect(0, 0, 50, 25), half.Bounds())
}

func TestCrop(t *testing.T) {
	img := testImage(100, 50)
	out := Crop(img, image.Rect(10, 10, 200, 30))
	assert.Equal(t, image.Rect(0, 0, 90, 20), out.Bounds())

	r, g, _, _ := out.At(0, 0).RGBA()
	assert.Equal(t, uint32(10), r>>8)
	assert.Equal(t, uint32(10), g>>8)
}
