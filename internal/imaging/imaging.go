// Package imaging decodes document photos and performs the geometry-only
// transforms used before OCR: resize, crop and grayscale conversion.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format
	_ "image/jpeg" // Register JPEG format
	"image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"  // Register BMP format
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // Register TIFF format
	_ "golang.org/x/image/webp" // Register WebP format

	apperrors "github.com/gmsas95/idscan/internal/errors"
)

// ImageInfo describes a decoded image
type ImageInfo struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	Size   int64  `json:"size"`
}

// Decode reads any registered image format
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", apperrors.Wrap(err, apperrors.ErrImageUnreadable.Code, "failed to decode image")
	}
	return img, format, nil
}

// DecodeBytes decodes an in-memory image
func DecodeBytes(data []byte) (image.Image, string, error) {
	return Decode(bytes.NewReader(data))
}

// Load decodes the image at path
func Load(path string) (image.Image, *ImageInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrImageUnreadable.Code, "failed to open image")
	}
	defer file.Close()

	img, format, err := Decode(file)
	if err != nil {
		return nil, nil, err
	}

	stat, err := file.Stat()
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrImageUnreadable.Code, "failed to stat image")
	}

	bounds := img.Bounds()
	return img, &ImageInfo{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: format,
		Size:   stat.Size(),
	}, nil
}

// ResizeToWidth scales img to width pixels keeping the aspect ratio.
// Images already at that width are returned unchanged.
func ResizeToWidth(img image.Image, width int) image.Image {
	b := img.Bounds()
	if width <= 0 || b.Dx() == 0 || b.Dx() == width {
		return img
	}
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// ScaleGray scales a grayscale image by factor with bilinear sampling
func ScaleGray(src *image.Gray, factor float64) *image.Gray {
	b := src.Bounds()
	w := int(float64(b.Dx()) * factor)
	h := int(float64(b.Dy()) * factor)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// Gray converts img to 8-bit grayscale with origin (0,0)
func Gray(img image.Image) *image.Gray {
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok && b.Min == (image.Point{}) {
		return g
	}
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Crop copies the part of img inside r
func Crop(img image.Image, r image.Rectangle) image.Image {
	r = r.Intersect(img.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// EncodePNG renders img as PNG, the lossless format handed to OCR engines
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
