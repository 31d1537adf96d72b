package glblendaux

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"golang.org/x/image/draw"
)

// ToNRGBA returns img as a non-premultiplied RGBA image with its origin at (0,0).
// An *image.NRGBA already at the origin is returned as is.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return dst
}

// Resize scales img to width×height with bilinear interpolation.
func Resize(img image.Image, width, height int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Rect, img, img.Bounds(), draw.Src, nil)
	return dst
}

// ReadPNGFile decodes the PNG file with said filename as a layer image.
func ReadPNGFile(filename string) (*image.NRGBA, error) {
	fp, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	img, err := png.Decode(fp)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filename, err)
	}
	return ToNRGBA(img), nil
}

// WritePNGFile saves img to a PNG file with said filename.
func WritePNGFile(filename string, img image.Image) error {
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	err = png.Encode(fp, img)
	if err != nil {
		return err
	}
	return fp.Sync()
}
