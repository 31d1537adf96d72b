package glblendaux

import (
	"image"
	"image/color"

	math "github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms1"
)

// HSV interpolation adapted from Esme Lamb's (@dedelala) color manipulation
// work presented at Gophercon AU 2024.
// https://github.com/dedelala/disco/tree/main/color

// GradientLayer returns a width×height layer fading horizontally from c0 to c1.
// Hue, saturation and value are interpolated along the shortest hue path and
// alpha linearly.
func GradientLayer(width, height int, c0, c1 color.Color) *image.NRGBA {
	if width <= 0 || height <= 0 {
		return image.NewNRGBA(image.Rect(0, 0, max(width, 0), max(height, 0)))
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	h0, s0, v0 := colorToHSV(c0)
	h1, s1, v1 := colorToHSV(c1)
	a0, a1 := alpha(c0), alpha(c1)
	row := img.Pix[:img.Stride]
	for x := 0; x < width; x++ {
		var t float32
		if width > 1 {
			t = float32(x) / float32(width-1)
		}
		r, g, b := hsvToRGB(interpHSV(h0, s0, v0, h1, s1, v1, t))
		c := rgbToC(r, g, b)
		copy(row[4*x:], []byte{uint8(c >> 16), uint8(c >> 8), uint8(c), uint8(ms1.Interp(a0, a1, t)*math.MaxUint8 + 0.5)})
	}
	for y := 1; y < height; y++ {
		copy(img.Pix[y*img.Stride:], row)
	}
	return img
}

func alpha(c color.Color) float32 {
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	return float32(nc.A) / math.MaxUint8
}

func interpHSV(h0, s0, v0, h1, s1, v1, t float32) (h, s, v float32) {
	switch {
	case h1-h0 > 0.5:
		h0 += 1.0
	case h1-h0 < -0.5:
		h1 += 1.0
	}
	h = ms1.Interp(h0, h1, t)
	if h > 1 {
		h -= 1
	}
	s = ms1.Interp(s0, s1, t)
	v = ms1.Interp(v0, v1, t)
	return h, s, v
}

// colorToHSV converts the non-premultiplied color of c.
func colorToHSV(c color.Color) (h, s, v float32) {
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	return rgbToHSV(float32(nc.R)/math.MaxUint8, float32(nc.G)/math.MaxUint8, float32(nc.B)/math.MaxUint8)
}

// rgbToC converts r, g, and b values on the range of 0.0 to 1.0 to a
// 24 bit RGB value stored in the least significant bits of a uint32. The inputs
// are clamped to the range of 0.0 to 1.0
func rgbToC(r, g, b float32) (c uint32) {
	return uint32(ms1.Clamp(r, 0, 1)*math.MaxUint8+0.5)<<16 |
		uint32(ms1.Clamp(g, 0, 1)*math.MaxUint8+0.5)<<8 |
		uint32(ms1.Clamp(b, 0, 1)*math.MaxUint8+0.5)
}

// hsvToRGB converts hue, saturation and brightness values on the range of 0.0
// to 1.0 to RGB floating point values on the range of 0.0 to 1.0
func hsvToRGB(h, s, v float32) (r, g, b float32) {
	var (
		c = s * v
		x = c * (1 - math.Abs(math.Mod(h*6, 2)-1))
		m = v - c
	)
	switch {
	case h >= 0 && h <= 1.0/6:
		r, g, b = c, x, 0
	case h > 1.0/6 && h <= 2.0/6:
		r, g, b = x, c, 0
	case h > 2.0/6 && h <= 3.0/6:
		r, g, b = 0, c, x
	case h > 3.0/6 && h <= 4.0/6:
		r, g, b = 0, x, c
	case h > 4.0/6 && h <= 5.0/6:
		r, g, b = x, 0, c
	case h > 5.0/6 && h <= 1.0:
		r, g, b = c, 0, x
	}
	return r + m, g + m, b + m
}

// rgbToHSV converts red, green, and blue values on the range 0.0 to 1.0
// to hue, saturation and brightness values on the range 0.0 to 1.0
func rgbToHSV(r, g, b float32) (h, s, v float32) {
	var (
		xmax = max(r, g, b)
		xmin = min(r, g, b)
		c    = xmax - xmin
	)
	v = xmax
	switch {
	case c == 0:
		h = 0
	case v == r:
		h = (g - b) / (c * 6)
	case v == g:
		h = 1.0/3 + (b-r)/(c*6)
	case v == b:
		h = 2.0/3 + (r-g)/(c*6)
	}
	if h < 0 {
		h += 1
	}
	if xmax > 0 {
		s = c / xmax
	}
	return h, s, v
}
