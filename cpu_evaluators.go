package glblend

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// BlendChannel returns the separable blend of source channel s over
// destination channel d, both in [0,1]. It panics for non-separable modes.
func BlendChannel(m Mode, s, d float32) float32 {
	switch m {
	case ModeNormal:
		return s
	case ModeMultiply:
		return multiply(s, d)
	case ModeScreen:
		return screen(s, d)
	case ModeOverlay:
		return hardLight(d, s)
	case ModeDarken:
		return math32.Min(d, s)
	case ModeLighten:
		return math32.Max(d, s)
	case ModeColorDodge:
		return colorDodge(s, d)
	case ModeColorBurn:
		return colorBurn(s, d)
	case ModeHardLight:
		return hardLight(s, d)
	case ModeSoftLight:
		return softLight(s, d)
	case ModeDifference:
		return math32.Abs(d - s)
	case ModeExclusion:
		return d + s - 2*d*s
	}
	panic("glblend: BlendChannel needs a separable mode, got " + m.String())
}

// BlendRGB returns the blend of source color src over destination color dst
// with the X, Y, Z components holding red, green and blue.
func BlendRGB(m Mode, src, dst ms3.Vec) ms3.Vec {
	switch m {
	case ModeHue:
		return SetLum(SetSat(src, Sat(dst)), Lum(dst))
	case ModeSaturation:
		return SetLum(SetSat(dst, Sat(src)), Lum(dst))
	case ModeColor:
		return SetLum(src, Lum(dst))
	case ModeLuminosity:
		return SetLum(dst, Lum(src))
	}
	return ms3.Vec{
		X: BlendChannel(m, src.X, dst.X),
		Y: BlendChannel(m, src.Y, dst.Y),
		Z: BlendChannel(m, src.Z, dst.Z),
	}
}

// Composite evaluates the compositing equation for one fragment. below is the
// accumulated destination color, above the source color, both non-premultiplied
// RGBA in [0,1]. fa and fb are resolved Porter-Duff coefficients.
//
//	ao = aa*fa + ab*fb
//	cm = (1-ab)*ca + ab*blend(ca, cb)
//	co = aa*fa*cm + ab*fb*cb
//	result = (co/ao, ao), or transparent black when ao <= 0
func Composite(fa, fb float32, below, above [4]float32, m Mode) [4]float32 {
	aa, ab := above[3], below[3]
	ca := ms3.Vec{X: above[0], Y: above[1], Z: above[2]}
	cb := ms3.Vec{X: below[0], Y: below[1], Z: below[2]}
	ao := aa*fa + ab*fb
	if ao <= 0 {
		return [4]float32{}
	}
	cm := ms3.Add(ms3.Scale(1-ab, ca), ms3.Scale(ab, BlendRGB(m, ca, cb)))
	co := ms3.Add(ms3.Scale(aa*fa, cm), ms3.Scale(ab*fb, cb))
	co = ms3.Scale(1/ao, co)
	return [4]float32{co.X, co.Y, co.Z, ao}
}

func multiply(s, d float32) float32 {
	return d * s
}

func screen(s, d float32) float32 {
	return d + s - d*s
}

func hardLight(s, d float32) float32 {
	if s <= 0.5 {
		return multiply(d, 2*s)
	}
	return screen(d, 2*s-1)
}

func colorDodge(s, d float32) float32 {
	if d == 0 {
		return 0
	} else if s == 1 {
		return 1
	}
	return math32.Min(1, d/(1-s))
}

func colorBurn(s, d float32) float32 {
	if d == 1 {
		return 1
	} else if s == 0 {
		return 0
	}
	return 1 - math32.Min(1, (1-d)/s)
}

func softLight(s, d float32) float32 {
	if s <= 0.5 {
		return d - (1-2*s)*d*(1-d)
	}
	var e float32
	if d <= 0.25 {
		e = ((16*d-12)*d + 4) * d
	} else {
		e = math32.Sqrt(d)
	}
	return d + (2*s-1)*(e-d)
}

// Lum returns the luminance of an RGB color.
func Lum(c ms3.Vec) float32 {
	return 0.3*c.X + 0.59*c.Y + 0.11*c.Z
}

// Sat returns the saturation of an RGB color: its largest minus smallest component.
func Sat(c ms3.Vec) float32 {
	return max3(c) - min3(c)
}

// ClipColor brings out of range components of c back into [0,1] by moving
// the color towards its luminance, keeping hue.
func ClipColor(c ms3.Vec) ms3.Vec {
	l := Lum(c)
	n := min3(c)
	x := max3(c)
	lv := ms3.Vec{X: l, Y: l, Z: l}
	if n < 0 {
		c = ms3.Add(lv, ms3.Scale(l/(l-n), ms3.Sub(c, lv)))
	}
	if x > 1 {
		c = ms3.Add(lv, ms3.Scale((1-l)/(x-l), ms3.Sub(c, lv)))
	}
	return c
}

// SetLum returns c shifted to luminance l and clipped to [0,1].
func SetLum(c ms3.Vec, l float32) ms3.Vec {
	d := l - Lum(c)
	return ClipColor(ms3.Add(c, ms3.Vec{X: d, Y: d, Z: d}))
}

// SetSat returns c with saturation s. The smallest component becomes zero, the
// largest s and the middle one keeps its relative position. A gray c becomes black.
func SetSat(c ms3.Vec, s float32) ms3.Vec {
	cmax, cmin := max3(c), min3(c)
	top := s
	if cmax <= cmin {
		top = 0
	}
	mid := func(cmin, cmid, cmax float32) float32 {
		if cmax > cmin {
			return (cmid - cmin) * s / (cmax - cmin)
		}
		return 0
	}
	r, g, b := c.X, c.Y, c.Z
	switch {
	case r >= g && r >= b:
		if g >= b {
			return ms3.Vec{X: top, Y: mid(b, g, r)}
		}
		return ms3.Vec{X: top, Z: mid(g, b, r)}
	case g >= b:
		if r >= b {
			return ms3.Vec{X: mid(b, r, g), Y: top}
		}
		return ms3.Vec{Y: top, Z: mid(r, b, g)}
	case r >= g:
		return ms3.Vec{X: mid(g, r, b), Z: top}
	}
	return ms3.Vec{Y: mid(r, g, b), Z: top}
}

func max3(c ms3.Vec) float32 { return math32.Max(c.X, math32.Max(c.Y, c.Z)) }
func min3(c ms3.Vec) float32 { return math32.Min(c.X, math32.Min(c.Y, c.Z)) }
