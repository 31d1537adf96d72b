package glblendaux

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/soypat/glblend"
)

func TestComposeCPU(t *testing.T) {
	bg := GradientLayer(8, 4, color.NRGBA{R: 255, A: 255}, color.NRGBA{B: 255, A: 255})
	top := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := range top.Pix {
		top.Pix[i] = 255
	}
	img, err := Compose(ComposeConfig{Silent: true}, []Layer{
		{Image: bg},
		{Image: top, X: 3, Y: 1, Shader: glblend.Multiply},
	})
	if err != nil {
		t.Fatal(err)
	}
	if img.Rect.Dx() != 8 || img.Rect.Dy() != 4 {
		t.Fatalf("canvas size %v, want first layer's size", img.Rect)
	}
	// Multiplying by white leaves the background.
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			if got, want := img.NRGBAAt(x, y), bg.NRGBAAt(x, y); got != want {
				t.Errorf("pixel (%d,%d): want %v, got %v", x, y, want, got)
			}
		}
	}
}

func TestComposeErrors(t *testing.T) {
	if _, err := Compose(ComposeConfig{Silent: true}, nil); err == nil {
		t.Error("no layers accepted")
	}
	_, err := Compose(ComposeConfig{Silent: true, Width: 2, Height: 2}, []Layer{{}})
	if err == nil {
		t.Error("layer without image accepted")
	}
}

func TestGradientLayer(t *testing.T) {
	red, blue := color.NRGBA{R: 255, A: 255}, color.NRGBA{B: 255, A: 0}
	img := GradientLayer(5, 2, red, blue)
	if got := img.NRGBAAt(0, 1); got != red {
		t.Errorf("left edge: want %v, got %v", red, got)
	}
	if got := img.NRGBAAt(4, 0); got != blue {
		t.Errorf("right edge: want %v, got %v", blue, got)
	}
	mid := img.NRGBAAt(2, 0)
	// Red to blue goes through magenta, the short way around the hue circle.
	if mid.G != 0 || mid.R < 200 || mid.B < 200 || mid.A != 128 {
		t.Errorf("midpoint %v is not magenta at half alpha", mid)
	}
	for _, test := range []struct {
		width, height int
	}{
		{4, 0},
		{0, 3},
		{0, 0},
		{-2, 5},
		{5, -1},
	} {
		img := GradientLayer(test.width, test.height, color.Black, color.White)
		if !img.Rect.Empty() || len(img.Pix) != 0 {
			t.Errorf("%dx%d: want empty layer, got bounds %v", test.width, test.height, img.Rect)
		}
	}
}

func TestToNRGBA(t *testing.T) {
	src := image.NewRGBA(image.Rect(2, 3, 5, 5))
	src.Set(2, 3, color.RGBA{R: 100, A: 200})
	got := ToNRGBA(src)
	if got.Rect != image.Rect(0, 0, 3, 2) {
		t.Fatalf("bounds %v", got.Rect)
	}
	c := got.NRGBAAt(0, 0)
	if c.A != 200 || c.R < 127 || c.R > 128 {
		t.Errorf("premultiplied conversion wrong: %v", c)
	}
	n := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	if ToNRGBA(n) != n {
		t.Error("NRGBA at origin was copied")
	}
}

func TestResize(t *testing.T) {
	src := GradientLayer(4, 4, color.White, color.White)
	got := Resize(src, 2, 8)
	if got.Rect.Dx() != 2 || got.Rect.Dy() != 8 {
		t.Fatalf("bounds %v", got.Rect)
	}
	if c := got.NRGBAAt(1, 5); c != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("uniform image changed color: %v", c)
	}
}

func TestPNGRoundTrip(t *testing.T) {
	name := filepath.Join(t.TempDir(), "layer.png")
	img := GradientLayer(6, 3, color.NRGBA{G: 255, A: 255}, color.NRGBA{R: 255, A: 100})
	if err := WritePNGFile(name, img); err != nil {
		t.Fatal(err)
	}
	got, err := ReadPNGFile(name)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 6; x++ {
			if got.NRGBAAt(x, y) != img.NRGBAAt(x, y) {
				t.Fatalf("pixel (%d,%d): want %v, got %v", x, y, img.NRGBAAt(x, y), got.NRGBAAt(x, y))
			}
		}
	}
	if _, err := ReadPNGFile(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("missing file read")
	}
}

func TestTextLayer(t *testing.T) {
	img, err := TextLayer(TextConfig{Text: "glblend", Size: 20, Color: color.NRGBA{R: 200, A: 255}, Padding: 2})
	if err != nil {
		t.Fatal(err)
	}
	if img.Rect.Dx() <= 4 || img.Rect.Dy() <= 4 {
		t.Fatalf("text layer too small: %v", img.Rect)
	}
	var inked, clear int
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] == 0 {
			clear++
		} else {
			inked++
		}
	}
	if inked == 0 || clear == 0 {
		t.Errorf("want ink on a transparent layer, got %d inked and %d clear pixels", inked, clear)
	}
	if _, err := TextLayer(TextConfig{}); err == nil {
		t.Error("empty text accepted")
	}
}
