package glblendaux

import (
	"errors"
	"image"
	"image/color"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// TextConfig configures a text layer.
type TextConfig struct {
	Text string
	// Size is the font size in points at 72 DPI, i.e. pixels. Defaults to 32.
	Size float64
	// Color of the glyphs. Defaults to opaque black.
	Color color.Color
	// TTF is a TrueType font. The Go regular font is used if nil.
	TTF []byte
	// Padding in pixels around the text.
	Padding int
}

// TextLayer renders a single line of text on a transparent layer sized to fit it.
func TextLayer(cfg TextConfig) (*image.NRGBA, error) {
	if cfg.Text == "" {
		return nil, errors.New("empty text")
	} else if cfg.Size < 0 || cfg.Padding < 0 {
		return nil, errors.New("negative text size or padding")
	}
	if cfg.Size == 0 {
		cfg.Size = 32
	}
	if cfg.Color == nil {
		cfg.Color = color.Black
	}
	ttf := cfg.TTF
	if ttf == nil {
		ttf = goregular.TTF
	}
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	face := truetype.NewFace(f, &truetype.Options{Size: cfg.Size, DPI: 72, Hinting: font.HintingFull})
	defer face.Close()

	metrics := face.Metrics()
	advance := font.MeasureString(face, cfg.Text)
	width := advance.Ceil() + 2*cfg.Padding
	height := (metrics.Ascent + metrics.Descent).Ceil() + 2*cfg.Padding
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(cfg.Color),
		Face: face,
		Dot:  fixed.P(cfg.Padding, cfg.Padding+metrics.Ascent.Ceil()),
	}
	d.DrawString(cfg.Text)
	return img, nil
}
