package glblend

import (
	"fmt"
	"strconv"

	"github.com/soypat/glblend/glbuild"
)

// Mode selects the color mixing function of a [BlendShader]. Its value is the
// METHOD definition the blend source is compiled with.
type Mode uint8

// Blend modes. Modes up to ModeExclusion are separable and mix each channel
// independently. The last four mix the whole RGB triple through luminance
// and saturation.
const (
	ModeNormal Mode = iota + 1
	ModeMultiply
	ModeScreen
	ModeOverlay
	ModeDarken
	ModeLighten
	ModeColorDodge
	ModeColorBurn
	ModeHardLight
	ModeSoftLight
	ModeDifference
	ModeExclusion
	ModeHue
	ModeSaturation
	ModeColor
	ModeLuminosity
	modeCount
)

var modeNames = [modeCount]string{
	ModeNormal:     "normal",
	ModeMultiply:   "multiply",
	ModeScreen:     "screen",
	ModeOverlay:    "overlay",
	ModeDarken:     "darken",
	ModeLighten:    "lighten",
	ModeColorDodge: "color-dodge",
	ModeColorBurn:  "color-burn",
	ModeHardLight:  "hard-light",
	ModeSoftLight:  "soft-light",
	ModeDifference: "difference",
	ModeExclusion:  "exclusion",
	ModeHue:        "hue",
	ModeSaturation: "saturation",
	ModeColor:      "color",
	ModeLuminosity: "luminosity",
}

// IsValid reports whether m is one of the defined modes.
func (m Mode) IsValid() bool { return m >= ModeNormal && m < modeCount }

// IsSeparable reports whether m mixes each color channel independently.
func (m Mode) IsSeparable() bool { return m >= ModeNormal && m <= ModeExclusion }

func (m Mode) String() string {
	if !m.IsValid() {
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
	return modeNames[m]
}

func (m Mode) define() string { return strconv.Itoa(int(m)) }

// ParseMode returns the mode with the CSS mix-blend-mode name, i.e: "multiply", "color-dodge".
func ParseMode(name string) (Mode, error) {
	for m := ModeNormal; m < modeCount; m++ {
		if modeNames[m] == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown blend mode %q", name)
}

// BlendShader is a [glbuild.Shader] that mixes the source layer into the
// accumulated canvas with a blend mode and composites the result with a
// [CompositeMethod]. BlendShaders are immutable.
type BlendShader struct {
	mode   Mode
	method CompositeMethod
	args   map[string]glbuild.Arg
}

var _ glbuild.Shader = (*BlendShader)(nil)

// Blend mode shaders, compositing with SourceOver.
var (
	Normal     = newBlendShader(ModeNormal, SourceOver)
	Multiply   = newBlendShader(ModeMultiply, SourceOver)
	Screen     = newBlendShader(ModeScreen, SourceOver)
	Overlay    = newBlendShader(ModeOverlay, SourceOver)
	Darken     = newBlendShader(ModeDarken, SourceOver)
	Lighten    = newBlendShader(ModeLighten, SourceOver)
	ColorDodge = newBlendShader(ModeColorDodge, SourceOver)
	ColorBurn  = newBlendShader(ModeColorBurn, SourceOver)
	HardLight  = newBlendShader(ModeHardLight, SourceOver)
	SoftLight  = newBlendShader(ModeSoftLight, SourceOver)
	Difference = newBlendShader(ModeDifference, SourceOver)
	Exclusion  = newBlendShader(ModeExclusion, SourceOver)
	Hue        = newBlendShader(ModeHue, SourceOver)
	Saturation = newBlendShader(ModeSaturation, SourceOver)
	Color      = newBlendShader(ModeColor, SourceOver)
	Luminosity = newBlendShader(ModeLuminosity, SourceOver)
)

// ShaderFor returns the catalog shader of mode m. It panics if m is not valid.
func ShaderFor(m Mode) *BlendShader {
	switch m {
	case ModeNormal:
		return Normal
	case ModeMultiply:
		return Multiply
	case ModeScreen:
		return Screen
	case ModeOverlay:
		return Overlay
	case ModeDarken:
		return Darken
	case ModeLighten:
		return Lighten
	case ModeColorDodge:
		return ColorDodge
	case ModeColorBurn:
		return ColorBurn
	case ModeHardLight:
		return HardLight
	case ModeSoftLight:
		return SoftLight
	case ModeDifference:
		return Difference
	case ModeExclusion:
		return Exclusion
	case ModeHue:
		return Hue
	case ModeSaturation:
		return Saturation
	case ModeColor:
		return Color
	case ModeLuminosity:
		return Luminosity
	}
	panic("glblend: invalid blend mode " + m.String())
}

func newBlendShader(m Mode, method CompositeMethod) *BlendShader {
	return &BlendShader{
		mode:   m,
		method: method,
		args: map[string]glbuild.Arg{
			UniformPorterDuff: glbuild.Int(int32(method.Fa), int32(method.Fb)),
		},
	}
}

// Source implements [glbuild.Shader]. All shaders of the same mode share the source.
func (bs *BlendShader) Source() *glbuild.Source { return modeSources[bs.mode] }

// Args implements [glbuild.Shader].
func (bs *BlendShader) Args() map[string]glbuild.Arg { return bs.args }

// Mode returns the blend mode.
func (bs *BlendShader) Mode() Mode { return bs.mode }

// CompositeMethod returns the Porter-Duff operator the shader composites with.
func (bs *BlendShader) CompositeMethod() CompositeMethod { return bs.method }

// WithCompositeMethod returns a new shader with the same blend mode and source
// which composites with method.
func (bs *BlendShader) WithCompositeMethod(method CompositeMethod) *BlendShader {
	return newBlendShader(bs.mode, method)
}

func (bs *BlendShader) String() string {
	return bs.mode.String() + "/" + bs.method.String()
}
