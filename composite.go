package glblend

import (
	"fmt"
	"strconv"
)

// Coefficient is a Porter-Duff factor applied to the source or destination
// term of the compositing equation. Non-negative values are literal constants,
// negative values are the sentinels below which resolve per fragment.
//
// Coefficients travel to the shader as the components of an ivec2 uniform,
// so constants are integral.
type Coefficient int32

// Coefficient sentinels. The values are part of the shader interface.
const (
	DestinationAlpha           Coefficient = -1
	SourceAlpha                Coefficient = -2
	DestinationAlphaComplement Coefficient = -3
	SourceAlphaComplement      Coefficient = -4
)

// Constant returns a literal coefficient. It panics if n is negative.
func Constant(n int) Coefficient {
	if n < 0 {
		panic("glblend: negative Porter-Duff constant")
	}
	return Coefficient(n)
}

// IsSentinel reports whether c resolves to an alpha-dependent value.
func (c Coefficient) IsSentinel() bool { return c < 0 }

// Resolve returns the value of c for a fragment with destination alpha ba
// and source alpha aa.
func (c Coefficient) Resolve(ba, aa float32) float32 {
	switch c {
	case DestinationAlpha:
		return ba
	case SourceAlpha:
		return aa
	case DestinationAlphaComplement:
		return 1 - ba
	case SourceAlphaComplement:
		return 1 - aa
	}
	return float32(c)
}

func (c Coefficient) String() string {
	switch c {
	case DestinationAlpha:
		return "dstAlpha"
	case SourceAlpha:
		return "srcAlpha"
	case DestinationAlphaComplement:
		return "dstAlphaComplement"
	case SourceAlphaComplement:
		return "srcAlphaComplement"
	}
	return strconv.Itoa(int(c))
}

// CompositeMethod is a Porter-Duff operator: the pair of coefficients
// applied to the source (Fa) and destination (Fb).
type CompositeMethod struct {
	Fa Coefficient
	Fb Coefficient
}

// PorterDuff returns the composite method with coefficients fa and fb.
func PorterDuff(fa, fb Coefficient) CompositeMethod {
	return CompositeMethod{Fa: fa, Fb: fb}
}

// Standard compositing operators.
var (
	Clear           = PorterDuff(0, 0)
	Copy            = PorterDuff(1, 0)
	Destination     = PorterDuff(0, 1)
	SourceOver      = PorterDuff(1, DestinationAlphaComplement)
	DestinationOver = PorterDuff(DestinationAlphaComplement, 1)
	SourceIn        = PorterDuff(DestinationAlpha, 0)
	DestinationIn   = PorterDuff(0, SourceAlpha)
	SourceOut       = PorterDuff(DestinationAlphaComplement, 0)
	DestinationOut  = PorterDuff(0, SourceAlphaComplement)
	SourceAtop      = PorterDuff(DestinationAlpha, SourceAlphaComplement)
	DestinationAtop = PorterDuff(DestinationAlphaComplement, SourceAlpha)
	Xor             = PorterDuff(DestinationAlphaComplement, SourceAlphaComplement)
	Lighter         = PorterDuff(1, 1)
)

// compositeNames uses the canvas globalCompositeOperation spelling.
var compositeNames = []struct {
	name string
	m    CompositeMethod
}{
	{"clear", Clear},
	{"copy", Copy},
	{"destination", Destination},
	{"source-over", SourceOver},
	{"destination-over", DestinationOver},
	{"source-in", SourceIn},
	{"destination-in", DestinationIn},
	{"source-out", SourceOut},
	{"destination-out", DestinationOut},
	{"source-atop", SourceAtop},
	{"destination-atop", DestinationAtop},
	{"xor", Xor},
	{"lighter", Lighter},
}

// ParseCompositeMethod returns the named operator, i.e: "source-over", "xor", "destination-out".
func ParseCompositeMethod(name string) (CompositeMethod, error) {
	for _, cn := range compositeNames {
		if cn.name == name {
			return cn.m, nil
		}
	}
	return CompositeMethod{}, fmt.Errorf("unknown composite method %q", name)
}

// String returns the operator's name, or its coefficients if it is not a named operator.
func (m CompositeMethod) String() string {
	for _, cn := range compositeNames {
		if cn.m == m {
			return cn.name
		}
	}
	return "porter-duff(" + m.Fa.String() + ", " + m.Fb.String() + ")"
}

// Resolve returns the concrete coefficients of m for a fragment with
// destination alpha ba and source alpha aa.
func (m CompositeMethod) Resolve(ba, aa float32) (fa, fb float32) {
	return m.Fa.Resolve(ba, aa), m.Fb.Resolve(ba, aa)
}
