package glbuild

import "github.com/soypat/geometry/ms2"

// UniformValue is the last value written to a uniform through a [Uniformer].
// Exactly one of Ints, Floats or Uints is non-nil after a write.
type UniformValue struct {
	Ints   []int32
	Floats []float32
	Uints  []uint32
	// Rows and Cols are set for matrix uniforms, whose Floats are column-major.
	Rows, Cols int
}

// Sampler reads an RGBA texture bound to a sampler uniform.
// Colors are normalized to [0,1].
type Sampler interface {
	// Size returns the texture size in texels, like GLSL textureSize(s, 0).
	Size() (width, height int)
	// Texel samples the texture at normalized coordinates, like GLSL texture(s, coord).
	Texel(coord ms2.Vec) [4]float32
}

// Env is the program state a CPU kernel can read while it runs.
type Env interface {
	// Uniform returns the value of the named uniform and whether it was ever set.
	Uniform(name string) (UniformValue, bool)
	// Sampler returns the texture bound to the texture unit the named sampler
	// uniform points to. It returns nil if no texture is bound to the unit.
	Sampler(name string) Sampler
}

// Varyings are the named vec2 outputs of a vertex stage, interpolated for a fragment.
type Varyings struct {
	Names  []string
	Values []ms2.Vec
}

// Get returns the value of the named varying. Missing varyings read as zero.
func (v Varyings) Get(name string) ms2.Vec {
	for i, n := range v.Names {
		if n == name {
			return v.Values[i]
		}
	}
	return ms2.Vec{}
}

// VertexKernel is the CPU counterpart of a vertex stage with a single vec2
// attribute and vec2 varyings.
type VertexKernel struct {
	// Attrib is the name of the vec2 position attribute.
	Attrib string
	// Varyings names the outputs written by Main, in order.
	Varyings []string
	// Main returns the clip-space xy position of the vertex and writes
	// len(Varyings) outputs to out.
	Main func(env Env, attrib ms2.Vec, out []ms2.Vec) (position ms2.Vec)
}

// FragmentKernel is the CPU counterpart of a fragment stage. It returns the
// fragment's RGBA color before quantization to the render target format.
type FragmentKernel func(env Env, in Varyings) [4]float32

// KernelCompiler compiles fragment source text (as returned by [Source.WithPrelude])
// into a [FragmentKernel]. It returns an error with a compiler-style diagnostic
// if the source is not supported.
type KernelCompiler func(source string) (FragmentKernel, error)
