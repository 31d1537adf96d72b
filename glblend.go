// Package glblend implements layer compositing with Porter-Duff operators and
// the separable and non-separable blend modes of layered image editors.
//
// Blend modes are GLSL ES fragment shaders built from a single source, blend.frag.glsl,
// parametrized at compile time with a METHOD definition. The same math is available
// on the CPU through [BlendChannel], [BlendRGB] and [Composite], which back the
// software kernels returned by [CompileKernel].
//
// Shaders are run by the compositing pipeline in package gleval.
package glblend

import (
	_ "embed"

	"github.com/soypat/glblend/glbuild"
)

//go:embed blend.frag.glsl
var blendGLSL string

// Uniform names of the blend fragment stage.
const (
	UniformPorterDuff = "u_porterDuff"
	UniformSrcImage   = "blender_srcImage"
	UniformDstImage   = "blender_dstImage"
	UniformSrcArea    = "blender_srcArea"
	VaryingDstCoord   = "blender_dstCoord"
	VaryingSrcCoord   = "blender_srcCoord"
)

// BlendSource is the unparametrized blend fragment source. Programs are built from
// its METHOD-defined variants; see [ShaderFor].
var BlendSource = glbuild.NewSource(blendGLSL)

// modeSources holds one source per mode so every shader of a mode shares a program.
var modeSources = func() (srcs [modeCount]*glbuild.Source) {
	for m := ModeNormal; m < modeCount; m++ {
		srcs[m] = BlendSource.WithDefine(map[string]string{"METHOD": m.define()})
	}
	return srcs
}()
