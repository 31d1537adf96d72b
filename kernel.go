package glblend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/soypat/glblend/glbuild"
)

var _ glbuild.KernelCompiler = CompileKernel

// CompileKernel returns the CPU kernel of a blend fragment source, as passed to a
// backend by the compositing pipeline (prelude included). Only sources derived from
// [BlendSource] with a valid METHOD definition are supported. Errors read like a
// GLSL compiler log.
func CompileKernel(source string) (glbuild.FragmentKernel, error) {
	text, ok := strings.CutPrefix(source, glbuild.Prelude)
	if !ok {
		return nil, fmt.Errorf("ERROR: 0:1: '' : unsupported or missing version directive")
	}
	defs, body := glbuild.ParseDefines(text)
	if body != blendGLSL {
		return nil, fmt.Errorf("ERROR: 0:%d: '' : no CPU kernel for fragment source", len(defs)+1)
	}
	method, ok := defs["METHOD"]
	if !ok {
		return nil, fmt.Errorf("ERROR: 0:%d: 'blend' : function declared but not defined (METHOD undefined)", len(defs)+1)
	}
	n, err := strconv.Atoi(method)
	if err != nil || n < int(ModeNormal) || n >= int(modeCount) {
		return nil, fmt.Errorf("ERROR: 0:%d: 'blend' : function declared but not defined (METHOD=%s)", len(defs)+1, method)
	}
	return blendKernel(Mode(n)), nil
}

// blendKernel mirrors main() of blend.frag.glsl.
func blendKernel(m Mode) glbuild.FragmentKernel {
	return func(env glbuild.Env, in glbuild.Varyings) [4]float32 {
		dstImg := env.Sampler(UniformDstImage)
		srcImg := env.Sampler(UniformSrcImage)
		if dstImg == nil || srcImg == nil {
			return [4]float32{0, 0, 0, 1} // Incomplete texture.
		}
		sw, sh := srcImg.Size()
		area := uniformFloats(env, UniformSrcArea)
		srcCoord := in.Get(VaryingSrcCoord)
		minX, minY := area[0]/float32(sw), area[1]/float32(sh)
		maxX, maxY := (area[0]+area[2])/float32(sw), (area[1]+area[3])/float32(sh)
		outside := srcCoord.X < minX || srcCoord.Y < minY || srcCoord.X > maxX || srcCoord.Y > maxY

		dst := dstImg.Texel(in.Get(VaryingDstCoord))
		if outside {
			return dst
		}
		src := srcImg.Texel(srcCoord)
		pd := uniformInts(env, UniformPorterDuff)
		fa := Coefficient(pd[0]).Resolve(dst[3], src[3])
		fb := Coefficient(pd[1]).Resolve(dst[3], src[3])
		return Composite(fa, fb, dst, src, m)
	}
}

// uniformFloats returns the first four float components of a uniform. Unset uniforms are zero.
func uniformFloats(env glbuild.Env, name string) (v [4]float32) {
	u, _ := env.Uniform(name)
	copy(v[:], u.Floats)
	return v
}

func uniformInts(env glbuild.Env, name string) (v [4]int32) {
	u, _ := env.Uniform(name)
	copy(v[:], u.Ints)
	return v
}
